package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/pkg/codec"
	"github.com/aretw0/logicbridge/pkg/session"
	"github.com/aretw0/logicbridge/pkg/streams"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultSession is used when a tool call names no session.
const DefaultSession = "default"

// ProgramArgs are the arguments of the consult and assert tools.
type ProgramArgs struct {
	Session string `json:"session,omitempty"`
	Program string `json:"program"`
}

// QueryArgs are the arguments of the query and findall tools.
type QueryArgs struct {
	Session string `json:"session,omitempty"`
	Query   string `json:"query"`
}

// ProgramResult acknowledges a program load.
type ProgramResult struct {
	Session string `json:"session" jsonschema_description:"The session the program was loaded into"`
	Clauses int    `json:"clauses" jsonschema_description:"Number of clauses the session now holds"`
}

// QueryResult is the first solution of a query.
type QueryResult struct {
	Found    bool           `json:"found" jsonschema_description:"Whether the query has a solution"`
	Bindings map[string]any `json:"bindings,omitempty" jsonschema_description:"Variable bindings of the first solution"`
	Output   string         `json:"output,omitempty" jsonschema_description:"Text the query wrote"`
}

// FindAllResult lists every solution of a query.
type FindAllResult struct {
	Solutions []any  `json:"solutions" jsonschema_description:"Every solution of the query, in order"`
	Output    string `json:"output,omitempty" jsonschema_description:"Text the query wrote"`
}

// Server exposes the sessions of a Manager as MCP tools.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(mgr *session.Manager) *Server {
	s := &Server{
		sessions:  mgr,
		mcpServer: server.NewMCPServer("logicbridge-mcp", strings.TrimSpace(logicbridge.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionArg := mcp.WithString("session", mcp.Description("Session name (default: \"default\")"))

	s.mcpServer.AddTool(mcp.NewTool("consult",
		mcp.WithDescription("Load program text (clauses and directives) into a session."),
		sessionArg,
		mcp.WithString("program", mcp.Required(), mcp.Description("Program text")),
		mcp.WithOutputSchema[ProgramResult](),
	), mcp.NewStructuredToolHandler(s.handleConsult))

	s.mcpServer.AddTool(mcp.NewTool("assert",
		mcp.WithDescription("Add clauses to the end of their predicates."),
		sessionArg,
		mcp.WithString("program", mcp.Required(), mcp.Description("Clauses separated by '.'")),
		mcp.WithOutputSchema[ProgramResult](),
	), mcp.NewStructuredToolHandler(s.handleAssert))

	s.mcpServer.AddTool(mcp.NewTool("query",
		mcp.WithDescription("Run a query and return the variable bindings of its first solution."),
		sessionArg,
		mcp.WithString("query", mcp.Required(), mcp.Description("Goal, e.g. parent(X, Y)")),
		mcp.WithOutputSchema[QueryResult](),
	), mcp.NewStructuredToolHandler(s.handleQuery))

	s.mcpServer.AddTool(mcp.NewTool("findall",
		mcp.WithDescription("Run a query and return every solution."),
		sessionArg,
		mcp.WithString("query", mcp.Required(), mcp.Description("Goal, e.g. parent(a, X)")),
		mcp.WithOutputSchema[FindAllResult](),
	), mcp.NewStructuredToolHandler(s.handleFindAll))
}

func sessionName(name string) string {
	if name == "" {
		return DefaultSession
	}
	return name
}

func (s *Server) handleConsult(ctx context.Context, _ mcp.CallToolRequest, args ProgramArgs) (ProgramResult, error) {
	return s.load(ctx, args, func(ctx context.Context, sess *logicbridge.Session) error {
		return sess.Consult(ctx, args.Program)
	})
}

func (s *Server) handleAssert(ctx context.Context, _ mcp.CallToolRequest, args ProgramArgs) (ProgramResult, error) {
	return s.load(ctx, args, func(ctx context.Context, sess *logicbridge.Session) error {
		return sess.AssertProgram(ctx, args.Program)
	})
}

func (s *Server) load(ctx context.Context, args ProgramArgs, fn func(context.Context, *logicbridge.Session) error) (ProgramResult, error) {
	res := ProgramResult{Session: sessionName(args.Session)}
	err := s.sessions.WithLock(ctx, res.Session, func(ctx context.Context, sess *logicbridge.Session) error {
		if err := fn(ctx, sess); err != nil {
			return err
		}
		res.Clauses = len(sess.Program())
		return nil
	})
	return res, err
}

func (s *Server) handleQuery(ctx context.Context, _ mcp.CallToolRequest, args QueryArgs) (QueryResult, error) {
	var res QueryResult
	err := s.sessions.WithLock(ctx, sessionName(args.Session), func(ctx context.Context, sess *logicbridge.Session) error {
		out, err := captured(sess, func() error {
			b, err := sess.QueryOne(ctx, args.Query)
			if b != nil {
				res.Found = true
				res.Bindings = codec.JSON(b).(map[string]any)
			}
			return err
		})
		res.Output = out
		return err
	})
	if err != nil {
		return QueryResult{}, fmt.Errorf("query failed: %w", err)
	}
	return res, nil
}

func (s *Server) handleFindAll(ctx context.Context, _ mcp.CallToolRequest, args QueryArgs) (FindAllResult, error) {
	res := FindAllResult{Solutions: []any{}}
	err := s.sessions.WithLock(ctx, sessionName(args.Session), func(ctx context.Context, sess *logicbridge.Session) error {
		out, err := captured(sess, func() error {
			values, err := sess.FindAll(ctx, args.Query)
			for _, v := range values {
				res.Solutions = append(res.Solutions, codec.JSON(v))
			}
			return err
		})
		res.Output = out
		return err
	})
	if err != nil {
		return FindAllResult{}, fmt.Errorf("findall failed: %w", err)
	}
	return res, nil
}

func captured(sess *logicbridge.Session, fn func() error) (string, error) {
	buf := streams.NewStringOutput()
	prev := sess.SetOutput(buf)
	defer sess.SetOutput(prev)
	err := fn()
	return buf.Value(), err
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("logicbridge://sessions", "Open sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource("logicbridge://sessions", s.sessions.List())
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
