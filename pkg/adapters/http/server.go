package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/pkg/codec"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/session"
	"github.com/aretw0/logicbridge/pkg/streams"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes the sessions of a Manager over JSON.
type Server struct {
	Sessions *session.Manager
	logger   *slog.Logger
	metrics  http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// ProgramRequest carries program text for consult and assert.
type ProgramRequest struct {
	Program string `json:"program"`
}

// QueryRequest carries a goal.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the first solution of a query, if any.
type QueryResponse struct {
	Found    bool           `json:"found"`
	Bindings map[string]any `json:"bindings,omitempty"`
	Output   string         `json:"output,omitempty"`
}

// FindAllResponse lists every solution of a query.
type FindAllResponse struct {
	Solutions []any  `json:"solutions"`
	Output    string `json:"output,omitempty"`
}

// NewHandler creates the HTTP handler for mgr.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: mgr,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.List)
		r.Route("/{name}", func(r chi.Router) {
			r.Delete("/", s.Close)
			r.Post("/consult", s.Consult)
			r.Post("/assert", s.Assert)
			r.Post("/query", s.Query)
			r.Post("/findall", s.FindAll)
			r.Post("/save", s.Save)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// List handles GET /sessions.
func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.Sessions.List()})
}

// Close handles DELETE /sessions/{name}.
func (s *Server) Close(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Close(chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Consult handles POST /sessions/{name}/consult.
func (s *Server) Consult(w http.ResponseWriter, r *http.Request) {
	var body ProgramRequest
	if !s.decode(w, r, &body) {
		return
	}
	err := s.with(r, func(ctx context.Context, sess *logicbridge.Session) error {
		return sess.Consult(ctx, body.Program)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Assert handles POST /sessions/{name}/assert.
func (s *Server) Assert(w http.ResponseWriter, r *http.Request) {
	var body ProgramRequest
	if !s.decode(w, r, &body) {
		return
	}
	err := s.with(r, func(ctx context.Context, sess *logicbridge.Session) error {
		return sess.AssertProgram(ctx, body.Program)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Query handles POST /sessions/{name}/query: the bindings of the first solution.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var body QueryRequest
	if !s.decode(w, r, &body) {
		return
	}
	var resp QueryResponse
	err := s.with(r, func(ctx context.Context, sess *logicbridge.Session) error {
		out, err := captured(sess, func() error {
			b, err := sess.QueryOne(ctx, body.Query)
			if b != nil {
				resp.Found = true
				resp.Bindings = codec.JSON(b).(map[string]any)
			}
			return err
		})
		resp.Output = out
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// FindAll handles POST /sessions/{name}/findall.
func (s *Server) FindAll(w http.ResponseWriter, r *http.Request) {
	var body QueryRequest
	if !s.decode(w, r, &body) {
		return
	}
	resp := FindAllResponse{Solutions: []any{}}
	err := s.with(r, func(ctx context.Context, sess *logicbridge.Session) error {
		out, err := captured(sess, func() error {
			values, err := sess.FindAll(ctx, body.Query)
			for _, v := range values {
				resp.Solutions = append(resp.Solutions, codec.JSON(v))
			}
			return err
		})
		resp.Output = out
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Save handles POST /sessions/{name}/save.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Save(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) with(r *http.Request, fn func(context.Context, *logicbridge.Session) error) error {
	return s.Sessions.WithLock(r.Context(), chi.URLParam(r, "name"), fn)
}

// captured runs fn with the session output redirected into a buffer.
func captured(sess *logicbridge.Session, fn func() error) (string, error) {
	buf := streams.NewStringOutput()
	prev := sess.SetOutput(buf)
	defer sess.SetOutput(prev)
	err := fn()
	return buf.Value(), err
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var callErr *domain.EngineCallError
	var decErr *domain.DecodeError
	var encErr *domain.EncodeError
	switch {
	case errors.Is(err, domain.ErrProgramNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCallPending), errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict
	case errors.As(err, &callErr), errors.As(err, &decErr), errors.As(err, &encErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
