package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/pkg/session"
	"github.com/aretw0/logicbridge/pkg/streams"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr := session.NewManager(session.WithFactory(func(name string) (*logicbridge.Session, error) {
		return logicbridge.New(logicbridge.WithName(name), logicbridge.WithOutput(streams.Discard{}))
	}))
	t.Cleanup(func() { _ = mgr.CloseAll() })
	return NewServer(mgr)
}

func TestTools_ConsultQueryFindAll(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	loaded, err := s.handleConsult(ctx, req, ProgramArgs{Program: "parent(a, b). parent(a, c)."})
	require.NoError(t, err)
	assert.Equal(t, ProgramResult{Session: DefaultSession, Clauses: 2}, loaded)

	q, err := s.handleQuery(ctx, req, QueryArgs{Query: "parent(a, X)"})
	require.NoError(t, err)
	assert.True(t, q.Found)
	assert.Equal(t, map[string]any{"X": "b"}, q.Bindings)

	all, err := s.handleFindAll(ctx, req, QueryArgs{Query: "parent(a, X), write(X)"})
	require.NoError(t, err)
	assert.Len(t, all.Solutions, 2)
	assert.Equal(t, "bc", all.Output)
}

func TestTools_NamedSessionsAreIsolated(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	_, err := s.handleAssert(ctx, req, ProgramArgs{Session: "one", Program: "k(1)."})
	require.NoError(t, err)

	q, err := s.handleQuery(ctx, req, QueryArgs{Session: "two", Query: "catch(k(X), _, fail)"})
	require.NoError(t, err)
	assert.False(t, q.Found)
	assert.Equal(t, []string{"one", "two"}, s.sessions.List())
}

func TestTools_Errors(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleConsult(context.Background(), mcp.CallToolRequest{}, ProgramArgs{Program: "broken("})
	assert.Error(t, err)

	_, err = s.handleFindAll(context.Background(), mcp.CallToolRequest{}, QueryArgs{Query: "undefined_pred(X)"})
	assert.Error(t, err, "unknown procedures raise an existence error")
}
