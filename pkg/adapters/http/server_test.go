package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/internal/adapters/memory"
	lbhttp "github.com/aretw0/logicbridge/pkg/adapters/http"
	"github.com/aretw0/logicbridge/pkg/session"
	"github.com/aretw0/logicbridge/pkg/streams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(
		session.WithStore(memory.New()),
		session.WithFactory(func(name string) (*logicbridge.Session, error) {
			return logicbridge.New(logicbridge.WithName(name), logicbridge.WithOutput(streams.Discard{}))
		}),
	)
	srv := httptest.NewServer(lbhttp.NewHandler(mgr, lbhttp.WithMetrics(http.NotFoundHandler())))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.CloseAll()
	})
	return srv, mgr
}

func post(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestServer_ConsultAndQuery(t *testing.T) {
	srv, _ := newServer(t)

	resp := post(t, srv, "/sessions/family/consult", lbhttp.ProgramRequest{Program: "parent(a, b). parent(a, c)."})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = post(t, srv, "/sessions/family/query", lbhttp.QueryRequest{Query: "parent(a, X), write(X)"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q := decode[lbhttp.QueryResponse](t, resp)
	assert.True(t, q.Found)
	assert.Equal(t, map[string]any{"X": "b"}, q.Bindings)
	assert.Equal(t, "b", q.Output)

	resp = post(t, srv, "/sessions/family/query", lbhttp.QueryRequest{Query: "parent(b, X)"})
	q = decode[lbhttp.QueryResponse](t, resp)
	assert.False(t, q.Found)

	resp = post(t, srv, "/sessions/family/findall", lbhttp.QueryRequest{Query: "parent(a, X)"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[lbhttp.FindAllResponse](t, resp)
	require.Len(t, all.Solutions, 2)
	assert.Equal(t, map[string]any{"functor": "parent", "args": []any{"a", "b"}}, all.Solutions[0])
}

func TestServer_AssertSaveAndList(t *testing.T) {
	srv, mgr := newServer(t)

	resp := post(t, srv, "/sessions/kb/assert", lbhttp.ProgramRequest{Program: "n(1). n(2)."})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = post(t, srv, "/sessions/kb/save", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	clauses, err := mgr.Store().Load(t.Context(), "kb")
	require.NoError(t, err)
	assert.Equal(t, []string{"n(1)", "n(2)"}, clauses)

	list, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)
	defer list.Body.Close()
	assert.Equal(t, []string{"kb"}, decode[map[string][]string](t, list)["sessions"])

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/kb", nil)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)
	assert.Empty(t, mgr.List())
}

func TestServer_Errors(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/sessions/x/query", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, srv, "/sessions/x/consult", lbhttp.ProgramRequest{Program: "broken("})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.NotEmpty(t, decode[map[string]string](t, resp)["error"])
}
