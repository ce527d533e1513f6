package cli_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/logicbridge/internal/cli"
	"github.com/aretw0/logicbridge/internal/config"
	"github.com/aretw0/logicbridge/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const family = "parent(a, b).\nparent(a, c).\n"

func newApp(t *testing.T, out *bytes.Buffer) *cli.App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "family.pl")
	require.NoError(t, os.WriteFile(path, []byte(family), 0o644))

	cfg := config.Default()
	cfg.Programs = []string{path}
	cfg.Store = config.StoreConfig{Kind: "file", Path: t.TempDir()}

	app, err := cli.NewApp(context.Background(), cfg, logging.NewNop(), out, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestQuery(t *testing.T) {
	var out bytes.Buffer
	app := newApp(t, &out)
	ctx := context.Background()

	require.NoError(t, cli.Query(ctx, app, &out, nil, "parent(a, X)", false))
	assert.Equal(t, "| X |\n| --- |\n| `b` |\n", out.String())

	out.Reset()
	require.NoError(t, cli.Query(ctx, app, &out, nil, "parent(a, X)", true))
	assert.Equal(t, "| X |\n| --- |\n| `b` |\n| `c` |\n", out.String())

	out.Reset()
	require.NoError(t, cli.FindAll(ctx, app, &out, nil, "parent(X, c)"))
	assert.Equal(t, "1. `parent(a, c)`\n", out.String())
}

func TestREPL(t *testing.T) {
	var out bytes.Buffer
	app := newApp(t, &out)

	in := strings.NewReader(strings.Join([]string{
		"parent(a,",
		"  X).",
		":assert parent(b, d).",
		"parent(b, X).",
		":program",
		":save",
		":bogus",
		":quit",
		"parent(never, X).",
	}, "\n"))
	repl := &cli.REPL{App: app, In: in, Out: &out}
	require.NoError(t, repl.Run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "| `b` |\n| `c` |")
	assert.Contains(t, got, "|    ", "continuation prompt")
	assert.Contains(t, got, "| `d` |")
	assert.Contains(t, got, "parent(b, d).\n")
	assert.Contains(t, got, "saved default")
	assert.Contains(t, got, "unknown command :bogus")
	assert.NotContains(t, got, "never")

	clauses, err := app.Sessions.Store().Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, []string{"parent(a, b)", "parent(a, c)", "parent(b, d)"}, clauses)
}

func TestREPL_Limit(t *testing.T) {
	var out bytes.Buffer
	app := newApp(t, &out)

	repl := &cli.REPL{App: app, In: strings.NewReader("between(1, 100, X).\n"), Out: &out, Limit: 3}
	require.NoError(t, repl.Run(context.Background()))
	assert.Contains(t, out.String(), "| `3` |")
	assert.NotContains(t, out.String(), "| `4` |")
	assert.Contains(t, out.String(), "first 3 solutions shown")
}

func TestREPL_IdleCancel(t *testing.T) {
	var out bytes.Buffer
	app := newApp(t, &out)

	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	repl := &cli.REPL{App: app, In: in, Out: &bytes.Buffer{}}
	go func() { errCh <- repl.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("REPL kept waiting for input after cancellation")
	}
}
