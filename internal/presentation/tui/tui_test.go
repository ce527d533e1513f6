package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/logicbridge/internal/presentation/tui"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestBindingsTable(t *testing.T) {
	got := tui.BindingsTable([]map[string]any{
		{"Y": "b", "X": "a"},
		{"Y": "c", "X": "a"},
	})
	assert.Equal(t, "| X | Y |\n| --- | --- |\n| `a` | `b` |\n| `a` | `c` |\n", got)

	assert.Equal(t, "_no solutions_\n", tui.BindingsTable(nil))
	assert.Equal(t, "_yes (1)_\n", tui.BindingsTable([]map[string]any{{}}))
}

func TestValuesList(t *testing.T) {
	got := tui.ValuesList([]any{domain.NewStruct("a", int64(1)), 2.0})
	assert.Equal(t, "1. `a(1)`\n2. `2.0`\n", got)
}

func TestPlainAndBanner(t *testing.T) {
	out, err := tui.Plain("# x")
	assert.NoError(t, err)
	assert.Equal(t, "# x", out)

	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
}
