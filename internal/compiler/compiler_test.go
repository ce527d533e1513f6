package compiler_test

import (
	"testing"

	"github.com/aretw0/logicbridge/internal/compiler"
	"github.com/stretchr/testify/assert"
)

func TestSplitClauses(t *testing.T) {
	tests := []struct {
		name    string
		program string
		want    []string
	}{
		{
			name:    "facts",
			program: "a(1). a(2).\nb(x).",
			want:    []string{"a(1)", "a(2)", "b(x)"},
		},
		{
			name:    "float literal",
			program: "price(apple, 1.5). price(pear, 20.25).",
			want:    []string{"price(apple, 1.5)", "price(pear, 20.25)"},
		},
		{
			name:    "digit on one side only",
			program: "a :- X = 1.b :- Y = 2.",
			want:    []string{"a :- X = 1", "b :- Y = 2"},
		},
		{
			name:    "digit before final dot",
			program: "x(1.0) :- y(2).",
			want:    []string{"x(1.0) :- y(2)"},
		},
		{
			name:    "rule",
			program: "b(X) :- a(X), X > 1.0.\n\n",
			want:    []string{"b(X) :- a(X), X > 1.0"},
		},
		{
			name:    "missing terminator",
			program: "a. b",
			want:    []string{"a", "b"},
		},
		{
			name:    "empty",
			program: " . \n",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compiler.SplitClauses(tt.program))
		})
	}
}

func TestVariables(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"simple", "parent(X, Y)", []string{"X", "Y"}},
		{"deduplicated", "p(X), q(X, Z)", []string{"X", "Z"}},
		{"underscore skipped", "p(_, _Rest, A, _)", []string{"A"}},
		{"quoted atoms", "p('Hello X', \"Y\", `Z`, W)", []string{"W"}},
		{"escaped quotes", `p('it\'s X', 'a''B', V)`, []string{"V"}},
		{"comments", "p(A) % B\n, q(C) /* D */", []string{"A", "C"}},
		{"lowercase words", "fooBar(baz, Qux)", []string{"Qux"}},
		{"char codes", "X = 0'A", []string{"X"}},
		{"unicode", "p(Ñame, 测试)", []string{"Ñame"}},
		{"numbers", "X is 1.0e10 + 0x1F", []string{"X"}},
		{"none", "true", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compiler.Variables(tt.query))
		})
	}
}
