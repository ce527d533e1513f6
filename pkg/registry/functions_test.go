package registry_test

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, f *registry.Functions, name string, args ...any) any {
	t.Helper()
	v, err := f.Call(context.Background(), name, args)
	require.NoError(t, err)
	return v
}

func TestFunctions_Registration(t *testing.T) {
	f := registry.NewFunctions()
	f.Register("double", func(_ context.Context, args []any) (any, error) {
		return args[0].(int64) * 2, nil
	})

	assert.Equal(t, int64(8), call(t, f, "double", int64(4)))
	assert.Equal(t, []string{"double"}, f.Names())

	_, err := f.Call(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, domain.ErrFunctionNotFound)
}

func TestFunctions_Merge(t *testing.T) {
	f := registry.NewFunctions()
	f.Merge(registry.Builtins())
	_, ok := f.Lookup("sin")
	assert.True(t, ok)
}

func TestBuiltins_Math(t *testing.T) {
	f := registry.Builtins()

	sin := call(t, f, "sin", 1.0).(float64)
	cos := call(t, f, "cos", 1.0).(float64)
	sum := call(t, f, "add", sin, cos).(float64)
	assert.InDelta(t, math.Sin(1)+math.Cos(1), sum, 1e-6)

	assert.Equal(t, int64(2), call(t, f, "floor", 2.7))
	assert.Equal(t, int64(3), call(t, f, "ceil", 2.1))
	assert.InDelta(t, 3.0, call(t, f, "log", 8.0, 2.0), 1e-9)
	assert.InDelta(t, 180.0, call(t, f, "degrees", math.Pi), 1e-9)
}

func TestBuiltins_Operators(t *testing.T) {
	f := registry.Builtins()

	assert.Equal(t, int64(5), call(t, f, "add", int64(2), int64(3)))
	assert.Equal(t, 5.5, call(t, f, "add", int64(2), 3.5))
	assert.Equal(t, 2.5, call(t, f, "truediv", int64(5), int64(2)))
	assert.Equal(t, int64(-4), call(t, f, "floordiv", int64(-7), int64(2)))
	assert.Equal(t, int64(1), call(t, f, "mod", int64(-7), int64(2)))
	assert.Equal(t, int64(3), call(t, f, "abs", int64(-3)))
	assert.Equal(t, true, call(t, f, "lt", int64(1), 1.5))
	assert.Equal(t, true, call(t, f, "eq", int64(2), 2.0))
	assert.Equal(t, true, call(t, f, "ne", "a", "b"))
	assert.Equal(t, int64(6), call(t, f, "xor", int64(5), int64(3)))
	assert.Equal(t, false, call(t, f, "not_", "x"))

	_, err := f.Call(context.Background(), "truediv", []any{1.0, 0.0})
	assert.Error(t, err)
	_, err = f.Call(context.Background(), "sin", []any{"x"})
	assert.Error(t, err)
}

func TestBuiltins_Random(t *testing.T) {
	f := registry.BuiltinsWithSource(rand.New(rand.NewPCG(1, 2)))

	for i := 0; i < 20; i++ {
		n := call(t, f, "randint", int64(1), int64(3)).(int64)
		assert.GreaterOrEqual(t, n, int64(1))
		assert.LessOrEqual(t, n, int64(3))

		x := call(t, f, "random").(float64)
		assert.GreaterOrEqual(t, x, 0.0)
		assert.Less(t, x, 1.0)
	}
	assert.Contains(t, []any{"a", "b"}, call(t, f, "choice", []any{"a", "b"}))
}

func TestBuiltins_Iteration(t *testing.T) {
	f := registry.Builtins()

	r := call(t, f, "range", int64(5), int64(10))
	require.IsType(t, &registry.Range{}, r)
	assert.Equal(t, int64(5), call(t, f, "len", r))

	it := call(t, f, "iter", r)
	require.IsType(t, &registry.Iterator{}, it)

	var got []any
	for {
		v, err := f.Call(context.Background(), "next", []any{it})
		if err != nil {
			assert.ErrorIs(t, err, registry.ErrStopIteration)
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []any{int64(5), int64(6), int64(7), int64(8), int64(9)}, got)
	assert.Equal(t, "done", call(t, f, "next", it, "done"))

	assert.Equal(t, []any{int64(10), int64(8)}, call(t, f, "list", call(t, f, "range", int64(10), int64(6), int64(-2))))
	assert.Equal(t, int64(6), call(t, f, "sum", []any{int64(1), int64(2), int64(3)}))
	assert.Equal(t, int64(1), call(t, f, "min", int64(3), int64(1), int64(2)))
	assert.Equal(t, "c", call(t, f, "max", []any{"a", "c", "b"}))
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, call(t, f, "sorted", []any{int64(3), int64(1), int64(2)}))
	assert.Equal(t, []any{"b", "a"}, call(t, f, "reversed", []any{"a", "b"}))

	_, err := f.Call(context.Background(), "range", []any{int64(1), int64(2), int64(0)})
	assert.Error(t, err)
}

func TestBuiltins_Conversions(t *testing.T) {
	f := registry.Builtins()

	assert.Equal(t, "2.0", call(t, f, "str", 2.0))
	assert.Equal(t, "12", call(t, f, "str", int64(12)))
	assert.Equal(t, int64(42), call(t, f, "int", " 42 "))
	assert.Equal(t, int64(3), call(t, f, "int", 3.9))
	assert.Equal(t, 1.5, call(t, f, "float", "1.5"))
}

func TestTruthy(t *testing.T) {
	falsy := []any{nil, false, 0, int64(0), 0.0, "", []any{}, map[string]any{}, &registry.Range{Start: 3, Stop: 3, Step: 1}}
	for _, v := range falsy {
		assert.False(t, registry.Truthy(v), "%#v", v)
	}
	truthy := []any{true, 1, -2.5, "x", []any{0}, domain.NewStruct("f", 1)}
	for _, v := range truthy {
		assert.True(t, registry.Truthy(v), "%#v", v)
	}
}
