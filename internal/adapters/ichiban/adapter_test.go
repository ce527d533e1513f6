package ichiban_test

import (
	"context"
	"testing"

	"github.com/aretw0/logicbridge/internal/adapters/ichiban"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/aretw0/logicbridge/pkg/streams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const facts = `
a(1). a(2). a(3). a(4). a(5). a(6).
b(X) :- a(X), X > 3.
`

func newAdapter(t *testing.T) *ichiban.Adapter {
	t.Helper()
	a, err := ichiban.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Exec(context.Background(), facts))
	return a
}

func solutions(t *testing.T, a *ichiban.Adapter, q string) int {
	t.Helper()
	ctx := context.Background()
	ok, _, err := a.Call(ctx, q)
	require.NoError(t, err)
	n := 0
	for ok {
		n++
		ok, err = a.Retry(ctx)
		require.NoError(t, err)
	}
	return n
}

func TestAdapter_Backtracking(t *testing.T) {
	a := newAdapter(t)
	assert.Equal(t, 6, solutions(t, a, "a(X)"))
	assert.Equal(t, 3, solutions(t, a, "b(X)."))
	assert.Equal(t, 1, solutions(t, a, "a(X), X > 5"))
	assert.Equal(t, 0, solutions(t, a, "a(X), X > 6"))
}

func TestAdapter_RootFollowsRetry(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	ok, root, err := a.Call(ctx, "a(X)")
	require.NoError(t, err)
	require.True(t, ok)

	arg, ok, err := a.Arg(root, 1)
	require.NoError(t, err)
	require.True(t, ok)
	first, err := a.DecodeInteger(arg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	ok, err = a.Retry(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	arg2, _, err := a.Arg(root, 1)
	require.NoError(t, err)
	second, err := a.DecodeInteger(arg2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)

	assert.Equal(t, arg, arg2, "the previous solution's sub-terms are released on retry")

	require.NoError(t, a.ClearPending())
}

func TestAdapter_RetryReleasesTerms(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	ok, root, err := a.Call(ctx, "member(X, [f(1, [a]), f(2, [b]), f(3, [c]), f(4, [d])])")
	require.NoError(t, err)
	require.True(t, ok)
	base := a.ArenaLen()

	for ok {
		x, found, err := a.Arg(root, 1)
		require.NoError(t, err)
		require.True(t, found)
		for i := 1; i <= 2; i++ {
			_, found, err := a.Arg(x, i)
			require.NoError(t, err)
			require.True(t, found)
		}
		assert.Equal(t, base+3, a.ArenaLen())

		ok, err = a.Retry(ctx)
		require.NoError(t, err)
		assert.Equal(t, base, a.ArenaLen())
	}
}

func TestAdapter_PendingAndReentrant(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	var inner error
	require.NoError(t, a.RegisterPredicate("nested", 0, func(call ports.CallContext) (bool, error) {
		_, _, inner = a.Call(call.Context(), "a(X)")
		return true, nil
	}))

	ok, _, err := a.Call(ctx, "nested")
	require.NoError(t, err)
	require.True(t, ok)
	assert.ErrorIs(t, inner, domain.ErrReentrantCall)

	_, _, err = a.Call(ctx, "a(X)")
	assert.ErrorIs(t, err, domain.ErrCallPending)

	require.NoError(t, a.ClearPending())
	ok, _, err = a.Call(ctx, "a(X)")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, a.ClearPending())
}

func TestAdapter_ParseKinds(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	tests := []struct {
		text string
		kind domain.Kind
	}{
		{"hello(world, 123)", domain.KindStruct},
		{"[1, 2, 3]", domain.KindList},
		{"[]", domain.KindAtom},
		{"abc", domain.KindAtom},
		{"'hello world'", domain.KindString},
		{`"quoted text"`, domain.KindString},
		{"42", domain.KindInteger},
		{"1.5", domain.KindFloat},
		{"X", domain.KindVariable},
		{"'$address'(7)", domain.KindAddress},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ref, err := a.Parse(ctx, tt.text)
			require.NoError(t, err)
			k, err := a.Kind(ref)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, k)
		})
	}

	_, err := a.Parse(ctx, "foo(")
	var callErr *domain.EngineCallError
	require.ErrorAs(t, err, &callErr)
	assert.NotEmpty(t, a.RenderError())
}

func TestAdapter_BuildTerms(t *testing.T) {
	a := newAdapter(t)

	s, err := a.MakeStruct("pair", 2)
	require.NoError(t, err)
	ok, err := a.UnifyArg(s, 1, a.EncodeAtom("left"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = a.UnifyArg(s, 2, a.EncodeFloat(2.5))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = a.UnifyArg(s, 1, a.EncodeAtom("right"))
	require.NoError(t, err)
	assert.False(t, ok, "bound argument does not rebind")

	text, err := a.Render(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "pair(left,2.5)", text)

	list := a.MakeList()
	require.NoError(t, a.Prepend(list, a.EncodeString("b c")))
	require.NoError(t, a.Prepend(list, a.EncodeInteger(1)))
	text, err = a.Render(list, 0)
	require.NoError(t, err)
	assert.Equal(t, "[1,'b c']", text)

	v, err := a.DecodeFloat(a.EncodeFloat(123.5))
	require.NoError(t, err)
	assert.Equal(t, 123.5, v)

	for in, want := range map[float64]string{2: "2.0", 0.5: "0.5", -3.25: "-3.25"} {
		text, err := a.Render(a.EncodeFloat(in), 0)
		require.NoError(t, err)
		assert.Equal(t, want, text)
	}

	key, err := a.DecodeAddress(a.EncodeAddress(99))
	require.NoError(t, err)
	assert.Equal(t, int64(99), key)
}

func TestAdapter_ForeignPredicate(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.RegisterPredicate("double", 2, func(call ports.CallContext) (bool, error) {
		in, err := call.Param(1)
		if err != nil {
			return false, err
		}
		n, err := a.DecodeInteger(in)
		if err != nil {
			return false, nil
		}
		return call.UnifyParam(2, a.EncodeInteger(n*2))
	}))

	ok, root, err := a.Call(ctx, "a(X), double(X, Y), Y > 10")
	require.NoError(t, err)
	require.True(t, ok)
	text, err := a.Render(root, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "double(6,12)")
	require.NoError(t, a.ClearPending())

	ok, _, err = a.Call(ctx, "double(foo, Y)")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_Streams(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	out := streams.NewStringOutput()
	a.InstallOutput(out)
	a.InstallInput(streams.NewStringInput("term(from, input).\n"))

	ok, root, err := a.Call(ctx, "read(T), write(T), nl")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, a.ClearPending())
	assert.Contains(t, out.Value(), "term(from")
	assert.Contains(t, out.Value(), "\n")

	arg, _, err := a.Arg(root, 1)
	require.NoError(t, err)
	k, err := a.Kind(arg)
	require.NoError(t, err)
	assert.Equal(t, domain.KindStruct, k)
}

func TestAdapter_AssertAndClose(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Assert(ctx, "c(2).", false))
	require.NoError(t, a.Assert(ctx, "c(1)", true))

	ok, root, err := a.Call(ctx, "c(X)")
	require.NoError(t, err)
	require.True(t, ok)
	text, err := a.Render(root, 0)
	require.NoError(t, err)
	assert.Equal(t, "c(1)", text)
	require.NoError(t, a.ClearPending())

	require.NoError(t, a.Close())
	_, _, err = a.Call(ctx, "c(X)")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}
