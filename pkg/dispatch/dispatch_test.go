package dispatch_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/aretw0/logicbridge/internal/testutils"
	"github.com/aretw0/logicbridge/pkg/codec"
	"github.com/aretw0/logicbridge/pkg/dispatch"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/aretw0/logicbridge/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCallContext stands in for the engine's view of a running predicate.
type MockCallContext struct {
	mock.Mock
}

func (m *MockCallContext) Context() context.Context { return context.Background() }

func (m *MockCallContext) Arity() int {
	return m.Called().Int(0)
}

func (m *MockCallContext) Param(i int) (ports.TermRef, error) {
	args := m.Called(i)
	return args.Get(0).(ports.TermRef), args.Error(1)
}

func (m *MockCallContext) UnifyParam(i int, t ports.TermRef) (bool, error) {
	args := m.Called(i, t)
	return args.Bool(0), args.Error(1)
}

type fixture struct {
	eng     *testutils.Engine
	codec   *codec.Codec
	handles *registry.Handles
	funcs   *registry.Functions
	events  []*domain.PredicateEvent
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		eng:     testutils.NewEngine(),
		handles: registry.NewHandles(),
		funcs:   registry.Builtins(),
	}
	f.codec = codec.New(f.eng, f.handles)
	hooks := domain.LifecycleHooks{
		OnPredicate: func(_ context.Context, e *domain.PredicateEvent) { f.events = append(f.events, e) },
	}
	d := dispatch.New(f.eng, f.codec, f.funcs, f.handles,
		dispatch.WithLifecycleHooks(hooks), dispatch.WithSession("test"))
	require.NoError(t, d.Register())
	return f
}

func (f *fixture) term(v any) ports.TermRef {
	return f.eng.Build(v)
}

func (f *fixture) decode(t *testing.T, ref ports.TermRef) any {
	t.Helper()
	v, err := f.codec.DecodeRef(ref)
	require.NoError(t, err)
	return v
}

func TestRegister(t *testing.T) {
	f := setup(t)
	assert.True(t, f.eng.HasPredicate("go_true", 2))
	assert.True(t, f.eng.HasPredicate("go_bind", 3))
	assert.True(t, f.eng.HasPredicate("go_getobj", 3))
	assert.True(t, f.eng.HasPredicate("go_delobj", 1))
}

func TestGoTrue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ok, err := f.eng.Invoke(ctx, "go_true", f.term("gt"), f.term([]any{3, 2}))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.eng.Invoke(ctx, "go_true", f.term("gt"), f.term([]any{2, 3}))
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, f.events, 2)
	assert.Equal(t, domain.OutcomeSuccess, f.events[0].Outcome)
	assert.Equal(t, "gt", f.events[0].Function)
	assert.Equal(t, "test", f.events[0].Session)
	assert.Equal(t, domain.OutcomeFailure, f.events[1].Outcome)
}

func TestGoBind_Composition(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	bind := func(fn string, args any) any {
		out := f.eng.EncodeVariable()
		ok, err := f.eng.Invoke(ctx, "go_bind", f.term(fn), f.term(args), out)
		require.NoError(t, err)
		require.True(t, ok)
		return f.decode(t, out)
	}

	sin := bind("sin", 1.0)
	cos := bind("cos", []any{1.0})
	sum := bind("add", []any{sin, cos})
	assert.InDelta(t, math.Sin(1)+math.Cos(1), sum, 1e-6)
}

func TestGoBind_OutputMismatch(t *testing.T) {
	f := setup(t)
	ok, err := f.eng.Invoke(context.Background(), "go_bind", f.term("add"), f.term([]any{1, 2}), f.term(4))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHostFailuresAreFailures(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.funcs.Register("boom", func(context.Context, []any) (any, error) { return nil, errors.New("boom") })
	f.funcs.Register("panics", func(context.Context, []any) (any, error) { panic("bad") })

	for _, fn := range []string{"boom", "panics", "not_registered"} {
		ok, err := f.eng.Invoke(ctx, "go_true", f.term(fn), f.term([]any{}))
		assert.NoError(t, err, fn)
		assert.False(t, ok, fn)

		ok, err = f.eng.Invoke(ctx, "go_bind", f.term(fn), f.term([]any{}), f.eng.EncodeVariable())
		assert.NoError(t, err, fn)
		assert.False(t, ok, fn)

		ok, err = f.eng.Invoke(ctx, "go_getobj", f.term(fn), f.term([]any{}), f.eng.EncodeVariable())
		assert.NoError(t, err, fn)
		assert.False(t, ok, fn)
	}
	assert.Zero(t, f.handles.Len())
}

func TestGoBind_UnencodableResultFails(t *testing.T) {
	f := setup(t)
	f.funcs.Register("mapper", func(context.Context, []any) (any, error) { return map[string]int{}, nil })
	f.funcs.Register("nothing", func(context.Context, []any) (any, error) { return nil, nil })

	for _, fn := range []string{"mapper", "nothing"} {
		ok, err := f.eng.Invoke(context.Background(), "go_bind", f.term(fn), f.term([]any{}), f.eng.EncodeVariable())
		assert.NoError(t, err, fn)
		assert.False(t, ok, fn)
	}
	require.Len(t, f.events, 2)
	for _, e := range f.events {
		assert.Equal(t, domain.OutcomeFailure, e.Outcome)
		var encErr *domain.EncodeError
		assert.ErrorAs(t, e.Err, &encErr)
	}
}

func TestGetObjDelObj(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d := f.eng.EncodeVariable()
	ok, err := f.eng.Invoke(ctx, "go_getobj", f.term("range"), f.term([]any{5, 10}), d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, f.handles.Len())

	rng, ok := f.decode(t, d).(*registry.Range)
	require.True(t, ok)
	assert.Equal(t, int64(5), rng.Start)

	e := f.eng.EncodeVariable()
	ok, err = f.eng.Invoke(ctx, "go_getobj", f.term("iter"), d, e)
	require.NoError(t, err)
	require.True(t, ok)

	x := f.eng.EncodeVariable()
	ok, err = f.eng.Invoke(ctx, "go_bind", f.term("next"), e, x)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), f.decode(t, x))

	ok, err = f.eng.Invoke(ctx, "go_delobj", d)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.eng.Invoke(ctx, "go_delobj", d)
	require.NoError(t, err)
	assert.False(t, ok, "second release misses")
	assert.Equal(t, 1, f.handles.Len())
}

func TestMalformedContextsFault(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.eng.Invoke(ctx, "go_delobj", f.term("abc"))
	assert.ErrorIs(t, err, dispatch.ErrMalformedCall)
	var mismatch *domain.TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)

	_, err = f.eng.Invoke(ctx, "go_getobj", f.term(42), f.term([]any{}), f.eng.EncodeVariable())
	assert.ErrorIs(t, err, dispatch.ErrMalformedCall)

	ok, err := f.eng.Invoke(ctx, "go_true", f.term(42), f.term([]any{}))
	assert.NoError(t, err, "go_true reports malformed calls as failure")
	assert.False(t, ok)

	require.NotEmpty(t, f.events)
	assert.Equal(t, domain.OutcomeFault, f.events[0].Outcome)
}

func TestCallContextFaults(t *testing.T) {
	f := setup(t)

	t.Run("unreadable parameter", func(t *testing.T) {
		call := new(MockCallContext)
		call.On("Arity").Return(3)
		call.On("Param", 1).Return(ports.TermRef(0), errors.New("no such parameter"))

		_, err := f.eng.InvokeWith("go_getobj", call)
		assert.ErrorIs(t, err, dispatch.ErrMalformedCall)
		call.AssertExpectations(t)
	})

	t.Run("unify fault", func(t *testing.T) {
		call := new(MockCallContext)
		call.On("Arity").Return(3)
		call.On("Param", 1).Return(f.term("add"), nil)
		call.On("Param", 2).Return(f.term([]any{1, 2}), nil)
		call.On("UnifyParam", 3, mock.Anything).Return(false, errors.New("engine gone"))

		ok, err := f.eng.InvokeWith("go_bind", call)
		assert.False(t, ok)
		assert.ErrorContains(t, err, "engine gone")
		call.AssertExpectations(t)
	})
}
