package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/logicbridge/pkg/codec"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/aretw0/logicbridge/pkg/registry"
	"github.com/aretw0/logicbridge/pkg/term"
)

// Names of the registered predicates.
const (
	PredTrue   = "go_true"
	PredBind   = "go_bind"
	PredGetObj = "go_getobj"
	PredDelObj = "go_delobj"
)

// ErrMalformedCall is wrapped by the hard faults raised for malformed call contexts.
var ErrMalformedCall = errors.New("malformed foreign predicate call")

// Dispatcher routes foreign predicate calls to the function table.
type Dispatcher struct {
	eng       ports.Engine
	codec     *codec.Codec
	functions *registry.Functions
	handles   *registry.Handles

	session string
	logger  *slog.Logger
	hooks   domain.LifecycleHooks

	// preds keeps the registered callbacks reachable for the life of the engine.
	preds map[string]ports.Predicate
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for call failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithLifecycleHooks sets the hooks notified after every predicate call.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// WithSession names the session in events and logs.
func WithSession(name string) Option {
	return func(d *Dispatcher) {
		d.session = name
	}
}

// New creates a dispatcher. Call Register to install it on the engine.
func New(eng ports.Engine, c *codec.Codec, functions *registry.Functions, handles *registry.Handles, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		eng:       eng,
		codec:     c,
		functions: functions,
		handles:   handles,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register installs the four predicates on the engine.
func (d *Dispatcher) Register() error {
	d.preds = map[string]ports.Predicate{
		PredTrue:   d.goTrue,
		PredBind:   d.goBind,
		PredGetObj: d.goGetObj,
		PredDelObj: d.goDelObj,
	}
	arities := map[string]int{PredTrue: 2, PredBind: 3, PredGetObj: 3, PredDelObj: 1}
	for _, name := range []string{PredTrue, PredBind, PredGetObj, PredDelObj} {
		if err := d.eng.RegisterPredicate(name, arities[name], d.preds[name]); err != nil {
			return fmt.Errorf("failed to register %s/%d: %w", name, arities[name], err)
		}
	}
	return nil
}

func (d *Dispatcher) goTrue(call ports.CallContext) (bool, error) {
	start := time.Now()
	name, result, err := d.invoke(call)
	if err != nil {
		d.fail(call.Context(), PredTrue, name, start, err)
		return false, nil
	}
	ok := registry.Truthy(result)
	d.report(call.Context(), PredTrue, name, outcome(ok), start, nil)
	return ok, nil
}

func (d *Dispatcher) goBind(call ports.CallContext) (bool, error) {
	start := time.Now()
	name, result, err := d.invoke(call)
	if err != nil {
		d.fail(call.Context(), PredBind, name, start, err)
		return false, nil
	}
	out, err := d.codec.EncodeRef(result)
	if err != nil {
		d.fail(call.Context(), PredBind, name, start, err)
		return false, nil
	}
	return d.unifyOut(call, PredBind, name, out, start)
}

func (d *Dispatcher) goGetObj(call ports.CallContext) (bool, error) {
	start := time.Now()
	name, args, err := d.target(call)
	if err != nil {
		d.report(call.Context(), PredGetObj, name, domain.OutcomeFault, start, err)
		return false, err
	}
	result, err := d.call(call.Context(), name, args)
	if err != nil {
		d.fail(call.Context(), PredGetObj, name, start, err)
		return false, nil
	}
	addr := d.eng.EncodeAddress(d.handles.Expose(result))
	return d.unifyOut(call, PredGetObj, name, addr, start)
}

func (d *Dispatcher) goDelObj(call ports.CallContext) (bool, error) {
	start := time.Now()
	key, err := d.address(call, 1)
	if err != nil {
		d.report(call.Context(), PredDelObj, "", domain.OutcomeFault, start, err)
		return false, err
	}
	ok := d.handles.Release(key)
	d.report(call.Context(), PredDelObj, "", outcome(ok), start, nil)
	return ok, nil
}

// invoke decodes the target and calls it. Any failure is a plain predicate failure.
func (d *Dispatcher) invoke(call ports.CallContext) (string, any, error) {
	name, args, err := d.target(call)
	if err != nil {
		return name, nil, err
	}
	result, err := d.call(call.Context(), name, args)
	return name, result, err
}

// target decodes the function name and its argument list from parameters 1 and 2.
func (d *Dispatcher) target(call ports.CallContext) (string, []any, error) {
	fn, err := d.param(call, 1)
	if err != nil {
		return "", nil, err
	}
	name, ok := fn.(string)
	if !ok {
		return "", nil, fmt.Errorf("%w: function name is %T, not a string", ErrMalformedCall, fn)
	}
	raw, err := d.param(call, 2)
	if err != nil {
		return name, nil, err
	}
	args, ok := raw.([]any)
	if !ok {
		args = []any{raw}
	}
	return name, args, nil
}

func (d *Dispatcher) param(call ports.CallContext, i int) (any, error) {
	ref, err := call.Param(i)
	if err != nil {
		return nil, fmt.Errorf("%w: parameter %d: %v", ErrMalformedCall, i, err)
	}
	v, err := d.codec.DecodeRef(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: parameter %d: %w", ErrMalformedCall, i, err)
	}
	return v, nil
}

func (d *Dispatcher) address(call ports.CallContext, i int) (int64, error) {
	ref, err := call.Param(i)
	if err != nil {
		return 0, fmt.Errorf("%w: parameter %d: %v", ErrMalformedCall, i, err)
	}
	h := term.New(d.eng, ref)
	kind, err := h.Kind()
	if err != nil {
		return 0, fmt.Errorf("%w: parameter %d: %v", ErrMalformedCall, i, err)
	}
	if kind != domain.KindAddress {
		return 0, fmt.Errorf("%w: %w", ErrMalformedCall, &domain.TypeMismatchError{
			Op:   PredDelObj,
			Want: []domain.Kind{domain.KindAddress},
			Got:  kind,
		})
	}
	key, err := d.eng.DecodeAddress(ref)
	if err != nil {
		return 0, fmt.Errorf("%w: parameter %d: %v", ErrMalformedCall, i, err)
	}
	return key, nil
}

// call runs a host function, turning a panic into an error.
func (d *Dispatcher) call(ctx context.Context, name string, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("function %s panicked: %v", name, r)
		}
	}()
	return d.functions.Call(ctx, name, args)
}

func (d *Dispatcher) unifyOut(call ports.CallContext, pred, name string, out ports.TermRef, start time.Time) (bool, error) {
	ok, err := call.UnifyParam(3, out)
	if err != nil {
		d.report(call.Context(), pred, name, domain.OutcomeFault, start, err)
		return false, fmt.Errorf("%s: %w", pred, err)
	}
	d.report(call.Context(), pred, name, outcome(ok), start, nil)
	return ok, nil
}

func (d *Dispatcher) fail(ctx context.Context, pred, name string, start time.Time, err error) {
	d.logger.DebugContext(ctx, "foreign predicate failed",
		"session", d.session, "predicate", pred, "function", name, "error", err)
	d.report(ctx, pred, name, domain.OutcomeFailure, start, err)
}

func (d *Dispatcher) report(ctx context.Context, pred, name string, o domain.PredicateOutcome, start time.Time, err error) {
	if d.hooks.OnPredicate == nil {
		return
	}
	d.hooks.OnPredicate(ctx, &domain.PredicateEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventPredicateRun,
			Session:   d.session,
		},
		Predicate: pred,
		Function:  name,
		Outcome:   o,
		Duration:  time.Since(start),
		Err:       err,
	})
}

func outcome(ok bool) domain.PredicateOutcome {
	if ok {
		return domain.OutcomeSuccess
	}
	return domain.OutcomeFailure
}
