// Package ichiban implements ports.Engine on top of the ichiban/prolog interpreter.
package ichiban

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/ichiban/prolog"
	"github.com/ichiban/prolog/engine"
)

const (
	captureName = "$bridge_capture"
	callName    = "$bridge_call"
	addressName = "$address"
)

// bootstrap is loaded into every interpreter before any user program.
// Double-quoted text reads as atoms so host strings survive a round trip.
const bootstrap = `
:- set_prolog_flag(double_quotes, atom).
'$bridge_call'(G) :- call(G), '$bridge_capture'(G).
`

// capture is the goal term and environment recorded at a solution.
type capture struct {
	term engine.Term
	env  *engine.Env
}

// Adapter owns one interpreter and the terms handed out to the bridge.
// It is not safe for concurrent use.
type Adapter struct {
	vm     *prolog.Interpreter
	logger *slog.Logger

	in  *inputBridge
	out *outputBridge

	arena    []entry
	rootLen  int // arena length once the root of the pending call is added
	sols     *prolog.Solutions
	captured capture // written by the capture predicate
	solution capture // the root of the current solution
	ctx      context.Context

	inPredicate int
	lastErr     string
	closed      bool
}

var _ ports.Engine = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an interpreter with the bridge bootstrap loaded.
func New(opts ...Option) (*Adapter, error) {
	a := &Adapter{
		logger: slog.New(slog.DiscardHandler),
		in:     &inputBridge{},
		out:    &outputBridge{},
		arena:  make([]entry, 1),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.vm = prolog.New(a.in, a.out)
	a.vm.Register1(engine.NewAtom(captureName), func(_ *engine.VM, g engine.Term, k engine.Cont, env *engine.Env) *engine.Promise {
		a.captured = capture{term: g, env: env}
		return k(env)
	})
	if err := a.vm.Exec(bootstrap); err != nil {
		return nil, fmt.Errorf("failed to load bridge bootstrap: %w", err)
	}
	return a, nil
}

func (a *Adapter) fault(op string, err error) error {
	a.lastErr = err.Error()
	return &domain.EngineCallError{Op: op, Text: a.lastErr, Err: err}
}

// goal strips the terminator so text can be embedded as an argument.
func goal(text string) string {
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "."))
}

func (a *Adapter) Call(ctx context.Context, query string) (bool, ports.TermRef, error) {
	switch {
	case a.closed:
		return false, 0, domain.ErrSessionClosed
	case a.inPredicate > 0:
		return false, 0, domain.ErrReentrantCall
	case a.sols != nil:
		return false, 0, domain.ErrCallPending
	}

	a.arena = a.arena[:1]
	a.rootLen = 0
	a.solution = capture{}
	a.ctx = ctx

	sols, err := a.vm.QueryContext(ctx, fmt.Sprintf("'%s'((%s)).", callName, goal(query)))
	if err != nil {
		return false, 0, a.fault("call", err)
	}
	if !sols.Next() {
		err := sols.Err()
		_ = sols.Close()
		if err != nil {
			return false, 0, a.fault("call", err)
		}
		return false, 0, nil
	}

	a.sols = sols
	a.solution = a.captured
	root := a.add(entry{term: a.solution.term, root: true})
	a.rootLen = len(a.arena)
	return true, root, nil
}

func (a *Adapter) Retry(ctx context.Context) (bool, error) {
	if a.sols == nil {
		return false, nil
	}
	// Terms read from the previous solution are dead; only the root carries over.
	a.arena = a.arena[:a.rootLen]
	if a.sols.Next() {
		a.solution = a.captured
		return true, nil
	}
	err := a.sols.Err()
	_ = a.sols.Close()
	a.sols = nil
	if err != nil {
		return false, a.fault("redo", err)
	}
	return false, nil
}

func (a *Adapter) ClearPending() error {
	if a.sols == nil {
		return nil
	}
	err := a.sols.Close()
	a.sols = nil
	if err != nil {
		return a.fault("clear", err)
	}
	return nil
}

func (a *Adapter) Exec(ctx context.Context, program string) error {
	if a.closed {
		return domain.ErrSessionClosed
	}
	if err := a.vm.ExecContext(ctx, program); err != nil {
		return a.fault("consult", err)
	}
	return nil
}

// once runs a goal to its first solution and discards its bindings.
func (a *Adapter) once(ctx context.Context, op, text string) (bool, error) {
	sols, err := a.vm.QueryContext(ctx, text)
	if err != nil {
		return false, a.fault(op, err)
	}
	defer sols.Close()
	ok := sols.Next()
	if err := sols.Err(); err != nil {
		return false, a.fault(op, err)
	}
	return ok, nil
}

func (a *Adapter) Assert(ctx context.Context, clause string, front bool) error {
	if a.closed {
		return domain.ErrSessionClosed
	}
	pred := "assertz"
	if front {
		pred = "asserta"
	}
	ok, err := a.once(ctx, pred, fmt.Sprintf("%s((%s)).", pred, goal(clause)))
	if err != nil {
		return err
	}
	if !ok {
		return a.fault(pred, fmt.Errorf("%s failed for %q", pred, clause))
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, text string) (ports.TermRef, error) {
	if a.closed {
		return 0, domain.ErrSessionClosed
	}
	ok, err := a.once(ctx, "parse", fmt.Sprintf("'%s'((%s)).", captureName, goal(text)))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, a.fault("parse", fmt.Errorf("cannot read %q", text))
	}
	return a.add(entry{term: a.captured.term, env: a.captured.env}), nil
}

func (a *Adapter) RenderError() string {
	return a.lastErr
}

func (a *Adapter) InstallInput(in ports.InputSource) {
	a.in.src = in
}

func (a *Adapter) InstallOutput(out ports.OutputSink) {
	a.out.sink = out
}

func (a *Adapter) Close() error {
	if a.closed {
		return nil
	}
	err := a.ClearPending()
	a.closed = true
	a.arena = nil
	return err
}
