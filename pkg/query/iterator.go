package query

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/aretw0/logicbridge/pkg/codec"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/aretw0/logicbridge/pkg/term"
)

// State is the position of an Iterator in its lifecycle.
type State int

const (
	NotStarted State = iota
	HasSolution
	Exhausted
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case HasSolution:
		return "has_solution"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrAlreadyStarted is returned when Start is called twice on one Iterator.
var ErrAlreadyStarted = errors.New("query already started")

// Projection turns the root term of a solution into the value handed to the caller.
type Projection func(c *codec.Codec, root *term.Handle) (any, error)

// Decode is the default projection: the whole root term, decoded.
func Decode(c *codec.Codec, root *term.Handle) (any, error) {
	return c.Decode(root)
}

// Iterator walks the solutions of a single query.
type Iterator struct {
	eng   ports.Engine
	codec *codec.Codec

	project Projection
	hooks   domain.LifecycleHooks
	session string
	mode    domain.QueryMode

	state     State
	root      ports.TermRef
	query     string
	solutions int
	started   time.Time
}

// Option configures an Iterator.
type Option func(*Iterator)

// WithProjection sets how each solution is turned into a value.
func WithProjection(p Projection) Option {
	return func(it *Iterator) {
		it.project = p
	}
}

// WithLifecycleHooks sets the hooks notified of query progress.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(it *Iterator) {
		it.hooks = hooks
	}
}

// WithSession names the session in events.
func WithSession(name string) Option {
	return func(it *Iterator) {
		it.session = name
	}
}

// WithMode labels the enumeration mode in events.
func WithMode(mode domain.QueryMode) Option {
	return func(it *Iterator) {
		it.mode = mode
	}
}

// New creates an iterator in the NotStarted state.
func New(eng ports.Engine, c *codec.Codec, opts ...Option) *Iterator {
	it := &Iterator{
		eng:     eng,
		codec:   c,
		project: Decode,
		mode:    domain.ModeCall,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// State returns the current state.
func (it *Iterator) State() State {
	return it.state
}

// Solutions returns how many solutions have been reached so far.
func (it *Iterator) Solutions() int {
	return it.solutions
}

// Start issues the query and moves to the first solution.
// It reports false when the query has no solution at all.
func (it *Iterator) Start(ctx context.Context, query string) (bool, error) {
	if it.state != NotStarted {
		return false, ErrAlreadyStarted
	}
	it.query = query
	it.started = time.Now()
	it.emit(ctx, it.hooks.OnQueryStart, nil)

	ok, root, err := it.eng.Call(ctx, query)
	if err != nil {
		it.state = Failed
		err = fmt.Errorf("query %q: %w", query, err)
		it.emit(ctx, it.hooks.OnQueryEnd, err)
		return false, err
	}
	if !ok {
		it.state = Failed
		it.emit(ctx, it.hooks.OnQueryEnd, nil)
		return false, nil
	}

	it.root = root
	it.state = HasSolution
	it.solutions = 1
	it.emit(ctx, it.hooks.OnSolution, nil)
	return true, nil
}

// Advance backtracks into the next solution.
// It reports false, and moves to Exhausted, when there are no more solutions.
func (it *Iterator) Advance(ctx context.Context) (bool, error) {
	if it.state != HasSolution {
		return false, domain.ErrNoSolution
	}
	ok, err := it.eng.Retry(ctx)
	if err != nil {
		_ = it.eng.ClearPending()
		it.state = Exhausted
		err = fmt.Errorf("query %q: %w", it.query, err)
		it.emit(ctx, it.hooks.OnQueryEnd, err)
		return false, err
	}
	if !ok {
		it.state = Exhausted
		it.emit(ctx, it.hooks.OnQueryEnd, nil)
		return false, nil
	}
	it.solutions++
	it.emit(ctx, it.hooks.OnSolution, nil)
	return true, nil
}

// Current projects the current solution.
func (it *Iterator) Current() (any, error) {
	if it.state != HasSolution {
		return nil, domain.ErrNoSolution
	}
	return it.project(it.codec, it.Root())
}

// Root returns a fresh handle on the root term of the current solution.
// The root is rebound in place on every Advance, so handles are not cached.
func (it *Iterator) Root() *term.Handle {
	if it.state != HasSolution {
		return nil
	}
	return term.New(it.eng, it.root)
}

// Stop abandons the remaining solutions and clears the engine's retry state.
// Stopping an iterator that holds no solution is a no-op.
func (it *Iterator) Stop() error {
	if it.state != HasSolution {
		return nil
	}
	it.state = Exhausted
	err := it.eng.ClearPending()
	it.emit(context.Background(), it.hooks.OnQueryEnd, err)
	return err
}

func (it *Iterator) emit(ctx context.Context, hook func(context.Context, *domain.QueryEvent), err error) {
	if hook == nil {
		return
	}
	typ := domain.EventSolution
	switch {
	case it.state == NotStarted:
		typ = domain.EventQueryStart
	case it.state != HasSolution || err != nil:
		typ = domain.EventQueryEnd
	}
	hook(ctx, &domain.QueryEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      typ,
			Session:   it.session,
		},
		Mode:      it.mode,
		Query:     it.query,
		Solutions: it.solutions,
		Duration:  time.Since(it.started),
		Err:       err,
	})
}

// First returns the first solution of query, or false when there is none.
// The engine query is cleared before First returns.
func First(ctx context.Context, eng ports.Engine, c *codec.Codec, query string, opts ...Option) (any, bool, error) {
	it := New(eng, c, append([]Option{WithMode(domain.ModeFirst)}, opts...)...)
	ok, err := it.Start(ctx, query)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := it.Current()
	if stopErr := it.Stop(); err == nil {
		err = stopErr
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// All returns a lazy sequence of every solution of query.
// Each range over the sequence issues the query afresh. Breaking out of the loop
// stops the engine query; an error is yielded once and ends the sequence.
func All(ctx context.Context, eng ports.Engine, c *codec.Codec, query string, opts ...Option) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		it := New(eng, c, append([]Option{WithMode(domain.ModeAll)}, opts...)...)
		ok, err := it.Start(ctx, query)
		if err != nil {
			yield(nil, err)
			return
		}
		defer it.Stop()

		for ok {
			v, err := it.Current()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
			if ok, err = it.Advance(ctx); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}
