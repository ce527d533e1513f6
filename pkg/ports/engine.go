package ports

import (
	"context"

	"github.com/aretw0/logicbridge/pkg/domain"
)

// TermRef is an opaque reference to a term resident in the engine.
// The zero value is the nil reference. A TermRef is valid only until the next
// top-level Call or Exec on the engine that produced it.
type TermRef uint64

// Predicate is a host callback registered as an engine predicate.
// Returning false reports predicate failure to the engine; a non-nil error is a hard
// fault that the engine raises as an exception.
type Predicate func(call CallContext) (bool, error)

// CallContext is the view a foreign predicate has of the engine while it runs.
type CallContext interface {
	// Context returns the context of the top-level call that reached the predicate.
	Context() context.Context

	// Arity returns the number of parameters the predicate was registered with.
	Arity() int

	// Param returns the i-th parameter (1-based).
	Param(i int) (TermRef, error)

	// UnifyParam unifies the i-th parameter (1-based) with t.
	UnifyParam(i int, t TermRef) (bool, error)
}

// Engine is the boundary contract consumed by the bridge core.
// Implementations wrap exactly one engine instance and are not safe for concurrent use.
type Engine interface {
	// Call runs query and keeps its retry state so Retry can backtrack into it.
	// It returns the root term of the query, bound to the first solution.
	Call(ctx context.Context, query string) (bool, TermRef, error)

	// Retry backtracks into the pending query. False means the query is exhausted.
	// The root stays valid; other terms read from the previous solution do not.
	Retry(ctx context.Context) (bool, error)

	// ClearPending drops the retry state of the pending query, if any.
	// Terms of the last solution stay readable until the next Call.
	ClearPending() error

	// Exec loads program text (clauses and directives).
	Exec(ctx context.Context, program string) error

	// Assert adds one clause, at the front of its predicate when front is true.
	Assert(ctx context.Context, clause string, front bool) error

	// Parse reads text as a single term without calling it.
	Parse(ctx context.Context, text string) (TermRef, error)

	// Kind reports the type tag of a term.
	Kind(t TermRef) (domain.Kind, error)

	// FunctorArity appends the functor name to dst and returns the arity.
	FunctorArity(t TermRef, dst []byte) ([]byte, int, error)

	// Arg returns the i-th argument (1-based) of a struct; false when out of range.
	Arg(t TermRef, i int) (TermRef, bool, error)

	// ListHead returns the first element of a list; false for the empty list.
	ListHead(t TermRef) (TermRef, bool, error)

	// ListTail returns the rest of a list; false when the list ends.
	ListTail(t TermRef) (TermRef, bool, error)

	// DecodeText appends the text of an atom or string term to dst.
	DecodeText(t TermRef, dst []byte) ([]byte, error)

	DecodeInteger(t TermRef) (int64, error)
	DecodeFloat(t TermRef) (float64, error)
	DecodeAddress(t TermRef) (int64, error)

	EncodeAtom(name string) TermRef
	EncodeString(text string) TermRef
	EncodeInteger(v int64) TermRef
	EncodeFloat(v float64) TermRef
	EncodeAddress(key int64) TermRef
	EncodeVariable() TermRef

	// MakeList returns a new empty list term.
	MakeList() TermRef

	// Prepend pushes elem onto the front of the list term, in place.
	Prepend(list, elem TermRef) error

	// MakeStruct allocates functor(_, ..., _) with arity fresh arguments.
	MakeStruct(functor string, arity int) (TermRef, error)

	// UnifyArg unifies the i-th argument (1-based) of a struct with v.
	UnifyArg(s TermRef, i int, v TermRef) (bool, error)

	// Unify unifies two terms.
	Unify(a, b TermRef) (bool, error)

	// Render writes t in engine syntax, truncated to limit bytes.
	Render(t TermRef, limit int) (string, error)

	// RenderError returns the text of the last engine error.
	RenderError() string

	// RegisterPredicate exposes p to engine clauses as name/arity.
	RegisterPredicate(name string, arity int, p Predicate) error

	// InstallInput sets the source the engine reads user input from.
	InstallInput(in InputSource)

	// InstallOutput sets the sink the engine writes user output to.
	InstallOutput(out OutputSink)

	// Close releases the engine instance.
	Close() error
}
