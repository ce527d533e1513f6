package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCallPending is returned when a top-level call is issued while a previous query
	// still holds retry state on the engine. Clear it with ClearCall first.
	ErrCallPending = errors.New("a query is still pending on this engine")

	// ErrReentrantCall is returned when a foreign predicate tries to start a new top-level query.
	ErrReentrantCall = errors.New("top-level call issued from inside a foreign predicate")

	// ErrNoSolution is returned when the iterator is asked to advance without a current solution.
	ErrNoSolution = errors.New("no current solution")

	// ErrSessionClosed is returned by every operation on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrFunctionNotFound is returned when a predicate names a function outside the function table.
	ErrFunctionNotFound = errors.New("function not registered")

	// ErrProgramNotFound is returned when a program store has no program under the given name.
	ErrProgramNotFound = errors.New("program not found")

	// ErrStopIteration is returned by the "next" builtin when its iterator is exhausted.
	ErrStopIteration = errors.New("stop iteration")
)

// EngineCallError reports an engine entry point that did not return success.
// Text carries the engine's own rendering of the error.
type EngineCallError struct {
	Op   string
	Text string
	Err  error
}

func (e *EngineCallError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("engine call %s failed", e.Op)
	}
	return fmt.Sprintf("engine call %s failed: %s", e.Op, e.Text)
}

func (e *EngineCallError) Unwrap() error { return e.Err }

// DecodeError reports a term that could not be converted into a native value.
type DecodeError struct {
	Kind   Kind
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s term: %s", e.Kind, e.Reason)
}

// EncodeError reports a native value with no term representation.
type EncodeError struct {
	Value  any
	Reason string
}

func (e *EncodeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot encode %T: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("cannot encode %T: unsupported type", e.Value)
}

// TypeMismatchError reports a term accessor used on a term of the wrong kind.
type TypeMismatchError struct {
	Op   string
	Want []Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %v, got %s", e.Op, e.Want, e.Got)
}
