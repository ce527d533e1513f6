package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventQueryStart   EventType = "query_start"
	EventSolution     EventType = "solution"
	EventQueryEnd     EventType = "query_end"
	EventPredicateRun EventType = "predicate_call"
)

// QueryMode names how a query is being enumerated.
type QueryMode string

const (
	ModeExec    QueryMode = "exec"
	ModeCall    QueryMode = "call"
	ModeFirst   QueryMode = "first"
	ModeAll     QueryMode = "all"
	ModeConsult QueryMode = "consult"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Session   string    `json:"session"`
}

// QueryEvent describes one step of a query's lifecycle.
type QueryEvent struct {
	EventBase
	Mode      QueryMode     `json:"mode"`
	Query     string        `json:"query"`
	Solutions int           `json:"solutions"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// PredicateOutcome is the result of one foreign predicate invocation.
type PredicateOutcome string

const (
	OutcomeSuccess PredicateOutcome = "success"
	OutcomeFailure PredicateOutcome = "failure"
	OutcomeFault   PredicateOutcome = "fault"
)

// PredicateEvent describes one foreign predicate invocation.
type PredicateEvent struct {
	EventBase
	Predicate string           `json:"predicate"`
	Function  string           `json:"function,omitempty"`
	Outcome   PredicateOutcome `json:"outcome"`
	Duration  time.Duration    `json:"duration"`
	Err       error            `json:"-"`
}

// LifecycleHooks defines callbacks for bridge observability.
type LifecycleHooks struct {
	OnQueryStart func(context.Context, *QueryEvent)
	OnSolution   func(context.Context, *QueryEvent)
	OnQueryEnd   func(context.Context, *QueryEvent)
	OnPredicate  func(context.Context, *PredicateEvent)
}
