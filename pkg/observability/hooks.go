package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/logicbridge/pkg/domain"
)

// Combine returns hooks that call every non-nil hook of each set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnQueryStart = chainQuery(out.OnQueryStart, h.OnQueryStart)
		out.OnSolution = chainQuery(out.OnSolution, h.OnSolution)
		out.OnQueryEnd = chainQuery(out.OnQueryEnd, h.OnQueryEnd)
		out.OnPredicate = chainPredicate(out.OnPredicate, h.OnPredicate)
	}
	return out
}

func chainQuery(a, b func(context.Context, *domain.QueryEvent)) func(context.Context, *domain.QueryEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.QueryEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainPredicate(a, b func(context.Context, *domain.PredicateEvent)) func(context.Context, *domain.PredicateEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.PredicateEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

// Logging returns hooks that log every event at debug level.
func Logging(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnQueryStart: func(ctx context.Context, e *domain.QueryEvent) {
			logger.DebugContext(ctx, "query_start", "session", e.Session, "mode", e.Mode, "query", e.Query)
		},
		OnQueryEnd: func(ctx context.Context, e *domain.QueryEvent) {
			attrs := []any{"session", e.Session, "mode", e.Mode, "query", e.Query,
				"solutions", e.Solutions, "duration", e.Duration}
			if e.Err != nil {
				logger.WarnContext(ctx, "query_end", append(attrs, "error", e.Err)...)
				return
			}
			logger.DebugContext(ctx, "query_end", attrs...)
		},
		OnPredicate: func(ctx context.Context, e *domain.PredicateEvent) {
			attrs := []any{"session", e.Session, "predicate", e.Predicate, "function", e.Function, "outcome", e.Outcome}
			if e.Err != nil {
				attrs = append(attrs, "error", e.Err)
			}
			logger.DebugContext(ctx, "predicate_call", attrs...)
		},
	}
}
