package observability

import (
	"context"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by session lifecycle events.
type Metrics struct {
	Queries        *prometheus.CounterVec
	Solutions      prometheus.Counter
	PredicateCalls *prometheus.CounterVec
	QueryDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logicbridge_queries_total",
				Help: "Total number of queries started",
			},
			[]string{"mode"},
		),
		Solutions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "logicbridge_solutions_total",
				Help: "Total number of solutions produced",
			},
		),
		PredicateCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logicbridge_predicate_calls_total",
				Help: "Total number of foreign predicate invocations",
			},
			[]string{"predicate", "outcome"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logicbridge_query_duration_seconds",
				Help:    "Duration of queries from start to exhaustion or stop",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Queries, m.Solutions, m.PredicateCalls, m.QueryDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnQueryStart: func(_ context.Context, e *domain.QueryEvent) {
			m.Queries.WithLabelValues(string(e.Mode)).Inc()
		},
		OnSolution: func(_ context.Context, _ *domain.QueryEvent) {
			m.Solutions.Inc()
		},
		OnQueryEnd: func(_ context.Context, e *domain.QueryEvent) {
			m.QueryDuration.WithLabelValues(string(e.Mode)).Observe(e.Duration.Seconds())
		},
		OnPredicate: func(_ context.Context, e *domain.PredicateEvent) {
			m.PredicateCalls.WithLabelValues(e.Predicate, string(e.Outcome)).Inc()
		},
	}
}
