/*
Package observability provides lifecycle hooks for monitoring bridge sessions.

Hooks are plain domain.LifecycleHooks values: Metrics records Prometheus counters and
histograms, Logging writes structured slog records, and Combine fans one event out to
several hook sets.
*/
package observability
