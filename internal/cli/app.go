package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/internal/config"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/observability"
	"github.com/aretw0/logicbridge/pkg/session"
	"github.com/aretw0/logicbridge/pkg/streams"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSession names the session commands use when none is configured.
const DefaultSession = "default"

// App holds what every command shares: configuration, logger, sessions and metrics.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Sessions *session.Manager
	Metrics  *observability.Metrics

	closer io.Closer
}

// NewApp opens the configured program store and builds the session manager.
// Engine output of every session goes to out. A nil registerer disables metrics registration.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer, reg prometheus.Registerer) (*App, error) {
	store, locker, closer, err := cfg.Store.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		closer:  closer,
	}
	hooks := observability.Combine(observability.Logging(logger), metrics.Hooks())

	opts := []session.Option{
		session.WithStore(store),
		session.WithLogger(logger),
		session.WithFactory(func(name string) (*logicbridge.Session, error) {
			return app.newSession(context.Background(), name, out, hooks)
		}),
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(opts...)
	return app, nil
}

func (a *App) newSession(ctx context.Context, name string, out io.Writer, hooks domain.LifecycleHooks) (*logicbridge.Session, error) {
	s, err := logicbridge.New(
		logicbridge.WithName(name),
		logicbridge.WithLogger(a.Logger),
		logicbridge.WithBufferSize(a.Config.Session.BufferSize),
		logicbridge.WithLifecycleHooks(hooks),
		logicbridge.WithOutput(streams.NewWriterOutput(out)),
	)
	if err != nil {
		return nil, err
	}
	for _, path := range a.Config.Programs {
		if err := s.ConsultFile(ctx, path); err != nil {
			_ = s.Close()
			return nil, err
		}
		a.Logger.Debug("program consulted", "session", name, "path", path)
	}
	return s, nil
}

// SessionName returns the configured session name, or DefaultSession.
func (a *App) SessionName() string {
	if a.Config.Session.Name != "" {
		return a.Config.Session.Name
	}
	return DefaultSession
}

// WithSession runs fn on the configured session.
func (a *App) WithSession(ctx context.Context, fn func(context.Context, *logicbridge.Session) error) error {
	return a.Sessions.WithLock(ctx, a.SessionName(), fn)
}

// Close closes every session and the program store.
func (a *App) Close() error {
	err := a.Sessions.CloseAll()
	if cerr := a.closer.Close(); err == nil {
		err = cerr
	}
	return err
}
