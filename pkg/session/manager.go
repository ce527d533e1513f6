package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/internal/logging"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed program lock is held.
const DefaultLockTTL = 30 * time.Second

// Factory creates the session for a name.
type Factory func(name string) (*logicbridge.Session, error)

// lockEntry holds the per-name mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns named sessions and serializes calls on each of them.
// Locks are reference counted and dropped once no caller holds them.
type Manager struct {
	factory Factory
	store   ports.ProgramStore
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	locks    map[string]*lockEntry
	sessions map[string]*logicbridge.Session
}

// Option configures the Manager.
type Option func(*Manager)

// WithFactory sets how sessions are created. The default is logicbridge.New with the name.
func WithFactory(f Factory) Option {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithStore enables program persistence. New sessions load their stored program.
func WithStore(store ports.ProgramStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker enables distributed locking around program saves and loads.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*logicbridge.Session),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.factory == nil {
		m.factory = func(name string) (*logicbridge.Session, error) {
			return logicbridge.New(logicbridge.WithName(name), logicbridge.WithLogger(m.logger))
		}
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller locks entry.mu and calls release(name) after unlocking.
func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

// WithLock runs fn with exclusive use of the named session, creating it on first use.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(context.Context, *logicbridge.Session) error) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	s, err := m.open(ctx, name)
	if err != nil {
		return err
	}
	return fn(ctx, s)
}

// Get returns the named session, creating it on first use.
// The caller must not use it concurrently; prefer WithLock.
func (m *Manager) Get(ctx context.Context, name string) (*logicbridge.Session, error) {
	var s *logicbridge.Session
	err := m.WithLock(ctx, name, func(_ context.Context, got *logicbridge.Session) error {
		s = got
		return nil
	})
	return s, err
}

// open must run under the name's lock.
func (m *Manager) open(ctx context.Context, name string) (*logicbridge.Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[name]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	s, err := m.factory(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create session %s: %w", name, err)
	}
	if m.store != nil {
		err := m.guard(ctx, name, func(ctx context.Context) error {
			return s.LoadProgram(ctx, m.store, name)
		})
		if err != nil && !errors.Is(err, domain.ErrProgramNotFound) {
			_ = s.Close()
			return nil, err
		}
	}

	m.mu.Lock()
	m.sessions[name] = s
	m.mu.Unlock()
	m.logger.Debug("session opened", "session", name)
	return s, nil
}

// guard holds the distributed lock for name, if a locker is configured.
func (m *Manager) guard(ctx context.Context, name string, fn func(context.Context) error) error {
	if m.locker == nil {
		return fn(ctx)
	}
	unlock, err := m.locker.Lock(ctx, name, m.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire distributed lock: %w", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
				"session", name,
				"error", err,
			)
		}
	}()
	return fn(ctx)
}

// Save persists the named session's program to the store.
func (m *Manager) Save(ctx context.Context, name string) error {
	if m.store == nil {
		return fmt.Errorf("save %s: no program store configured", name)
	}
	return m.WithLock(ctx, name, func(ctx context.Context, s *logicbridge.Session) error {
		return m.guard(ctx, name, func(ctx context.Context) error {
			return s.SaveProgram(ctx, m.store, name)
		})
	})
}

// Close closes and forgets the named session. Closing an unknown name is a no-op.
func (m *Manager) Close(name string) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	m.mu.Lock()
	s, ok := m.sessions[name]
	delete(m.sessions, name)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close()
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() error {
	var errs []error
	for _, name := range m.List() {
		errs = append(errs, m.Close(name))
	}
	return errors.Join(errs...)
}

// List returns the names of open sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Store returns the configured program store, or nil.
func (m *Manager) Store() ports.ProgramStore {
	return m.store
}
