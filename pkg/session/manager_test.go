package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/internal/adapters/memory"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/aretw0/logicbridge/pkg/session"
	"github.com/aretw0/logicbridge/pkg/streams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet(name string) (*logicbridge.Session, error) {
	return logicbridge.New(logicbridge.WithName(name), logicbridge.WithOutput(streams.Discard{}))
}

func TestManager_GetReusesSession(t *testing.T) {
	mgr := session.NewManager(session.WithFactory(quiet))
	defer mgr.CloseAll()
	ctx := context.Background()

	first, err := mgr.Get(ctx, "a")
	require.NoError(t, err)
	second, err := mgr.Get(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "a", first.Name())

	_, err = mgr.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, mgr.List())
}

func TestManager_Serializes(t *testing.T) {
	mgr := session.NewManager(session.WithFactory(quiet))
	defer mgr.CloseAll()
	ctx := context.Background()

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "shared", func(ctx context.Context, s *logicbridge.Session) error {
				n := atomic.AddInt32(&active, 1)
				defer atomic.AddInt32(&active, -1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				return s.Assertz(ctx, "hit(1)")
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)

	s, err := mgr.Get(ctx, "shared")
	require.NoError(t, err)
	hits, err := s.FindAll(ctx, "hit(_)")
	require.NoError(t, err)
	assert.Len(t, hits, 10)
}

func TestManager_PersistsPrograms(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	mgr := session.NewManager(session.WithFactory(quiet), session.WithStore(store))
	require.NoError(t, mgr.WithLock(ctx, "family", func(ctx context.Context, s *logicbridge.Session) error {
		return s.AssertProgram(ctx, "parent(a, b). parent(a, c).")
	}))
	require.NoError(t, mgr.Save(ctx, "family"))
	require.NoError(t, mgr.CloseAll())
	assert.Empty(t, mgr.List())

	s, err := mgr.Get(ctx, "family")
	require.NoError(t, err)
	defer mgr.CloseAll()
	got, err := s.FindAll(ctx, "parent(a, X)")
	require.NoError(t, err)
	assert.Len(t, got, 2, "a reopened session reloads its program")
}

func TestManager_SaveWithoutStore(t *testing.T) {
	mgr := session.NewManager(session.WithFactory(quiet))
	assert.Error(t, mgr.Save(context.Background(), "x"))
}

type countingLocker struct {
	locks, unlocks int32
	fail           bool
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail {
		return nil, errors.New("busy")
	}
	atomic.AddInt32(&l.locks, 1)
	return func(context.Context) error {
		atomic.AddInt32(&l.unlocks, 1)
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &countingLocker{}
	mgr := session.NewManager(
		session.WithFactory(quiet),
		session.WithStore(memory.New()),
		session.WithLocker(locker),
	)
	defer mgr.CloseAll()
	ctx := context.Background()

	_, err := mgr.Get(ctx, "p")
	require.NoError(t, err)
	require.NoError(t, mgr.Save(ctx, "p"))
	assert.Equal(t, int32(2), locker.locks, "load on open and save")
	assert.Equal(t, locker.locks, locker.unlocks)

	locker.fail = true
	assert.Error(t, mgr.Save(ctx, "p"))
}

func TestManager_FactoryError(t *testing.T) {
	mgr := session.NewManager(session.WithFactory(func(string) (*logicbridge.Session, error) {
		return nil, errors.New("no engine")
	}))
	_, err := mgr.Get(context.Background(), "x")
	assert.ErrorContains(t, err, "no engine")
	assert.Empty(t, mgr.List())
}
