package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/logicbridge"
	"github.com/aretw0/logicbridge/pkg/streams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(WithFactory(func(name string) (*logicbridge.Session, error) {
		return logicbridge.New(logicbridge.WithName(name), logicbridge.WithOutput(streams.Discard{}))
	}))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("session-%d", i)
		require.NoError(t, mgr.WithLock(ctx, name, func(context.Context, *logicbridge.Session) error {
			return nil
		}))
		require.NoError(t, mgr.Close(name))
	}

	assert.Empty(t, mgr.locks, "locks are released once unused")
	assert.Empty(t, mgr.sessions)
}
