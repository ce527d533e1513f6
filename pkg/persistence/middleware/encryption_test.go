package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/logicbridge/internal/adapters/memory"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/persistence/middleware"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, next ports.ProgramStore, active []byte, fallback ...[]byte) ports.ProgramStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunProgramStoreContract(t, encrypted(t, memory.New(), generateKey(t)))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	store := encrypted(t, underlying, generateKey(t))

	clauses := []string{"secret(sauce)", "grand(X, Z) :- parent(X, Y), parent(Y, Z)"}
	require.NoError(t, store.Save(ctx, "p", clauses))

	raw, err := underlying.Load(ctx, "p")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.True(t, strings.HasPrefix(raw[0], "$encrypted:"))
	assert.NotContains(t, raw[0], "sauce")

	loaded, err := store.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, clauses, loaded)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	oldKey, newKey := generateKey(t), generateKey(t)

	oldStore := encrypted(t, underlying, oldKey)
	require.NoError(t, oldStore.Save(ctx, "p", []string{"v(old)"}))

	newStore := encrypted(t, underlying, newKey, oldKey)
	loaded, err := newStore.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"v(old)"}, loaded)

	require.NoError(t, newStore.Save(ctx, "p", []string{"v(new)"}))
	_, err = oldStore.Load(ctx, "p")
	assert.Error(t, err, "old key alone cannot read programs sealed with the new key")
}

func TestEncryptionMiddleware_PlainProgram(t *testing.T) {
	ctx := context.Background()
	underlying := memory.New()
	require.NoError(t, underlying.Save(ctx, "plain", []string{"a(1)"}))

	_, err := encrypted(t, underlying, generateKey(t)).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	_, err = encrypted(t, underlying, generateKey(t)).Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrProgramNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.ProgramStore) ports.ProgramStore {
			order = append(order, name)
			return next
		}
	}
	middleware.Chain(memory.New(), tag("outer"), tag("inner"))
	assert.Equal(t, []string{"inner", "outer"}, order)
}
