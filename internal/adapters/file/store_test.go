package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/logicbridge/internal/adapters/file"
	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunProgramStoreContract(t, store)
}

func TestFileStore_AtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "family", []string{"parent(a, b)"}))
	require.NoError(t, store.Save(ctx, "family", []string{"parent(a, c)"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "family.json", entries[0].Name())

	loaded, err := store.Load(ctx, "family")
	require.NoError(t, err)
	assert.Equal(t, []string{"parent(a, c)"}, loaded)
}

func TestFileStore_InvalidNames(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, store.Save(ctx, name, nil), name)
		_, err := store.Load(ctx, name)
		assert.Error(t, err, name)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrProgramNotFound)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))
	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}
