package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(SQLiteStoreOptions{
		Path:              filepath.Join(t.TempDir(), "sessions.db"),
		CreateIfNotExists: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_LoadMissingSession(t *testing.T) {
	store := newTestStore(t)

	data, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	saved := map[string]any{
		"phase": "analysis",
		"task:t1": map[string]any{
			"success": true,
			"data":    []any{"x", "y"},
		},
	}
	require.NoError(t, store.Save(ctx, "s1", saved))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestSQLiteStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, "s1", map[string]any{"k": "old", "gone": true}))
	require.NoError(t, store.Save(ctx, "s1", map[string]any{"k": "new"}))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "new"}, loaded)
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, "s1", map[string]any{"k": "v"}))
	require.NoError(t, store.Delete(ctx, "s1"))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteStore(SQLiteStoreOptions{Path: path, CreateIfNotExists: true})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "s1", map[string]any{"k": "v"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(SQLiteStoreOptions{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, loaded)
}
