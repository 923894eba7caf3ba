package thread

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the Store contract against any backend.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("NotFoundOnFreshKey", func(t *testing.T) {
		_, err := store.Load(ctx, NewKey("agent", "never-saved"))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		key := NewKey("agent", "c1")
		require.NoError(t, store.Save(ctx, key, []byte("state-v1")))

		blob, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("state-v1"), blob)
	})

	t.Run("SaveIsWholesaleUpsert", func(t *testing.T) {
		key := NewKey("agent", "c2")
		require.NoError(t, store.Save(ctx, key, []byte("first")))
		require.NoError(t, store.Save(ctx, key, []byte("second")))

		blob, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), blob)
	})

	t.Run("KeyIsolation", func(t *testing.T) {
		k1 := NewKey("agent-a", "shared-conversation")
		k2 := NewKey("agent-b", "shared-conversation")
		require.NoError(t, store.Save(ctx, k1, []byte("blob-a")))
		require.NoError(t, store.Save(ctx, k2, []byte("blob-b")))

		blob, err := store.Load(ctx, k1)
		require.NoError(t, err)
		assert.Equal(t, []byte("blob-a"), blob, "write under k2 must be invisible under k1")

		blob, err = store.Load(ctx, k2)
		require.NoError(t, err)
		assert.Equal(t, []byte("blob-b"), blob)
	})

	t.Run("SameConversationDistinctParticipants", func(t *testing.T) {
		// Same pair always yields the same key.
		assert.Equal(t, NewKey("p", "c").String(), NewKey("p", "c").String())
		assert.NotEqual(t, NewKey("p1", "c").String(), NewKey("p2", "c").String())
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	storeContract(t, store)
}

func TestMemoryStoreCopiesBlobs(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	key := NewKey("agent", "c1")
	blob := []byte("original")
	require.NoError(t, store.Save(ctx, key, blob))
	blob[0] = 'X'

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), loaded)

	loaded[0] = 'Y'
	again, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "threads.db")})
	require.NoError(t, err)
	defer store.Close()
	storeContract(t, store)
}

func TestNewStoreFactory(t *testing.T) {
	t.Run("DefaultsToMemory", func(t *testing.T) {
		store, err := NewStore(StoreConfig{})
		require.NoError(t, err)
		defer store.Close()
		_, ok := store.(*MemoryStore)
		assert.True(t, ok)
	})

	t.Run("SQLite", func(t *testing.T) {
		cfg := DefaultStoreConfig()
		cfg.Type = StoreTypeSQLite
		cfg.SQLite.Path = filepath.Join(t.TempDir(), "threads.db")
		store, err := NewStore(cfg)
		require.NoError(t, err)
		defer store.Close()
		_, ok := store.(*SQLiteStore)
		assert.True(t, ok)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := NewStore(StoreConfig{Type: "etcd"})
		require.Error(t, err)
	})
}

func TestKeyValid(t *testing.T) {
	assert.True(t, NewKey("p", "c").Valid())
	assert.False(t, NewKey("", "c").Valid())
	assert.False(t, NewKey("p", "").Valid())
}
