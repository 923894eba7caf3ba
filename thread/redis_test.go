package thread

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-ai/roundtable/types"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr(), TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newTestRedisStore(t, 0)
	storeContract(t, store)
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	key := NewKey("agent", "c1")
	require.NoError(t, store.Save(ctx, key, []byte("state")))

	// Expiry is the store-level deletion policy; after the TTL the key
	// behaves like it was never saved.
	mr.FastForward(2 * time.Minute)
	_, err := store.Load(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreSurfacesBackendFailure(t *testing.T) {
	store, mr := newTestRedisStore(t, 0)
	ctx := context.Background()

	mr.Close()

	err := store.Save(ctx, NewKey("agent", "c1"), []byte("state"))
	require.Error(t, err)
	assert.Equal(t, types.ErrStoreFailure, types.GetErrorCode(err))

	_, err = store.Load(ctx, NewKey("agent", "c1"))
	require.Error(t, err)
	assert.Equal(t, types.ErrStoreFailure, types.GetErrorCode(err))
}
