package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/internal/apperr"
)

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zap.NewNop())
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_SetGetDel(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisTestStore(t)

	require.NoError(t, store.Set(ctx, "auth_abc", "user-1", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("auth_abc"))

	value, found, err := store.Get(ctx, "auth_abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "user-1", value)

	require.NoError(t, store.Del(ctx, "auth_abc"))
	assert.False(t, mr.Exists("auth_abc"))

	_, found, err = store.Get(ctx, "auth_abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisTestStore(t)
	ttl := 86400 * time.Second

	require.NoError(t, store.Set(ctx, "auth_t", "user-1", ttl))

	mr.FastForward(ttl - time.Second)
	_, found, err := store.Get(ctx, "auth_t")
	require.NoError(t, err)
	assert.True(t, found)

	mr.FastForward(time.Second)
	_, found, err = store.Get(ctx, "auth_t")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_GetDoesNotRefreshTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisTestStore(t)

	require.NoError(t, store.Set(ctx, "auth_t", "user-1", time.Hour))
	mr.FastForward(30 * time.Minute)

	_, found, err := store.Get(ctx, "auth_t")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 30*time.Minute, mr.TTL("auth_t"))
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisTestStore(t)
	mr.Close()

	_, found, err := store.Get(ctx, "auth_t")
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, apperr.IsInfrastructure(err))

	assert.True(t, apperr.IsInfrastructure(store.Ping(ctx)))
}
