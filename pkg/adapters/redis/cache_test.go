package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/actgraph/pkg/adapters/redis"
	"github.com/aretw0/actgraph/pkg/toolchain"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

var _ toolchain.Cache = (*redis.Cache)(nil)
var _ toolchain.Locker = (*redis.Locker)(nil)

func TestCache_RoundTrip(t *testing.T) {
	_, client := newClient(t)
	cache := redis.NewFromClient(client)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	artifact := []byte{0x7f, 'E', 'L', 'F', 0, 1}
	require.NoError(t, cache.Put(ctx, "abc", artifact))

	got, ok, err := cache.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, artifact, got)

	list, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, list)

	require.NoError(t, cache.Delete(ctx, "abc"))
	_, ok, err = cache.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Prefix(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewFromClient(client, redis.WithPrefix("custom:units:"))

	require.NoError(t, cache.Put(context.Background(), "d1", []byte("so")))
	assert.True(t, mr.Exists("custom:units:d1"))
	assert.True(t, mr.Exists("custom:units:index"))
}

func TestCache_TTL(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "d1", []byte("so")))
	mr.FastForward(2 * time.Second)

	_, ok, err := cache.Get(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Unavailable(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewFromClient(client)
	mr.Close()

	_, _, err := cache.Get(context.Background(), "d1")
	assert.Error(t, err)
}

func TestLocker(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "actgraph:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "digest", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("actgraph:lock:digest"))

	short, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "digest", time.Minute)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("actgraph:lock:digest"))

	unlock, err = locker.Lock(ctx, "digest", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}
