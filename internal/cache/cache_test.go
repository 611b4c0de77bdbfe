package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickback/api/internal/cache"
	"github.com/kickback/api/internal/platform/config"
)

type page struct {
	IDs   []string `json:"ids"`
	Total int      `json:"total"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("SetGetDelete", func(t *testing.T) {
		c := cache.NewMemoryCache(0, 0)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
		value, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), value)

		require.NoError(t, c.Delete(ctx, "k"))
		_, err = c.Get(ctx, "k")
		assert.ErrorIs(t, err, cache.ErrKeyNotFound)
	})

	t.Run("Expiry", func(t *testing.T) {
		c := cache.NewMemoryCache(0, 0)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Millisecond))
		time.Sleep(5 * time.Millisecond)
		_, err := c.Get(ctx, "short")
		assert.ErrorIs(t, err, cache.ErrKeyNotFound)
	})

	t.Run("DeletePattern", func(t *testing.T) {
		c := cache.NewMemoryCache(0, 0)
		defer c.Close()

		for _, key := range []string{"comments:event:e1:newest", "comments:event:e1:oldest", "comments:event:e2:newest"} {
			require.NoError(t, c.Set(ctx, key, []byte("x"), time.Minute))
		}
		require.NoError(t, c.DeletePattern(ctx, "comments:event:e1:*"))

		_, err := c.Get(ctx, "comments:event:e1:newest")
		assert.ErrorIs(t, err, cache.ErrKeyNotFound)
		_, err = c.Get(ctx, "comments:event:e2:newest")
		assert.NoError(t, err)
	})

	t.Run("MemoryBudgetEvictsOldest", func(t *testing.T) {
		c := cache.NewMemoryCache(200, 0)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "a", make([]byte, 100), time.Minute))
		require.NoError(t, c.Set(ctx, "b", make([]byte, 100), time.Minute))

		_, err := c.Get(ctx, "a")
		assert.ErrorIs(t, err, cache.ErrKeyNotFound)
		_, err = c.Get(ctx, "b")
		assert.NoError(t, err)
		assert.Equal(t, int64(1), c.Stats().Evictions)
	})
}

func TestGenericCacheService(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTripWithPrefix", func(t *testing.T) {
		backend := cache.NewMemoryCache(0, 0)
		svc := cache.NewGenericCacheService(backend, "kickback", time.Minute)
		defer svc.Close()

		require.NoError(t, svc.CacheData(ctx, "comments:e1", page{IDs: []string{"c1"}, Total: 1}))

		raw, err := backend.Get(ctx, "kickback:comments:e1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"ids":["c1"],"total":1}`, string(raw))

		var got page
		require.NoError(t, svc.GetCached(ctx, "comments:e1", &got))
		assert.Equal(t, 1, got.Total)
	})

	t.Run("InvalidatePattern", func(t *testing.T) {
		svc := cache.NewGenericCacheService(cache.NewMemoryCache(0, 0), "kickback:", time.Minute)
		defer svc.Close()

		require.NoError(t, svc.CacheData(ctx, "comments:e1:a", page{}))
		require.NoError(t, svc.InvalidatePattern(ctx, "comments:e1:*"))

		var got page
		assert.ErrorIs(t, svc.GetCached(ctx, "comments:e1:a", &got), cache.ErrKeyNotFound)
	})

	t.Run("Disabled", func(t *testing.T) {
		svc := cache.NewServiceFromConfig(config.CacheConfig{Enabled: false})
		assert.False(t, svc.IsEnabled())

		var got page
		assert.ErrorIs(t, svc.GetCached(ctx, "x", &got), cache.ErrCacheDisabled)
		assert.ErrorIs(t, svc.CacheData(ctx, "x", got), cache.ErrCacheDisabled)
		assert.NoError(t, svc.Close())
	})
}

func TestNew_InvalidBackend(t *testing.T) {
	_, err := cache.New(config.CacheConfig{Backend: "memcached"})
	assert.ErrorIs(t, err, cache.ErrInvalidBackend)
}

func TestRedisCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}
	ctx := context.Background()

	c, err := cache.NewRedisCache(cache.RedisOptions{Address: addr, PoolSize: 2})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "kickback-test:a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "kickback-test:b", []byte("2"), time.Minute))
	require.NoError(t, c.DeletePattern(ctx, "kickback-test:*"))

	_, err = c.Get(ctx, "kickback-test:a")
	assert.ErrorIs(t, err, cache.ErrKeyNotFound)
}
