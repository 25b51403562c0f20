package tools

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache()
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, cache.Set(ctx, "forever", "v", 0))
	value, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)

	now = now.Add(2 * time.Minute)
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok)
	_, ok, _ = cache.Get(ctx, "forever")
	assert.True(t, ok)
	_, ok, _ = cache.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestNewRedisCacheParsesAddresses(t *testing.T) {
	_, err := NewRedisCache(" ")
	assert.Error(t, err)

	cache, err := NewRedisCache("redis://localhost:6379/2")
	require.NoError(t, err)
	defer cache.Close()
	assert.Equal(t, redisKeyPrefix, cache.Prefix)

	_, err = NewRedisCache("redis://%zz")
	assert.Error(t, err)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("ORCHESTRATE_TEST_REDIS")
	if addr == "" {
		t.Skip("ORCHESTRATE_TEST_REDIS not set")
	}
	ctx := context.Background()
	cache, err := NewRedisCache(addr)
	require.NoError(t, err)
	defer cache.Close()
	cache.Prefix = "orchestrate:test:" + t.Name() + ":"

	require.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	value, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)

	_, ok, err = cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
