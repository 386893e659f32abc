//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	rediscache "pet-adoption/internal/adapters/cache/redis"
	"pet-adoption/internal/domain/stats"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestStatsCache_RoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	cache := rediscache.NewStatsCache(startRedis(t), time.Minute)

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := stats.Summary{
		Adoptions: stats.AdoptionCounts{Pending: 2, Approved: 1},
		Animals:   stats.AnimalCounts{Total: 3, Available: 2, Adopted: 1},
	}
	require.NoError(t, cache.Set(ctx, want))

	got, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, cache.Delete(ctx))
	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsCache_Expires(t *testing.T) {
	ctx := context.Background()
	client := startRedis(t)
	cache := rediscache.NewStatsCache(client, time.Second)

	require.NoError(t, cache.Set(ctx, stats.Summary{}))
	ttl, err := client.TTL(ctx, "petadopt:stats:summary").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Second)
}
