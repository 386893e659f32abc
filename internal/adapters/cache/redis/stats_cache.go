package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pet-adoption/internal/domain/stats"

	"github.com/redis/go-redis/v9"
)

const (
	statsKey   = "petadopt:stats:summary"
	DefaultTTL = 30 * time.Second
)

// StatsCache guarda el Summary serializado con TTL corto. El TTL acota
// cuánto puede quedar viejo si una invalidación falla.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) Get(ctx context.Context) (stats.Summary, bool, error) {
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return stats.Summary{}, false, nil
	}
	if err != nil {
		return stats.Summary{}, false, err
	}

	var s stats.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		// entrada corrupta: miss
		return stats.Summary{}, false, nil
	}
	return s, true, nil
}

func (c *StatsCache) Set(ctx context.Context, s stats.Summary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, raw, c.ttl).Err()
}

func (c *StatsCache) Delete(ctx context.Context) error {
	return c.client.Del(ctx, statsKey).Err()
}
