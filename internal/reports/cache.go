package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cachePrefix     = "flockwatch:report:"
	generationKey   = cachePrefix + "gen"
	defaultCacheTTL = 5 * time.Minute
)

// Cache stores built reports. Invalidate drops every cached report at once.
type Cache interface {
	Get(ctx context.Context, key string) (Report, bool, error)
	Set(ctx context.Context, key string, report Report) error
	Generation(ctx context.Context) (int64, error)
	Invalidate(ctx context.Context) error
}

// RedisCache keeps reports as JSON in Redis. Keys embed a generation counter
// so invalidation is a single INCR.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache builds a cache with the given TTL, or five minutes when ttl is zero.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Report, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, fmt.Errorf("report cache get: %w", err)
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		// A corrupt entry is treated as a miss and overwritten by the next build.
		return Report{}, false, nil
	}
	return report, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, report Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("report cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("report cache generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("report cache invalidate: %w", err)
	}
	return nil
}

func cacheKey(gen int64, rt string, period Period, scopeKey string) string {
	return fmt.Sprintf("%s%d:%s:%s:%s", cachePrefix, gen, rt, period, scopeKey)
}
