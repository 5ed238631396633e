// Package cache keeps computed formation statistics in Redis.
//
// Each formation has a generation counter. Payloads are stored under a key
// that embeds the generation they were computed at, and invalidation bumps
// the counter, so a slow writer holding an old generation cannot bring stale
// stats back into view.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var errNotConfigured = errors.New("redis_not_configured")

type StatsCache struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewStatsCache(client redis.Cmdable, ttl time.Duration) *StatsCache {
	return &StatsCache{redis: client, ttl: ttl}
}

func generationKey(formationID string) string {
	return "formation_stats_gen:" + formationID
}

func statsKey(formationID string, generation int64) string {
	return "formation_stats:" + formationID + ":" + strconv.FormatInt(generation, 10)
}

func (c *StatsCache) generation(ctx context.Context, formationID string) (int64, error) {
	generation, err := c.redis.Get(ctx, generationKey(formationID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

// Get returns the payload cached for the current generation. The generation
// is returned on a miss too so the caller can Set against it.
func (c *StatsCache) Get(ctx context.Context, formationID string) ([]byte, int64, bool, error) {
	if c.redis == nil {
		return nil, 0, false, errNotConfigured
	}
	generation, err := c.generation(ctx, formationID)
	if err != nil {
		return nil, 0, false, err
	}
	value, err := c.redis.Get(ctx, statsKey(formationID, generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, generation, false, err
	}
	return value, generation, true, nil
}

// Set stores payload under the given generation. A write for a generation
// that has since been invalidated is never read back and expires with the TTL.
func (c *StatsCache) Set(ctx context.Context, formationID string, generation int64, payload []byte) error {
	if c.redis == nil {
		return errNotConfigured
	}
	return c.redis.Set(ctx, statsKey(formationID, generation), payload, c.ttl).Err()
}

func (c *StatsCache) Invalidate(ctx context.Context, formationID string) error {
	if c.redis == nil {
		return errNotConfigured
	}
	return c.redis.Incr(ctx, generationKey(formationID)).Err()
}
