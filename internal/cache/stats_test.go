package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	current, _ := strconv.ParseInt(f.data[key], 10, 64)
	current++
	f.data[key] = strconv.FormatInt(current, 10)
	return redis.NewIntResult(current, nil)
}

func TestStatsCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := NewStatsCache(fake, 30*time.Second)

	_, generation, ok, err := c.Get(ctx, "f1")
	if ok || err != nil || generation != 0 {
		t.Fatalf("expected miss at generation 0, got %v %d %v", ok, generation, err)
	}
	if err := c.Set(ctx, "f1", generation, []byte(`[{"participantId":"p"}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if fake.ttls["formation_stats:f1:0"] != 30*time.Second {
		t.Fatalf("expected ttl on key, got %v", fake.ttls)
	}
	payload, _, ok, err := c.Get(ctx, "f1")
	if err != nil || !ok || string(payload) != `[{"participantId":"p"}]` {
		t.Fatalf("unexpected hit %q %v %v", payload, ok, err)
	}
	if err := c.Invalidate(ctx, "f1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, generation, ok, _ := c.Get(ctx, "f1"); ok || generation != 1 {
		t.Fatalf("expected miss at generation 1 after invalidation, got %v %d", ok, generation)
	}
}

func TestStatsCacheIgnoresWritesForOldGenerations(t *testing.T) {
	ctx := context.Background()
	c := NewStatsCache(newFakeRedis(), time.Minute)

	_, before, _, err := c.Get(ctx, "f1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := c.Invalidate(ctx, "f1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.Set(ctx, "f1", before, []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, _, ok, _ := c.Get(ctx, "f1"); ok {
		t.Fatalf("expected a write computed before invalidation to stay hidden")
	}
}

func TestStatsCacheWithoutClient(t *testing.T) {
	c := NewStatsCache(nil, time.Second)
	if _, _, _, err := c.Get(context.Background(), "f1"); err == nil {
		t.Fatalf("expected error without a client")
	}
	if err := c.Set(context.Background(), "f1", 0, nil); err == nil {
		t.Fatalf("expected error without a client")
	}
	if err := c.Invalidate(context.Background(), "f1"); err == nil {
		t.Fatalf("expected error without a client")
	}
}
