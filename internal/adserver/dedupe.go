package adserver

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewDeduper is the optional idempotency guard for the recorder. Seen
// returns true when the key was already observed inside the window.
type ViewDeduper interface {
	Seen(ctx context.Context, key string) (bool, error)
}

// RedisViewDeduper implements ViewDeduper with SETNX and a TTL window.
type RedisViewDeduper struct {
	client *redis.Client
	window time.Duration
}

// NewRedisViewDeduper constructs a deduper over the given client.
func NewRedisViewDeduper(client *redis.Client, window time.Duration) *RedisViewDeduper {
	return &RedisViewDeduper{client: client, window: window}
}

// Seen marks the key and reports whether it already existed.
func (d *RedisViewDeduper) Seen(ctx context.Context, key string) (bool, error) {
	wasSet, err := d.client.SetNX(ctx, "view:"+key, "1", d.window).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !wasSet, nil
}
