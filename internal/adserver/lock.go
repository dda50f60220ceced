package adserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RollupLocker serializes aggregation runs per bucket key. Unlock must be
// called with the value returned by Lock.
type RollupLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// KeyedMutexLocker serializes buckets within a single process. Mutexes are
// kept for the life of the process; keys are (day, page) buckets, so the map
// grows by a handful of entries per aggregated day.
type KeyedMutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutexLocker constructs an in-process locker.
func NewKeyedMutexLocker() *KeyedMutexLocker {
	return &KeyedMutexLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the bucket mutex is held.
func (l *KeyedMutexLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

// RedisRollupLocker serializes buckets across processes with SET NX EX.
// The TTL bounds how long a crashed run can hold a bucket. Because the
// rollup upsert is idempotent, a lost lock degrades to wasted work, never
// to wrong counters.
type RedisRollupLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRollupLocker constructs a locker over the given client.
func NewRedisRollupLocker(client *redis.Client, ttl time.Duration) *RedisRollupLocker {
	return &RedisRollupLocker{client: client, ttl: ttl}
}

// Lock polls until the bucket key is acquired or the context ends.
func (l *RedisRollupLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := "rollup:lock:" + key
	for {
		ok, err := l.client.SetNX(ctx, redisKey, "1", l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			return func() { l.client.Del(context.Background(), redisKey) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
