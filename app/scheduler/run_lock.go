package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock serializes run-loop invocations per campaign. It narrows the window
// in which two overlapping invocations work the same campaign; the per-recipient
// claim remains the correctness guard.
type RunLock interface {
	// Acquire takes the campaign's lock. It returns false when another
	// invocation holds it, plus a release func that is safe to call either way.
	Acquire(ctx context.Context, campaignID uint) (bool, func(), error)
}

// RedisRunLock implements RunLock with a short-TTL SETNX key
type RedisRunLock struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisRunLock creates a redis-backed run lock
func NewRedisRunLock(client *redis.Client, prefix string, ttl time.Duration) RunLock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisRunLock{client: client, prefix: prefix, ttl: ttl}
}

func (l *RedisRunLock) key(campaignID uint) string {
	return fmt.Sprintf("%srunlock:campaign:%d", l.prefix, campaignID)
}

// Acquire sets the campaign's lock key if absent. The TTL bounds how long a
// crashed invocation can block the campaign.
func (l *RedisRunLock) Acquire(ctx context.Context, campaignID uint) (bool, func(), error) {
	key := l.key(campaignID)
	ok, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), l.ttl).Result()
	if err != nil {
		return false, func() {}, fmt.Errorf("failed to acquire run lock for campaign %d: %w", campaignID, err)
	}
	if !ok {
		return false, func() {}, nil
	}
	release := func() {
		// Best effort; the TTL cleans up after a failed delete
		_ = l.client.Del(context.Background(), key).Err()
	}
	return true, release, nil
}

// NoopRunLock implements RunLock without coordination, for single-process
// deployments and tests
type NoopRunLock struct{}

// Acquire always succeeds
func (NoopRunLock) Acquire(ctx context.Context, campaignID uint) (bool, func(), error) {
	return true, func() {}, nil
}
