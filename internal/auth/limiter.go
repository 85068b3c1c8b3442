package auth

import (
	"context"
	"fmt"
	"time"

	"riteswipe-api/internal/cache"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts failed logins per key and locks the key out once
// the limit is reached within the window.
type AttemptLimiter interface {
	// Locked reports whether key is locked and for how long.
	Locked(ctx context.Context, key string) (bool, time.Duration, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// MemoryAttemptLimiter keeps counters in process.
type MemoryAttemptLimiter struct {
	counts      *cache.SimpleCache[string, int]
	maxAttempts int
	window      time.Duration
}

func NewMemoryAttemptLimiter(maxAttempts int, window time.Duration) *MemoryAttemptLimiter {
	return &MemoryAttemptLimiter{
		counts:      cache.NewSimpleCache[string, int](),
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (l *MemoryAttemptLimiter) Locked(_ context.Context, key string) (bool, time.Duration, error) {
	n, ok := l.counts.Get(key)
	if !ok || n < l.maxAttempts {
		return false, 0, nil
	}
	left, _ := l.counts.TTL(key)
	return true, left, nil
}

func (l *MemoryAttemptLimiter) Fail(_ context.Context, key string) error {
	l.counts.Update(key, l.window, func(n int, _ bool) int { return n + 1 })
	return nil
}

func (l *MemoryAttemptLimiter) Reset(_ context.Context, key string) error {
	l.counts.Delete(key)
	return nil
}

// Purge drops expired counters.
func (l *MemoryAttemptLimiter) Purge() int {
	return l.counts.PurgeExpired()
}

const loginAttemptsPrefix = "login_attempts:"

// RedisAttemptLimiter shares counters across instances using INCR + EXPIRE.
type RedisAttemptLimiter struct {
	rdb         redis.Cmdable
	maxAttempts int
	window      time.Duration
}

func NewRedisAttemptLimiter(rdb redis.Cmdable, maxAttempts int, window time.Duration) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{rdb: rdb, maxAttempts: maxAttempts, window: window}
}

func (l *RedisAttemptLimiter) Locked(ctx context.Context, key string) (bool, time.Duration, error) {
	n, err := l.rdb.Get(ctx, loginAttemptsPrefix+key).Int()
	if err == redis.Nil {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("reading login attempts: %w", err)
	}
	if n < l.maxAttempts {
		return false, 0, nil
	}
	left, err := l.rdb.TTL(ctx, loginAttemptsPrefix+key).Result()
	if err != nil {
		return true, l.window, nil
	}
	return true, left, nil
}

func (l *RedisAttemptLimiter) Fail(ctx context.Context, key string) error {
	k := loginAttemptsPrefix + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("counting login attempt: %w", err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("expiring login attempts: %w", err)
		}
	}
	return nil
}

func (l *RedisAttemptLimiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, loginAttemptsPrefix+key).Err(); err != nil {
		return fmt.Errorf("resetting login attempts: %w", err)
	}
	return nil
}
