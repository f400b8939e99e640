package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds brute-force lockout tuning parameters.
type Config struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

// Limiter enforces the per-IP login lockout using Redis counters.
// Two keys per IP: a failure counter and a lockout flag, both expiring
// after the window. TTL expiry is the only cleanup mechanism.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "tg"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check fails with ErrRateLimited when the IP is locked out. It reads the
// lockout flag only; it never counts the attempt itself.
func (l *Limiter) Check(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	_, err := l.redis.Get(ctx, l.lockKey(ip)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return ErrRateLimited
}

// RecordFailure counts one failed login for the IP. When the counter
// reaches MaxAttempts the lockout flag is set for the remainder of the
// window. Returns true when this failure triggered the lockout.
func (l *Limiter) RecordFailure(ctx context.Context, ip string) (bool, error) {
	if ip == "" {
		return false, nil
	}

	count, err := l.incrementWithTTL(ctx, l.failKey(ip), l.config.Window)
	if err != nil {
		return false, err
	}
	if count < int64(l.config.MaxAttempts) {
		return false, nil
	}

	if err := l.redis.Set(ctx, l.lockKey(ip), 1, l.config.Window).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return true, nil
}

// Reset clears the counter and the lockout flag for the IP.
// Called after a successful login.
func (l *Limiter) Reset(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.failKey(ip), l.lockKey(ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// RetryAfter reports how long the IP remains locked out. Zero when the IP
// is not locked.
func (l *Limiter) RetryAfter(ctx context.Context, ip string) (time.Duration, error) {
	if ip == "" {
		return 0, nil
	}

	ttl, err := l.redis.TTL(ctx, l.lockKey(ip)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Failures returns the current failure counter for the IP. Missing keys
// return zero.
func (l *Limiter) Failures(ctx context.Context, ip string) (int, error) {
	count, err := l.redis.Get(ctx, l.failKey(ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *Limiter) failKey(ip string) string {
	return l.config.Prefix + ":login:fail:" + ip
}

func (l *Limiter) lockKey(ip string) string {
	return l.config.Prefix + ":login:lock:" + ip
}
