package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brainlife/auth-sub000/internal/core/port"
)

// LoginLimiterConfig defines key layout for the failed-login counter.
type LoginLimiterConfig struct {
	KeyPrefix string
}

// LoginLimitRepository counts failed logins in Redis. One counter per
// identifier; the TTL set on first failure lets lockouts self-heal without a
// sweep job.
type LoginLimitRepository struct {
	client *redis.Client
	cfg    LoginLimiterConfig
}

// NewLoginLimitRepository constructs a repository using the provided Redis
// client and config.
func NewLoginLimitRepository(client *redis.Client, cfg LoginLimiterConfig) *LoginLimitRepository {
	return &LoginLimitRepository{client: client, cfg: cfg}
}

// RecordFailure increments the failure counter and returns the new count. The
// expiry window starts on the first failure; later failures inside the window
// do not extend it.
func (r *LoginLimitRepository) RecordFailure(ctx context.Context, identifier string, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	key := r.key(identifier)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("redis expire: %w", err)
		}
	}

	return int(count), nil
}

// CountFailures returns the current failure count inside the window.
func (r *LoginLimitRepository) CountFailures(ctx context.Context, identifier string) (int, error) {
	val, err := r.client.Get(ctx, r.key(identifier)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get: %w", err)
	}

	return val, nil
}

// Clear removes all failure entries for the identifier.
func (r *LoginLimitRepository) Clear(ctx context.Context, identifier string) error {
	if err := r.client.Del(ctx, r.key(identifier)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *LoginLimitRepository) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, identifier)
}

var _ port.LoginLimitStore = (*LoginLimitRepository)(nil)
