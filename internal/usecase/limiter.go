package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/infra/config"
)

// LoginLimiter enforces the failed-login lockout policy on top of the
// ephemeral counter store. Store calls run under a short timeout; outages
// follow the configured fail-open or fail-closed policy.
type LoginLimiter struct {
	store  port.LoginLimitStore
	cfg    config.LimiterSettings
	logger *zap.Logger
}

// NewLoginLimiter constructs a LoginLimiter instance.
func NewLoginLimiter(store port.LoginLimitStore, cfg config.LimiterSettings, logger *zap.Logger) *LoginLimiter {
	return &LoginLimiter{store: store, cfg: cfg, logger: logger}
}

// RecordFailure counts a failed attempt for the identifier. Store errors are
// absorbed under the failure policy; recording must never abort a login flow.
func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier string) {
	storeCtx, cancel := l.storeContext(ctx)
	defer cancel()

	if _, err := l.store.RecordFailure(storeCtx, identifier, l.cfg.Window); err != nil {
		l.logger.Warn("limiter store unavailable while recording failure",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
	}
}

// IsLocked reports whether the identifier crossed the failure threshold
// inside the window. A store outage yields the configured policy: fail-open
// treats the identifier as unlocked, fail-closed as locked.
func (l *LoginLimiter) IsLocked(ctx context.Context, identifier string) (bool, error) {
	storeCtx, cancel := l.storeContext(ctx)
	defer cancel()

	count, err := l.store.CountFailures(storeCtx, identifier)
	if err != nil {
		l.logger.Warn("limiter store unavailable while checking lockout",
			zap.String("identifier", identifier),
			zap.Bool("fail_open", l.cfg.FailOpen),
			zap.Error(err),
		)
		if l.cfg.FailOpen {
			return false, nil
		}
		return true, nil
	}

	return count >= l.cfg.Threshold, nil
}

// Clear removes all failure entries for the identifier. Administrative
// unlock.
func (l *LoginLimiter) Clear(ctx context.Context, identifier string) error {
	storeCtx, cancel := l.storeContext(ctx)
	defer cancel()

	if err := l.store.Clear(storeCtx, identifier); err != nil {
		return fmt.Errorf("clear limiter: %w", err)
	}

	return nil
}

func (l *LoginLimiter) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.cfg.StoreTimeout)
}
