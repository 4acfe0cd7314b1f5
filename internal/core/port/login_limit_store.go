package port

import (
	"context"
	"time"
)

// LoginLimitStore counts failed login attempts per identifier in an
// ephemeral, auto-expiring store so lockouts self-heal without a sweep job.
type LoginLimitStore interface {
	// RecordFailure increments the failure counter, starting the expiry
	// window on first failure, and returns the new count.
	RecordFailure(ctx context.Context, identifier string, window time.Duration) (int, error)
	// CountFailures returns the current failure count inside the window.
	CountFailures(ctx context.Context, identifier string) (int, error)
	// Clear removes all failure entries for the identifier.
	Clear(ctx context.Context, identifier string) error
}
