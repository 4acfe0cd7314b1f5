package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestLoginLimitRepository_RecordFailureCounts(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewLoginLimitRepository(client, LoginLimiterConfig{KeyPrefix: "auth:failed"})

	ctx := context.Background()
	window := time.Hour

	for want := 1; want <= 3; want++ {
		count, err := repo.RecordFailure(ctx, "alice", window)
		if err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
	}

	remaining := server.TTL("auth:failed:alice")
	if remaining <= 0 || remaining > window {
		t.Fatalf("expected ttl within (0, %v], got %v", window, remaining)
	}
}

func TestLoginLimitRepository_WindowNotExtendedByLaterFailures(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewLoginLimitRepository(client, LoginLimiterConfig{KeyPrefix: "auth:failed"})

	ctx := context.Background()
	window := time.Hour

	if _, err := repo.RecordFailure(ctx, "bob", window); err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}

	server.FastForward(30 * time.Minute)

	if _, err := repo.RecordFailure(ctx, "bob", window); err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}

	remaining := server.TTL("auth:failed:bob")
	if remaining > 30*time.Minute {
		t.Fatalf("expected window anchored to first failure, ttl %v", remaining)
	}
}

func TestLoginLimitRepository_ExpiryResetsCount(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewLoginLimitRepository(client, LoginLimiterConfig{KeyPrefix: "auth:failed"})

	ctx := context.Background()

	if _, err := repo.RecordFailure(ctx, "carol", time.Minute); err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	count, err := repo.CountFailures(ctx, "carol")
	if err != nil {
		t.Fatalf("CountFailures returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter to expire, got %d", count)
	}
}

func TestLoginLimitRepository_CountFailuresMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewLoginLimitRepository(client, LoginLimiterConfig{KeyPrefix: "auth:failed"})

	count, err := repo.CountFailures(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("CountFailures returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero count for unseen identifier, got %d", count)
	}
}

func TestLoginLimitRepository_Clear(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewLoginLimitRepository(client, LoginLimiterConfig{KeyPrefix: "auth:failed"})

	ctx := context.Background()

	if _, err := repo.RecordFailure(ctx, "dave", time.Hour); err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}
	if err := repo.Clear(ctx, "dave"); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}

	count, err := repo.CountFailures(ctx, "dave")
	if err != nil {
		t.Fatalf("CountFailures returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cleared counter, got %d", count)
	}
}
