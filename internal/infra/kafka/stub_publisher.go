package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, sub int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.Int64("sub", sub),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishLogin logs auth.login events.
func (p *StubPublisher) PublishLogin(_ context.Context, event domain.LoginEvent) error {
	payload := map[string]any{
		"sub":      event.Sub,
		"username": event.Username,
		"method":   event.Method,
		"at":       event.At,
		"metadata": event.Metadata,
	}
	p.logEvent("auth.login", event.Sub, event.At, payload)
	return nil
}

// PublishLoginFailed logs auth.fail events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	payload := map[string]any{
		"identifier": event.Identifier,
		"reason":     event.Reason,
		"at":         event.At,
	}
	p.logEvent("auth.fail", 0, event.At, payload)
	return nil
}

// PublishAccountRegistered logs auth.register events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"sub":      event.Sub,
		"username": event.Username,
		"email":    event.Email,
		"provider": event.Provider,
		"at":       event.At,
	}
	p.logEvent("auth.register", event.Sub, event.At, payload)
	return nil
}

// PublishIdentityAssociated logs auth.associate events.
func (p *StubPublisher) PublishIdentityAssociated(_ context.Context, event domain.IdentityAssociatedEvent) error {
	payload := map[string]any{
		"sub":         event.Sub,
		"provider":    event.Provider,
		"external_id": event.ExternalID,
		"at":          event.At,
	}
	p.logEvent("auth.associate", event.Sub, event.At, payload)
	return nil
}

// PublishIdentityDisconnected logs auth.disconnect events.
func (p *StubPublisher) PublishIdentityDisconnected(_ context.Context, event domain.IdentityDisconnectedEvent) error {
	payload := map[string]any{
		"sub":         event.Sub,
		"provider":    event.Provider,
		"external_id": event.ExternalID,
		"at":          event.At,
	}
	p.logEvent("auth.disconnect", event.Sub, event.At, payload)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"sub":    event.Sub,
		"reason": event.Reason,
		"at":     event.At,
	}
	p.logEvent("auth.password.changed", event.Sub, event.At, payload)
	return nil
}

// PublishAccountDisabled logs auth.account.disabled events.
func (p *StubPublisher) PublishAccountDisabled(_ context.Context, event domain.AccountDisabledEvent) error {
	payload := map[string]any{
		"sub":   event.Sub,
		"actor": event.Actor,
		"at":    event.At,
	}
	p.logEvent("auth.account.disabled", event.Sub, event.At, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
