package port

import (
	"context"

	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// EventPublisher publishes audit events to the message bus. Publishing is
// fire-and-forget; callers never block on broker acknowledgement.
type EventPublisher interface {
	PublishLogin(ctx context.Context, event domain.LoginEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishIdentityAssociated(ctx context.Context, event domain.IdentityAssociatedEvent) error
	PublishIdentityDisconnected(ctx context.Context, event domain.IdentityDisconnectedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishAccountDisabled(ctx context.Context, event domain.AccountDisabledEvent) error
}
