package port

import (
	"context"
	"time"

	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Active *bool
	Limit  int
	Offset int
}

// AccountRepository exposes persistence behavior for accounts. Mutating
// operations target the account by sub and update only the named fields so
// concurrent logins on different channels cannot clobber each other.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetBySub(ctx context.Context, sub int64) (*domain.Account, error)
	GetByUsername(ctx context.Context, identifier string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// GetByExternalID resolves the at-most-one account holding the
	// (provider, id) binding.
	GetByExternalID(ctx context.Context, provider, id string) (*domain.Account, error)

	// AppendExternalID binds an identifier, preserving first-seen order.
	AppendExternalID(ctx context.Context, sub int64, provider, id string) error
	RemoveExternalID(ctx context.Context, sub int64, provider, id string) error

	TouchLogin(ctx context.Context, sub int64, method string, at time.Time) error
	UpdatePassword(ctx context.Context, sub int64, passwordHash string) error
	UpdateProfile(ctx context.Context, sub int64, profile domain.Profile) error
	UpdateScopes(ctx context.Context, sub int64, scopes map[string][]string) error
	SetActive(ctx context.Context, sub int64, active bool) error
	SetEmailConfirmed(ctx context.Context, sub int64, confirmed bool) error

	// Secret lifecycle columns (single-use confirmation/reset pairs).
	SetConfirmationSecret(ctx context.Context, sub int64, token, cookie string) error
	GetByConfirmationToken(ctx context.Context, token string) (*domain.Account, error)
	ClearConfirmationSecret(ctx context.Context, sub int64) error
	SetResetSecret(ctx context.Context, sub int64, token, cookie string) error
	GetByResetToken(ctx context.Context, token string) (*domain.Account, error)
	ClearResetSecret(ctx context.Context, sub int64) error

	Delete(ctx context.Context, sub int64) error
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
}
