package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
)

// AdminService is the thin administrative surface: issue a claim for any
// account, unlock a limiter identifier, modify scopes, list and disable
// accounts.
type AdminService struct {
	accounts  port.AccountRepository
	claims    *ClaimService
	limiter   *LoginLimiter
	publisher port.EventPublisher
	logger    *zap.Logger
}

// NewAdminService constructs an AdminService instance.
func NewAdminService(
	accounts port.AccountRepository,
	claims *ClaimService,
	limiter *LoginLimiter,
	publisher port.EventPublisher,
	log *zap.Logger,
) *AdminService {
	return &AdminService{
		accounts:  accounts,
		claims:    claims,
		limiter:   limiter,
		publisher: publisher,
		logger:    log,
	}
}

// IssueClaimFor signs a claim for the named account, bypassing credential
// checks but not the account-state checks.
func (s *AdminService) IssueClaimFor(ctx context.Context, sub int64, ttlOverride time.Duration) (string, error) {
	account, err := s.accounts.GetBySub(ctx, sub)
	if err != nil {
		return "", fmt.Errorf("lookup account: %w", err)
	}

	if ok, reason := account.CanIssueClaim(); !ok {
		if reason == "inactive" {
			return "", ErrAccountInactive
		}
		return "", ErrEmailUnconfirmed
	}

	return s.claims.Issue(ctx, account, ttlOverride)
}

// Unlock clears the failed-login counter for an identifier.
func (s *AdminService) Unlock(ctx context.Context, identifier string) error {
	return s.limiter.Clear(ctx, identifier)
}

// SetScopes replaces an account's scope document.
func (s *AdminService) SetScopes(ctx context.Context, sub int64, scopes map[string][]string) error {
	if err := s.accounts.UpdateScopes(ctx, sub, scopes); err != nil {
		return fmt.Errorf("update scopes: %w", err)
	}
	return nil
}

// ListAccounts returns accounts matching the filter, password hashes
// stripped.
func (s *AdminService) ListAccounts(ctx context.Context, filter port.AccountFilter) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	for i := range accounts {
		accounts[i].PasswordHash = ""
		accounts[i].ConfirmationToken = ""
		accounts[i].ConfirmationCookie = ""
		accounts[i].ResetToken = ""
		accounts[i].ResetCookie = ""
	}

	return accounts, nil
}

// DisableAccount marks an account inactive. Issuance stops immediately;
// the row is kept.
func (s *AdminService) DisableAccount(ctx context.Context, sub, actor int64) error {
	if err := s.accounts.SetActive(ctx, sub, false); err != nil {
		return fmt.Errorf("disable account: %w", err)
	}

	if pubErr := s.publisher.PublishAccountDisabled(ctx, domain.AccountDisabledEvent{
		EventID: uuid.NewString(),
		Sub:     sub,
		Actor:   actor,
		At:      time.Now().UTC(),
	}); pubErr != nil {
		s.logger.Warn("publish account-disabled event failed", zap.Int64("sub", sub), zap.Error(pubErr))
	}

	return nil
}

// EnableAccount re-activates a disabled account.
func (s *AdminService) EnableAccount(ctx context.Context, sub int64) error {
	if err := s.accounts.SetActive(ctx, sub, true); err != nil {
		return fmt.Errorf("enable account: %w", err)
	}
	return nil
}
