package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/infra/security"
	"github.com/brainlife/auth-sub000/internal/repository"
)

// AccountService covers self-service account operations: profile update and
// password change.
type AccountService struct {
	accounts  port.AccountRepository
	publisher port.EventPublisher
	logger    *zap.Logger
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(accounts port.AccountRepository, publisher port.EventPublisher, log *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, publisher: publisher, logger: log}
}

// Get loads an account with the password hash stripped.
func (s *AccountService) Get(ctx context.Context, sub int64) (*domain.Account, error) {
	account, err := s.accounts.GetBySub(ctx, sub)
	if err != nil {
		return nil, err
	}

	sanitized := *account
	sanitized.PasswordHash = ""
	sanitized.ConfirmationToken = ""
	sanitized.ConfirmationCookie = ""
	sanitized.ResetToken = ""
	sanitized.ResetCookie = ""

	return &sanitized, nil
}

// UpdateProfile replaces the account's profile document.
func (s *AccountService) UpdateProfile(ctx context.Context, sub int64, profile domain.Profile) error {
	if err := s.accounts.UpdateProfile(ctx, sub, profile); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password before setting a new one. An
// account with no local credential may set its first password without an old
// one.
func (s *AccountService) ChangePassword(ctx context.Context, sub int64, oldPassword, newPassword string) error {
	account, err := s.accounts.GetBySub(ctx, sub)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if account.HasPassword() {
		ok, err := security.VerifyPassword(oldPassword, account.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			return ErrBadCredential
		}
	}

	result := security.ScorePassword(newPassword, account.Username, account.Email)
	if result.Score == 0 {
		return fmt.Errorf("%w: %s", ErrWeakPassword, result.Feedback)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, sub, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if pubErr := s.publisher.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		EventID: uuid.NewString(),
		Sub:     sub,
		Reason:  "change",
		At:      time.Now().UTC(),
	}); pubErr != nil {
		s.logger.Warn("publish password-changed event failed", zap.Int64("sub", sub), zap.Error(pubErr))
	}

	return nil
}
