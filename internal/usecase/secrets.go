package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/infra/logger"
	"github.com/brainlife/auth-sub000/internal/infra/security"
	"github.com/brainlife/auth-sub000/internal/repository"
)

const secretTokenBytes = 32

// SecretPair is an issued token/cookie credential pair. The token travels by
// URL and email and is treated as possibly disclosed; the cookie only travels
// on the original browser session, so neither artifact alone suffices for a
// reset.
type SecretPair struct {
	Token  string
	Cookie string
}

// SecretService manages the lifecycle of single-use confirmation and reset
// secrets.
type SecretService struct {
	accounts  port.AccountRepository
	mailer    port.Mailer
	publisher port.EventPublisher
	appCfg    config.AppSettings
	logger    *zap.Logger
}

// NewSecretService constructs a SecretService instance.
func NewSecretService(
	accounts port.AccountRepository,
	mailer port.Mailer,
	publisher port.EventPublisher,
	appCfg config.AppSettings,
	log *zap.Logger,
) *SecretService {
	return &SecretService{
		accounts:  accounts,
		mailer:    mailer,
		publisher: publisher,
		appCfg:    appCfg,
		logger:    log,
	}
}

// IssueConfirmation generates and persists a fresh confirmation pair,
// replacing any outstanding one.
func (s *SecretService) IssueConfirmation(ctx context.Context, sub int64) (*SecretPair, error) {
	pair, err := newSecretPair()
	if err != nil {
		return nil, err
	}

	if err := s.accounts.SetConfirmationSecret(ctx, sub, pair.Token, pair.Cookie); err != nil {
		return nil, fmt.Errorf("store confirmation secret: %w", err)
	}

	return pair, nil
}

// SendConfirmation issues a confirmation pair and mails the deep link.
func (s *SecretService) SendConfirmation(ctx context.Context, account *domain.Account) (*SecretPair, error) {
	if account.Email == "" {
		return nil, fmt.Errorf("account has no email")
	}

	pair, err := s.IssueConfirmation(ctx, account.Sub)
	if err != nil {
		return nil, err
	}

	msg := port.Message{
		To:      account.Email,
		Subject: "Confirm your email address",
		Body: fmt.Sprintf("Hello %s,\n\nPlease confirm your email address by visiting:\n\n%s/confirm_email/%s\n",
			account.Username, s.appCfg.URL, pair.Token),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send confirmation mail: %w", err)
	}

	return pair, nil
}

// ResendConfirmation looks the account up by email and re-sends the
// confirmation link. Mail failure here is recoverable; the caller may retry.
func (s *SecretService) ResendConfirmation(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Do not reveal whether the address is registered.
			s.logger.Info("resend confirmation for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if account.EmailConfirmed {
		return nil
	}

	if _, err := s.SendConfirmation(ctx, account); err != nil {
		return err
	}

	return nil
}

// ConfirmEmail redeems a confirmation token. The binding cookie is not
// required here; there is no secret-delivery channel to protect.
func (s *SecretService) ConfirmEmail(ctx context.Context, token string) (*domain.Account, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	account, err := s.accounts.GetByConfirmationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("lookup confirmation token: %w", err)
	}

	if err := s.accounts.SetEmailConfirmed(ctx, account.Sub, true); err != nil {
		return nil, fmt.Errorf("confirm email: %w", err)
	}
	if err := s.accounts.ClearConfirmationSecret(ctx, account.Sub); err != nil {
		return nil, fmt.Errorf("clear confirmation secret: %w", err)
	}

	account.EmailConfirmed = true
	account.ConfirmationToken = ""
	account.ConfirmationCookie = ""

	return account, nil
}

// RequestReset issues a reset pair and mails the deep link. The response is
// identical whether or not the address is registered, so the endpoint cannot
// be used for account enumeration. The returned cookie must be set httpOnly
// on the requesting browser.
func (s *SecretService) RequestReset(ctx context.Context, email string) (*SecretPair, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil, nil
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	pair, err := newSecretPair()
	if err != nil {
		return nil, err
	}

	if err := s.accounts.SetResetSecret(ctx, account.Sub, pair.Token, pair.Cookie); err != nil {
		return nil, fmt.Errorf("store reset secret: %w", err)
	}

	msg := port.Message{
		To:      account.Email,
		Subject: "Password reset request",
		Body: fmt.Sprintf("Hello %s,\n\nA password reset was requested for your account. Visit:\n\n%s/reset_password/%s\n\nIf you did not request this, ignore this message.\n",
			account.Username, s.appCfg.URL, pair.Token),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send reset mail: %w", err)
	}

	return pair, nil
}

// RedeemReset consumes a reset pair and sets the new password. Both the
// emailed token and the browser-bound cookie are required; the pair is
// cleared on success so it is single-use.
func (s *SecretService) RedeemReset(ctx context.Context, token, cookie, newPassword string) (*domain.Account, error) {
	if token == "" || cookie == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	account, err := s.accounts.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("lookup reset token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(account.ResetCookie), []byte(cookie)) != 1 {
		return nil, ErrInvalidOrExpiredToken
	}

	result := security.ScorePassword(newPassword, account.Username, account.Email)
	if result.Score == 0 {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, result.Feedback)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.Sub, hash); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	if err := s.accounts.ClearResetSecret(ctx, account.Sub); err != nil {
		return nil, fmt.Errorf("clear reset secret: %w", err)
	}

	if pubErr := s.publisher.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		EventID: uuid.NewString(),
		Sub:     account.Sub,
		Reason:  "reset",
		At:      time.Now().UTC(),
	}); pubErr != nil {
		s.logger.Warn("publish password-changed event failed", zap.Int64("sub", account.Sub), zap.Error(pubErr))
	}

	account.PasswordHash = hash
	account.ResetToken = ""
	account.ResetCookie = ""

	return account, nil
}

func newSecretPair() (*SecretPair, error) {
	token, err := security.GenerateSecureToken(secretTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	cookie, err := security.GenerateSecureToken(secretTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate cookie: %w", err)
	}
	return &SecretPair{Token: token, Cookie: cookie}, nil
}
