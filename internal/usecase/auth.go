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
	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/infra/logger"
	"github.com/brainlife/auth-sub000/internal/infra/security"
	"github.com/brainlife/auth-sub000/internal/repository"
)

// AuthService handles the local-password authentication path.
type AuthService struct {
	accounts  port.AccountRepository
	limiter   *LoginLimiter
	claims    *ClaimService
	publisher port.EventPublisher
	cfg       config.LimiterSettings
	logger    *zap.Logger
	sleep     func(time.Duration)
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	accounts port.AccountRepository,
	limiter *LoginLimiter,
	claims *ClaimService,
	publisher port.EventPublisher,
	cfg config.LimiterSettings,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		limiter:   limiter,
		claims:    claims,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
		sleep:     time.Sleep,
	}
}

// Login verifies local credentials and issues a claim. Preconditions are
// evaluated in order: account exists, has a password credential, limiter not
// locked, password verifies. Every credential failure records a limiter entry,
// sleeps a constant delay, and returns the same generic error so the failed
// precondition does not leak.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, *domain.Account, error) {
	if identifier == "" || password == "" {
		return "", nil, ErrBadCredential
	}

	account, err := s.accounts.GetByUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			account, err = s.accounts.GetByEmail(ctx, identifier)
		}
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", nil, s.fail(ctx, identifier, "unknown_identifier")
			}
			return "", nil, fmt.Errorf("lookup account: %w", err)
		}
	}

	if !account.HasPassword() {
		return "", nil, s.fail(ctx, identifier, "no_local_credential")
	}

	locked, err := s.limiter.IsLocked(ctx, identifier)
	if err != nil {
		return "", nil, fmt.Errorf("check lockout: %w", err)
	}
	if locked {
		return "", nil, ErrAccountLocked
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", nil, s.fail(ctx, identifier, "bad_password")
	}

	// Identity is proven past this point; account-state failures are specific
	// and actionable, and do not count against the limiter.
	if ok, reason := account.CanIssueClaim(); !ok {
		if reason == "inactive" {
			return "", nil, ErrAccountInactive
		}
		return "", nil, ErrEmailUnconfirmed
	}

	now := time.Now().UTC()
	if err := s.accounts.TouchLogin(ctx, account.Sub, string(domain.LoginMethodLocal), now); err != nil {
		return "", nil, fmt.Errorf("touch login: %w", err)
	}

	token, err := s.claims.Issue(ctx, account, 0)
	if err != nil {
		return "", nil, err
	}

	if pubErr := s.publisher.PublishLogin(ctx, domain.LoginEvent{
		EventID:  uuid.NewString(),
		Sub:      account.Sub,
		Username: account.Username,
		Method:   string(domain.LoginMethodLocal),
		At:       now,
	}); pubErr != nil {
		s.logger.Warn("publish login event failed", zap.Int64("sub", account.Sub), zap.Error(pubErr))
	}

	return token, account, nil
}

// fail records the failure, publishes the audit event, applies the constant
// artificial delay, and returns the generic credential error.
func (s *AuthService) fail(ctx context.Context, identifier, reason string) error {
	s.limiter.RecordFailure(ctx, identifier)

	if pubErr := s.publisher.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		EventID:    uuid.NewString(),
		Identifier: identifier,
		Reason:     reason,
		At:         time.Now().UTC(),
	}); pubErr != nil {
		s.logger.Warn("publish login-failed event failed",
			zap.String("identifier", logger.MaskString(identifier)),
			zap.Error(pubErr),
		)
	}

	if s.cfg.FailureDelay > 0 {
		s.sleep(s.cfg.FailureDelay)
	}

	return ErrBadCredential
}
