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

// RegisterInput is the payload for local registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Fullname string
}

// RegistrationService creates accounts, locally or from a deferred signup
// ticket.
type RegistrationService struct {
	accounts  port.AccountRepository
	sequence  port.SubSequence
	secrets   *SecretService
	signer    *security.ClaimSigner
	publisher port.EventPublisher
	logger    *zap.Logger
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	accounts port.AccountRepository,
	sequence port.SubSequence,
	secrets *SecretService,
	signer *security.ClaimSigner,
	publisher port.EventPublisher,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		accounts:  accounts,
		sequence:  sequence,
		secrets:   secrets,
		signer:    signer,
		publisher: publisher,
		logger:    log,
	}
}

// Register creates a local account. Username and email are checked before
// insert; the store's unique constraints are the authoritative guard against
// races between check and insert. Confirmation-mail failure is fatal to the
// registration and rolls the account back.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	if input.Username == "" || input.Email == "" {
		return nil, fmt.Errorf("username and email are required")
	}

	if err := s.checkAvailability(ctx, input.Username, input.Email); err != nil {
		return nil, err
	}

	result := security.ScorePassword(input.Password, input.Username, input.Email)
	if result.Score == 0 {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, result.Feedback)
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	sub, err := s.sequence.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate sub: %w", err)
	}

	now := time.Now().UTC()
	account := domain.Account{
		Sub:          sub,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Ext:          domain.ExternalIdentities{},
		Scopes:       map[string][]string{"auth": {"user"}},
		Active:       true,
		Times:        map[string]time.Time{},
		Profile:      domain.Profile{Fullname: input.Fullname},
		CreatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateRegistration
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if _, err := s.secrets.SendConfirmation(ctx, &account); err != nil {
		// The account is unreachable without a confirmed email; roll it back
		// so the registration can be retried cleanly.
		if delErr := s.accounts.Delete(ctx, sub); delErr != nil {
			s.logger.Error("rollback after mail failure failed",
				zap.Int64("sub", sub), zap.Error(delErr))
		}
		return nil, fmt.Errorf("send confirmation: %w", err)
	}

	s.publishRegistered(ctx, &account, "")

	return &account, nil
}

// RegisterDeferred finishes a signup that an external provider started but
// could not auto-complete. The ticket carries the external binding and
// profile defaults; the caller supplies the final username and password.
func (s *RegistrationService) RegisterDeferred(ctx context.Context, ticketToken string, input RegisterInput) (*domain.Account, error) {
	ticket, err := s.signer.VerifyTicket(ticketToken, security.TicketPurposeSignup)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	username := input.Username
	if username == "" {
		username = ticket.Defaults["username"]
	}
	email := input.Email
	if email == "" {
		email = ticket.Defaults["email"]
	}
	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required")
	}

	if err := s.checkAvailability(ctx, username, email); err != nil {
		return nil, err
	}

	hash := ""
	if input.Password != "" {
		result := security.ScorePassword(input.Password, username, email)
		if result.Score == 0 {
			return nil, fmt.Errorf("%w: %s", ErrWeakPassword, result.Feedback)
		}
		hash, err = security.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	ext := domain.ExternalIdentities{}
	for providerName, id := range ticket.Ext {
		ext.Append(providerName, id)

		existing, lookupErr := s.accounts.GetByExternalID(ctx, providerName, id)
		if lookupErr == nil && existing != nil {
			return nil, ErrIdentityConflict
		}
		if lookupErr != nil && !errors.Is(lookupErr, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup external identity: %w", lookupErr)
		}
	}

	sub, err := s.sequence.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate sub: %w", err)
	}

	fullname := input.Fullname
	if fullname == "" {
		fullname = ticket.Defaults["fullname"]
	}

	now := time.Now().UTC()
	account := domain.Account{
		Sub:            sub,
		Username:       username,
		Email:          email,
		EmailConfirmed: email == ticket.Defaults["email"],
		PasswordHash:   hash,
		Ext:            ext,
		Scopes:         map[string][]string{"auth": {"user"}},
		Active:         true,
		Times:          map[string]time.Time{},
		Profile:        domain.Profile{Fullname: fullname},
		CreatedAt:      now,
	}
	if inst := ticket.Defaults["institution"]; inst != "" {
		account.Profile.Public = map[string]any{"institution": inst}
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateRegistration
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if !account.EmailConfirmed {
		if _, err := s.secrets.SendConfirmation(ctx, &account); err != nil {
			if delErr := s.accounts.Delete(ctx, sub); delErr != nil {
				s.logger.Error("rollback after mail failure failed",
					zap.Int64("sub", sub), zap.Error(delErr))
			}
			return nil, fmt.Errorf("send confirmation: %w", err)
		}
	}

	s.publishRegistered(ctx, &account, ticket.Provider)

	return &account, nil
}

func (s *RegistrationService) checkAvailability(ctx context.Context, username, email string) error {
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return ErrDuplicateRegistration
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check username: %w", err)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return ErrDuplicateRegistration
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	return nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, account *domain.Account, providerName string) {
	if err := s.publisher.PublishAccountRegistered(ctx, domain.AccountRegisteredEvent{
		EventID:  uuid.NewString(),
		Sub:      account.Sub,
		Username: account.Username,
		Email:    account.Email,
		Provider: providerName,
		At:       account.CreatedAt,
	}); err != nil {
		s.logger.Warn("publish register event failed", zap.Int64("sub", account.Sub), zap.Error(err))
	}
}
