package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/infra/logger"
	"github.com/brainlife/auth-sub000/internal/infra/security"
	"github.com/brainlife/auth-sub000/internal/provider"
	"github.com/brainlife/auth-sub000/internal/repository"
)

// ResolutionService is the decision engine behind every external
// authentication attempt. Given a normalized profile and an optional
// association ticket it decides login, register, signup-defer, associate, or
// conflict, and drives the account mutation for the chosen outcome.
type ResolutionService struct {
	accounts  port.AccountRepository
	sequence  port.SubSequence
	claims    *ClaimService
	signer    *security.ClaimSigner
	registry  *provider.Registry
	publisher port.EventPublisher
	cfg       config.ClaimSettings
	logger    *zap.Logger
}

// NewResolutionService constructs a ResolutionService instance.
func NewResolutionService(
	accounts port.AccountRepository,
	sequence port.SubSequence,
	claims *ClaimService,
	signer *security.ClaimSigner,
	registry *provider.Registry,
	publisher port.EventPublisher,
	cfg config.ClaimSettings,
	log *zap.Logger,
) *ResolutionService {
	return &ResolutionService{
		accounts:  accounts,
		sequence:  sequence,
		claims:    claims,
		signer:    signer,
		registry:  registry,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
	}
}

// Resolve runs one authentication attempt through the state machine. ticket
// is the decoded association ticket when the caller is mid-association, nil
// otherwise.
func (s *ResolutionService) Resolve(ctx context.Context, profile domain.ExternalProfile, ticket *domain.AssociationTicket) (*domain.Resolution, error) {
	if profile.Provider == "" || profile.ID == "" {
		return nil, fmt.Errorf("profile provider and id are required")
	}

	settings, ok := s.registry.Settings(profile.Provider)
	if !ok {
		return nil, ErrProviderNotConfigured
	}

	existing, err := s.accounts.GetByExternalID(ctx, profile.Provider, profile.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup external identity: %w", err)
	}
	found := err == nil

	if ticket != nil {
		return s.resolveAssociation(ctx, profile, ticket, existing, found)
	}

	if found {
		return s.resolveLogin(ctx, profile, existing)
	}

	if settings.AutoRegister {
		return s.resolveRegister(ctx, profile)
	}

	return s.resolveDefer(profile)
}

func (s *ResolutionService) resolveLogin(ctx context.Context, profile domain.ExternalProfile, account *domain.Account) (*domain.Resolution, error) {
	if ok, reason := account.CanIssueClaim(); !ok {
		if reason == "inactive" {
			return nil, ErrAccountInactive
		}
		return nil, ErrEmailUnconfirmed
	}

	now := time.Now().UTC()
	if err := s.accounts.TouchLogin(ctx, account.Sub, loginMethodKey(account, profile), now); err != nil {
		return nil, fmt.Errorf("touch login: %w", err)
	}

	token, err := s.claims.Issue(ctx, account, 0)
	if err != nil {
		return nil, err
	}

	s.publishLogin(ctx, account, profile.Provider, now)

	return &domain.Resolution{
		Kind:    domain.ResolutionLogin,
		Account: account,
		Token:   token,
	}, nil
}

func (s *ResolutionService) resolveRegister(ctx context.Context, profile domain.ExternalProfile) (*domain.Resolution, error) {
	sub, err := s.sequence.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate sub: %w", err)
	}

	username := profile.DefaultUsername
	if username == "" {
		username = fmt.Sprintf("%s-%s", profile.Provider, profile.ID)
	}
	if taken, err := s.usernameTaken(ctx, username); err != nil {
		return nil, err
	} else if taken {
		username = username + "-" + strconv.FormatInt(sub, 10)
	}

	email := profile.DefaultEmail
	if email != "" {
		if taken, err := s.emailTaken(ctx, email); err != nil {
			return nil, err
		} else if taken {
			email = ""
		}
	}

	now := time.Now().UTC()
	account := domain.Account{
		Sub:            sub,
		Username:       username,
		Email:          email,
		EmailConfirmed: email != "",
		Ext:            domain.ExternalIdentities{profile.Provider: []string{profile.ID}},
		Scopes:         map[string][]string{"auth": {"user"}},
		Active:         true,
		Times:          map[string]time.Time{profile.Provider: now},
		Profile: domain.Profile{
			Fullname: profile.DefaultFullname,
		},
		CreatedAt: now,
	}
	if profile.DefaultInstitution != "" {
		account.Profile.Public = map[string]any{"institution": profile.DefaultInstitution}
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateRegistration
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	token, err := s.claims.Issue(ctx, &account, 0)
	if err != nil {
		return nil, err
	}

	if pubErr := s.publisher.PublishAccountRegistered(ctx, domain.AccountRegisteredEvent{
		EventID:  uuid.NewString(),
		Sub:      sub,
		Username: username,
		Email:    email,
		Provider: profile.Provider,
		At:       now,
	}); pubErr != nil {
		s.logger.Warn("publish register event failed", zap.Int64("sub", sub), zap.Error(pubErr))
	}

	return &domain.Resolution{
		Kind:    domain.ResolutionRegister,
		Account: &account,
		Token:   token,
	}, nil
}

func (s *ResolutionService) resolveDefer(profile domain.ExternalProfile) (*domain.Resolution, error) {
	defaults := map[string]string{}
	if profile.DefaultUsername != "" {
		defaults["username"] = profile.DefaultUsername
	}
	if profile.DefaultEmail != "" {
		defaults["email"] = profile.DefaultEmail
	}
	if profile.DefaultFullname != "" {
		defaults["fullname"] = profile.DefaultFullname
	}
	if profile.DefaultInstitution != "" {
		defaults["institution"] = profile.DefaultInstitution
	}

	token, err := s.signer.SignTicket(&security.TicketClaims{
		Purpose:  security.TicketPurposeSignup,
		Provider: profile.Provider,
		Ext:      map[string]string{profile.Provider: profile.ID},
		Defaults: defaults,
	}, s.cfg.TicketTTL)
	if err != nil {
		return nil, fmt.Errorf("sign signup ticket: %w", err)
	}

	return &domain.Resolution{
		Kind:  domain.ResolutionDeferSignup,
		Token: token,
	}, nil
}

func (s *ResolutionService) resolveAssociation(ctx context.Context, profile domain.ExternalProfile, ticket *domain.AssociationTicket, existing *domain.Account, found bool) (*domain.Resolution, error) {
	if found && existing.Sub != ticket.Sub {
		return nil, ErrIdentityConflict
	}

	if found {
		// Already bound to the same account; idempotent success.
		return &domain.Resolution{
			Kind:    domain.ResolutionAlreadyAssociated,
			Account: existing,
		}, nil
	}

	account, err := s.accounts.GetBySub(ctx, ticket.Sub)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if err := s.accounts.AppendExternalID(ctx, account.Sub, profile.Provider, profile.ID); err != nil {
		return nil, fmt.Errorf("append external id: %w", err)
	}
	account.Ext.Append(profile.Provider, profile.ID)

	now := time.Now().UTC()
	if pubErr := s.publisher.PublishIdentityAssociated(ctx, domain.IdentityAssociatedEvent{
		EventID:    uuid.NewString(),
		Sub:        account.Sub,
		Provider:   profile.Provider,
		ExternalID: profile.ID,
		At:         now,
	}); pubErr != nil {
		s.logger.Warn("publish associate event failed", zap.Int64("sub", account.Sub), zap.Error(pubErr))
	}

	return &domain.Resolution{
		Kind:    domain.ResolutionAssociate,
		Account: account,
	}, nil
}

// Disassociate removes an external identifier from the account. It refuses to
// remove the last remaining credential of a password-less account.
func (s *ResolutionService) Disassociate(ctx context.Context, sub int64, providerName, id string) error {
	account, err := s.accounts.GetBySub(ctx, sub)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if !account.Ext.Has(providerName, id) {
		return repository.ErrNotFound
	}

	if !account.HasPassword() && account.Ext.Count() <= 1 {
		return ErrLastCredential
	}

	if err := s.accounts.RemoveExternalID(ctx, sub, providerName, id); err != nil {
		return fmt.Errorf("remove external id: %w", err)
	}

	if pubErr := s.publisher.PublishIdentityDisconnected(ctx, domain.IdentityDisconnectedEvent{
		EventID:    uuid.NewString(),
		Sub:        sub,
		Provider:   providerName,
		ExternalID: id,
		At:         time.Now().UTC(),
	}); pubErr != nil {
		s.logger.Warn("publish disconnect event failed", zap.Int64("sub", sub), zap.Error(pubErr))
	}

	return nil
}

// IssueAssociationTicket signs a short-TTL ticket binding an external round
// trip to the authenticated account.
func (s *ResolutionService) IssueAssociationTicket(sub int64, providerName string) (string, error) {
	if _, ok := s.registry.Get(providerName); !ok {
		return "", ErrProviderNotConfigured
	}

	token, err := s.signer.SignTicket(&security.TicketClaims{
		Sub:      sub,
		Purpose:  security.TicketPurposeAssociate,
		Provider: providerName,
	}, s.cfg.TicketTTL)
	if err != nil {
		return "", fmt.Errorf("sign association ticket: %w", err)
	}

	return token, nil
}

// ConsumeAssociationTicket verifies a ticket and checks it was issued for the
// provider now completing its round trip.
func (s *ResolutionService) ConsumeAssociationTicket(token, providerName string) (*domain.AssociationTicket, error) {
	ticket, err := s.signer.VerifyTicket(token, security.TicketPurposeAssociate)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}
	if ticket.Provider != providerName || ticket.Sub <= 0 {
		return nil, ErrInvalidOrExpiredToken
	}

	return &domain.AssociationTicket{Sub: ticket.Sub, Provider: ticket.Provider}, nil
}

// Normalize runs the configured adapter for a provider over a raw profile.
func (s *ResolutionService) Normalize(providerName string, raw map[string]any) (domain.ExternalProfile, error) {
	normalizer, ok := s.registry.Get(providerName)
	if !ok {
		return domain.ExternalProfile{}, ErrProviderNotConfigured
	}

	profile, err := normalizer.Normalize(raw)
	if err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("normalize %s profile: %w", providerName, err)
	}

	return profile, nil
}

func (s *ResolutionService) usernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := s.accounts.GetByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("check username: %w", err)
}

func (s *ResolutionService) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("check email: %w", err)
}

func (s *ResolutionService) publishLogin(ctx context.Context, account *domain.Account, method string, at time.Time) {
	if err := s.publisher.PublishLogin(ctx, domain.LoginEvent{
		EventID:  uuid.NewString(),
		Sub:      account.Sub,
		Username: account.Username,
		Method:   method,
		At:       at,
	}); err != nil {
		s.logger.Warn("publish login event failed",
			zap.Int64("sub", account.Sub),
			zap.String("username", logger.MaskString(account.Username)),
			zap.Error(err),
		)
	}
}

// loginMethodKey names the timestamp slot for a login. Multi-valued providers
// index by the identifier's first-seen position so each DN or subject keeps
// its own last-login time.
func loginMethodKey(account *domain.Account, profile domain.ExternalProfile) string {
	ids := account.Ext[profile.Provider]
	if len(ids) <= 1 {
		return profile.Provider
	}
	for i, id := range ids {
		if id == profile.ID {
			return fmt.Sprintf("%s.%d", profile.Provider, i)
		}
	}
	return profile.Provider
}
