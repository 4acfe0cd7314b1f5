package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/infra/security"
	"github.com/brainlife/auth-sub000/internal/repository"
)

// ClaimService assembles and signs authorization claims from account state
// and group memberships.
type ClaimService struct {
	accounts port.AccountRepository
	groups   port.GroupRepository
	signer   *security.ClaimSigner
	cfg      config.ClaimSettings
}

// NewClaimService constructs a ClaimService instance.
func NewClaimService(
	accounts port.AccountRepository,
	groups port.GroupRepository,
	signer *security.ClaimSigner,
	cfg config.ClaimSettings,
) *ClaimService {
	return &ClaimService{
		accounts: accounts,
		groups:   groups,
		signer:   signer,
		cfg:      cfg,
	}
}

// Build assembles the unsigned claim payload: scopes, active group ids, and
// the public profile subset.
func (s *ClaimService) Build(ctx context.Context, account *domain.Account) (*security.AuthClaims, error) {
	if account == nil {
		return nil, fmt.Errorf("account is required")
	}

	gids, err := s.groups.ListActiveIDsFor(ctx, account.Sub)
	if err != nil {
		return nil, fmt.Errorf("list group ids: %w", err)
	}

	return &security.AuthClaims{
		Sub:    account.Sub,
		Scopes: account.Scopes,
		Gids:   gids,
		Profile: security.ClaimProfile{
			Username: account.Username,
			Email:    account.Email,
			Fullname: account.Profile.Fullname,
			Aup:      account.Profile.AupAccepted,
		},
	}, nil
}

// Issue builds and signs a claim. A positive ttlOverride shortens the expiry;
// it can never lengthen it beyond the server default.
func (s *ClaimService) Issue(ctx context.Context, account *domain.Account, ttlOverride time.Duration) (string, error) {
	claims, err := s.Build(ctx, account)
	if err != nil {
		return "", err
	}

	ttl := s.cfg.TTL
	if ttlOverride > 0 && ttlOverride < ttl {
		ttl = ttlOverride
	}

	token, err := s.signer.SignClaims(claims, ttl)
	if err != nil {
		return "", fmt.Errorf("sign claim: %w", err)
	}

	return token, nil
}

// Verify validates a presented claim token.
func (s *ClaimService) Verify(token string) (*security.AuthClaims, error) {
	claims, err := s.signer.VerifyClaims(token)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}
	return claims, nil
}

// Refresh re-issues a claim from current account state, optionally narrowed
// to the requested scopes. A refresh can only narrow privileges, never widen
// them.
func (s *ClaimService) Refresh(ctx context.Context, token string, requested map[string][]string, ttlOverride time.Duration) (string, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", err
	}

	account, err := s.accounts.GetBySub(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidOrExpiredToken
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}

	if ok, reason := account.CanIssueClaim(); !ok {
		if reason == "inactive" {
			return "", ErrAccountInactive
		}
		return "", ErrEmailUnconfirmed
	}

	if requested != nil {
		narrowed := *account
		narrowed.Scopes = IntersectScopes(account.Scopes, requested)
		return s.Issue(ctx, &narrowed, ttlOverride)
	}

	return s.Issue(ctx, account, ttlOverride)
}

// IntersectScopes keeps, for every domain present in both inputs, only the
// roles present in both. Domains absent from either side are dropped, so the
// result never contains anything one operand lacks.
func IntersectScopes(a, b map[string][]string) map[string][]string {
	result := make(map[string][]string)

	for dom, rolesA := range a {
		rolesB, ok := b[dom]
		if !ok {
			continue
		}

		keep := make([]string, 0)
		for _, role := range rolesA {
			for _, other := range rolesB {
				if role == other {
					keep = append(keep, role)
					break
				}
			}
		}

		if len(keep) > 0 {
			result[dom] = keep
		}
	}

	return result
}
