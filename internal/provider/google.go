package provider

import (
	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// Google normalizes Google OIDC profiles. Some deployments deliver a
// provider-qualified subject ("12345@accounts.google.com"); only the part
// before the '@' identifies the principal.
type Google struct{}

func (Google) Name() string { return domain.ProviderGoogle }

func (g Google) Normalize(raw map[string]any) (domain.ExternalProfile, error) {
	sub := stringField(raw, "sub")
	if sub == "" {
		sub = stringField(raw, "id")
	}
	if sub == "" {
		return domain.ExternalProfile{}, ErrMissingIdentifier
	}

	email := stringField(raw, "email")

	return domain.ExternalProfile{
		Provider:        g.Name(),
		ID:              localPart(sub),
		DefaultUsername: localPart(email),
		DefaultEmail:    email,
		DefaultFullname: stringField(raw, "name"),
	}, nil
}
