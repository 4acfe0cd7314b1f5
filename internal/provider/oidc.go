package provider

import (
	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// OIDC normalizes profiles from a generic OpenID Connect provider using the
// standard claim names.
type OIDC struct{}

func (OIDC) Name() string { return domain.ProviderOIDC }

func (o OIDC) Normalize(raw map[string]any) (domain.ExternalProfile, error) {
	sub := stringField(raw, "sub")
	if sub == "" {
		return domain.ExternalProfile{}, ErrMissingIdentifier
	}

	email := stringField(raw, "email")

	username := stringField(raw, "preferred_username")
	if username == "" {
		username = localPart(email)
	}

	fullname := stringField(raw, "name")
	if fullname == "" {
		fullname = composeName(stringField(raw, "given_name"), stringField(raw, "family_name"))
	}

	return domain.ExternalProfile{
		Provider:        o.Name(),
		ID:              sub,
		DefaultUsername: localPart(username),
		DefaultEmail:    email,
		DefaultFullname: fullname,
	}, nil
}
