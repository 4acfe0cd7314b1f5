package provider

import (
	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// CILogon normalizes CILogon OIDC profiles. CILogon federates campus IdPs, so
// the upstream idp_name seeds the institution default.
type CILogon struct{}

func (CILogon) Name() string { return domain.ProviderCILogon }

func (c CILogon) Normalize(raw map[string]any) (domain.ExternalProfile, error) {
	sub := stringField(raw, "sub")
	if sub == "" {
		return domain.ExternalProfile{}, ErrMissingIdentifier
	}

	fullname := composeName(stringField(raw, "given_name"), stringField(raw, "family_name"))
	if fullname == "" {
		fullname = stringField(raw, "name")
	}

	email := stringField(raw, "email")

	return domain.ExternalProfile{
		Provider:           c.Name(),
		ID:                 sub,
		DefaultUsername:    localPart(email),
		DefaultEmail:       email,
		DefaultFullname:    fullname,
		DefaultInstitution: stringField(raw, "idp_name"),
	}, nil
}
