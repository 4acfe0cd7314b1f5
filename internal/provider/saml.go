package provider

import (
	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// SAML normalizes assertion attributes the SP layer already validated and
// flattened. Identity comes from eduPersonPrincipalName when present,
// otherwise the NameID.
type SAML struct{}

func (SAML) Name() string { return domain.ProviderSAML }

func (s SAML) Normalize(raw map[string]any) (domain.ExternalProfile, error) {
	id := stringField(raw, "eduPersonPrincipalName")
	if id == "" {
		id = stringField(raw, "nameID")
	}
	if id == "" {
		return domain.ExternalProfile{}, ErrMissingIdentifier
	}

	email := stringField(raw, "mail")
	if email == "" {
		email = stringField(raw, "email")
	}

	fullname := stringField(raw, "displayName")
	if fullname == "" {
		fullname = composeName(stringField(raw, "givenName"), stringField(raw, "sn"))
	}

	return domain.ExternalProfile{
		Provider:           s.Name(),
		ID:                 id,
		DefaultUsername:    localPart(id),
		DefaultEmail:       email,
		DefaultFullname:    fullname,
		DefaultInstitution: stringField(raw, "o"),
	}, nil
}
