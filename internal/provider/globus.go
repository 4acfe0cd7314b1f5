package provider

import (
	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// Globus normalizes Globus Auth identity profiles. The preferred username is
// provider-qualified ("alice@globusid.org"); the organization field seeds the
// institution default.
type Globus struct{}

func (Globus) Name() string { return domain.ProviderGlobus }

func (g Globus) Normalize(raw map[string]any) (domain.ExternalProfile, error) {
	sub := stringField(raw, "sub")
	if sub == "" {
		sub = stringField(raw, "id")
	}
	if sub == "" {
		return domain.ExternalProfile{}, ErrMissingIdentifier
	}

	return domain.ExternalProfile{
		Provider:           g.Name(),
		ID:                 sub,
		DefaultUsername:    localPart(stringField(raw, "preferred_username")),
		DefaultEmail:       stringField(raw, "email"),
		DefaultFullname:    stringField(raw, "name"),
		DefaultInstitution: stringField(raw, "organization"),
	}, nil
}
