package provider

import (
	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// ORCID normalizes ORCID profiles. The identifier is the ORCID iD
// (0000-0000-0000-0000); fullname is composed from given and family names.
type ORCID struct{}

func (ORCID) Name() string { return domain.ProviderORCID }

func (o ORCID) Normalize(raw map[string]any) (domain.ExternalProfile, error) {
	id := stringField(raw, "orcid")
	if id == "" {
		id = stringField(raw, "sub")
	}
	if id == "" {
		return domain.ExternalProfile{}, ErrMissingIdentifier
	}

	fullname := composeName(stringField(raw, "given_name"), stringField(raw, "family_name"))
	if fullname == "" {
		fullname = stringField(raw, "name")
	}

	email := stringField(raw, "email")

	return domain.ExternalProfile{
		Provider:        o.Name(),
		ID:              id,
		DefaultUsername: localPart(email),
		DefaultEmail:    email,
		DefaultFullname: fullname,
	}, nil
}
