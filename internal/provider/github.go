package provider

import (
	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// GitHub normalizes GitHub OAuth profiles. The numeric account id is the
// stable identifier; the login name can change.
type GitHub struct{}

func (GitHub) Name() string { return domain.ProviderGitHub }

func (g GitHub) Normalize(raw map[string]any) (domain.ExternalProfile, error) {
	id := stringField(raw, "id")
	if id == "" {
		return domain.ExternalProfile{}, ErrMissingIdentifier
	}

	return domain.ExternalProfile{
		Provider:        g.Name(),
		ID:              id,
		DefaultUsername: stringField(raw, "login"),
		DefaultEmail:    primaryEmail(raw),
		DefaultFullname: stringField(raw, "name"),
	}, nil
}

// primaryEmail picks the primary verified address from the emails list the
// transport layer fetched, falling back to the profile email field.
func primaryEmail(raw map[string]any) string {
	emails, ok := raw["emails"].([]any)
	if ok {
		var firstVerified string
		for _, e := range emails {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			verified, _ := entry["verified"].(bool)
			if !verified {
				continue
			}
			addr := stringField(entry, "email")
			if addr == "" {
				continue
			}
			if primary, _ := entry["primary"].(bool); primary {
				return addr
			}
			if firstVerified == "" {
				firstVerified = addr
			}
		}
		if firstVerified != "" {
			return firstVerified
		}
	}

	return stringField(raw, "email")
}
