package provider

import (
	"strings"

	"github.com/brainlife/auth-sub000/internal/core/domain"
)

// X509 normalizes client-certificate identities. The full distinguished name
// is the identifier; accounts may hold several DNs, so this provider is
// multi-valued. CN and emailAddress attributes seed the profile defaults.
type X509 struct{}

func (X509) Name() string { return domain.ProviderX509 }

func (x X509) Normalize(raw map[string]any) (domain.ExternalProfile, error) {
	dn := stringField(raw, "dn")
	if dn == "" {
		dn = stringField(raw, "subject")
	}
	if dn == "" {
		return domain.ExternalProfile{}, ErrMissingIdentifier
	}

	attrs := parseDN(dn)
	email := attrs["emailAddress"]

	return domain.ExternalProfile{
		Provider:           x.Name(),
		ID:                 dn,
		DefaultUsername:    localPart(email),
		DefaultEmail:       email,
		DefaultFullname:    attrs["CN"],
		DefaultInstitution: attrs["O"],
	}, nil
}

// parseDN splits a distinguished name into attribute pairs. Both the
// comma-separated RFC 4514 form and the slash-separated OpenSSL oneline form
// appear in deployments.
func parseDN(dn string) map[string]string {
	sep := ","
	if strings.HasPrefix(dn, "/") {
		sep = "/"
		dn = strings.TrimPrefix(dn, "/")
	}

	attrs := make(map[string]string)
	for _, part := range strings.Split(dn, sep) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if _, exists := attrs[key]; !exists && value != "" {
			attrs[key] = value
		}
	}
	return attrs
}
