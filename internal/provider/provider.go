package provider

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/infra/config"
)

// ErrMissingIdentifier is returned when a raw profile lacks the field that
// identifies the principal at the provider.
var ErrMissingIdentifier = errors.New("provider profile missing identifier")

// Normalizer maps one provider's raw, already-verified profile into the
// uniform ExternalProfile shape. Provider-specific quirks stay behind this
// boundary; the resolution state machine never sees raw profiles.
type Normalizer interface {
	Name() string
	Normalize(raw map[string]any) (domain.ExternalProfile, error)
}

// Registry holds the active normalizers, built from configuration. Providers
// without a config block are omitted.
type Registry struct {
	normalizers map[string]Normalizer
	settings    map[string]config.ProviderSettings
}

// NewRegistry instantiates normalizers for every configured provider.
// Unknown provider names in the config are rejected so a typo does not
// silently disable an adapter.
func NewRegistry(settings map[string]config.ProviderSettings) (*Registry, error) {
	r := &Registry{
		normalizers: make(map[string]Normalizer),
		settings:    settings,
	}

	for name := range settings {
		n, err := newNormalizer(name)
		if err != nil {
			return nil, err
		}
		r.normalizers[name] = n
	}

	return r, nil
}

func newNormalizer(name string) (Normalizer, error) {
	switch name {
	case domain.ProviderGitHub:
		return &GitHub{}, nil
	case domain.ProviderGoogle:
		return &Google{}, nil
	case domain.ProviderORCID:
		return &ORCID{}, nil
	case domain.ProviderGlobus:
		return &Globus{}, nil
	case domain.ProviderCILogon:
		return &CILogon{}, nil
	case domain.ProviderOIDC:
		return &OIDC{}, nil
	case domain.ProviderSAML:
		return &SAML{}, nil
	case domain.ProviderX509:
		return &X509{}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// Get returns the normalizer for a provider, if configured.
func (r *Registry) Get(name string) (Normalizer, bool) {
	n, ok := r.normalizers[name]
	return n, ok
}

// Settings returns the configuration record for a provider, if configured.
func (r *Registry) Settings(name string) (config.ProviderSettings, bool) {
	s, ok := r.settings[name]
	return s, ok
}

// Names lists the configured providers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.normalizers))
	for name := range r.normalizers {
		names = append(names, name)
	}
	return names
}

// stringField reads a string value from a raw profile, tolerating numeric
// identifiers the way JSON decoders deliver them.
func stringField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func composeName(given, family string) string {
	return strings.TrimSpace(strings.TrimSpace(given) + " " + strings.TrimSpace(family))
}

// localPart returns everything before the first '@', used to derive a default
// username from provider-qualified subjects and email addresses.
func localPart(s string) string {
	if idx := strings.Index(s, "@"); idx >= 0 {
		return s[:idx]
	}
	return s
}
