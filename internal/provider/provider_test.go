package provider

import (
	"errors"
	"testing"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/infra/config"
)

func TestRegistryOmitsUnconfiguredProviders(t *testing.T) {
	registry, err := NewRegistry(map[string]config.ProviderSettings{
		domain.ProviderGitHub: {ClientID: "id", ClientSecret: "secret"},
		domain.ProviderX509:   {MultiValued: true},
	})
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	if _, ok := registry.Get(domain.ProviderGitHub); !ok {
		t.Fatal("expected github normalizer to be registered")
	}
	if _, ok := registry.Get(domain.ProviderGoogle); ok {
		t.Fatal("expected google normalizer to be absent")
	}
	if len(registry.Names()) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(registry.Names()))
	}
}

func TestRegistryRejectsUnknownProvider(t *testing.T) {
	_, err := NewRegistry(map[string]config.ProviderSettings{
		"facebook": {ClientID: "id"},
	})
	if err == nil {
		t.Fatal("expected error for unknown provider name")
	}
}

func TestGitHubNormalizePrimaryVerifiedEmail(t *testing.T) {
	raw := map[string]any{
		"id":    float64(42),
		"login": "bob",
		"name":  "Bob Builder",
		"email": "fallback@x.com",
		"emails": []any{
			map[string]any{"email": "old@x.com", "verified": true, "primary": false},
			map[string]any{"email": "unverified@x.com", "verified": false, "primary": true},
			map[string]any{"email": "bob@x.com", "verified": true, "primary": true},
		},
	}

	profile, err := (GitHub{}).Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if profile.ID != "42" {
		t.Errorf("expected ID 42, got %q", profile.ID)
	}
	if profile.DefaultUsername != "bob" {
		t.Errorf("expected username bob, got %q", profile.DefaultUsername)
	}
	if profile.DefaultEmail != "bob@x.com" {
		t.Errorf("expected primary verified email, got %q", profile.DefaultEmail)
	}
}

func TestGitHubNormalizeFallsBackToFirstVerified(t *testing.T) {
	raw := map[string]any{
		"id": "7",
		"emails": []any{
			map[string]any{"email": "unverified@x.com", "verified": false, "primary": true},
			map[string]any{"email": "first@x.com", "verified": true, "primary": false},
		},
	}

	profile, err := (GitHub{}).Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if profile.DefaultEmail != "first@x.com" {
		t.Errorf("expected first verified email, got %q", profile.DefaultEmail)
	}
}

func TestGoogleNormalizeSplitsQualifiedSubject(t *testing.T) {
	raw := map[string]any{
		"sub":   "12345@accounts.google.com",
		"email": "alice@gmail.com",
		"name":  "Alice A",
	}

	profile, err := (Google{}).Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if profile.ID != "12345" {
		t.Errorf("expected qualified subject to be split, got %q", profile.ID)
	}
	if profile.DefaultUsername != "alice" {
		t.Errorf("expected username from email local part, got %q", profile.DefaultUsername)
	}
}

func TestORCIDNormalizeComposesFullname(t *testing.T) {
	raw := map[string]any{
		"orcid":       "0000-0002-1825-0097",
		"given_name":  "Josiah",
		"family_name": "Carberry",
		"email":       "josiah@example.edu",
	}

	profile, err := (ORCID{}).Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if profile.ID != "0000-0002-1825-0097" {
		t.Errorf("unexpected ID %q", profile.ID)
	}
	if profile.DefaultFullname != "Josiah Carberry" {
		t.Errorf("expected composed fullname, got %q", profile.DefaultFullname)
	}
}

func TestCILogonNormalizeUsesIdPName(t *testing.T) {
	raw := map[string]any{
		"sub":      "http://cilogon.org/serverA/users/123",
		"email":    "carol@university.edu",
		"idp_name": "Example University",
	}

	profile, err := (CILogon{}).Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if profile.DefaultInstitution != "Example University" {
		t.Errorf("expected institution from idp_name, got %q", profile.DefaultInstitution)
	}
}

func TestSAMLNormalizePrefersEPPN(t *testing.T) {
	raw := map[string]any{
		"eduPersonPrincipalName": "dave@campus.edu",
		"nameID":                 "opaque-name-id",
		"mail":                   "dave@campus.edu",
		"givenName":              "Dave",
		"sn":                     "Jones",
	}

	profile, err := (SAML{}).Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	if profile.ID != "dave@campus.edu" {
		t.Errorf("expected ePPN identifier, got %q", profile.ID)
	}
	if profile.DefaultFullname != "Dave Jones" {
		t.Errorf("expected composed fullname, got %q", profile.DefaultFullname)
	}
}

func TestX509NormalizeParsesDN(t *testing.T) {
	cases := []struct {
		name string
		dn   string
	}{
		{"rfc4514", "CN=Erin Scientist,O=Example Lab,emailAddress=erin@lab.org"},
		{"openssl", "/O=Example Lab/CN=Erin Scientist/emailAddress=erin@lab.org"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile, err := (X509{}).Normalize(map[string]any{"dn": tc.dn})
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}

			if profile.ID != tc.dn {
				t.Errorf("expected full DN as identifier, got %q", profile.ID)
			}
			if profile.DefaultFullname != "Erin Scientist" {
				t.Errorf("expected CN as fullname, got %q", profile.DefaultFullname)
			}
			if profile.DefaultEmail != "erin@lab.org" {
				t.Errorf("expected emailAddress, got %q", profile.DefaultEmail)
			}
			if profile.DefaultInstitution != "Example Lab" {
				t.Errorf("expected O as institution, got %q", profile.DefaultInstitution)
			}
		})
	}
}

func TestNormalizeMissingIdentifier(t *testing.T) {
	normalizers := []Normalizer{
		GitHub{}, Google{}, ORCID{}, Globus{}, CILogon{}, OIDC{}, SAML{}, X509{},
	}

	for _, n := range normalizers {
		if _, err := n.Normalize(map[string]any{}); !errors.Is(err, ErrMissingIdentifier) {
			t.Errorf("%s: expected ErrMissingIdentifier, got %v", n.Name(), err)
		}
	}
}
