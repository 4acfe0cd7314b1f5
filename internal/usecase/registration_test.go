package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/infra/security"
	"github.com/brainlife/auth-sub000/internal/repository"
)

func newRegistrationFixture(t *testing.T, accounts *memAccountRepo) (*RegistrationService, *recordingMailer, *recordingPublisher, *security.ClaimSigner) {
	t.Helper()

	mailer := &recordingMailer{}
	publisher := &recordingPublisher{}
	signer := testSigner(t)
	secrets := NewSecretService(accounts, mailer, publisher, config.AppSettings{URL: "https://auth.test"}, testLogger())

	svc := NewRegistrationService(accounts, newMemSequence(100), secrets, signer, publisher, testLogger())
	return svc, mailer, publisher, signer
}

func TestRegisterLocalAccount(t *testing.T) {
	accounts := newMemAccountRepo()
	svc, mailer, publisher, _ := newRegistrationFixture(t, accounts)

	account, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol",
		Email:    "carol@x.com",
		Password: "an-acceptably-strong-phrase",
		Fullname: "Carol C",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if account.Sub != 100 {
		t.Errorf("expected allocated sub 100, got %d", account.Sub)
	}
	if account.EmailConfirmed {
		t.Error("fresh local account must start unconfirmed")
	}
	if got := account.Scopes["auth"]; len(got) != 1 || got[0] != "user" {
		t.Errorf("expected default auth:user scope, got %v", account.Scopes)
	}
	if !account.Active {
		t.Error("fresh account must be active")
	}

	ok, err := security.VerifyPassword("an-acceptably-strong-phrase", account.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash should verify, ok=%v err=%v", ok, err)
	}

	if len(mailer.sent) != 1 {
		t.Errorf("expected confirmation mail, got %d", len(mailer.sent))
	}
	if len(publisher.registers) != 1 || publisher.registers[0].Provider != "" {
		t.Errorf("expected one local register event, got %+v", publisher.registers)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	existing := testAccount(7)
	existing.Username = "carol"
	existing.Email = "other@x.com"
	svc, _, _, _ := newRegistrationFixture(t, newMemAccountRepo(existing))

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol",
		Email:    "carol@x.com",
		Password: "an-acceptably-strong-phrase",
	})
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatalf("expected ErrDuplicateRegistration, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	existing := testAccount(7)
	existing.Email = "carol@x.com"
	svc, _, _, _ := newRegistrationFixture(t, newMemAccountRepo(existing))

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol",
		Email:    "carol@x.com",
		Password: "an-acceptably-strong-phrase",
	})
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatalf("expected ErrDuplicateRegistration, got %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _, _, _ := newRegistrationFixture(t, newMemAccountRepo())

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol",
		Email:    "carol@x.com",
		Password: "password",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestRegisterMailFailureRollsBack(t *testing.T) {
	accounts := newMemAccountRepo()
	svc, mailer, _, _ := newRegistrationFixture(t, accounts)
	mailer.fail = errors.New("smtp down")

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol",
		Email:    "carol@x.com",
		Password: "an-acceptably-strong-phrase",
	})
	if err == nil {
		t.Fatal("expected registration to fail when mail fails")
	}

	if _, err := accounts.GetByUsername(context.Background(), "carol"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected rollback to remove the account, got %v", err)
	}

	// Retry succeeds once mail works again.
	mailer.fail = nil
	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol",
		Email:    "carol@x.com",
		Password: "an-acceptably-strong-phrase",
	}); err != nil {
		t.Fatalf("retry after mail recovery should succeed, got %v", err)
	}
}

func signupTicket(t *testing.T, signer *security.ClaimSigner, ext map[string]string, defaults map[string]string) string {
	t.Helper()

	token, err := signer.SignTicket(&security.TicketClaims{
		Purpose:  security.TicketPurposeSignup,
		Provider: "oidc",
		Ext:      ext,
		Defaults: defaults,
	}, testClaimSettings().TicketTTL)
	if err != nil {
		t.Fatalf("sign signup ticket: %v", err)
	}
	return token
}

func TestRegisterDeferredFromTicket(t *testing.T) {
	accounts := newMemAccountRepo()
	svc, _, publisher, signer := newRegistrationFixture(t, accounts)

	token := signupTicket(t, signer,
		map[string]string{"oidc": "sub-1"},
		map[string]string{"username": "jdoe", "email": "jdoe@idp.example", "fullname": "J Doe", "institution": "IdP U"},
	)

	account, err := svc.RegisterDeferred(context.Background(), token, RegisterInput{})
	if err != nil {
		t.Fatalf("RegisterDeferred returned error: %v", err)
	}

	if account.Username != "jdoe" || account.Email != "jdoe@idp.example" {
		t.Errorf("expected ticket defaults applied, got %q / %q", account.Username, account.Email)
	}
	if !account.EmailConfirmed {
		t.Error("provider-vouched email must arrive confirmed")
	}
	if !account.Ext.Has("oidc", "sub-1") {
		t.Error("expected external binding from the ticket")
	}
	if account.HasPassword() {
		t.Error("no password supplied; account must stay password-less")
	}
	if inst, _ := account.Profile.Public["institution"].(string); inst != "IdP U" {
		t.Errorf("expected institution carried into profile, got %v", account.Profile.Public)
	}
	if len(publisher.registers) != 1 || publisher.registers[0].Provider != "oidc" {
		t.Errorf("expected one oidc register event, got %+v", publisher.registers)
	}
}

func TestRegisterDeferredOverriddenEmailNeedsConfirmation(t *testing.T) {
	accounts := newMemAccountRepo()
	svc, mailer, _, signer := newRegistrationFixture(t, accounts)

	token := signupTicket(t, signer,
		map[string]string{"oidc": "sub-1"},
		map[string]string{"username": "jdoe", "email": "jdoe@idp.example"},
	)

	account, err := svc.RegisterDeferred(context.Background(), token, RegisterInput{
		Email:    "personal@elsewhere.example",
		Password: "an-acceptably-strong-phrase",
	})
	if err != nil {
		t.Fatalf("RegisterDeferred returned error: %v", err)
	}

	if account.EmailConfirmed {
		t.Error("user-supplied email must not arrive confirmed")
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected a confirmation mail for the overridden email, got %d", len(mailer.sent))
	}
}

func TestRegisterDeferredConflictingBinding(t *testing.T) {
	owner := testAccount(7)
	owner.Ext.Append("oidc", "sub-1")
	svc, _, _, signer := newRegistrationFixture(t, newMemAccountRepo(owner))

	token := signupTicket(t, signer,
		map[string]string{"oidc": "sub-1"},
		map[string]string{"username": "jdoe", "email": "jdoe@idp.example"},
	)

	_, err := svc.RegisterDeferred(context.Background(), token, RegisterInput{})
	if !errors.Is(err, ErrIdentityConflict) {
		t.Fatalf("expected ErrIdentityConflict, got %v", err)
	}
}

func TestRegisterDeferredRejectsAssociationTicket(t *testing.T) {
	svc, _, _, signer := newRegistrationFixture(t, newMemAccountRepo())

	token, err := signer.SignTicket(&security.TicketClaims{
		Sub:      7,
		Purpose:  security.TicketPurposeAssociate,
		Provider: "oidc",
	}, testClaimSettings().TicketTTL)
	if err != nil {
		t.Fatalf("sign ticket: %v", err)
	}

	if _, err := svc.RegisterDeferred(context.Background(), token, RegisterInput{}); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("association ticket must not pass as signup ticket, got %v", err)
	}
}
