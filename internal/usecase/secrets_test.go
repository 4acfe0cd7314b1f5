package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/infra/security"
)

func newSecretFixture(accounts *memAccountRepo) (*SecretService, *recordingMailer, *recordingPublisher) {
	mailer := &recordingMailer{}
	publisher := &recordingPublisher{}
	svc := NewSecretService(accounts, mailer, publisher, config.AppSettings{URL: "https://auth.test"}, testLogger())
	return svc, mailer, publisher
}

func TestRequestResetMailsDeepLink(t *testing.T) {
	accounts := newMemAccountRepo(testAccount(7))
	svc, mailer, _ := newSecretFixture(accounts)

	pair, err := svc.RequestReset(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	if pair == nil || pair.Token == "" || pair.Cookie == "" {
		t.Fatalf("expected a full secret pair, got %+v", pair)
	}
	if pair.Token == pair.Cookie {
		t.Fatal("token and cookie must be independent")
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(mailer.sent))
	}
	if want := "https://auth.test/reset_password/" + pair.Token; !strings.Contains(mailer.sent[0].Body, want) {
		t.Errorf("mail body missing deep link %q:\n%s", want, mailer.sent[0].Body)
	}
}

func TestRequestResetUnknownEmailSilent(t *testing.T) {
	svc, mailer, _ := newSecretFixture(newMemAccountRepo())

	pair, err := svc.RequestReset(context.Background(), "nobody@x.com")
	if err != nil {
		t.Fatalf("unknown email must not error, got %v", err)
	}
	if pair != nil {
		t.Fatal("unknown email must not yield a pair")
	}
	if len(mailer.sent) != 0 {
		t.Fatal("unknown email must not send mail")
	}
}

func TestRedeemResetSingleUse(t *testing.T) {
	accounts := newMemAccountRepo(testAccount(7))
	svc, _, publisher := newSecretFixture(accounts)

	pair, err := svc.RequestReset(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	account, err := svc.RedeemReset(context.Background(), pair.Token, pair.Cookie, "an-acceptably-strong-phrase")
	if err != nil {
		t.Fatalf("RedeemReset returned error: %v", err)
	}

	ok, err := security.VerifyPassword("an-acceptably-strong-phrase", account.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("new password should verify, ok=%v err=%v", ok, err)
	}

	if len(publisher.pwChanges) != 1 || publisher.pwChanges[0].Reason != "reset" {
		t.Errorf("expected one reset password-changed event, got %+v", publisher.pwChanges)
	}

	// Second redemption with the same pair must fail.
	if _, err := svc.RedeemReset(context.Background(), pair.Token, pair.Cookie, "another-acceptable-phrase"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected single-use pair, got %v", err)
	}
}

func TestRedeemResetCookieMismatch(t *testing.T) {
	accounts := newMemAccountRepo(testAccount(7))
	svc, _, _ := newSecretFixture(accounts)

	pair, err := svc.RequestReset(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	_, err = svc.RedeemReset(context.Background(), pair.Token, "wrong-cookie", "an-acceptably-strong-phrase")
	if !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}

	// The pair survives a failed attempt; the legitimate browser can still
	// finish.
	if _, err := svc.RedeemReset(context.Background(), pair.Token, pair.Cookie, "an-acceptably-strong-phrase"); err != nil {
		t.Fatalf("legitimate redemption should still work, got %v", err)
	}
}

func TestRedeemResetWeakPassword(t *testing.T) {
	accounts := newMemAccountRepo(testAccount(7))
	svc, _, _ := newSecretFixture(accounts)

	pair, err := svc.RequestReset(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}

	if _, err := svc.RedeemReset(context.Background(), pair.Token, pair.Cookie, "password"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestReissueReplacesOutstandingReset(t *testing.T) {
	accounts := newMemAccountRepo(testAccount(7))
	svc, _, _ := newSecretFixture(accounts)

	first, err := svc.RequestReset(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	second, err := svc.RequestReset(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("second RequestReset returned error: %v", err)
	}

	if _, err := svc.RedeemReset(context.Background(), first.Token, first.Cookie, "an-acceptably-strong-phrase"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("superseded pair must be dead, got %v", err)
	}
	if _, err := svc.RedeemReset(context.Background(), second.Token, second.Cookie, "an-acceptably-strong-phrase"); err != nil {
		t.Fatalf("current pair should redeem, got %v", err)
	}
}

func TestConfirmEmailTokenOnly(t *testing.T) {
	account := testAccount(7)
	account.EmailConfirmed = false
	accounts := newMemAccountRepo(account)
	svc, mailer, _ := newSecretFixture(accounts)

	pair, err := svc.SendConfirmation(context.Background(), account)
	if err != nil {
		t.Fatalf("SendConfirmation returned error: %v", err)
	}
	if len(mailer.sent) != 1 || !strings.Contains(mailer.sent[0].Body, "/confirm_email/"+pair.Token) {
		t.Fatalf("expected confirmation mail with deep link, got %+v", mailer.sent)
	}

	confirmed, err := svc.ConfirmEmail(context.Background(), pair.Token)
	if err != nil {
		t.Fatalf("ConfirmEmail returned error: %v", err)
	}
	if !confirmed.EmailConfirmed {
		t.Error("expected confirmed flag set")
	}

	// Single use.
	if _, err := svc.ConfirmEmail(context.Background(), pair.Token); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected spent token to be rejected, got %v", err)
	}
}

func TestConfirmEmailEmptyToken(t *testing.T) {
	svc, _, _ := newSecretFixture(newMemAccountRepo())

	if _, err := svc.ConfirmEmail(context.Background(), ""); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestResendConfirmation(t *testing.T) {
	account := testAccount(7)
	account.EmailConfirmed = false
	accounts := newMemAccountRepo(account)
	svc, mailer, _ := newSecretFixture(accounts)

	if err := svc.ResendConfirmation(context.Background(), "alice@x.com"); err != nil {
		t.Fatalf("ResendConfirmation returned error: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(mailer.sent))
	}

	// Unknown address and already-confirmed address are both silent no-ops.
	if err := svc.ResendConfirmation(context.Background(), "nobody@x.com"); err != nil {
		t.Fatalf("unknown email must not error, got %v", err)
	}

	confirmed := testAccount(8)
	confirmed.Username = "bob"
	confirmed.Email = "bob@x.com"
	_ = accounts.Create(context.Background(), *confirmed)
	if err := svc.ResendConfirmation(context.Background(), "bob@x.com"); err != nil {
		t.Fatalf("confirmed email must not error, got %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("no further mail expected, got %d", len(mailer.sent))
	}
}
