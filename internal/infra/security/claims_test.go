package security

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestSigner(t *testing.T) *ClaimSigner {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return NewClaimSigner(&StaticKeyProvider{Key: key}, "auth-test")
}

func TestSignAndVerifyClaims(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.SignClaims(&AuthClaims{
		Sub:    42,
		Scopes: map[string][]string{"auth": {"user"}},
		Gids:   []int64{1, 2},
		Profile: ClaimProfile{
			Username: "alice",
			Email:    "alice@x.com",
		},
	}, time.Hour)
	if err != nil {
		t.Fatalf("SignClaims returned error: %v", err)
	}

	claims, err := signer.VerifyClaims(token)
	if err != nil {
		t.Fatalf("VerifyClaims returned error: %v", err)
	}
	if claims.Sub != 42 {
		t.Errorf("expected sub 42, got %d", claims.Sub)
	}
	if claims.Issuer != "auth-test" {
		t.Errorf("expected issuer stamped, got %q", claims.Issuer)
	}
	if len(claims.Gids) != 2 {
		t.Errorf("expected gids preserved, got %v", claims.Gids)
	}
}

func TestVerifyClaimsExpired(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.SignClaims(&AuthClaims{Sub: 42}, time.Minute)
	if err != nil {
		t.Fatalf("SignClaims returned error: %v", err)
	}

	signer.WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) })

	if _, err := signer.VerifyClaims(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyClaimsRejectsWrongIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	issuing := NewClaimSigner(&StaticKeyProvider{Key: key}, "other-issuer")
	verifying := NewClaimSigner(&StaticKeyProvider{Key: key}, "auth-test")

	token, err := issuing.SignClaims(&AuthClaims{Sub: 42}, time.Hour)
	if err != nil {
		t.Fatalf("SignClaims returned error: %v", err)
	}

	if _, err := verifying.VerifyClaims(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign issuer, got %v", err)
	}
}

func TestVerifyClaimsRejectsUnsignedAlgorithm(t *testing.T) {
	signer := newTestSigner(t)

	// A token signed with "none" must never validate regardless of payload.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &AuthClaims{
		Sub: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "auth-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign unsigned token: %v", err)
	}

	if _, err := signer.VerifyClaims(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for alg=none, got %v", err)
	}
}

func TestVerifyClaimsRejectsZeroSub(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.SignClaims(&AuthClaims{Sub: 0}, time.Hour)
	if err != nil {
		t.Fatalf("SignClaims returned error: %v", err)
	}

	if _, err := signer.VerifyClaims(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for sub 0, got %v", err)
	}
}

func TestTicketPurposeBinding(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.SignTicket(&TicketClaims{
		Sub:      42,
		Purpose:  TicketPurposeAssociate,
		Provider: "github",
	}, 5*time.Minute)
	if err != nil {
		t.Fatalf("SignTicket returned error: %v", err)
	}

	ticket, err := signer.VerifyTicket(token, TicketPurposeAssociate)
	if err != nil {
		t.Fatalf("VerifyTicket returned error: %v", err)
	}
	if ticket.Sub != 42 || ticket.Provider != "github" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}

	if _, err := signer.VerifyTicket(token, TicketPurposeSignup); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected purpose mismatch to fail, got %v", err)
	}
}

func TestSignTicketRequiresPurpose(t *testing.T) {
	signer := newTestSigner(t)

	if _, err := signer.SignTicket(&TicketClaims{Sub: 42}, time.Minute); err == nil {
		t.Fatal("expected missing purpose to be rejected")
	}
}
