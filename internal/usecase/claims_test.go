package usecase

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/brainlife/auth-sub000/internal/core/domain"
)

func TestIntersectScopes(t *testing.T) {
	cases := []struct {
		name string
		a    map[string][]string
		b    map[string][]string
		want map[string][]string
	}{
		{
			name: "empty second operand drops everything",
			a:    map[string][]string{"a": {"1", "2", "3"}},
			b:    map[string][]string{},
			want: map[string][]string{},
		},
		{
			name: "domain absent from second operand is dropped",
			a:    map[string][]string{"a": {"1", "2", "3"}, "b": {"1"}},
			b:    map[string][]string{"a": {"2", "4"}},
			want: map[string][]string{"a": {"2"}},
		},
		{
			name: "disjoint roles drop the domain",
			a:    map[string][]string{"a": {"1"}},
			b:    map[string][]string{"a": {"2"}},
			want: map[string][]string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IntersectScopes(tc.a, tc.b)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("IntersectScopes(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestIntersectScopesCommutative(t *testing.T) {
	a := map[string][]string{"a": {"1", "2", "3"}, "b": {"1"}, "c": {"x", "y"}}
	b := map[string][]string{"a": {"2", "4"}, "c": {"y"}}

	ab := IntersectScopes(a, b)
	ba := IntersectScopes(b, a)

	if !reflect.DeepEqual(ab, ba) {
		t.Fatalf("intersection not commutative: %v vs %v", ab, ba)
	}
}

func testAccount(sub int64) *domain.Account {
	return &domain.Account{
		Sub:            sub,
		Username:       "alice",
		Email:          "alice@x.com",
		EmailConfirmed: true,
		Ext:            domain.ExternalIdentities{},
		Scopes:         map[string][]string{"auth": {"user"}},
		Active:         true,
		Times:          map[string]time.Time{},
		Profile:        domain.Profile{Fullname: "Alice A", AupAccepted: true},
	}
}

func TestClaimServiceIssueAndVerifyRoundTrip(t *testing.T) {
	account := testAccount(12)
	accounts := newMemAccountRepo(account)
	groups := newMemGroupRepo(
		&domain.Group{ID: 1, Name: "lab", AdminSubs: []int64{12}, Active: true},
		&domain.Group{ID: 2, Name: "retired", MemberSubs: []int64{12}, Active: false},
		&domain.Group{ID: 3, Name: "other", MemberSubs: []int64{99}, Active: true},
	)

	svc := NewClaimService(accounts, groups, testSigner(t), testClaimSettings())

	token, err := svc.Issue(context.Background(), account, 0)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if claims.Sub != 12 {
		t.Errorf("expected sub 12, got %d", claims.Sub)
	}
	if !reflect.DeepEqual(claims.Gids, []int64{1}) {
		t.Errorf("expected only active group 1, got %v", claims.Gids)
	}
	if claims.Profile.Username != "alice" || !claims.Profile.Aup {
		t.Errorf("unexpected profile %+v", claims.Profile)
	}
	if !reflect.DeepEqual(claims.Scopes, account.Scopes) {
		t.Errorf("expected scopes %v, got %v", account.Scopes, claims.Scopes)
	}
}

func TestClaimServiceTTLOverrideNeverLengthens(t *testing.T) {
	account := testAccount(12)
	svc := NewClaimService(newMemAccountRepo(account), newMemGroupRepo(), testSigner(t), testClaimSettings())

	token, err := svc.Issue(context.Background(), account, 48*time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl > 24*time.Hour {
		t.Fatalf("expected ttl capped at server default, got %v", ttl)
	}
}

func TestClaimServiceRefreshNarrowsOnly(t *testing.T) {
	account := testAccount(12)
	account.Scopes = map[string][]string{"auth": {"user", "admin"}, "data": {"read"}}
	accounts := newMemAccountRepo(account)
	svc := NewClaimService(accounts, newMemGroupRepo(), testSigner(t), testClaimSettings())

	token, err := svc.Issue(context.Background(), account, 0)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), token, map[string][]string{
		"auth":  {"user", "root"},
		"extra": {"everything"},
	}, 0)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	claims, err := svc.Verify(refreshed)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	want := map[string][]string{"auth": {"user"}}
	if !reflect.DeepEqual(claims.Scopes, want) {
		t.Fatalf("expected narrowed scopes %v, got %v", want, claims.Scopes)
	}
}

func TestClaimServiceVerifyRejectsWrongKey(t *testing.T) {
	account := testAccount(12)
	accounts := newMemAccountRepo(account)
	groups := newMemGroupRepo()

	issuing := NewClaimService(accounts, groups, testSigner(t), testClaimSettings())
	verifying := NewClaimService(accounts, groups, testSigner(t), testClaimSettings())

	token, err := issuing.Issue(context.Background(), account, 0)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := verifying.Verify(token); err == nil {
		t.Fatal("expected verification with mismatched key to fail")
	}
}
