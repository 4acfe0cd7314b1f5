package domain

import "time"

// LoginMethod names an authentication path for per-method login timestamps.
type LoginMethod string

const (
	LoginMethodLocal LoginMethod = "local"
)

// Profile holds free-form account attributes split by visibility tier.
type Profile struct {
	Public  map[string]any `json:"public,omitempty"`
	Private map[string]any `json:"private,omitempty"`
	Admin   map[string]any `json:"admin,omitempty"`
	// Fullname and AUP acceptance ride on every issued claim.
	Fullname    string `json:"fullname,omitempty"`
	AupAccepted bool   `json:"aup,omitempty"`
}

// ExternalIdentities maps a provider name to the identifier(s) bound to an
// account. Single-valued providers keep exactly one entry; multi-valued
// providers (x509 DNs, OIDC subjects) keep an ordered list in first-seen
// order, which also indexes the per-identifier login timestamps.
type ExternalIdentities map[string][]string

// Has reports whether the identifier is bound under the provider.
func (e ExternalIdentities) Has(provider, id string) bool {
	for _, existing := range e[provider] {
		if existing == id {
			return true
		}
	}
	return false
}

// Append adds an identifier under the provider, preserving first-seen order.
// It is a no-op when the identifier is already present.
func (e ExternalIdentities) Append(provider, id string) {
	if e.Has(provider, id) {
		return
	}
	e[provider] = append(e[provider], id)
}

// Remove deletes an identifier and reports whether it was present.
func (e ExternalIdentities) Remove(provider, id string) bool {
	ids := e[provider]
	for i, existing := range ids {
		if existing == id {
			e[provider] = append(ids[:i], ids[i+1:]...)
			if len(e[provider]) == 0 {
				delete(e, provider)
			}
			return true
		}
	}
	return false
}

// Count returns the total number of bound external identifiers.
func (e ExternalIdentities) Count() int {
	total := 0
	for _, ids := range e {
		total += len(ids)
	}
	return total
}

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	Sub            int64
	Username       string
	Email          string
	EmailConfirmed bool
	PasswordHash   string
	Ext            ExternalIdentities
	Scopes         map[string][]string
	Active         bool
	Times          map[string]time.Time
	Profile        Profile

	// Secret lifecycle fields (§ secret tokens). Token travels by URL and is
	// treated as possibly disclosed; the cookie only travels on the original
	// browser session.
	ConfirmationToken  string
	ConfirmationCookie string
	ResetToken         string
	ResetCookie        string

	CreatedAt time.Time
}

// HasPassword reports whether a local credential is configured.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// CanIssueClaim reports whether the account passes the standard issuance
// checks. Reason is one of "inactive" or "un_confirmed" when false.
func (a *Account) CanIssueClaim() (bool, string) {
	if !a.Active {
		return false, "inactive"
	}
	if !a.EmailConfirmed {
		return false, "un_confirmed"
	}
	return true, ""
}

// Group is a user-managed collection of accounts. Admins may mutate the
// group; members and admins both contribute the group id to issued claims
// while the group is active.
type Group struct {
	ID         int64
	Name       string
	AdminSubs  []int64
	MemberSubs []int64
	Active     bool
	CreatedAt  time.Time
}

// HasAdmin reports whether sub administers the group.
func (g *Group) HasAdmin(sub int64) bool {
	for _, s := range g.AdminSubs {
		if s == sub {
			return true
		}
	}
	return false
}
