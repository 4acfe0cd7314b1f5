package domain

// Known external provider names. The config block key for a provider must
// match one of these.
const (
	ProviderGitHub  = "github"
	ProviderGoogle  = "google"
	ProviderORCID   = "orcid"
	ProviderGlobus  = "globus"
	ProviderCILogon = "cilogon"
	ProviderOIDC    = "oidc"
	ProviderSAML    = "saml"
	ProviderX509    = "x509"
)

// ExternalProfile is the provider-agnostic shape every identity adapter
// normalizes into. Default* fields seed a new account during
// auto-registration and are never authoritative for an existing one.
type ExternalProfile struct {
	Provider           string
	ID                 string
	DefaultUsername    string
	DefaultEmail       string
	DefaultFullname    string
	DefaultInstitution string
}

// ResolutionKind tags the outcome of an identity resolution attempt.
type ResolutionKind string

const (
	// ResolutionLogin means the identity mapped to an existing account and a
	// claim was issued.
	ResolutionLogin ResolutionKind = "login"
	// ResolutionRegister means a fresh account was auto-registered and a
	// claim was issued.
	ResolutionRegister ResolutionKind = "register"
	// ResolutionDeferSignup means auto-registration is disabled for the
	// provider; a signup ticket carrying the external defaults was issued for
	// the caller to finish interactively.
	ResolutionDeferSignup ResolutionKind = "defer_signup"
	// ResolutionAssociate means the identity was bound to the authenticated
	// account named by the association ticket.
	ResolutionAssociate ResolutionKind = "associate"
	// ResolutionAlreadyAssociated means the identity was already bound to the
	// same account; idempotent success, no mutation.
	ResolutionAlreadyAssociated ResolutionKind = "already_associated"
)

// Resolution is the tagged result of the resolution state machine. Token
// carries the signed claim for login/register outcomes and the signed signup
// ticket for defer outcomes.
type Resolution struct {
	Kind    ResolutionKind
	Account *Account
	Token   string
}

// AssociationTicket binds an in-progress external round trip to an already
// authenticated account. Delivered via httpOnly cookie, consumed once.
type AssociationTicket struct {
	Sub      int64
	Provider string
}
