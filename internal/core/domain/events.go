package domain

import "time"

// LoginEvent is published after every successful claim issuance.
type LoginEvent struct {
	EventID  string
	Sub      int64
	Username string
	Method   string
	At       time.Time
	Metadata map[string]any
}

// LoginFailedEvent is published for each failed local-login attempt.
type LoginFailedEvent struct {
	EventID    string
	Identifier string
	Reason     string
	At         time.Time
}

// AccountRegisteredEvent is published when an account is created, locally or
// via external auto-registration.
type AccountRegisteredEvent struct {
	EventID  string
	Sub      int64
	Username string
	Email    string
	Provider string
	At       time.Time
}

// IdentityAssociatedEvent is published when an external identifier is bound
// to an account.
type IdentityAssociatedEvent struct {
	EventID    string
	Sub        int64
	Provider   string
	ExternalID string
	At         time.Time
}

// IdentityDisconnectedEvent is published when an external identifier is
// removed from an account.
type IdentityDisconnectedEvent struct {
	EventID    string
	Sub        int64
	Provider   string
	ExternalID string
	At         time.Time
}

// PasswordChangedEvent is published after a password change or reset.
type PasswordChangedEvent struct {
	EventID string
	Sub     int64
	Reason  string
	At      time.Time
}

// AccountDisabledEvent is published when an administrator disables an account.
type AccountDisabledEvent struct {
	EventID string
	Sub     int64
	Actor   int64
	At      time.Time
}
