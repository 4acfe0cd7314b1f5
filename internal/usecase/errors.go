package usecase

import "errors"

var (
	// ErrBadCredential indicates a wrong password or unknown identifier. The
	// public-facing message stays generic so the failed precondition does not
	// leak.
	ErrBadCredential = errors.New("incorrect user/password")
	// ErrAccountLocked indicates the failed-login threshold was exceeded
	// inside the window.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive indicates the account is disabled.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrEmailUnconfirmed indicates the account email was never confirmed.
	ErrEmailUnconfirmed = errors.New("email not confirmed")
	// ErrIdentityConflict indicates the external identifier is already bound
	// to a different account. No mutation, no auto-merge.
	ErrIdentityConflict = errors.New("identity already associated with another account")
	// ErrWeakPassword indicates the strength score rejected the password.
	ErrWeakPassword = errors.New("password is too weak")
	// ErrInvalidOrExpiredToken covers signature, expiry, and cookie-mismatch
	// failures on any ticket or secret. Expired and forged are deliberately
	// indistinguishable.
	ErrInvalidOrExpiredToken = errors.New("couldn't find token")
	// ErrDuplicateRegistration indicates a username or email collision.
	ErrDuplicateRegistration = errors.New("username or email already registered")
	// ErrLastCredential indicates a disconnect would leave the account with no
	// way to authenticate.
	ErrLastCredential = errors.New("cannot remove the last credential")
	// ErrNotGroupAdmin indicates the caller may not mutate the group.
	ErrNotGroupAdmin = errors.New("not a group admin")
	// ErrProviderNotConfigured indicates the named provider has no active
	// adapter.
	ErrProviderNotConfigured = errors.New("provider not configured")
)
