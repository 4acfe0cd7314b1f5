package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary is the sanitized account view returned by the API.
type AccountSummary struct {
	Sub            int64                `json:"sub"`
	Username       string               `json:"username"`
	Email          string               `json:"email,omitempty"`
	EmailConfirmed bool                 `json:"email_confirmed"`
	Active         bool                 `json:"active"`
	Ext            map[string][]string  `json:"ext,omitempty"`
	Scopes         map[string][]string  `json:"scopes,omitempty"`
	Times          map[string]time.Time `json:"times,omitempty"`
	Profile        domain.Profile       `json:"profile"`
	CreatedAt      time.Time            `json:"created_at"`
}

func newAccountSummary(account *domain.Account) AccountSummary {
	return AccountSummary{
		Sub:            account.Sub,
		Username:       account.Username,
		Email:          account.Email,
		EmailConfirmed: account.EmailConfirmed,
		Active:         account.Active,
		Ext:            account.Ext,
		Scopes:         account.Scopes,
		Times:          account.Times,
		Profile:        account.Profile,
		CreatedAt:      account.CreatedAt,
	}
}

// LoginRequest defines the payload for the local login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	TTLSeconds int64  `json:"ttl,omitempty"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	Token   string         `json:"jwt"`
	Account AccountSummary `json:"account"`
}

// RefreshRequest represents the payload to refresh a claim token.
type RefreshRequest struct {
	Scopes     map[string][]string `json:"scopes,omitempty"`
	TTLSeconds int64               `json:"ttl,omitempty"`
}

// TokenResponse carries a bare issued token.
type TokenResponse struct {
	Token string `json:"jwt"`
}

// SignupRequest defines the local registration payload.
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Fullname string `json:"fullname"`
}

// DeferredSignupRequest finishes a signup started by an external provider.
type DeferredSignupRequest struct {
	Ticket   string `json:"ticket" binding:"required"`
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
}

// SignupResponse contains registration results.
type SignupResponse struct {
	Account AccountSummary `json:"account"`
	Message string         `json:"message,omitempty"`
}

// ExternalCallbackRequest carries the verified raw profile a provider round
// trip produced. Profile is the provider's own document; normalization happens
// server-side.
type ExternalCallbackRequest struct {
	Profile map[string]any `json:"profile" binding:"required"`
}

// ResolutionResponse is the tagged outcome of an external authentication
// attempt. Jwt is the signed claim for login/register, Ticket the signup
// ticket for deferred outcomes.
type ResolutionResponse struct {
	Status  string          `json:"status"`
	Token   string          `json:"jwt,omitempty"`
	Ticket  string          `json:"ticket,omitempty"`
	Account *AccountSummary `json:"account,omitempty"`
}

// AssociationTicketResponse carries a signed association ticket.
type AssociationTicketResponse struct {
	Ticket string `json:"ticket"`
}

// PasswordChangeRequest updates the local credential.
type PasswordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" binding:"required"`
}

// PasswordResetRequest starts the reset flow.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmRequest redeems a reset pair.
type PasswordResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ResendConfirmationRequest re-sends the confirmation link.
type ResendConfirmationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ProfileUpdateRequest replaces the account profile document.
type ProfileUpdateRequest struct {
	Profile domain.Profile `json:"profile" binding:"required"`
}

// GroupRequest creates or updates a group.
type GroupRequest struct {
	Name    string  `json:"name" binding:"required"`
	Admins  []int64 `json:"admins"`
	Members []int64 `json:"members"`
	Active  *bool   `json:"active"`
}

// GroupResponse is the API view of a group.
type GroupResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Admins  []int64 `json:"admins"`
	Members []int64 `json:"members"`
	Active  bool    `json:"active"`
}

func newGroupResponse(group *domain.Group) GroupResponse {
	return GroupResponse{
		ID:      group.ID,
		Name:    group.Name,
		Admins:  group.AdminSubs,
		Members: group.MemberSubs,
		Active:  group.Active,
	}
}

// ScopesRequest replaces an account's scope document.
type ScopesRequest struct {
	Scopes map[string][]string `json:"scopes" binding:"required"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
