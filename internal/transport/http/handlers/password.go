package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brainlife/auth-sub000/internal/transport/http/middleware"
	"github.com/brainlife/auth-sub000/internal/usecase"
)

const resetCookieName = "auth_reset"

// PasswordHandler exposes password change, reset, and email confirmation
// endpoints.
type PasswordHandler struct {
	accounts     *usecase.AccountService
	secrets      *usecase.SecretService
	cookieMaxAge int
	secureCookie bool
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(accounts *usecase.AccountService, secrets *usecase.SecretService, secureCookie bool) *PasswordHandler {
	return &PasswordHandler{
		accounts:     accounts,
		secrets:      secrets,
		cookieMaxAge: 3600,
		secureCookie: secureCookie,
	}
}

// ChangePassword sets a new local password for the authenticated account.
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	sub, ok := middleware.GetAuthenticatedSub(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), sub, req.OldPassword, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// ResetPassword starts the reset flow. The response never reveals whether the
// address is registered; the browser-bound cookie is only set when it is.
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	pair, err := h.secrets.RequestReset(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to request reset"))
		return
	}

	if pair != nil {
		c.SetCookie(resetCookieName, pair.Cookie, h.cookieMaxAge, "/", "", h.secureCookie, true)
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if the address is registered, a reset link has been sent"})
}

// ConfirmReset redeems the emailed token together with the browser cookie.
func (h *PasswordHandler) ConfirmReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	cookie, err := c.Cookie(resetCookieName)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "couldn't find token"))
		return
	}

	if _, err := h.secrets.RedeemReset(c.Request.Context(), req.Token, cookie, req.Password); err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.SetCookie(resetCookieName, "", -1, "/", "", h.secureCookie, true)

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// ConfirmEmail redeems a confirmation token from the mailed deep link.
func (h *PasswordHandler) ConfirmEmail(c *gin.Context) {
	token := c.Param("token")

	account, err := h.secrets.ConfirmEmail(c.Request.Context(), token)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to confirm email")
		return
	}

	c.JSON(http.StatusOK, SignupResponse{
		Account: newAccountSummary(account),
		Message: "email confirmed",
	})
}

// ResendConfirmation re-sends the confirmation link for an unconfirmed
// address. The response does not reveal whether the address is registered.
func (h *PasswordHandler) ResendConfirmation(c *gin.Context) {
	var req ResendConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	if err := h.secrets.ResendConfirmation(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resend confirmation"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if the address is registered, a confirmation link has been sent"})
}
