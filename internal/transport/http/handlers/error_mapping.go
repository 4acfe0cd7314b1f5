package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brainlife/auth-sub000/internal/repository"
	"github.com/brainlife/auth-sub000/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// authErrorCases covers the sentinels shared by most authenticated endpoints.
var authErrorCases = []ErrorCase{
	{Err: usecase.ErrBadCredential, Status: http.StatusUnauthorized, Message: "incorrect user/password"},
	{Err: usecase.ErrAccountLocked, Status: http.StatusTooManyRequests, Message: "account locked, try again later"},
	{Err: usecase.ErrAccountInactive, Status: http.StatusForbidden, Message: "account inactive"},
	{Err: usecase.ErrEmailUnconfirmed, Status: http.StatusForbidden, Message: "email not confirmed"},
	{Err: usecase.ErrIdentityConflict, Status: http.StatusConflict, Message: "identity already associated with another account"},
	{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
	{Err: usecase.ErrInvalidOrExpiredToken, Status: http.StatusUnauthorized, Message: "couldn't find token"},
	{Err: usecase.ErrDuplicateRegistration, Status: http.StatusConflict, Message: "username or email already registered"},
	{Err: usecase.ErrLastCredential, Status: http.StatusConflict, Message: "cannot remove the last login method"},
	{Err: usecase.ErrNotGroupAdmin, Status: http.StatusForbidden, Message: "insufficient permissions"},
	{Err: usecase.ErrProviderNotConfigured, Status: http.StatusNotFound, Message: "provider not configured"},
	{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "not found"},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
