package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brainlife/auth-sub000/internal/usecase"
)

// RegistrationHandler exposes local and deferred signup endpoints.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds signup routes.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/signup", h.signup)
	r.POST("/signup/deferred", h.signupDeferred)
}

func (h *RegistrationHandler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signup payload"))
		return
	}

	account, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Fullname: strings.TrimSpace(req.Fullname),
	})
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to register")
		return
	}

	account.PasswordHash = ""

	c.JSON(http.StatusCreated, SignupResponse{
		Account: newAccountSummary(account),
		Message: "confirmation email sent",
	})
}

func (h *RegistrationHandler) signupDeferred(c *gin.Context) {
	var req DeferredSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signup payload"))
		return
	}

	account, err := h.registration.RegisterDeferred(c.Request.Context(), req.Ticket, usecase.RegisterInput{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Fullname: strings.TrimSpace(req.Fullname),
	})
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to register")
		return
	}

	account.PasswordHash = ""

	message := ""
	if !account.EmailConfirmed {
		message = "confirmation email sent"
	}

	c.JSON(http.StatusCreated, SignupResponse{
		Account: newAccountSummary(account),
		Message: message,
	})
}
