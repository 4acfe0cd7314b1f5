package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brainlife/auth-sub000/internal/transport/http/middleware"
	"github.com/brainlife/auth-sub000/internal/usecase"
)

// ProfileHandler exposes self-service account endpoints.
type ProfileHandler struct {
	accounts *usecase.AccountService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(accounts *usecase.AccountService) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// RegisterRoutes binds profile routes; all require authentication.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.me)
	r.PUT("/profile", h.updateProfile)
}

func (h *ProfileHandler) me(c *gin.Context) {
	sub, ok := middleware.GetAuthenticatedSub(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.accounts.Get(c.Request.Context(), sub)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *ProfileHandler) updateProfile(c *gin.Context) {
	sub, ok := middleware.GetAuthenticatedSub(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	if err := h.accounts.UpdateProfile(c.Request.Context(), sub, req.Profile); err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "profile updated"})
}
