package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/transport/http/middleware"
	"github.com/brainlife/auth-sub000/internal/usecase"
)

// AdminHandler exposes the administrative surface. Every route requires the
// admin role in the auth scope domain.
type AdminHandler struct {
	admin *usecase.AdminService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admin *usecase.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// RegisterRoutes binds administrative routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/accounts", h.listAccounts)
	r.POST("/accounts/:sub/jwt", h.issueClaim)
	r.PUT("/accounts/:sub/scopes", h.setScopes)
	r.POST("/accounts/:sub/disable", h.disable)
	r.POST("/accounts/:sub/enable", h.enable)
	r.POST("/unlock/:identifier", h.unlock)
}

func (h *AdminHandler) listAccounts(c *gin.Context) {
	filter := port.AccountFilter{}
	if raw, ok := c.GetQuery("active"); ok {
		active := raw == "true" || raw == "1"
		filter.Active = &active
	}

	accounts, err := h.admin.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list accounts"))
		return
	}

	out := make([]AccountSummary, 0, len(accounts))
	for i := range accounts {
		out = append(out, newAccountSummary(&accounts[i]))
	}

	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) issueClaim(c *gin.Context) {
	sub, err := parseSub(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid sub"))
		return
	}

	var ttl time.Duration
	if raw, ok := c.GetQuery("ttl"); ok {
		seconds, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || seconds < 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid ttl"))
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	token, err := h.admin.IssueClaimFor(c.Request.Context(), sub, ttl)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to issue token")
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (h *AdminHandler) setScopes(c *gin.Context) {
	sub, err := parseSub(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid sub"))
		return
	}

	var req ScopesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid scopes payload"))
		return
	}

	if err := h.admin.SetScopes(c.Request.Context(), sub, req.Scopes); err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to set scopes")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "scopes updated"})
}

func (h *AdminHandler) disable(c *gin.Context) {
	sub, err := parseSub(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid sub"))
		return
	}

	actor, _ := middleware.GetAuthenticatedSub(c)

	if err := h.admin.DisableAccount(c.Request.Context(), sub, actor); err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to disable account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account disabled"})
}

func (h *AdminHandler) enable(c *gin.Context) {
	sub, err := parseSub(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid sub"))
		return
	}

	if err := h.admin.EnableAccount(c.Request.Context(), sub); err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to enable account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account enabled"})
}

func (h *AdminHandler) unlock(c *gin.Context) {
	identifier := c.Param("identifier")
	if identifier == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "identifier is required"))
		return
	}

	if err := h.admin.Unlock(c.Request.Context(), identifier); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to unlock"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "unlocked"})
}

func parseSub(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("sub"), 10, 64)
}
