package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/transport/http/middleware"
	"github.com/brainlife/auth-sub000/internal/usecase"
)

const associationCookieName = "auth_associate"

// ExternalHandler drives external-identity authentication: callback
// resolution, association tickets, and disconnection.
type ExternalHandler struct {
	resolution   *usecase.ResolutionService
	ticketMaxAge int
	secureCookie bool
}

// NewExternalHandler constructs ExternalHandler.
func NewExternalHandler(resolution *usecase.ResolutionService, secureCookie bool) *ExternalHandler {
	return &ExternalHandler{
		resolution:   resolution,
		ticketMaxAge: 300,
		secureCookie: secureCookie,
	}
}

// RegisterRoutes binds external-identity routes. Callback is public; the
// association and disconnect endpoints require an authenticated caller.
func (h *ExternalHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	r.POST("/:provider/callback", h.callback)
	r.POST("/:provider/associate", requireAuth, h.issueAssociationTicket)
	r.DELETE("/:provider/:id", requireAuth, h.disconnect)
}

// callback finishes a provider round trip. The raw profile arrives already
// verified by the upstream exchange; resolution decides login, register,
// defer, or associate based on current bindings and an optional association
// cookie.
func (h *ExternalHandler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	var req ExternalCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid callback payload"))
		return
	}

	profile, err := h.resolution.Normalize(providerName, req.Profile)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusBadRequest, "failed to normalize profile")
		return
	}

	var ticket *domain.AssociationTicket
	if raw, cookieErr := c.Cookie(associationCookieName); cookieErr == nil && raw != "" {
		ticket, err = h.resolution.ConsumeAssociationTicket(raw, providerName)
		if err != nil {
			RespondWithMappedError(c, err, authErrorCases, http.StatusUnauthorized, "couldn't find token")
			return
		}
		// Single use regardless of outcome.
		c.SetCookie(associationCookieName, "", -1, "/", "", h.secureCookie, true)
	}

	res, err := h.resolution.Resolve(c.Request.Context(), profile, ticket)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to resolve identity")
		return
	}

	resp := ResolutionResponse{Status: string(res.Kind)}
	switch res.Kind {
	case domain.ResolutionDeferSignup:
		resp.Ticket = res.Token
	default:
		resp.Token = res.Token
	}
	if res.Account != nil {
		summary := newAccountSummary(res.Account)
		summary.Scopes = nil
		resp.Account = &summary
	}

	c.JSON(http.StatusOK, resp)
}

// issueAssociationTicket signs a short-lived ticket binding the upcoming
// provider round trip to the authenticated account. The ticket travels as an
// httpOnly cookie so the callback can pick it up without client involvement.
func (h *ExternalHandler) issueAssociationTicket(c *gin.Context) {
	sub, ok := middleware.GetAuthenticatedSub(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	providerName := c.Param("provider")

	ticket, err := h.resolution.IssueAssociationTicket(sub, providerName)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to issue ticket")
		return
	}

	c.SetCookie(associationCookieName, ticket, h.ticketMaxAge, "/", "", h.secureCookie, true)

	c.JSON(http.StatusOK, AssociationTicketResponse{Ticket: ticket})
}

// disconnect removes an external identifier from the authenticated account.
func (h *ExternalHandler) disconnect(c *gin.Context) {
	sub, ok := middleware.GetAuthenticatedSub(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	providerName := c.Param("provider")
	id := c.Param("id")

	if err := h.resolution.Disassociate(c.Request.Context(), sub, providerName, id); err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to disconnect identity")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "identity disconnected"})
}
