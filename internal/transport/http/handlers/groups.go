package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/transport/http/middleware"
	"github.com/brainlife/auth-sub000/internal/usecase"
)

// GroupHandler exposes group management endpoints.
type GroupHandler struct {
	groups *usecase.GroupService
}

// NewGroupHandler constructs GroupHandler.
func NewGroupHandler(groups *usecase.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// RegisterRoutes binds group routes; all require authentication.
func (h *GroupHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.POST("", h.create)
	r.PUT("/:id", h.update)
}

func (h *GroupHandler) list(c *gin.Context) {
	sub, ok := middleware.GetAuthenticatedSub(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	groups, err := h.groups.ListFor(c.Request.Context(), sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list groups"))
		return
	}

	out := make([]GroupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, newGroupResponse(&groups[i]))
	}

	c.JSON(http.StatusOK, out)
}

func (h *GroupHandler) create(c *gin.Context) {
	sub, ok := middleware.GetAuthenticatedSub(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid group payload"))
		return
	}

	group, err := h.groups.Create(c.Request.Context(), sub, req.Name, req.Members)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to create group")
		return
	}

	c.JSON(http.StatusCreated, newGroupResponse(group))
}

func (h *GroupHandler) update(c *gin.Context) {
	sub, ok := middleware.GetAuthenticatedSub(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid group id"))
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid group payload"))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	claims := middleware.GetClaims(c)
	var scopes map[string][]string
	if claims != nil {
		scopes = claims.Scopes
	}

	if err := h.groups.Update(c.Request.Context(), sub, scopes, domain.Group{
		ID:         id,
		Name:       req.Name,
		AdminSubs:  req.Admins,
		MemberSubs: req.Members,
		Active:     active,
	}); err != nil {
		RespondWithMappedError(c, err, authErrorCases, http.StatusInternalServerError, "failed to update group")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "group updated"})
}
