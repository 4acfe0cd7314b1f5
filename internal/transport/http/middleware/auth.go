package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brainlife/auth-sub000/internal/infra/security"
	"github.com/brainlife/auth-sub000/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header and stores the verified
// claims on the request context.
func RequireAuth(claims *usecase.ClaimService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing token"))
			return
		}

		verified, err := claims.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid or expired token"))
			return
		}

		c.Set(SubKey, verified.Sub)
		c.Set(ClaimsKey, verified)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.Sub = verified.Sub
		}

		c.Next()
	}
}

// RequireScope checks that the verified claims carry the given role inside
// the scope domain. Must run after RequireAuth.
func RequireScope(scopeDomain, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if !hasRole(claims.Scopes[scopeDomain], role) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

func hasRole(roles []string, required string) bool {
	for _, r := range roles {
		if r == required {
			return true
		}
	}
	return false
}

// GetClaims retrieves the verified claims from the context.
func GetClaims(c *gin.Context) *security.AuthClaims {
	raw, exists := c.Get(ClaimsKey)
	if !exists {
		return nil
	}

	claims, ok := raw.(*security.AuthClaims)
	if !ok {
		return nil
	}

	return claims
}

// GetAuthenticatedSub retrieves the account identifier from context (helper for handlers)
func GetAuthenticatedSub(c *gin.Context) (int64, bool) {
	sub, exists := c.Get(SubKey)
	if !exists {
		return 0, false
	}

	if id, ok := sub.(int64); ok {
		return id, true
	}

	return 0, false
}
