package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-workshop/backend/internal/auth"
	"github.com/aura-workshop/backend/pkg/response"
)

const (
	// ContextAdminID is the key for the admin ID (uuid.UUID) in gin context.
	ContextAdminID = "admin_id"
	// ContextAdminRole is the key for the admin role in gin context.
	ContextAdminRole = "admin_role"
	// ContextAdminEmail is the key for the admin email in gin context.
	ContextAdminEmail = "admin_email"
)

// JWT returns a middleware that validates the bearer token and sets the
// admin claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(strings.TrimSpace(token))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextAdminID, claims.AdminID)
		c.Set(ContextAdminRole, claims.Role)
		c.Set(ContextAdminEmail, claims.Email)
		c.Next()
	}
}
