package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles. It must
// run after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextAdminRole)
		if role == "" {
			response.Unauthorized(c, "missing admin context")
			c.Abort()
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin guards the admin surface.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
