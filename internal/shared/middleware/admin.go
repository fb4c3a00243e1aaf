package middleware

import (
	"library-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
)

const RoleAdmin = "admin"

// AdminMiddleware checks if user has admin role.
// Must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok || id.Role != RoleAdmin {
			response.Forbidden(c, "access denied: admin role required")
			return
		}

		c.Next()
	}
}
