package middlewares

import (
	"net/http"

	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole enforces a minimum role. Roles are ordered, so an ADMIN
// passes an EDITOR gate; the check is rank comparison, never string
// equality.
func (m *AuthMiddleware) RequireRole(minimum user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleStr, ok := RoleFromContext(c)

		if !ok || roleStr == "" {
			abortUnauthorized(c, "Missing identity context")
			return
		}

		role := user.Role(roleStr)

		if !role.IsValid() || !role.Satisfies(minimum) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": string(minimum) + " role required",
				},
			})
			return
		}
		c.Next()
	}
}
