package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"remesas/internal/authz"
	"remesas/internal/services"
)

// RequireRoles answers 401 without a session and 403 for any role not listed.
func RequireRoles(allowed ...authz.Role) gin.HandlerFunc {
	allowedSet := make(map[authz.Role]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   services.ErrNotAuthenticated.Message,
			})
			return
		}
		if _, ok := allowedSet[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   services.ErrNotAuthorized.Message,
			})
			return
		}
		c.Next()
	}
}

// RequireStaff is RequireRoles for both back-office roles.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(authz.RoleAdmin, authz.RoleManagement)
}
