package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"remesas/internal/models"
	"remesas/internal/services"
	"remesas/internal/session"
)

// ContextUserKey holds the *models.User of the current request.
const ContextUserKey = "user"

// LoadSession resolves the session cookie into a user. It never rejects a
// request; gates are RequireSession and RequireRoles.
func LoadSession(sessions services.SessionService, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		// preflight не трогаем
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		value, err := c.Cookie(session.CookieName)
		if err != nil || value == "" {
			c.Next()
			return
		}

		user, clear := sessions.Resolve(c.Request.Context(), value)
		if clear {
			http.SetCookie(c.Writer, session.ClearCookie(secure))
		}
		if user != nil {
			c.Set(ContextUserKey, user)
		}
		c.Next()
	}
}

// CurrentUser returns the user LoadSession put in the context, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   services.ErrNotAuthenticated.Message,
			})
			return
		}
		c.Next()
	}
}
