package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin must run after RequireAuth. It trusts the freshly loaded
// user record, not the role claim baked into the token.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := UserFromContext(c)

		if !ok {
			m.reject(c, http.StatusUnauthorized, "missing_token", "Missing identity context.")
			return
		}
		if !u.IsAdmin {
			m.reject(c, http.StatusForbidden, "forbidden", "Administrator privileges required.")
			return
		}
		c.Next()
	}
}
