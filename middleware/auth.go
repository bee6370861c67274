// Package middleware carries the demo API's cross-cutting gin handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sevasetu/utils"
)

// RequireRole validates the bearer access token, checks its server-side
// session is still live and was issued for the expected role, and stashes the
// caller's identity in the gin context.
func RequireRole(role string, registry *utils.SessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if claims.TokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not an access token"})
			return
		}
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Wrong role for this endpoint"})
			return
		}
		if !registry.Valid(claims.SessionID, role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session revoked or unknown"})
			return
		}

		c.Set("identity_id", claims.IdentityID)
		c.Set("role", claims.Role)
		c.Set("session_id", claims.SessionID)
		c.Next()
	}
}
