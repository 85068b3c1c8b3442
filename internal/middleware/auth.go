package middleware

import (
	"net/http"
	"strings"

	"riteswipe-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth.
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
)

// JWTAuth validates the bearer token and stores the caller in the context.
func JWTAuth(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = parts[1]
			}
		}
		// Browsers cannot set headers on a websocket upgrade.
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			return
		}

		claims, err := issuer.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Next()
	}
}

// CallerID returns the authenticated user id, or "".
func CallerID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
