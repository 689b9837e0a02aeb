package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const usernameKey = "auth_username"

// TokenValidator returns the username carried by a valid bearer token.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// token's username for RequireUser.
func Authenticate(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token_format",
				"message": "Authorization header must use Bearer token",
			})
			return
		}

		username, err := tokens.Validate(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Token validation failed",
			})
			return
		}

		c.Set(usernameKey, username)
		c.Next()
	}
}

// AuthenticatedUsername returns the username stored by Authenticate.
func AuthenticatedUsername(c *gin.Context) string {
	return c.GetString(usernameKey)
}
