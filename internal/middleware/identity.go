package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"todo-list/backend/internal/models"
	"todo-list/backend/internal/services"

	"github.com/gin-gonic/gin"
)

const userKey = "auth_user"

type UserResolver interface {
	ResolveUser(ctx context.Context, username string) (*models.User, error)
}

// RequireUser loads the user named by the authenticated token. It must run
// after Authenticate.
func RequireUser(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.ResolveUser(c.Request.Context(), AuthenticatedUsername(c))
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "unknown_user",
					"message": "Token does not identify an existing user",
				})
				return
			}
			log.Printf("resolve user: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireUser, or nil when the route
// is not behind it.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

// WithUser stores user as the authenticated caller. Tests use it to skip
// token handling.
func WithUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}
