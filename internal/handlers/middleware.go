package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/pipeline-board/internal/models"
	"github.com/justsurfingit/pipeline-board/internal/services"
)

const (
	UserHeader  = "X-User-Email"
	DefaultUser = "default"

	userKey = "user"
)

// RequireUser resolves the session user from the X-User-Email header.
// Requests without the header act as the single local user.
func RequireUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetHeader(UserHeader)
		if email == "" {
			email = DefaultUser
		}
		user, err := users.Resolve(c.Request.Context(), email)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user: " + err.Error()})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}
