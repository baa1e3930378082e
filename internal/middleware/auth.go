package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"ficehub/internal/models"
	"ficehub/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const CheckUserKey = "user"

// UserIDHeader carries the id of the user authenticated by the upstream proxy.
const UserIDHeader = "X-User-ID"

// UserLoader resolves an authenticated id to a user.
type UserLoader interface {
	User(ctx context.Context, id uint) (*models.User, error)
}

// LoadUser resolves the identity header and sets the user on the context. Requests
// without the header pass through anonymously. An id that names no user is rejected.
func LoadUser(users UserLoader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw == "" {
			c.Next()
			return
		}

		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user id"})
			return
		}

		user, err := users.User(c.Request.Context(), uint(id))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
				return
			}
			logger.Error("Failed to load user", zap.Uint64("userID", id), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load user"})
			return
		}

		c.Set(CheckUserKey, user)
		c.Next()
	}
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get(CheckUserKey)
		if !exists || !user.(*models.User).IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin only"})
			return
		}
		c.Next()
	}
}
