package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"unicode"
	"unicode/utf8"

	"ficehub/internal/middleware"
	"ficehub/internal/models"
	"ficehub/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// currentUser returns the user loaded by middleware.LoadUser, or nil for anonymous requests.
func currentUser(c *gin.Context) *models.User {
	if user, exists := c.Get(middleware.CheckUserKey); exists {
		return user.(*models.User)
	}
	return nil
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateIdentifier),
		errors.Is(err, services.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidParent):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON error for err. Server-side failures are logged and their
// detail is not sent to the client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg(err)})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg(err)})
}

func msg(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
