package handlers

import (
	"net/http"

	"ficehub/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(gdb *gorm.DB) *HealthHandler {
	return &HealthHandler{db: gdb}
}

// Health reports database reachability and pool statistics.
func (h *HealthHandler) Health(c *gin.Context) {
	stats := db.Health(c.Request.Context(), h.db)
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}

// Metrics exposes the default prometheus registry.
func (h *HealthHandler) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
