package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janovincze/icecat/internal/store"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store *store.Store
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(st *store.Store) *HealthHandler {
	return &HealthHandler{store: st}
}

// GetHealth returns overall service health.
// GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{"status": status})
}

// GetLiveness reports that the process is alive.
// GET /health/live
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// GetReadiness reports whether the backend is reachable.
// GET /health/ready
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
