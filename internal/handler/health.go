package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// readinessTimeout bounds the storage probe so a hung database fails the check instead of the caller.
const readinessTimeout = 2 * time.Second

// Pinger is the minimal contract I need from storage to check readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler exposes liveness and readiness endpoints.
type HealthHandler struct {
	storage Pinger
	driver  string
}

// NewHealthHandler wires the probe; driver is reported in readiness responses.
func NewHealthHandler(storage Pinger, driver string) *HealthHandler {
	return &HealthHandler{storage: storage, driver: driver}
}

// Liveness responds OK if the process is up; it doesn't check dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readiness verifies the match storage answers.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()
	if err := h.storage.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"storage": h.driver,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "storage": h.driver})
}
