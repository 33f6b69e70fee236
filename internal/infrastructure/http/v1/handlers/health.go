package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Masaki-Miyazawa/erp/internal/docstore"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	store docstore.Store
}

// NewHealthHandler creates a health handler over the active store.
func NewHealthHandler(store docstore.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready. A probe read against the store proves
// connectivity; a missing probe document is a healthy answer.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var probe map[string]any
	err := h.store.Get(ctx, "counters/orders", &probe)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
