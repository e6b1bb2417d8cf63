package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store  Pinger
	driver string
	log    zerolog.Logger
}

func NewHealthHandler(store Pinger, driver string, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{store: store, driver: driver, log: log}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error().Err(err).Str("store", h.driver).Msg("store ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "store": h.driver, "db": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": h.driver, "db": "healthy"})
}
