package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/teamroster/internal/api/response"
)

// Pinger reports whether the storage backend is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// healthTimeout bounds the storage ping
const healthTimeout = 2 * time.Second

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	pinger Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a health handler. pinger may be nil for backends
// that cannot be unreachable.
func NewHealthHandler(pinger Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{pinger: pinger, logger: logger}
}

// Get handles GET /api/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", slog.Any("error", err))
			response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "unavailable"})
			return
		}
	}
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
