package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// Pinger verifies connectivity to a dependency. Satisfied by
// *registry.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	store     Pinger
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		logger:    logger.With("handler", "health"),
		startTime: time.Now(),
	}
}

// Liveness handles GET /healthz - simple liveness without dependency
// checks.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": nowUTC(),
		"uptime":    time.Since(h.startTime).String(),
	})
}

// Health handles GET /health - readiness including the registry store.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string)

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			status = "unhealthy"
			checks["registry"] = "failed: " + err.Error()
		} else {
			checks["registry"] = "ok"
		}
	} else {
		checks["registry"] = "not configured"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, r, statusCode, map[string]interface{}{
		"status":    status,
		"timestamp": nowUTC(),
		"checks":    checks,
	})
}
