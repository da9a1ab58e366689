package handlers

import (
	"context"
	"net/http"

	"github.com/vote-portal/login-approval-service/utils"
)

// RedisHealthChecker reports stream-bridge connectivity
type RedisHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves the service health endpoint. The service itself is
// healthy as long as it can answer; the Redis bridge is reported separately
// because the service keeps working (local-only fan-out) without it.
type HealthHandler struct {
	service string
	redis   RedisHealthChecker
}

// NewHealthHandler creates a new health handler. redis may be nil when the
// stream bridge is not configured.
func NewHealthHandler(service string, redis RedisHealthChecker) *HealthHandler {
	return &HealthHandler{service: service, redis: redis}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body := map[string]string{
		"status":  "healthy",
		"service": h.service,
	}
	if h.redis != nil {
		if err := h.redis.HealthCheck(r.Context()); err != nil {
			body["redis"] = "unavailable"
		} else {
			body["redis"] = "healthy"
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, body)
}
