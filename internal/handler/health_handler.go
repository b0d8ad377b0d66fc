package handler

import (
	"net/http"
	"time"

	"wot-api/pkg/database"
	"wot-api/pkg/logger"
	"wot-api/pkg/redis"
)

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	db     *database.PostgresDB
	redis  *redis.Client
	logger *logger.Logger
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(db *database.PostgresDB, redisClient *redis.Client, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, logger: logger}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	healthy := true

	if err := h.db.Health(ctx); err != nil {
		h.logger.WithError(err).Warn("Database health check failed")
		status["database"] = "unreachable"
		healthy = false
	} else {
		status["database"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Health(ctx); err != nil {
			h.logger.WithError(err).Warn("Redis health check failed")
			status["redis"] = "unreachable"
			// Redis is a cache; its loss degrades but does not down the
			// service.
		} else {
			status["redis"] = "ok"
		}
	}

	code := http.StatusOK
	if !healthy {
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}
