package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/otpauth/pkg/api"
)

// pingTimeout ограничивает проверку хранилища
const pingTimeout = 2 * time.Second

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	storage Pinger
	version string
}

// NewHealthHandler создает новый handler для health check.
// storage может быть nil, тогда хранилище не проверяется
func NewHealthHandler(logger *slog.Logger, storage Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		storage: storage,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
// Health check endpoint для мониторинга
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "ok",
		Version: h.version,
	}

	if h.storage == nil {
		sendJSON(h.logger, w, resp, http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "storage health check failed", slog.Any("error", err))
		resp.Status = "degraded"
		resp.Storage = "unavailable"
		sendJSON(h.logger, w, resp, http.StatusServiceUnavailable)
		return
	}

	resp.Storage = "ok"
	sendJSON(h.logger, w, resp, http.StatusOK)
}
