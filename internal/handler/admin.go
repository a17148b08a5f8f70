package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hireline/hireline/internal/service"
)

const adminQueryTimeout = 5 * time.Second

// AdminHandler provides admin-only operational endpoints.
type AdminHandler struct {
	stats   *service.AdminService
	keys    *service.APIKeyService
	logger  *slog.Logger
	version string
	started time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(stats *service.AdminService, keys *service.APIKeyService, version string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		stats:   stats,
		keys:    keys,
		logger:  logger.With("component", "handler.admin"),
		version: version,
		started: time.Now(),
	}
}

// StatsResponse represents operational statistics.
type StatsResponse struct {
	*service.PlatformStats
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Stats handles GET /api/v1/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	stats, err := h.stats.Stats(ctx)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		PlatformStats: stats,
		Service:       "hireline",
		Version:       h.version,
		Uptime:        time.Since(h.started).Truncate(time.Second).String(),
	})
}

// ListAPIKeysByUser handles GET /api/v1/admin/api-keys?user_id={id}.
func (h *AdminHandler) ListAPIKeysByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "query parameter 'user_id' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	keys, err := h.keys.ListAPIKeysForUser(ctx, userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAPIKeyList(keys))
}
