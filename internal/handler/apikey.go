package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	svc    *service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(svc *service.APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		svc:    svc,
		logger: logger.With("component", "handler.apikey"),
	}
}

// APIKeyListResponse lists keys without their secrets.
type APIKeyListResponse struct {
	Keys  []model.APIKeyResponse `json:"keys"`
	Total int                    `json:"total"`
}

func newAPIKeyList(keys []model.APIKeyResponse) APIKeyListResponse {
	if keys == nil {
		keys = []model.APIKeyResponse{}
	}
	return APIKeyListResponse{Keys: keys, Total: len(keys)}
}

// CreateAPIKey handles POST /api/v1/api-keys. The plaintext key is only
// ever returned here and from RotateAPIKey.
func (h *APIKeyHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req model.APIKeyCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	created, err := h.svc.CreateAPIKey(r.Context(), actor(r), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListAPIKeys handles GET /api/v1/api-keys.
func (h *APIKeyHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.ListAPIKeys(r.Context(), actor(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAPIKeyList(keys))
}

// RevokeAPIKey handles DELETE /api/v1/api-keys/{key_id}. Keys of other
// users and already revoked keys are reported as not found.
func (h *APIKeyHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RevokeAPIKey(r.Context(), actor(r), chi.URLParam(r, "key_id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RotateAPIKey handles POST /api/v1/api-keys/{key_id}/rotate.
func (h *APIKeyHandler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	rotated, err := h.svc.RotateAPIKey(r.Context(), actor(r), chi.URLParam(r, "key_id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rotated)
}
