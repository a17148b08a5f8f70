package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// SearchHandler handles recent searches and saved-search alerts.
type SearchHandler struct {
	svc    *service.SearchService
	logger *slog.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		svc:    svc,
		logger: logger.With("component", "handler.search"),
	}
}

// RecentSearches handles GET /api/v1/searches/recent.
func (h *SearchHandler) RecentSearches(w http.ResponseWriter, r *http.Request) {
	searches, err := h.svc.RecentSearches(r.Context(), actor(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if searches == nil {
		searches = []*model.RecentSearch{}
	}
	writeJSON(w, http.StatusOK, dto.DataResponse[*model.RecentSearch]{Data: searches})
}

// ClearRecentSearches handles DELETE /api/v1/searches/recent.
func (h *SearchHandler) ClearRecentSearches(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.ClearRecentSearches(r.Context(), actor(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ClearSearchesResponse{Deleted: deleted})
}

// CreateAlert handles POST /api/v1/alerts.
func (h *SearchHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req dto.AlertRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	alert, err := h.svc.CreateAlert(r.Context(), actor(r), req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

// ListAlerts handles GET /api/v1/alerts.
func (h *SearchHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	alerts, err := h.svc.ListAlerts(r.Context(), actor(r), page)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, alerts)
}

// GetAlert handles GET /api/v1/alerts/{id}.
func (h *SearchHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.svc.GetAlert(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// UpdateAlert handles PATCH /api/v1/alerts/{id}.
func (h *SearchHandler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	var req dto.AlertRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	alert, err := h.svc.UpdateAlert(r.Context(), actor(r), chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// DeleteAlert handles DELETE /api/v1/alerts/{id}.
func (h *SearchHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAlert(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
