package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// ApplicationHandler handles job application endpoints.
type ApplicationHandler struct {
	svc    *service.ApplicationService
	logger *slog.Logger
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(svc *service.ApplicationService, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		svc:    svc,
		logger: logger.With("component", "handler.application"),
	}
}

// Submit handles POST /api/v1/applications.
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	app, err := h.svc.Submit(r.Context(), actor(r), req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// List handles GET /api/v1/applications.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	apps, err := h.svc.ListApplications(r.Context(), actor(r), service.ListApplicationsInput{
		PageRequest: page,
		JobID:       q.Get("job_id"),
		Status:      model.ApplicationStatus(q.Get("status")),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, apps)
}

// Get handles GET /api/v1/applications/{id}.
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.GetApplication(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// ChangeStatus handles POST /api/v1/applications/{id}/status.
func (h *ApplicationHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.StatusChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	app, err := h.svc.ChangeStatus(r.Context(), actor(r), chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
