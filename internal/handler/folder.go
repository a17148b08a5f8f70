package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/service"
)

// FolderHandler handles saved-job folder endpoints.
type FolderHandler struct {
	svc    *service.FolderService
	logger *slog.Logger
}

// NewFolderHandler creates a new FolderHandler.
func NewFolderHandler(svc *service.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		svc:    svc,
		logger: logger.With("component", "handler.folder"),
	}
}

// Create handles POST /api/v1/folders.
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.FolderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var name, description string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}

	folder, err := h.svc.CreateFolder(r.Context(), actor(r), name, description)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// List handles GET /api/v1/folders.
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	folders, err := h.svc.ListFolders(r.Context(), actor(r), page)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, folders)
}

// Get handles GET /api/v1/folders/{id}.
func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	folder, err := h.svc.GetFolder(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// Update handles PATCH /api/v1/folders/{id}.
func (h *FolderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.FolderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	folder, err := h.svc.UpdateFolder(r.Context(), actor(r), chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// Delete handles DELETE /api/v1/folders/{id}. Saved jobs go with it.
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFolder(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListJobs handles GET /api/v1/folders/{id}/jobs.
func (h *FolderHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	items, err := h.svc.ListJobs(r.Context(), actor(r), chi.URLParam(r, "id"), page)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, items)
}

// AddJob handles POST /api/v1/folders/{id}/jobs.
func (h *FolderHandler) AddJob(w http.ResponseWriter, r *http.Request) {
	var req dto.AddFolderJobRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	item, err := h.svc.AddJob(r.Context(), actor(r), chi.URLParam(r, "id"), req.JobID, req.Note)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// RemoveJob handles DELETE /api/v1/folders/{id}/jobs/{job_id}.
func (h *FolderHandler) RemoveJob(w http.ResponseWriter, r *http.Request) {
	err := h.svc.RemoveJob(r.Context(), actor(r), chi.URLParam(r, "id"), chi.URLParam(r, "job_id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveJobs handles POST /api/v1/folders/{id}/move.
func (h *FolderHandler) MoveJobs(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveJobsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.MoveJobs(r.Context(), actor(r), chi.URLParam(r, "id"), req.TargetFolderID, req.JobIDs)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
