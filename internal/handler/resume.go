package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/service"
)

// ResumeHandler handles resume endpoints.
type ResumeHandler struct {
	svc    *service.ResumeService
	logger *slog.Logger
}

// NewResumeHandler creates a new ResumeHandler.
func NewResumeHandler(svc *service.ResumeService, logger *slog.Logger) *ResumeHandler {
	return &ResumeHandler{
		svc:    svc,
		logger: logger.With("component", "handler.resume"),
	}
}

func (h *ResumeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ResumeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resume, err := h.svc.CreateResume(r.Context(), actor(r), req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resume)
}

func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resumes, err := h.svc.ListResumes(r.Context(), actor(r), page)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, resumes)
}

func (h *ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	resume, err := h.svc.GetResume(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (h *ResumeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.ResumeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resume, err := h.svc.UpdateResume(r.Context(), actor(r), chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (h *ResumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteResume(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
