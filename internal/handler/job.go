package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/analytics"
	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// JobHandler handles job endpoints.
type JobHandler struct {
	jobs   *service.JobService
	apps   *service.ApplicationService
	logger *slog.Logger
	now    func() time.Time
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs *service.JobService, apps *service.ApplicationService, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		apps:   apps,
		logger: logger.With("component", "handler.job"),
		now:    time.Now,
	}
}

// List handles GET /api/v1/jobs. Anonymous callers are allowed.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	query, err := jobQuery(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context(), actor(r), service.ListJobsInput{
		PageRequest: page,
		Query:       query,
		Status:      model.JobStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, jobs)
}

// Get handles GET /api/v1/jobs/{id} and records a view for public jobs.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.GetJob(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.jobs.RecordView(job, analytics.PayloadFromRequest(r, clientIP(r), job.ID, job.CompanyID, h.now()))
	writeJSON(w, http.StatusOK, job)
}

// Create handles POST /api/v1/jobs.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.JobRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), actor(r), req.CompanyID, req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// Update handles PATCH /api/v1/jobs/{id}.
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.JobRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	job, err := h.jobs.UpdateJob(r.Context(), actor(r), chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Delete handles DELETE /api/v1/jobs/{id}.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.DeleteJob(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Applications handles GET /api/v1/jobs/{id}/applications.
func (h *JobHandler) Applications(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	job, err := h.jobs.ManageableJob(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	apps, err := h.apps.ListApplications(r.Context(), actor(r), service.ListApplicationsInput{
		PageRequest: page,
		JobID:       job.ID,
		Status:      model.ApplicationStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, apps)
}
