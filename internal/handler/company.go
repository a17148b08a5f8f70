package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/service"
)

// CompanyHandler handles company endpoints.
type CompanyHandler struct {
	svc    *service.CompanyService
	logger *slog.Logger
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(svc *service.CompanyService, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{
		svc:    svc,
		logger: logger.With("component", "handler.company"),
	}
}

// Create handles POST /api/v1/companies.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	company, err := h.svc.CreateCompany(r.Context(), actor(r), req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

// Get handles GET /api/v1/companies/{id}.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.GetCompany(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// List handles GET /api/v1/companies.
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	companies, err := h.svc.ListCompanies(r.Context(), service.ListCompaniesInput{
		PageRequest: page,
		Q:           q.Get("q"),
		Location:    q.Get("location"),
		OwnerID:     q.Get("owner_id"),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, companies)
}

// Update handles PATCH /api/v1/companies/{id}.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.CompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	company, err := h.svc.UpdateCompany(r.Context(), actor(r), chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// Delete handles DELETE /api/v1/companies/{id}.
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCompany(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
