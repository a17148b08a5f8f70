package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/handler/dto"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// InvoiceHandler handles invoice endpoints.
type InvoiceHandler struct {
	svc    *service.InvoiceService
	logger *slog.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(svc *service.InvoiceService, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		svc:    svc,
		logger: logger.With("component", "handler.invoice"),
	}
}

// Create handles POST /api/v1/invoices.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.InvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	inv, err := h.svc.CreateInvoice(r.Context(), actor(r), req.ToInput())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// List handles GET /api/v1/invoices.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	invoices, err := h.svc.ListInvoices(r.Context(), actor(r), service.ListInvoicesInput{
		PageRequest: page,
		CompanyID:   q.Get("company_id"),
		Status:      model.InvoiceStatus(q.Get("status")),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, invoices)
}

// Get handles GET /api/v1/invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.GetInvoice(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// Pay handles POST /api/v1/invoices/{id}/pay.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req dto.PayInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	inv, err := h.svc.PayInvoice(r.Context(), actor(r), chi.URLParam(r, "id"), req.PaymentReference)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// Void handles POST /api/v1/invoices/{id}/void.
func (h *InvoiceHandler) Void(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.VoidInvoice(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
