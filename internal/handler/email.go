package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// EmailHandler exposes the outbound email log.
type EmailHandler struct {
	svc    *service.EmailService
	logger *slog.Logger
}

// NewEmailHandler creates a new EmailHandler.
func NewEmailHandler(svc *service.EmailService, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{
		svc:    svc,
		logger: logger.With("component", "handler.email"),
	}
}

// List handles GET /api/v1/emails. status accepts a comma list.
func (h *EmailHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	input := service.ListEmailsInput{
		PageRequest: page,
		UserID:      q.Get("user_id"),
	}
	for _, s := range strings.Split(q.Get("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			input.Statuses = append(input.Statuses, model.EmailStatus(s))
		}
	}

	emails, err := h.svc.ListEmails(r.Context(), actor(r), input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writePage(w, emails)
}

// Get handles GET /api/v1/emails/{id}.
func (h *EmailHandler) Get(w http.ResponseWriter, r *http.Request) {
	email, err := h.svc.GetEmail(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

// Retry handles POST /api/v1/emails/{id}/retry (admin).
func (h *EmailHandler) Retry(w http.ResponseWriter, r *http.Request) {
	email, err := h.svc.RetryEmail(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, email)
}
