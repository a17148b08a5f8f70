package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hireline/hireline/internal/service"
)

// AnalyticsHandler handles analytics API requests.
type AnalyticsHandler struct {
	svc    *service.AnalyticsService
	logger *slog.Logger
	now    func() time.Time
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc:    svc,
		logger: logger.With("component", "handler.analytics"),
		now:    time.Now,
	}
}

// GetJobAnalytics handles GET /api/v1/jobs/{id}/analytics.
//
// Query parameters: from and to (YYYY-MM-DD) and include, a comma list of
// daily, referrers and countries.
func (h *AnalyticsHandler) GetJobAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := service.ParseAnalyticsQuery(q.Get("from"), q.Get("to"), q.Get("include"), h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	report, err := h.svc.JobAnalytics(r.Context(), actor(r), chi.URLParam(r, "id"), query)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
