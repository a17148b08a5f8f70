package handler

import (
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/hireline/hireline/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "hireline_job_cache_hits_total %d\n", snap.JobCacheHits)
	writeMetric(w, "hireline_job_cache_misses_total %d\n", snap.JobCacheMisses)
	writeMetric(w, "hireline_job_lookup_duration_seconds_count %d\n", snap.JobLookupCount)
	writeMetric(w, "hireline_job_lookup_duration_seconds_sum %.6f\n", float64(snap.JobLookupTotalNs)/1e9)

	writeMetric(w, "hireline_jobs_published_total %d\n", snap.JobsPublished)
	writeMetric(w, "hireline_applications_submitted_total %d\n", snap.ApplicationsSubmitted)
	writeLabelled(w, "hireline_application_status_changes_total", "status", snap.ApplicationStatusChanges)

	writeMetric(w, "hireline_view_events_published_total{status=\"success\"} %d\n", snap.ViewEventsPublished)
	writeMetric(w, "hireline_view_events_published_total{status=\"dropped\"} %d\n", snap.ViewEventsDropped)

	writeMetric(w, "hireline_view_events_processed_total{status=\"success\"} %d\n", snap.ViewEventsProcessed)
	writeMetric(w, "hireline_view_events_processed_total{status=\"failed\"} %d\n", snap.ViewEventsFailed)
	writeMetric(w, "hireline_view_events_processed_total{status=\"skipped\"} %d\n", snap.ViewEventsSkipped)

	writeMetric(w, "hireline_view_batches_total %d\n", snap.ViewBatchCount)
	writeMetric(w, "hireline_view_batch_events_total %d\n", snap.ViewBatchEvents)
	writeMetric(w, "hireline_view_queue_depth %d\n", snap.ViewQueueDepth)
	writeMetric(w, "hireline_view_batch_duration_seconds_sum %.6f\n", float64(snap.ViewBatchDurationTotalNs)/1e9)
	writeMetric(w, "hireline_view_ingest_lag_seconds_count %d\n", snap.ViewIngestLagCount)
	writeMetric(w, "hireline_view_ingest_lag_seconds_sum %.6f\n", float64(snap.ViewIngestLagTotalNs)/1e9)

	writeLabelled(w, "hireline_emails_queued_total", "template", snap.EmailsQueued)
	writeLabelled(w, "hireline_email_deliveries_total", "status", snap.EmailDeliveries)

	writeMetric(w, "hireline_alerts_evaluated_total %d\n", snap.AlertsEvaluated)
	writeMetric(w, "hireline_alerts_matched_total %d\n", snap.AlertsMatched)

	writeMetric(w, "hireline_domain_events_total{status=\"published\"} %d\n", snap.DomainEventsPublished)
	writeMetric(w, "hireline_domain_events_total{status=\"failed\"} %d\n", snap.DomainEventsFailed)
	writeMetric(w, "hireline_domain_events_total{status=\"dropped\"} %d\n", snap.DomainEventsDropped)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// writeLabelled writes one sample per label value in sorted order.
func writeLabelled(w http.ResponseWriter, name, label string, values map[string]uint64) {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, key, values[key])
	}
}
