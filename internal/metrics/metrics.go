// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Job detail metrics
	IncJobCacheHit()
	IncJobCacheMiss()
	ObserveJobLookupDuration(duration time.Duration)

	// Hiring flow metrics
	IncJobPublished()
	IncApplicationSubmitted()
	IncApplicationStatusChanged(status string)

	// View analytics pipeline metrics
	IncViewEventPublished(status string) // status: "success" or "dropped"
	IncViewEventProcessed(status string) // status: "success", "failed", "skipped"
	ObserveViewBatchSize(size int)
	ObserveViewBatchDuration(duration time.Duration)
	SetViewQueueDepth(depth int64)
	ObserveViewIngestLag(lag time.Duration)

	// Mail and alert metrics
	IncEmailQueued(template string)
	IncEmailDelivery(status string) // status: "sent", "failed", "exhausted"
	IncAlertEvaluated(matched bool)

	// Domain event producer metrics
	IncDomainEventPublished(status string) // status: "success", "failed", "dropped"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
