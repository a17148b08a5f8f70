package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncJobCacheHit()                                 {}
func (n *NoopRecorder) IncJobCacheMiss()                                {}
func (n *NoopRecorder) ObserveJobLookupDuration(duration time.Duration) {}
func (n *NoopRecorder) IncJobPublished()                                {}
func (n *NoopRecorder) IncApplicationSubmitted()                        {}
func (n *NoopRecorder) IncApplicationStatusChanged(status string)       {}
func (n *NoopRecorder) IncViewEventPublished(status string)             {}
func (n *NoopRecorder) IncViewEventProcessed(status string)             {}
func (n *NoopRecorder) ObserveViewBatchSize(size int)                   {}
func (n *NoopRecorder) ObserveViewBatchDuration(duration time.Duration) {}
func (n *NoopRecorder) SetViewQueueDepth(depth int64)                   {}
func (n *NoopRecorder) ObserveViewIngestLag(lag time.Duration)          {}
func (n *NoopRecorder) IncEmailQueued(template string)                  {}
func (n *NoopRecorder) IncEmailDelivery(status string)                  {}
func (n *NoopRecorder) IncAlertEvaluated(matched bool)                  {}
func (n *NoopRecorder) IncDomainEventPublished(status string)           {}
