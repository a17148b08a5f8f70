package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	JobCacheHits          uint64
	JobCacheMisses        uint64
	JobLookupCount        uint64
	JobLookupTotalNs      int64
	JobsPublished         uint64
	ApplicationsSubmitted uint64

	ViewEventsPublished      uint64
	ViewEventsDropped        uint64
	ViewEventsProcessed      uint64
	ViewEventsFailed         uint64
	ViewEventsSkipped        uint64
	ViewBatchCount           uint64
	ViewBatchEvents          uint64
	ViewBatchDurationTotalNs int64
	ViewQueueDepth           int64
	ViewIngestLagCount       uint64
	ViewIngestLagTotalNs     int64
	AlertsEvaluated          uint64
	AlertsMatched            uint64
	DomainEventsPublished    uint64
	DomainEventsFailed       uint64
	DomainEventsDropped      uint64

	// Labelled counters.
	ApplicationStatusChanges map[string]uint64
	EmailsQueued             map[string]uint64
	EmailDeliveries          map[string]uint64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint
// and is used directly in tests.
type InMemoryRecorder struct {
	jobCacheHits          atomic.Uint64
	jobCacheMisses        atomic.Uint64
	jobLookupCount        atomic.Uint64
	jobLookupTotalNs      atomic.Int64
	jobsPublished         atomic.Uint64
	applicationsSubmitted atomic.Uint64

	viewEventsPublished      atomic.Uint64
	viewEventsDropped        atomic.Uint64
	viewEventsProcessed      atomic.Uint64
	viewEventsFailed         atomic.Uint64
	viewEventsSkipped        atomic.Uint64
	viewBatchCount           atomic.Uint64
	viewBatchEvents          atomic.Uint64
	viewBatchDurationTotalNs atomic.Int64
	viewQueueDepth           atomic.Int64
	viewIngestLagCount       atomic.Uint64
	viewIngestLagTotalNs     atomic.Int64

	alertsEvaluated       atomic.Uint64
	alertsMatched         atomic.Uint64
	domainEventsPublished atomic.Uint64
	domainEventsFailed    atomic.Uint64
	domainEventsDropped   atomic.Uint64

	mu              sync.Mutex
	statusChanges   map[string]uint64
	emailsQueued    map[string]uint64
	emailDeliveries map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		statusChanges:   make(map[string]uint64),
		emailsQueued:    make(map[string]uint64),
		emailDeliveries: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	statusChanges := maps.Clone(m.statusChanges)
	emailsQueued := maps.Clone(m.emailsQueued)
	emailDeliveries := maps.Clone(m.emailDeliveries)
	m.mu.Unlock()

	return Snapshot{
		JobCacheHits:             m.jobCacheHits.Load(),
		JobCacheMisses:           m.jobCacheMisses.Load(),
		JobLookupCount:           m.jobLookupCount.Load(),
		JobLookupTotalNs:         m.jobLookupTotalNs.Load(),
		JobsPublished:            m.jobsPublished.Load(),
		ApplicationsSubmitted:    m.applicationsSubmitted.Load(),
		ViewEventsPublished:      m.viewEventsPublished.Load(),
		ViewEventsDropped:        m.viewEventsDropped.Load(),
		ViewEventsProcessed:      m.viewEventsProcessed.Load(),
		ViewEventsFailed:         m.viewEventsFailed.Load(),
		ViewEventsSkipped:        m.viewEventsSkipped.Load(),
		ViewBatchCount:           m.viewBatchCount.Load(),
		ViewBatchEvents:          m.viewBatchEvents.Load(),
		ViewBatchDurationTotalNs: m.viewBatchDurationTotalNs.Load(),
		ViewQueueDepth:           m.viewQueueDepth.Load(),
		ViewIngestLagCount:       m.viewIngestLagCount.Load(),
		ViewIngestLagTotalNs:     m.viewIngestLagTotalNs.Load(),
		AlertsEvaluated:          m.alertsEvaluated.Load(),
		AlertsMatched:            m.alertsMatched.Load(),
		DomainEventsPublished:    m.domainEventsPublished.Load(),
		DomainEventsFailed:       m.domainEventsFailed.Load(),
		DomainEventsDropped:      m.domainEventsDropped.Load(),
		ApplicationStatusChanges: statusChanges,
		EmailsQueued:             emailsQueued,
		EmailDeliveries:          emailDeliveries,
	}
}

func (m *InMemoryRecorder) IncJobCacheHit()  { m.jobCacheHits.Add(1) }
func (m *InMemoryRecorder) IncJobCacheMiss() { m.jobCacheMisses.Add(1) }

func (m *InMemoryRecorder) ObserveJobLookupDuration(duration time.Duration) {
	m.jobLookupCount.Add(1)
	m.jobLookupTotalNs.Add(duration.Nanoseconds())
}

func (m *InMemoryRecorder) IncJobPublished()         { m.jobsPublished.Add(1) }
func (m *InMemoryRecorder) IncApplicationSubmitted() { m.applicationsSubmitted.Add(1) }

func (m *InMemoryRecorder) IncApplicationStatusChanged(status string) {
	m.incLabel(m.statusChanges, status)
}

func (m *InMemoryRecorder) IncViewEventPublished(status string) {
	if status == "dropped" {
		m.viewEventsDropped.Add(1)
		return
	}
	m.viewEventsPublished.Add(1)
}

func (m *InMemoryRecorder) IncViewEventProcessed(status string) {
	switch status {
	case "failed":
		m.viewEventsFailed.Add(1)
	case "skipped":
		m.viewEventsSkipped.Add(1)
	default:
		m.viewEventsProcessed.Add(1)
	}
}

func (m *InMemoryRecorder) ObserveViewBatchSize(size int) {
	m.viewBatchCount.Add(1)
	m.viewBatchEvents.Add(uint64(size))
}

func (m *InMemoryRecorder) ObserveViewBatchDuration(duration time.Duration) {
	m.viewBatchDurationTotalNs.Add(duration.Nanoseconds())
}

func (m *InMemoryRecorder) SetViewQueueDepth(depth int64) { m.viewQueueDepth.Store(depth) }

func (m *InMemoryRecorder) ObserveViewIngestLag(lag time.Duration) {
	m.viewIngestLagCount.Add(1)
	m.viewIngestLagTotalNs.Add(lag.Nanoseconds())
}

func (m *InMemoryRecorder) IncEmailQueued(template string) { m.incLabel(m.emailsQueued, template) }
func (m *InMemoryRecorder) IncEmailDelivery(status string) { m.incLabel(m.emailDeliveries, status) }

func (m *InMemoryRecorder) IncAlertEvaluated(matched bool) {
	m.alertsEvaluated.Add(1)
	if matched {
		m.alertsMatched.Add(1)
	}
}

func (m *InMemoryRecorder) IncDomainEventPublished(status string) {
	switch status {
	case "failed":
		m.domainEventsFailed.Add(1)
	case "dropped":
		m.domainEventsDropped.Add(1)
	default:
		m.domainEventsPublished.Add(1)
	}
}

func (m *InMemoryRecorder) incLabel(counters map[string]uint64, label string) {
	m.mu.Lock()
	counters[label]++
	m.mu.Unlock()
}
