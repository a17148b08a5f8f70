package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counters(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncJobCacheHit()
	m.IncJobCacheHit()
	m.IncJobCacheMiss()
	m.ObserveJobLookupDuration(2 * time.Millisecond)
	m.IncViewEventPublished("success")
	m.IncViewEventPublished("dropped")
	m.IncViewEventProcessed("skipped")
	m.ObserveViewBatchSize(7)
	m.SetViewQueueDepth(42)
	m.IncAlertEvaluated(true)
	m.IncAlertEvaluated(false)
	m.IncDomainEventPublished("failed")

	snap := m.Snapshot()

	if snap.JobCacheHits != 2 || snap.JobCacheMisses != 1 {
		t.Errorf("cache hits/misses = %d/%d, want 2/1", snap.JobCacheHits, snap.JobCacheMisses)
	}
	if snap.JobLookupTotalNs != (2 * time.Millisecond).Nanoseconds() {
		t.Errorf("JobLookupTotalNs = %d", snap.JobLookupTotalNs)
	}
	if snap.ViewEventsPublished != 1 || snap.ViewEventsDropped != 1 {
		t.Errorf("view events published/dropped = %d/%d, want 1/1", snap.ViewEventsPublished, snap.ViewEventsDropped)
	}
	if snap.ViewEventsSkipped != 1 {
		t.Errorf("ViewEventsSkipped = %d, want 1", snap.ViewEventsSkipped)
	}
	if snap.ViewBatchCount != 1 || snap.ViewBatchEvents != 7 {
		t.Errorf("batch count/events = %d/%d, want 1/7", snap.ViewBatchCount, snap.ViewBatchEvents)
	}
	if snap.ViewQueueDepth != 42 {
		t.Errorf("ViewQueueDepth = %d, want 42", snap.ViewQueueDepth)
	}
	if snap.AlertsEvaluated != 2 || snap.AlertsMatched != 1 {
		t.Errorf("alerts evaluated/matched = %d/%d, want 2/1", snap.AlertsEvaluated, snap.AlertsMatched)
	}
	if snap.DomainEventsFailed != 1 {
		t.Errorf("DomainEventsFailed = %d, want 1", snap.DomainEventsFailed)
	}
}

func TestInMemoryRecorder_LabelledConcurrent(t *testing.T) {
	t.Parallel()

	m := NewInMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncEmailQueued("welcome")
			m.IncEmailDelivery("sent")
			m.IncApplicationStatusChanged("reviewing")
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.EmailsQueued["welcome"] != 50 {
		t.Errorf("EmailsQueued[welcome] = %d, want 50", snap.EmailsQueued["welcome"])
	}
	if snap.EmailDeliveries["sent"] != 50 {
		t.Errorf("EmailDeliveries[sent] = %d, want 50", snap.EmailDeliveries["sent"])
	}
	if snap.ApplicationStatusChanges["reviewing"] != 50 {
		t.Errorf("ApplicationStatusChanges[reviewing] = %d, want 50", snap.ApplicationStatusChanges["reviewing"])
	}

	// Snapshot maps are copies.
	snap.EmailsQueued["welcome"] = 0
	if m.Snapshot().EmailsQueued["welcome"] != 50 {
		t.Error("mutating a snapshot should not affect the recorder")
	}
}

func TestNoopRecorder_ImplementsRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IncJobCacheHit()
	r.IncEmailDelivery("sent")

	var _ Recorder = NewInMemory()
}
