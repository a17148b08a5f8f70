package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hireline/hireline/internal/metrics"
	"github.com/hireline/hireline/internal/model"
)

type fakeRepo struct {
	inserted   []*model.JobViewEvent
	increments map[string]int64
	statsCalls int
	insertErr  error
}

func (f *fakeRepo) BulkInsert(_ context.Context, events []*model.JobViewEvent) (map[string]int64, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, events...)
	counts := make(map[string]int64)
	for _, e := range events {
		counts[e.JobID]++
	}
	return counts, nil
}

func (f *fakeRepo) UpdateDailyStats(_ context.Context, _ []*model.JobViewEvent) error {
	f.statsCalls++
	return nil
}

func (f *fakeRepo) IncrementViewCounts(_ context.Context, deltas map[string]int64) error {
	if f.increments == nil {
		f.increments = make(map[string]int64)
	}
	for id, n := range deltas {
		f.increments[id] += n
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodePayload(t *testing.T) {
	t.Parallel()

	viewedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(JobViewPayload{
		JobID:       "job-1",
		CompanyID:   "co-1",
		VisitorHash: visitorHash("10.0.0.1", "ua", viewedAt),
		ViewedAt:    viewedAt.UnixMilli(),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	event, err := decodePayload("1700000000000-0", string(raw))
	if err != nil {
		t.Fatalf("decodePayload: %v", err)
	}
	if event.EventID != "1700000000000-0" {
		t.Errorf("EventID = %q", event.EventID)
	}
	if event.JobID != "job-1" || event.CompanyID != "co-1" {
		t.Errorf("unexpected ids: %+v", event)
	}
	if !event.ViewedAt.Equal(viewedAt) {
		t.Errorf("ViewedAt = %v, want %v", event.ViewedAt, viewedAt)
	}
	if len(event.ID) != 26 {
		t.Errorf("ID should be a ULID, got %q", event.ID)
	}
}

func TestDecodePayload_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{"not json", "{", "unmarshal_error"},
		{"missing job", `{"cid":"c","vh":"0123456789abcdef","t":1}`, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := decodePayload("1-0", tt.raw)
			var perr *payloadError
			if !errors.As(err, &perr) {
				t.Fatalf("expected payloadError, got %v", err)
			}
			if perr.reason != tt.reason {
				t.Errorf("reason = %q, want %q", perr.reason, tt.reason)
			}
		})
	}
}

func newTestWorker(repo Repository, recorder metrics.Recorder) *Worker {
	return NewWorker(nil, repo, testLogger(), recorder, WorkerOptions{
		ConsumerID: "test-consumer",
		Attempts:   2,
	})
}

func TestWorkerOptions_Defaults(t *testing.T) {
	t.Parallel()

	got := WorkerOptions{ConsumerID: "c1", BatchSize: 50}.withDefaults()
	if got.ConsumerID != "c1" || got.BatchSize != 50 {
		t.Errorf("explicit values overwritten: %+v", got)
	}
	if got.Block != 5*time.Second || got.ClaimIdle != 30*time.Second || got.Attempts != 3 {
		t.Errorf("unexpected defaults: %+v", got)
	}
	if (WorkerOptions{}).withDefaults().ConsumerID == "" {
		t.Error("empty consumer id not generated")
	}
}

func TestPersist_IncrementsOnlyFreshViews(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	recorder := metrics.NewInMemory()
	w := newTestWorker(repo, recorder)

	now := time.Now().UTC()
	events := []*model.JobViewEvent{
		{ID: "a", EventID: "1-0", JobID: "job-1", CompanyID: "c", ViewedAt: now},
		{ID: "b", EventID: "2-0", JobID: "job-1", CompanyID: "c", ViewedAt: now},
		{ID: "c", EventID: "3-0", JobID: "job-2", CompanyID: "c", ViewedAt: now},
	}

	if err := w.persist(context.Background(), events); err != nil {
		t.Fatalf("persist: %v", err)
	}

	if repo.statsCalls != 1 {
		t.Errorf("UpdateDailyStats calls = %d, want 1", repo.statsCalls)
	}
	if repo.increments["job-1"] != 2 || repo.increments["job-2"] != 1 {
		t.Errorf("increments = %v", repo.increments)
	}

	snap := recorder.Snapshot()
	if snap.ViewEventsProcessed != 3 {
		t.Errorf("ViewEventsProcessed = %d, want 3", snap.ViewEventsProcessed)
	}
	if snap.ViewBatchCount != 1 {
		t.Errorf("ViewBatchCount = %d, want 1", snap.ViewBatchCount)
	}
}

func TestPersist_InsertErrorLeavesCounts(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{insertErr: errors.New("db down")}
	w := newTestWorker(repo, nil)

	events := []*model.JobViewEvent{{ID: "a", EventID: "1-0", JobID: "job-1", ViewedAt: time.Now()}}
	if err := w.persist(context.Background(), events); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.increments) != 0 {
		t.Error("view counts changed although the insert failed")
	}
}

type flakyRepo struct {
	fakeRepo
	failures int
	calls    int
}

func (f *flakyRepo) BulkInsert(ctx context.Context, events []*model.JobViewEvent) (map[string]int64, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient")
	}
	return f.fakeRepo.BulkInsert(ctx, events)
}

func TestPersistWithRetry(t *testing.T) {
	t.Parallel()

	events := []*model.JobViewEvent{{ID: "a", EventID: "1-0", JobID: "job-1", ViewedAt: time.Now()}}

	tests := []struct {
		name      string
		failures  int
		wantErr   bool
		wantCalls int
	}{
		{"first try", 0, false, 1},
		{"recovers", 1, false, 2},
		{"gives up", 5, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &flakyRepo{failures: tt.failures}
			w := newTestWorker(repo, nil)

			err := w.persistWithRetry(context.Background(), events)
			if (err != nil) != tt.wantErr {
				t.Fatalf("persistWithRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if repo.calls != tt.wantCalls {
				t.Errorf("BulkInsert calls = %d, want %d", repo.calls, tt.wantCalls)
			}
		})
	}
}
