package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hireline/hireline/internal/metrics"
	"github.com/hireline/hireline/internal/model"
)

// ConsumerGroup is shared by every API instance running the worker.
const ConsumerGroup = "job_view_aggregators"

const deadLetterMaxLen = 10000

// Repository persists job views. BulkInsert reports, per job, how many of
// the events were not already stored.
type Repository interface {
	BulkInsert(ctx context.Context, events []*model.JobViewEvent) (map[string]int64, error)
	UpdateDailyStats(ctx context.Context, events []*model.JobViewEvent) error
	IncrementViewCounts(ctx context.Context, deltas map[string]int64) error
}

// WorkerOptions tunes the stream consumer. Zero fields take defaults.
type WorkerOptions struct {
	ConsumerID   string
	BatchSize    int
	Block        time.Duration // XREADGROUP block
	ClaimEvery   time.Duration // pending scan interval
	ClaimIdle    time.Duration // idle time before a pending entry is stolen
	MetricsEvery time.Duration // queue depth refresh
	Attempts     int           // persist attempts per batch
}

func (o WorkerOptions) withDefaults() WorkerOptions {
	if o.ConsumerID == "" {
		o.ConsumerID = NewConsumerID()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.Block <= 0 {
		o.Block = 5 * time.Second
	}
	if o.ClaimEvery <= 0 {
		o.ClaimEvery = 10 * time.Second
	}
	if o.ClaimIdle <= 0 {
		o.ClaimIdle = 30 * time.Second
	}
	if o.MetricsEvery <= 0 {
		o.MetricsEvery = 5 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	return o
}

// Worker drains the job view stream into Postgres. Entries are acknowledged
// only after the batch is stored, so a crash redelivers them and the
// repository's idempotent insert absorbs the duplicates.
type Worker struct {
	rdb     *redis.Client
	repo    Repository
	logger  *slog.Logger
	metrics metrics.Recorder
	opts    WorkerOptions

	claimCursor string
	nextClaim   time.Time
	nextMetrics time.Time
}

// NewWorker creates a stream worker.
func NewWorker(rdb *redis.Client, repo Repository, logger *slog.Logger, recorder metrics.Recorder, opts WorkerOptions) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	opts = opts.withDefaults()
	return &Worker{
		rdb:         rdb,
		repo:        repo,
		logger:      logger.With("component", "analytics.worker", "consumer_id", opts.ConsumerID),
		metrics:     recorder,
		opts:        opts,
		claimCursor: "0-0",
	}
}

// Run consumes until ctx is cancelled. A cancelled context is not an error.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.joinGroup(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("join consumer group: %w", err)
	}
	w.logger.Info("analytics worker started", "batch_size", w.opts.BatchSize)

	for ctx.Err() == nil {
		if err := w.step(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("analytics step failed", "error", err)
			sleep(ctx, time.Second)
		}
	}
	w.logger.Info("analytics worker stopped")
	return nil
}

// joinGroup creates the stream and group, retrying while Redis is coming up.
func (w *Worker) joinGroup(ctx context.Context) error {
	create := func() error {
		err := w.rdb.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return err
		}
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.Retry(create, backoff.WithContext(bo, ctx))
}

// step handles one batch: stolen pending entries first, otherwise new ones.
func (w *Worker) step(ctx context.Context) error {
	w.refreshQueueDepth(ctx)

	msgs, err := w.claimStale(ctx)
	if err != nil {
		w.logger.Warn("pending claim failed", "error", err)
	}
	if len(msgs) == 0 {
		if msgs, err = w.read(ctx); err != nil {
			return err
		}
	}
	if len(msgs) == 0 {
		return nil
	}

	events := w.decode(ctx, msgs)
	if len(events) > 0 {
		if err := w.persistWithRetry(ctx, events); err != nil {
			for range events {
				w.metrics.IncViewEventProcessed("failed")
			}
			return fmt.Errorf("persist %d views: %w", len(events), err)
		}
	}

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if err := w.rdb.XAck(ctx, StreamKey, ConsumerGroup, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (w *Worker) read(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.opts.ConsumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.opts.BatchSize),
		Block:    w.opts.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

// claimStale takes over entries another consumer read but never acked.
func (w *Worker) claimStale(ctx context.Context) ([]redis.XMessage, error) {
	now := time.Now()
	if now.Before(w.nextClaim) {
		return nil, nil
	}
	w.nextClaim = now.Add(w.opts.ClaimEvery)

	msgs, next, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.opts.ConsumerID,
		MinIdle:  w.opts.ClaimIdle,
		Start:    w.claimCursor,
		Count:    int64(w.opts.BatchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if next != "" {
		w.claimCursor = next
	}
	if len(msgs) > 0 {
		w.logger.Info("claimed stale views", "count", len(msgs))
	}
	return msgs, nil
}

func (w *Worker) refreshQueueDepth(ctx context.Context) {
	now := time.Now()
	if now.Before(w.nextMetrics) {
		return
	}
	w.nextMetrics = now.Add(w.opts.MetricsEvery)

	groups, err := w.rdb.XInfoGroups(ctx, StreamKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			w.logger.Warn("stream group info failed", "error", err)
		}
		return
	}
	for _, g := range groups {
		if g.Name == ConsumerGroup {
			w.metrics.SetViewQueueDepth(g.Pending + g.Lag)
			return
		}
	}
}

// decode parses entries, sending unusable ones to the dead-letter stream.
// Dead-lettered entries are still acked by the caller.
func (w *Worker) decode(ctx context.Context, msgs []redis.XMessage) []*model.JobViewEvent {
	events := make([]*model.JobViewEvent, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["payload"].(string)
		if !ok {
			w.deadLetter(ctx, m, "invalid_format", "payload field missing or not a string")
			continue
		}
		ev, err := decodePayload(m.ID, raw)
		if err != nil {
			reason := "unmarshal_error"
			var perr *payloadError
			if errors.As(err, &perr) {
				reason = perr.reason
			}
			w.deadLetter(ctx, m, reason, err.Error())
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (w *Worker) deadLetter(ctx context.Context, m redis.XMessage, reason, detail string) {
	w.logger.Warn("dead-lettering job view", "message_id", m.ID, "reason", reason, "detail", detail)
	w.metrics.IncViewEventProcessed("skipped")

	err := w.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: deadLetterMaxLen,
		Approx: true,
		Values: map[string]any{
			"original_id":      m.ID,
			"reason":           reason,
			"detail":           detail,
			"payload":          m.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		w.logger.Error("dead-letter write failed", "message_id", m.ID, "error", err)
	}
}

func (w *Worker) persistWithRetry(ctx context.Context, events []*model.JobViewEvent) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(w.opts.Attempts-1)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := w.persist(ctx, events)
		if err != nil {
			w.logger.Warn("persist views failed", "attempt", attempt, "batch_size", len(events), "error", err)
		}
		return err
	}, policy)
}

// persist stores a batch. Only views new to the table bump jobs.view_count,
// so a redelivered batch does not double count.
func (w *Worker) persist(ctx context.Context, events []*model.JobViewEvent) error {
	start := time.Now()

	fresh, err := w.repo.BulkInsert(ctx, events)
	if err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}
	if err := w.repo.UpdateDailyStats(ctx, events); err != nil {
		return fmt.Errorf("daily stats: %w", err)
	}
	if err := w.repo.IncrementViewCounts(ctx, fresh); err != nil {
		return fmt.Errorf("view counts: %w", err)
	}

	took := time.Since(start)
	w.metrics.ObserveViewBatchSize(len(events))
	w.metrics.ObserveViewBatchDuration(took)
	for _, ev := range events {
		w.metrics.IncViewEventProcessed("success")
		w.metrics.ObserveViewIngestLag(time.Since(ev.ViewedAt))
	}
	w.logger.Debug("views persisted", "count", len(events), "duration", took)
	return nil
}

type payloadError struct {
	reason string
	err    error
}

func (e *payloadError) Error() string { return e.err.Error() }
func (e *payloadError) Unwrap() error { return e.err }

// decodePayload builds a view event whose EventID is the stream entry ID,
// the idempotency key of the insert.
func decodePayload(entryID, raw string) (*model.JobViewEvent, error) {
	var p JobViewPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, &payloadError{reason: "unmarshal_error", err: err}
	}
	if err := p.Validate(); err != nil {
		return nil, &payloadError{reason: "validation_error", err: err}
	}
	return &model.JobViewEvent{
		ID:          ulid.Make().String(),
		EventID:     entryID,
		JobID:       p.JobID,
		CompanyID:   p.CompanyID,
		Referrer:    p.Referrer,
		UserAgent:   p.UserAgent,
		VisitorHash: p.VisitorHash,
		CountryCode: p.CountryCode,
		ViewedAt:    time.UnixMilli(p.ViewedAt).UTC(),
	}, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
