// Package analytics captures job detail views and aggregates them into
// per-day statistics.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hireline/hireline/internal/metrics"
)

const (
	StreamKey           = "stream:job_views"
	DeadLetterStreamKey = "stream:job_views:dlq"

	// MaxStreamLen trims the stream approximately; the worker normally keeps
	// it far below this.
	MaxStreamLen = 100000

	publishTimeout = 100 * time.Millisecond
	maxInFlight    = 256
)

// Publisher appends view events to the Redis stream.
type Publisher struct {
	rdb      *redis.Client
	logger   *slog.Logger
	metrics  metrics.Recorder
	inFlight chan struct{}
}

// NewPublisher creates a Publisher.
func NewPublisher(rdb *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		rdb:      rdb,
		logger:   logger.With("component", "analytics.publisher"),
		metrics:  recorder,
		inFlight: make(chan struct{}, maxInFlight),
	}
}

// Publish appends one event and returns its stream entry ID.
func (p *Publisher) Publish(ctx context.Context, ev JobViewPayload) (string, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal view: %w", err)
	}
	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		Values: map[string]any{"payload": string(body)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", StreamKey, err)
	}
	return id, nil
}

// Record publishes in the background so a slow Redis never delays the job
// page. Views beyond maxInFlight pending writes are dropped and counted.
func (p *Publisher) Record(ev JobViewPayload) {
	select {
	case p.inFlight <- struct{}{}:
	default:
		p.metrics.IncViewEventPublished("dropped")
		p.logger.Warn("view dropped, publisher saturated", "job_id", ev.JobID)
		return
	}

	go func() {
		defer func() { <-p.inFlight }()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		id, err := p.Publish(ctx, ev)
		if err != nil {
			p.metrics.IncViewEventPublished("dropped")
			p.logger.Warn("view publish failed", "job_id", ev.JobID, "error", err)
			return
		}
		p.metrics.IncViewEventPublished("success")
		p.logger.Debug("view published", "job_id", ev.JobID, "stream_id", id)
	}()
}
