package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hireline/hireline/internal/metrics"
	"github.com/hireline/hireline/internal/model"
)

const (
	// DefaultBatchSize is the number of emails to process per poll.
	DefaultBatchSize = 50
	// DefaultPollInterval is the time between polling for due emails.
	DefaultPollInterval = 5 * time.Second
	// DefaultMetricsInterval is how often to update queue depth metrics.
	DefaultMetricsInterval = 10 * time.Second
	// claimLease is how long a claimed email is hidden from other workers.
	claimLease = 2 * time.Minute
)

// Queue is the persistence used by Worker.
type Queue interface {
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.EmailLog, error)
	MarkSent(ctx context.Context, id string, httpStatus int, now time.Time) error
	MarkFailed(ctx context.Context, id string, httpStatus *int, errMsg string, now, nextAttemptAt time.Time, exhausted bool) error
	QueueDepth(ctx context.Context) (int64, error)
}

// WorkerConfig configures the relay target.
type WorkerConfig struct {
	RelayURL    string
	RelaySecret string
	From        string
}

// Worker delivers queued emails to the mail relay.
type Worker struct {
	queue           Queue
	cfg             WorkerConfig
	client          *http.Client
	logger          *slog.Logger
	metrics         metrics.Recorder
	batchSize       int
	pollInterval    time.Duration
	metricsInterval time.Duration
	lastMetrics     time.Time
	now             func() time.Time
	started         bool
}

// NewWorker creates a new email delivery worker.
func NewWorker(queue Queue, cfg WorkerConfig, logger *slog.Logger, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		queue:           queue,
		cfg:             cfg,
		client:          NewHTTPClient(),
		logger:          logger.With("component", "mailer.worker"),
		metrics:         recorder,
		batchSize:       DefaultBatchSize,
		pollInterval:    DefaultPollInterval,
		metricsInterval: DefaultMetricsInterval,
		now:             time.Now,
	}
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.started {
		return errors.New("worker already started")
	}
	w.started = true

	w.logger.Info("mailer worker started", "relay_configured", w.cfg.RelayURL != "")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("mailer worker stopping")
			return nil
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
			}
		}
	}
}

// processOnce claims and delivers a batch of due emails.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	emails, err := w.queue.ClaimDue(ctx, w.now(), claimLease, w.batchSize)
	if err != nil {
		return fmt.Errorf("claim due emails: %w", err)
	}

	for _, e := range emails {
		if err := w.deliver(ctx, e); err != nil {
			w.logger.Warn("delivery bookkeeping failed", "email_id", e.ID, "error", err)
		}
	}
	return nil
}

// deliver sends a single email to the relay and records the outcome.
func (w *Worker) deliver(ctx context.Context, e *model.EmailLog) error {
	if w.cfg.RelayURL == "" {
		return w.handleFailure(ctx, e, nil, "mail relay not configured")
	}

	payload, err := json.Marshal(model.RelayMessage{
		ID:       e.ID,
		From:     w.cfg.From,
		To:       e.ToAddress,
		Subject:  e.Subject,
		Template: e.Template,
		Body:     e.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal relay message: %w", err)
	}

	timestamp := w.now().Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.RelayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	SetRelayHeaders(req, RelayHeaders{
		Signature:  GenerateSignature(w.cfg.RelaySecret, timestamp, payload),
		Timestamp:  strconv.FormatInt(timestamp, 10),
		DeliveryID: e.ID,
	})

	start := time.Now()
	resp, err := w.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return w.handleFailure(ctx, e, nil, err.Error())
	}
	defer resp.Body.Close()

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.logger.Info("email delivered",
			"email_id", e.ID,
			"template", e.Template,
			"http_status", resp.StatusCode,
			"duration_ms", duration.Milliseconds(),
		)
		w.metrics.IncEmailDelivery(string(model.EmailStatusSent))
		return w.queue.MarkSent(ctx, e.ID, resp.StatusCode, w.now())
	}

	return w.handleFailure(ctx, e, &resp.StatusCode, fmt.Sprintf("HTTP %d", resp.StatusCode))
}

// handleFailure records a failed attempt and schedules the next one.
func (w *Worker) handleFailure(ctx context.Context, e *model.EmailLog, httpStatus *int, errMsg string) error {
	attempts := e.AttemptCount + 1
	exhausted := IsExhausted(attempts, e.MaxAttempts)

	status := model.EmailStatusFailed
	if exhausted {
		status = model.EmailStatusExhausted
	}

	w.logger.Warn("email delivery failed",
		"email_id", e.ID,
		"attempt", attempts,
		"exhausted", exhausted,
		"error", errMsg,
	)
	w.metrics.IncEmailDelivery(string(status))

	now := w.now()
	return w.queue.MarkFailed(ctx, e.ID, httpStatus, errMsg, now, NextRetryAt(now, attempts-1), exhausted)
}

// maybeUpdateQueueDepth periodically updates the queue depth log.
func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	depth, err := w.queue.QueueDepth(ctx)
	if err != nil {
		w.logger.Warn("failed to get queue depth", "error", err)
		return
	}
	if depth > 0 {
		w.logger.Debug("mail queue depth", "depth", depth)
	}
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// SetPollInterval overrides the default poll interval.
func (w *Worker) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		w.pollInterval = interval
	}
}
