// Package alert evaluates saved searches and emails digests of new jobs.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hireline/hireline/internal/mailer"
	"github.com/hireline/hireline/internal/metrics"
	"github.com/hireline/hireline/internal/model"
)

const (
	// DefaultPollInterval is the time between scans for due alerts.
	DefaultPollInterval = time.Minute
	// DefaultBatchSize is the number of alerts claimed per scan.
	DefaultBatchSize = 100
	// maxJobsPerDigest bounds the job list of one email.
	maxJobsPerDigest = 20
	// claimLease hides claimed alerts from other schedulers.
	claimLease = 5 * time.Minute
)

// Store is the persistence used by Scheduler.
type Store interface {
	ClaimDueSavedSearches(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.SavedSearch, error)
	MarkSavedSearchRun(ctx context.Context, id string, ranAt, nextRunAt time.Time) error
	FindNewJobs(ctx context.Context, q model.JobQuery, since time.Time, limit int) ([]*model.Job, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Notifier queues outbound email.
type Notifier interface {
	Queue(ctx context.Context, msg mailer.Message) (*model.EmailLog, error)
}

// DigestJob is one line of a job alert email.
type DigestJob struct {
	ID       string
	Title    string
	Location string
}

// Digest is the template data of a job alert email.
type Digest struct {
	AlertName string
	Jobs      []DigestJob
}

// Scheduler periodically evaluates due saved searches.
type Scheduler struct {
	store        Store
	notifier     Notifier
	logger       *slog.Logger
	metrics      metrics.Recorder
	batchSize    int
	pollInterval time.Duration
	now          func() time.Time
	started      bool
}

// NewScheduler creates a new alert scheduler.
func NewScheduler(store Store, notifier Notifier, logger *slog.Logger, recorder metrics.Recorder) *Scheduler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Scheduler{
		store:        store,
		notifier:     notifier,
		logger:       logger.With("component", "alert.scheduler"),
		metrics:      recorder,
		batchSize:    DefaultBatchSize,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
	}
}

// Run starts the scheduler loop. Blocks until context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.started {
		return errors.New("scheduler already started")
	}
	s.started = true

	s.logger.Info("alert scheduler started", "poll_interval", s.pollInterval)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("alert scheduler stopping")
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				s.logger.Error("alert scan failed", "error", err)
			}
		}
	}
}

// RunOnce claims one batch of due alerts and evaluates them. It returns the
// number of alerts evaluated.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.now().UTC()
	alerts, err := s.store.ClaimDueSavedSearches(ctx, now, claimLease, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due alerts: %w", err)
	}

	evaluated := 0
	for _, a := range alerts {
		if err := s.evaluate(ctx, a, now); err != nil {
			// The lease expires and the alert is picked up again.
			s.logger.Warn("alert evaluation failed", "alert_id", a.ID, "error", err)
			continue
		}
		evaluated++
	}
	return evaluated, nil
}

// evaluate finds jobs published since the previous run, queues a digest when
// any match and schedules the next run.
func (s *Scheduler) evaluate(ctx context.Context, a *model.SavedSearch, now time.Time) error {
	user, err := s.store.GetUserByID(ctx, a.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	var jobs []*model.Job
	if user.IsActive {
		jobs, err = s.store.FindNewJobs(ctx, a.Query, a.Since(now), maxJobsPerDigest)
		if err != nil {
			return fmt.Errorf("find new jobs: %w", err)
		}
	}

	if len(jobs) > 0 {
		_, err := s.notifier.Queue(ctx, mailer.Message{
			UserID:   user.ID,
			To:       user.Email,
			Template: model.TemplateJobAlert,
			Data:     newDigest(a.Name, jobs),
		})
		if err != nil {
			return fmt.Errorf("queue digest: %w", err)
		}
	}
	s.metrics.IncAlertEvaluated(len(jobs) > 0)

	if err := s.store.MarkSavedSearchRun(ctx, a.ID, now, now.Add(a.Frequency.Interval())); err != nil {
		return fmt.Errorf("mark run: %w", err)
	}

	s.logger.Debug("alert evaluated", "alert_id", a.ID, "user_id", a.UserID, "matches", len(jobs))
	return nil
}

func newDigest(name string, jobs []*model.Job) Digest {
	d := Digest{AlertName: name, Jobs: make([]DigestJob, 0, len(jobs))}
	for _, j := range jobs {
		d.Jobs = append(d.Jobs, DigestJob{ID: j.ID, Title: j.Title, Location: j.Location})
	}
	return d
}

// SetPollInterval overrides the default poll interval.
func (s *Scheduler) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		s.pollInterval = interval
	}
}

// SetBatchSize overrides the default batch size.
func (s *Scheduler) SetBatchSize(size int) {
	if size > 0 {
		s.batchSize = size
	}
}
