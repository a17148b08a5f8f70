// Package mailer queues outbound email and delivers it to the mail relay.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hireline/hireline/internal/metrics"
	"github.com/hireline/hireline/internal/model"
)

// Store is the persistence used by Mailer.
type Store interface {
	Insert(ctx context.Context, e *model.EmailLog) error
}

// Message is an email to be rendered and queued.
type Message struct {
	UserID   string // optional
	To       string
	Template string
	Data     any
}

// Mailer renders templates and writes queued email logs. Delivery happens
// asynchronously in Worker.
type Mailer struct {
	store   Store
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// New creates a Mailer.
func New(store Store, logger *slog.Logger, recorder metrics.Recorder) *Mailer {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Mailer{
		store:   store,
		logger:  logger.With("component", "mailer"),
		metrics: recorder,
		now:     time.Now,
	}
}

// Queue renders and stores an email for delivery.
func (m *Mailer) Queue(ctx context.Context, msg Message) (*model.EmailLog, error) {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	subject, body, err := Render(msg.Template, msg.Data)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	e := &model.EmailLog{
		ID:            ulid.Make().String(),
		ToAddress:     msg.To,
		Subject:       subject,
		Template:      msg.Template,
		Body:          body,
		Status:        model.EmailStatusQueued,
		MaxAttempts:   DefaultMaxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if msg.UserID != "" {
		e.UserID = &msg.UserID
	}

	if err := m.store.Insert(ctx, e); err != nil {
		return nil, err
	}

	m.metrics.IncEmailQueued(msg.Template)
	return e, nil
}

// QueueBestEffort queues an email and logs instead of failing. Used for
// notifications that must not roll back the request that triggered them.
func (m *Mailer) QueueBestEffort(ctx context.Context, msg Message) {
	if _, err := m.Queue(ctx, msg); err != nil {
		m.logger.Warn("failed to queue email",
			"template", msg.Template,
			"user_id", msg.UserID,
			"error", err,
		)
	}
}
