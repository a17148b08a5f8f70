package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hireline/hireline/internal/mailer"
	"github.com/hireline/hireline/internal/model"
)

// Email errors.
var (
	ErrEmailNotFound     = mailer.ErrEmailNotFound
	ErrEmailNotRetryable = mailer.ErrEmailNotRetryable
)

// EmailService exposes the outbound email log.
type EmailService struct {
	repo   *mailer.Repository
	logger *slog.Logger
}

// NewEmailService creates a new EmailService.
func NewEmailService(repo *mailer.Repository, logger *slog.Logger) *EmailService {
	return &EmailService{
		repo:   repo,
		logger: logger.With("component", "service.email"),
	}
}

// ListEmailsInput defines filters for listing email logs.
type ListEmailsInput struct {
	PageRequest
	// UserID is honored for admins only.
	UserID   string
	Statuses []model.EmailStatus
}

// ListEmails returns the caller's email logs. Admins see every log unless
// UserID narrows the list.
func (s *EmailService) ListEmails(ctx context.Context, actor *model.AuthContext, input ListEmailsInput) (*Page[*model.EmailLog], error) {
	for _, status := range input.Statuses {
		if !validEmailStatus(status) {
			return nil, invalid("unknown email status %q", status)
		}
	}

	filter := mailer.ListFilter{Statuses: input.Statuses, UserID: actor.UserID}
	if actor.IsAdmin() {
		filter.UserID = input.UserID
	}

	emails, next, err := s.repo.List(ctx, filter, input.Cursor, input.limit())
	if err != nil {
		return nil, err
	}
	return newPage(emails, next), nil
}

// GetEmail returns an email log addressed to the caller.
func (s *EmailService) GetEmail(ctx context.Context, actor *model.AuthContext, id string) (*model.EmailLog, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return e, nil
	}
	if e.UserID == nil || *e.UserID != actor.UserID {
		return nil, ErrEmailNotFound
	}
	return e, nil
}

// RetryEmail requeues a failed or exhausted email with a fresh attempt
// budget. Admin only.
func (s *EmailService) RetryEmail(ctx context.Context, actor *model.AuthContext, id string) (*model.EmailLog, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	e, err := s.repo.ResetForRetry(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("email requeued", "email_id", e.ID, "by", actor.UserID)
	return e, nil
}

func validEmailStatus(status model.EmailStatus) bool {
	switch status {
	case model.EmailStatusQueued, model.EmailStatusSent, model.EmailStatusFailed, model.EmailStatusExhausted:
		return true
	}
	return false
}
