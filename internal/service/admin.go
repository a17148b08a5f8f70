package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hireline/hireline/internal/mailer"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// PlatformStats is an operational overview for administrators.
type PlatformStats struct {
	GeneratedAt     time.Time                         `json:"generated_at"`
	Users           map[model.Role]int64              `json:"users"`
	Companies       int64                             `json:"companies"`
	Jobs            map[model.JobStatus]int64         `json:"jobs"`
	Applications    map[model.ApplicationStatus]int64 `json:"applications"`
	InvoicedCents   map[model.InvoiceStatus]int64     `json:"invoiced_cents"`
	Emails          map[model.EmailStatus]int64       `json:"emails"`
	EmailQueueDepth int64                             `json:"email_queue_depth"`
	ActiveAlerts    int64                             `json:"active_alerts"`
}

// AdminService aggregates platform-wide counters.
type AdminService struct {
	repo   *repository.Repository
	emails *mailer.Repository
	logger *slog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(repo *repository.Repository, emails *mailer.Repository, logger *slog.Logger) *AdminService {
	return &AdminService{
		repo:   repo,
		emails: emails,
		logger: logger.With("component", "service.admin"),
	}
}

// Stats collects counts across every domain.
func (s *AdminService) Stats(ctx context.Context) (*PlatformStats, error) {
	stats := &PlatformStats{GeneratedAt: time.Now().UTC()}

	var err error
	if stats.Users, err = s.repo.CountUsersByRole(ctx); err != nil {
		return nil, err
	}
	if stats.Companies, err = s.repo.CountCompanies(ctx); err != nil {
		return nil, err
	}
	if stats.Jobs, err = s.repo.CountJobsByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.Applications, err = s.repo.CountApplicationsByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.InvoicedCents, err = s.repo.SumInvoicesByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveAlerts, err = s.repo.CountEnabledSavedSearches(ctx); err != nil {
		return nil, err
	}
	if stats.Emails, err = s.emails.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.EmailQueueDepth, err = s.emails.QueueDepth(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}
