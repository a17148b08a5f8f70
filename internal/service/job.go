package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/analytics"
	"github.com/hireline/hireline/internal/cache"
	"github.com/hireline/hireline/internal/events"
	"github.com/hireline/hireline/internal/metrics"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// Job errors.
var (
	ErrJobNotFound  = repository.ErrJobNotFound
	ErrClosesInPast = fmt.Errorf("%w: closes_at must be in the future", ErrValidation)
	ErrSalaryRange  = fmt.Errorf("%w: salary_min must not exceed salary_max", ErrValidation)
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 20000
	defaultCurrency      = "USD"
)

// ViewPublisher records job detail views.
type ViewPublisher interface {
	Record(event analytics.JobViewPayload)
}

// JobService handles job postings.
type JobService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	views   ViewPublisher
	events  events.Publisher
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewJobService creates a new JobService.
func NewJobService(repo *repository.Repository, c *cache.Cache, views ViewPublisher, publisher events.Publisher, recorder metrics.Recorder, logger *slog.Logger) *JobService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &JobService{
		repo:    repo,
		cache:   c,
		views:   views,
		events:  publisher,
		metrics: recorder,
		logger:  logger.With("component", "service.job"),
	}
}

// JobInput defines the editable job fields. Nil fields are left unchanged
// on update.
type JobInput struct {
	Title          *string
	Description    *string
	Location       *string
	EmploymentType *model.EmploymentType
	Remote         *bool
	SalaryMin      *int64
	SalaryMax      *int64
	Currency       *string
	Status         *model.JobStatus
	ClosesAt       *time.Time
	ClearClosesAt  bool
}

// CreateJob posts a job for a company the caller manages. Jobs start as
// drafts unless published directly.
func (s *JobService) CreateJob(ctx context.Context, actor *model.AuthContext, companyID string, input JobInput) (*model.Job, error) {
	if companyID == "" {
		return nil, invalid("company_id is required")
	}
	if input.Title == nil {
		return nil, invalid("title is required")
	}

	company, err := s.repo.GetCompanyByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, company.OwnerID) {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	postedBy := actor.UserID
	job := &model.Job{
		ID:             newID(),
		CompanyID:      company.ID,
		PostedBy:       &postedBy,
		EmploymentType: model.EmploymentFullTime,
		Currency:       defaultCurrency,
		Status:         model.JobStatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.Status != nil && *input.Status == model.JobStatusClosed {
		return nil, invalid("a new job must be draft or published")
	}
	if err := applyJobInput(job, input, now); err != nil {
		return nil, err
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("job created", "job_id", job.ID, "company_id", job.CompanyID, "status", job.Status)
	if job.Status == model.JobStatusPublished {
		s.published(job)
	}
	return job, nil
}

// GetJob returns a job visible to the caller. Public jobs are served
// cache-first; drafts and closed jobs are visible only to whoever manages
// the company and are reported as not found to everyone else.
func (s *JobService) GetJob(ctx context.Context, actor *model.AuthContext, id string) (*model.Job, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveJobLookupDuration(time.Since(start))
	}()

	cached, err := s.cache.GetJob(ctx, id)
	if err == nil {
		s.metrics.IncJobCacheHit()
		return cached, nil
	}
	if errors.Is(err, cache.ErrCacheMiss) {
		s.metrics.IncJobCacheMiss()
		if negative, _ := s.cache.IsNegativelyCached(ctx, id); negative && actor == nil {
			return nil, ErrJobNotFound
		}
	} else {
		s.logger.Warn("job cache read failed", "job_id", id, "error", err)
	}

	job, err := s.repo.GetJobByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			_ = s.cache.SetNegativeCache(ctx, id)
		}
		return nil, err
	}

	if job.IsPublic() {
		if err := s.cache.SetJob(ctx, job); err != nil {
			s.logger.Warn("job cache backfill failed", "job_id", id, "error", err)
		}
		return job, nil
	}

	_ = s.cache.SetNegativeCache(ctx, id)
	if actor != nil {
		if _, err := s.manageable(ctx, actor, job); err == nil {
			return job, nil
		}
	}
	return nil, ErrJobNotFound
}

// RecordView publishes a view event for a public job.
func (s *JobService) RecordView(job *model.Job, payload analytics.JobViewPayload) {
	if s.views == nil || !job.IsPublic() {
		return
	}
	s.views.Record(payload)
}

// ListJobsInput defines filters for listing jobs.
type ListJobsInput struct {
	PageRequest
	Query  model.JobQuery
	Status model.JobStatus
}

// ListJobs returns a page of jobs. Anonymous callers and plain searches
// only see published, open jobs. Other statuses are limited to the
// caller's own companies unless the caller is an admin.
func (s *JobService) ListJobs(ctx context.Context, actor *model.AuthContext, input ListJobsInput) (*Page[*model.Job], error) {
	if err := validateJobQuery(input.Query); err != nil {
		return nil, err
	}

	filter := repository.JobFilter{JobQuery: input.Query}
	switch {
	case input.Status == "" || input.Status == model.JobStatusPublished || actor == nil:
		filter.Status = model.JobStatusPublished
		filter.PublicOnly = true
	case !input.Status.IsValid():
		return nil, invalid("unknown status %q", input.Status)
	default:
		filter.Status = input.Status
		if !actor.IsAdmin() {
			filter.OwnerID = actor.UserID
		}
	}

	jobs, next, err := s.repo.ListJobs(ctx, filter, input.Cursor, input.limit())
	if err != nil {
		return nil, err
	}

	if actor != nil && input.Query.Q != "" && input.Cursor == "" {
		s.recordSearch(ctx, actor.UserID, input.Query)
	}
	return newPage(jobs, next), nil
}

func (s *JobService) recordSearch(ctx context.Context, userID string, q model.JobQuery) {
	search := &model.RecentSearch{
		ID:         newID(),
		UserID:     userID,
		Query:      q,
		SearchedAt: time.Now().UTC(),
	}
	if err := s.repo.RecordRecentSearch(ctx, search); err != nil {
		s.logger.Warn("failed to record recent search", "user_id", userID, "error", err)
	}
}

// UpdateJob applies a partial update, including status transitions.
func (s *JobService) UpdateJob(ctx context.Context, actor *model.AuthContext, id string, input JobInput) (*model.Job, error) {
	job, err := s.repo.GetJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.manageable(ctx, actor, job); err != nil {
		return nil, err
	}

	previous := job.Status
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, invalid("unknown status %q", *input.Status)
		}
		if !previous.CanTransitionTo(*input.Status) {
			return nil, ErrInvalidState
		}
	}
	if err := applyJobInput(job, input, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	s.evict(ctx, job.ID)

	if previous != job.Status {
		s.logger.Info("job status changed", "job_id", job.ID, "from", previous, "to", job.Status)
		switch job.Status {
		case model.JobStatusPublished:
			s.published(job)
		case model.JobStatusClosed:
			s.events.Publish(events.JobClosed, job.ID, job)
		}
	}
	return job, nil
}

// DeleteJob removes a job.
func (s *JobService) DeleteJob(ctx context.Context, actor *model.AuthContext, id string) error {
	job, err := s.repo.GetJobByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.manageable(ctx, actor, job); err != nil {
		return err
	}
	if err := s.repo.DeleteJob(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	s.logger.Info("job deleted", "job_id", id)
	return nil
}

// ManageableJob loads a job the caller may administer.
func (s *JobService) ManageableJob(ctx context.Context, actor *model.AuthContext, id string) (*model.Job, error) {
	job, err := s.repo.GetJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.manageable(ctx, actor, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobService) manageable(ctx context.Context, actor *model.AuthContext, job *model.Job) (*model.Company, error) {
	company, err := s.repo.GetCompanyByID(ctx, job.CompanyID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, company.OwnerID) {
		return nil, ErrForbidden
	}
	return company, nil
}

func (s *JobService) published(job *model.Job) {
	s.metrics.IncJobPublished()
	s.events.Publish(events.JobPublished, job.ID, job)
}

func (s *JobService) evict(ctx context.Context, id string) {
	if err := s.cache.DeleteJob(ctx, id); err != nil {
		s.logger.Warn("failed to evict job from cache", "job_id", id, "error", err)
	}
}

// applyJobInput validates and applies input to job. Moving into published
// stamps published_at with now.
func applyJobInput(job *model.Job, input JobInput, now time.Time) error {
	if input.Title != nil {
		if err := validateLength("title", *input.Title, 1, maxTitleLength); err != nil {
			return err
		}
		job.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		if err := validateLength("description", *input.Description, 0, maxDescriptionLength); err != nil {
			return err
		}
		job.Description = *input.Description
	}
	if input.Location != nil {
		if err := validateLength("location", *input.Location, 0, 200); err != nil {
			return err
		}
		job.Location = strings.TrimSpace(*input.Location)
	}
	if input.EmploymentType != nil {
		if !input.EmploymentType.IsValid() {
			return invalid("unknown employment_type %q", *input.EmploymentType)
		}
		job.EmploymentType = *input.EmploymentType
	}
	if input.Remote != nil {
		job.Remote = *input.Remote
	}
	if input.SalaryMin != nil {
		job.SalaryMin = input.SalaryMin
	}
	if input.SalaryMax != nil {
		job.SalaryMax = input.SalaryMax
	}
	if err := validateSalary(job.SalaryMin, job.SalaryMax); err != nil {
		return err
	}
	if input.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*input.Currency))
		if err := validateCurrency(currency); err != nil {
			return err
		}
		job.Currency = currency
	}
	if input.ClearClosesAt {
		job.ClosesAt = nil
	} else if input.ClosesAt != nil {
		if !input.ClosesAt.After(now) {
			return ErrClosesInPast
		}
		closesAt := input.ClosesAt.UTC()
		job.ClosesAt = &closesAt
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return invalid("unknown status %q", *input.Status)
		}
		if *input.Status == model.JobStatusPublished && job.Status != model.JobStatusPublished {
			published := now
			job.PublishedAt = &published
		}
		job.Status = *input.Status
	}
	return nil
}

func validateSalary(min, max *int64) error {
	if min != nil && *min < 0 {
		return invalid("salary_min must not be negative")
	}
	if max != nil && *max < 0 {
		return invalid("salary_max must not be negative")
	}
	if min != nil && max != nil && *min > *max {
		return ErrSalaryRange
	}
	return nil
}

func validateJobQuery(q model.JobQuery) error {
	if len(q.Q) > 200 {
		return invalid("q must be at most 200 characters")
	}
	if q.EmploymentType != "" && !q.EmploymentType.IsValid() {
		return invalid("unknown employment_type %q", q.EmploymentType)
	}
	if q.SalaryMin != nil && *q.SalaryMin < 0 {
		return invalid("salary_min must not be negative")
	}
	return nil
}
