package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hireline/hireline/internal/events"
	"github.com/hireline/hireline/internal/mailer"
	"github.com/hireline/hireline/internal/metrics"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// Application errors.
var (
	ErrApplicationNotFound = repository.ErrApplicationNotFound
	ErrApplicationExists   = repository.ErrApplicationExists
	ErrStatusChanged       = repository.ErrStatusChanged
	ErrJobNotAccepting     = errors.New("job is not accepting applications")
)

const maxCoverLetterLength = 10000

// ApplicationService handles candidate submissions and the hiring pipeline.
type ApplicationService struct {
	repo    *repository.Repository
	mailer  *mailer.Mailer
	events  events.Publisher
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(repo *repository.Repository, m *mailer.Mailer, publisher events.Publisher, recorder metrics.Recorder, logger *slog.Logger) *ApplicationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ApplicationService{
		repo:    repo,
		mailer:  m,
		events:  publisher,
		metrics: recorder,
		logger:  logger.With("component", "service.application"),
	}
}

// SubmitInput defines input for applying to a job.
type SubmitInput struct {
	JobID       string
	ResumeID    *string
	CoverLetter string
}

// Submit applies the calling candidate to a published job and notifies the
// company owner.
func (s *ApplicationService) Submit(ctx context.Context, actor *model.AuthContext, input SubmitInput) (*model.Application, error) {
	if actor.Role != model.RoleCandidate {
		return nil, ErrForbidden
	}
	if input.JobID == "" {
		return nil, invalid("job_id is required")
	}
	if len(input.CoverLetter) > maxCoverLetterLength {
		return nil, invalid("cover_letter must be at most %d characters", maxCoverLetterLength)
	}

	job, err := s.repo.GetJobByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if !job.AcceptsApplications() {
		return nil, ErrJobNotAccepting
	}

	if input.ResumeID != nil && *input.ResumeID != "" {
		resume, err := s.repo.GetResumeByID(ctx, *input.ResumeID)
		if err != nil {
			return nil, err
		}
		if resume.UserID != actor.UserID {
			return nil, ErrResumeNotFound
		}
	} else {
		input.ResumeID = nil
	}

	now := time.Now().UTC()
	app := &model.Application{
		ID:          newID(),
		JobID:       job.ID,
		CandidateID: actor.UserID,
		ResumeID:    input.ResumeID,
		CoverLetter: input.CoverLetter,
		Status:      model.ApplicationSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	s.logger.Info("application submitted", "application_id", app.ID, "job_id", job.ID)
	s.metrics.IncApplicationSubmitted()
	s.events.Publish(events.ApplicationSubmitted, app.ID, app)
	s.notifyEmployer(ctx, job, app)
	return app, nil
}

// ListApplicationsInput defines filters for listing applications.
type ListApplicationsInput struct {
	PageRequest
	JobID  string
	Status model.ApplicationStatus
}

// ListApplications returns the applications visible to the caller:
// candidates see their own, employers those on their jobs, admins all.
func (s *ApplicationService) ListApplications(ctx context.Context, actor *model.AuthContext, input ListApplicationsInput) (*Page[*model.Application], error) {
	if input.Status != "" && !input.Status.IsValid() {
		return nil, invalid("unknown status %q", input.Status)
	}

	filter := repository.ApplicationFilter{JobID: input.JobID, Status: input.Status}
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleEmployer:
		filter.EmployerID = actor.UserID
	default:
		filter.CandidateID = actor.UserID
	}

	apps, next, err := s.repo.ListApplications(ctx, filter, input.Cursor, input.limit())
	if err != nil {
		return nil, err
	}
	return newPage(apps, next), nil
}

// GetApplication returns an application to its candidate, the job owner or
// an admin. Anyone else gets ErrApplicationNotFound.
func (s *ApplicationService) GetApplication(ctx context.Context, actor *model.AuthContext, id string) (*model.Application, error) {
	app, err := s.repo.GetApplicationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.CandidateID == actor.UserID || actor.IsAdmin() {
		return app, nil
	}
	if _, ok, err := s.jobManagedBy(ctx, actor, app.JobID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrApplicationNotFound
	}
	return app, nil
}

// ChangeStatus moves an application through the pipeline. Employers advance
// or reject; candidates may only withdraw.
func (s *ApplicationService) ChangeStatus(ctx context.Context, actor *model.AuthContext, id string, next model.ApplicationStatus, note string) (*model.Application, error) {
	if !next.IsValid() {
		return nil, invalid("unknown status %q", next)
	}
	if len(note) > 2000 {
		return nil, invalid("note must be at most 2000 characters")
	}

	app, err := s.repo.GetApplicationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	job, manages, err := s.jobManagedBy(ctx, actor, app.JobID)
	if err != nil {
		return nil, err
	}

	current := app.Status
	switch {
	case manages:
		if !current.EmployerCanMove(next) {
			return nil, ErrInvalidState
		}
	case app.CandidateID == actor.UserID:
		if !current.CandidateCanMove(next) {
			return nil, ErrInvalidState
		}
	default:
		return nil, ErrApplicationNotFound
	}

	app.Status = next
	app.StatusNote = note
	if err := s.repo.UpdateApplicationStatus(ctx, app, current); err != nil {
		return nil, err
	}

	s.logger.Info("application status changed",
		"application_id", app.ID,
		"from", current,
		"to", next,
	)
	s.metrics.IncApplicationStatusChanged(string(next))
	s.events.Publish(events.ApplicationStatusChanged, app.ID, map[string]any{
		"application_id": app.ID,
		"job_id":         app.JobID,
		"candidate_id":   app.CandidateID,
		"from":           current,
		"to":             next,
	})
	s.notifyCandidate(ctx, job, app)
	return app, nil
}

// jobManagedBy loads the job and reports whether actor manages its company.
func (s *ApplicationService) jobManagedBy(ctx context.Context, actor *model.AuthContext, jobID string) (*model.Job, bool, error) {
	job, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	if actor.IsAdmin() {
		return job, true, nil
	}
	company, err := s.repo.GetCompanyByID(ctx, job.CompanyID)
	if err != nil {
		return nil, false, err
	}
	return job, company.OwnerID == actor.UserID, nil
}

func (s *ApplicationService) notifyEmployer(ctx context.Context, job *model.Job, app *model.Application) {
	company, err := s.repo.GetCompanyByID(ctx, job.CompanyID)
	if err != nil {
		s.logger.Warn("skip employer notification", "job_id", job.ID, "error", err)
		return
	}
	owner, err := s.repo.GetUserByID(ctx, company.OwnerID)
	if err != nil {
		s.logger.Warn("skip employer notification", "job_id", job.ID, "error", err)
		return
	}
	candidate, err := s.repo.GetUserByID(ctx, app.CandidateID)
	if err != nil {
		s.logger.Warn("skip employer notification", "job_id", job.ID, "error", err)
		return
	}

	s.mailer.QueueBestEffort(ctx, mailer.Message{
		UserID:   owner.ID,
		To:       owner.Email,
		Template: model.TemplateApplicationNew,
		Data: struct {
			JobTitle      string
			CandidateName string
			ApplicationID string
		}{job.Title, displayName(candidate), app.ID},
	})
}

func (s *ApplicationService) notifyCandidate(ctx context.Context, job *model.Job, app *model.Application) {
	candidate, err := s.repo.GetUserByID(ctx, app.CandidateID)
	if err != nil {
		s.logger.Warn("skip candidate notification", "application_id", app.ID, "error", err)
		return
	}

	s.mailer.QueueBestEffort(ctx, mailer.Message{
		UserID:   candidate.ID,
		To:       candidate.Email,
		Template: model.TemplateApplicationStatus,
		Data: struct {
			Name     string
			JobTitle string
			Status   model.ApplicationStatus
			Note     string
		}{displayName(candidate), job.Title, app.Status, app.StatusNote},
	})
}
