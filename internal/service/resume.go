package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/events"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// ErrResumeNotFound is returned for missing resumes and for resumes owned
// by another user.
var ErrResumeNotFound = repository.ErrResumeNotFound

// ResumeService handles a candidate's resumes.
type ResumeService struct {
	repo   *repository.Repository
	events events.Publisher
	logger *slog.Logger
}

// NewResumeService creates a new ResumeService.
func NewResumeService(repo *repository.Repository, publisher events.Publisher, logger *slog.Logger) *ResumeService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ResumeService{
		repo:   repo,
		events: publisher,
		logger: logger.With("component", "service.resume"),
	}
}

// ResumeInput defines the editable resume fields. Nil fields are left
// unchanged on update.
type ResumeInput struct {
	Title     *string
	Summary   *string
	Content   *string
	FileURL   *string
	IsPrimary *bool
}

// CreateResume stores a resume for the caller. The first resume becomes
// primary.
func (s *ResumeService) CreateResume(ctx context.Context, actor *model.AuthContext, input ResumeInput) (*model.Resume, error) {
	if input.Title == nil {
		return nil, invalid("title is required")
	}

	now := time.Now().UTC()
	res := &model.Resume{
		ID:        newID(),
		UserID:    actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.IsPrimary != nil {
		res.IsPrimary = *input.IsPrimary
	}
	if err := applyResumeInput(res, input); err != nil {
		return nil, err
	}

	if err := s.repo.CreateResume(ctx, res); err != nil {
		return nil, err
	}

	s.logger.Info("resume created", "resume_id", res.ID, "user_id", res.UserID, "primary", res.IsPrimary)
	s.events.Publish(events.ResumeCreated, res.UserID, res)
	return res, nil
}

// GetResume returns one of the caller's resumes.
func (s *ResumeService) GetResume(ctx context.Context, actor *model.AuthContext, id string) (*model.Resume, error) {
	res, err := s.repo.GetResumeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrResumeNotFound
	}
	return res, nil
}

// ListResumes returns a page of the caller's resumes.
func (s *ResumeService) ListResumes(ctx context.Context, actor *model.AuthContext, page PageRequest) (*Page[*model.Resume], error) {
	resumes, next, err := s.repo.ListResumes(ctx, actor.UserID, page.Cursor, page.limit())
	if err != nil {
		return nil, err
	}
	return newPage(resumes, next), nil
}

// UpdateResume applies a partial update. Making a resume primary clears the
// flag on the caller's other resumes in the same transaction.
func (s *ResumeService) UpdateResume(ctx context.Context, actor *model.AuthContext, id string, input ResumeInput) (*model.Resume, error) {
	res, err := s.repo.GetResumeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.UserID != actor.UserID {
		return nil, ErrResumeNotFound
	}

	if input.IsPrimary != nil {
		if res.IsPrimary && !*input.IsPrimary {
			return nil, invalid("mark another resume as primary instead")
		}
		res.IsPrimary = *input.IsPrimary
	}
	if err := applyResumeInput(res, input); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateResume(ctx, res); err != nil {
		return nil, err
	}
	s.events.Publish(events.ResumeUpdated, res.UserID, res)
	return res, nil
}

// DeleteResume removes one of the caller's resumes.
func (s *ResumeService) DeleteResume(ctx context.Context, actor *model.AuthContext, id string) error {
	if _, err := s.GetResume(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.DeleteResume(ctx, id)
}

func applyResumeInput(res *model.Resume, input ResumeInput) error {
	if input.Title != nil {
		if err := validateLength("title", *input.Title, 1, 200); err != nil {
			return err
		}
		res.Title = strings.TrimSpace(*input.Title)
	}
	if input.Summary != nil {
		if err := validateLength("summary", *input.Summary, 0, 2000); err != nil {
			return err
		}
		res.Summary = *input.Summary
	}
	if input.Content != nil {
		if err := validateLength("content", *input.Content, 0, 100000); err != nil {
			return err
		}
		res.Content = *input.Content
	}
	if input.FileURL != nil {
		if err := validateOptionalURL("file_url", *input.FileURL); err != nil {
			return err
		}
		res.FileURL = *input.FileURL
	}
	return nil
}
