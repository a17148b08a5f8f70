package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// ErrSavedSearchNotFound is returned for missing alerts and for alerts
// owned by another user.
var ErrSavedSearchNotFound = repository.ErrSavedSearchNotFound

// SearchService handles recent searches and job alerts.
type SearchService struct {
	repo   *repository.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewSearchService creates a new SearchService.
func NewSearchService(repo *repository.Repository, logger *slog.Logger) *SearchService {
	return &SearchService{
		repo:   repo,
		logger: logger.With("component", "service.search"),
		now:    time.Now,
	}
}

// RecentSearches returns the caller's most recent job searches.
func (s *SearchService) RecentSearches(ctx context.Context, actor *model.AuthContext) ([]*model.RecentSearch, error) {
	return s.repo.ListRecentSearches(ctx, actor.UserID)
}

// ClearRecentSearches deletes the caller's search history.
func (s *SearchService) ClearRecentSearches(ctx context.Context, actor *model.AuthContext) (int64, error) {
	return s.repo.ClearRecentSearches(ctx, actor.UserID)
}

// AlertInput defines the editable alert fields. Nil fields are left
// unchanged on update.
type AlertInput struct {
	Name      *string
	Query     *model.JobQuery
	Frequency *model.AlertFrequency
	Enabled   *bool
}

// CreateAlert saves a search for the caller. New alerts are due immediately.
func (s *SearchService) CreateAlert(ctx context.Context, actor *model.AuthContext, input AlertInput) (*model.SavedSearch, error) {
	if input.Name == nil {
		return nil, invalid("name is required")
	}
	if input.Query == nil || input.Query.IsEmpty() {
		return nil, invalid("query must set at least one filter")
	}

	now := s.now().UTC()
	alert := &model.SavedSearch{
		ID:        newID(),
		UserID:    actor.UserID,
		Frequency: model.AlertDaily,
		Enabled:   true,
		NextRunAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyAlertInput(alert, input, now); err != nil {
		return nil, err
	}

	if err := s.repo.CreateSavedSearch(ctx, alert); err != nil {
		return nil, err
	}
	s.logger.Info("alert created", "alert_id", alert.ID, "user_id", alert.UserID, "frequency", alert.Frequency)
	return alert, nil
}

// GetAlert returns one of the caller's alerts.
func (s *SearchService) GetAlert(ctx context.Context, actor *model.AuthContext, id string) (*model.SavedSearch, error) {
	alert, err := s.repo.GetSavedSearchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.UserID != actor.UserID {
		return nil, ErrSavedSearchNotFound
	}
	return alert, nil
}

// ListAlerts returns a page of the caller's alerts.
func (s *SearchService) ListAlerts(ctx context.Context, actor *model.AuthContext, page PageRequest) (*Page[*model.SavedSearch], error) {
	alerts, next, err := s.repo.ListSavedSearches(ctx, actor.UserID, page.Cursor, page.limit())
	if err != nil {
		return nil, err
	}
	return newPage(alerts, next), nil
}

// UpdateAlert applies a partial update. Re-enabling an alert makes it due
// immediately.
func (s *SearchService) UpdateAlert(ctx context.Context, actor *model.AuthContext, id string, input AlertInput) (*model.SavedSearch, error) {
	alert, err := s.GetAlert(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.Query != nil && input.Query.IsEmpty() {
		return nil, invalid("query must set at least one filter")
	}
	if err := applyAlertInput(alert, input, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSavedSearch(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// DeleteAlert removes one of the caller's alerts.
func (s *SearchService) DeleteAlert(ctx context.Context, actor *model.AuthContext, id string) error {
	if _, err := s.GetAlert(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.DeleteSavedSearch(ctx, id)
}

func applyAlertInput(alert *model.SavedSearch, input AlertInput, now time.Time) error {
	if input.Name != nil {
		if err := validateLength("name", *input.Name, 1, 100); err != nil {
			return err
		}
		alert.Name = strings.TrimSpace(*input.Name)
	}
	if input.Query != nil {
		if err := validateJobQuery(*input.Query); err != nil {
			return err
		}
		alert.Query = *input.Query
	}
	if input.Frequency != nil {
		if !input.Frequency.IsValid() {
			return invalid("frequency must be instant, daily or weekly")
		}
		alert.Frequency = *input.Frequency
	}
	if input.Enabled != nil {
		if *input.Enabled && !alert.Enabled {
			alert.NextRunAt = now
		}
		alert.Enabled = *input.Enabled
	}
	return nil
}
