package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

const (
	analyticsDateLayout  = "2006-01-02"
	defaultAnalyticsDays = 7
	maxAnalyticsDays     = 90
	topBreakdownLimit    = 10
)

// Breakdown sections of a job analytics report.
const (
	IncludeDaily     = "daily"
	IncludeReferrers = "referrers"
	IncludeCountries = "countries"
)

// AnalyticsQuery is a validated analytics request window.
type AnalyticsQuery struct {
	From    time.Time
	To      time.Time
	Include map[string]bool
}

// ParseAnalyticsQuery builds an AnalyticsQuery from raw query parameters.
// The window defaults to the last 7 days, is capped at 90 days and never
// extends past today. An empty include selects every breakdown.
func ParseAnalyticsQuery(fromStr, toStr, include string, now time.Time) (AnalyticsQuery, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	q := AnalyticsQuery{
		From:    today.AddDate(0, 0, -defaultAnalyticsDays),
		To:      today,
		Include: make(map[string]bool),
	}

	if fromStr != "" {
		parsed, err := time.Parse(analyticsDateLayout, fromStr)
		if err != nil {
			return q, invalid("from must be a date (YYYY-MM-DD)")
		}
		q.From = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(analyticsDateLayout, toStr)
		if err != nil {
			return q, invalid("to must be a date (YYYY-MM-DD)")
		}
		q.To = parsed
	}

	if q.To.After(today) {
		q.To = today
	}
	if q.From.After(q.To) {
		return q, invalid("from must not be after to")
	}
	if q.To.Sub(q.From) > maxAnalyticsDays*24*time.Hour {
		q.From = q.To.AddDate(0, 0, -maxAnalyticsDays)
	}

	if include == "" {
		q.Include[IncludeDaily] = true
		q.Include[IncludeReferrers] = true
		q.Include[IncludeCountries] = true
		return q, nil
	}
	for _, part := range strings.Split(include, ",") {
		switch part = strings.TrimSpace(part); part {
		case "":
		case IncludeDaily, IncludeReferrers, IncludeCountries:
			q.Include[part] = true
		default:
			return q, invalid("unknown include %q", part)
		}
	}
	return q, nil
}

// AnalyticsService reports view statistics for jobs.
type AnalyticsService struct {
	jobs   *JobService
	repo   *repository.Repository
	views  *repository.JobViewRepository
	logger *slog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(jobs *JobService, repo *repository.Repository, views *repository.JobViewRepository, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		jobs:   jobs,
		repo:   repo,
		views:  views,
		logger: logger.With("component", "service.analytics"),
	}
}

// JobAnalytics returns the view report of a job the caller manages.
func (s *AnalyticsService) JobAnalytics(ctx context.Context, actor *model.AuthContext, jobID string, q AnalyticsQuery) (*model.AnalyticsResponse, error) {
	job, err := s.jobs.ManageableJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}

	summary, err := s.views.GetAnalyticsSummary(ctx, job.ID, q.From, q.To)
	if err != nil {
		return nil, err
	}
	// Applications are counted over whole days, so the upper bound is the
	// start of the day after To.
	applications, err := s.repo.CountApplicationsForJob(ctx, job.ID, q.From, q.To.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	summary.Applications = applications
	summary.ConversionRate = conversionRate(applications, summary.UniqueVisitors)

	response := &model.AnalyticsResponse{
		JobID:       job.ID,
		Summary:     *summary,
		GeneratedAt: time.Now().UTC(),
	}
	response.Period.From = q.From.Format(analyticsDateLayout)
	response.Period.To = q.To.Format(analyticsDateLayout)

	if q.Include[IncludeDaily] {
		daily, err := s.views.GetDailyStats(ctx, job.ID, q.From, q.To)
		if err != nil {
			return nil, err
		}
		for _, stat := range daily {
			response.Breakdown.Daily = append(response.Breakdown.Daily, model.DailyBreakdown{
				Date:           stat.Date.Format(analyticsDateLayout),
				TotalViews:     stat.TotalViews,
				UniqueVisitors: stat.UniqueVisitors,
			})
		}
	}
	if q.Include[IncludeReferrers] {
		response.Breakdown.Referrers, err = s.views.GetTopReferrers(ctx, job.ID, q.From, q.To, topBreakdownLimit)
		if err != nil {
			return nil, err
		}
	}
	if q.Include[IncludeCountries] {
		response.Breakdown.Countries, err = s.views.GetTopCountries(ctx, job.ID, q.From, q.To, topBreakdownLimit)
		if err != nil {
			return nil, err
		}
	}

	return response, nil
}

// conversionRate is applications per unique visitor, rounded to 4 places.
func conversionRate(applications, visitors int64) float64 {
	if visitors == 0 {
		return 0
	}
	rate := float64(applications) / float64(visitors)
	return float64(int64(rate*10000+0.5)) / 10000
}
