package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/jackc/pgx/v5"
)

// JobViewRepository provides database access for job view events.
type JobViewRepository struct {
	repo *Repository
}

// NewJobViewRepository creates a new JobViewRepository.
func NewJobViewRepository(repo *Repository) *JobViewRepository {
	return &JobViewRepository{repo: repo}
}

// BulkInsert stores view events, skipping stream IDs already seen.
// It returns the number of rows actually inserted per job.
func (r *JobViewRepository) BulkInsert(ctx context.Context, events []*model.JobViewEvent) (map[string]int64, error) {
	inserted := make(map[string]int64)
	if len(events) == 0 {
		return inserted, nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO job_view_events (
			id, event_id, job_id, company_id, referrer, user_agent,
			visitor_hash, country_code, viewed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		batch.Queue(query,
			event.ID,
			event.EventID,
			event.JobID,
			event.CompanyID,
			nullableString(event.Referrer),
			nullableString(event.UserAgent),
			event.VisitorHash,
			nullableString(event.CountryCode),
			event.ViewedAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i, event := range events {
		tag, err := results.Exec()
		if err != nil {
			if isForeignKeyViolation(err) {
				// The job was deleted after the view; nothing to record.
				continue
			}
			return nil, fmt.Errorf("batch insert event %d: %w", i, err)
		}
		if tag.RowsAffected() > 0 {
			inserted[event.JobID]++
		}
	}

	return inserted, nil
}

// UpdateDailyStats recomputes daily_job_stats for every job/day in events.
func (r *JobViewRepository) UpdateDailyStats(ctx context.Context, events []*model.JobViewEvent) error {
	for _, key := range uniqueDailyKeys(events) {
		acc, err := r.recalculateDailyStat(ctx, key.jobID, key.date)
		if err != nil {
			return fmt.Errorf("recalculate daily stat %s:%s: %w", key.jobID, key.date.Format("2006-01-02"), err)
		}
		if acc.totalViews == 0 {
			continue
		}
		if err := r.upsertDailyStat(ctx, acc); err != nil {
			return fmt.Errorf("upsert daily stat %s:%s: %w", key.jobID, key.date.Format("2006-01-02"), err)
		}
	}
	return nil
}

type dailyStatsAccumulator struct {
	jobID          string
	date           time.Time
	totalViews     int64
	uniqueVisitors int64
	referrers      map[string]int64
	countries      map[string]int64
	visitorSeen    map[string]bool
}

type dailyStatsKey struct {
	jobID string
	date  time.Time
}

func uniqueDailyKeys(events []*model.JobViewEvent) []dailyStatsKey {
	seen := make(map[string]dailyStatsKey)
	for _, event := range events {
		day := event.ViewedAt.UTC().Truncate(24 * time.Hour)
		seen[dailyStatID(event.JobID, day)] = dailyStatsKey{jobID: event.JobID, date: day}
	}

	keys := make([]dailyStatsKey, 0, len(seen))
	for _, key := range seen {
		keys = append(keys, key)
	}
	return keys
}

func dailyStatID(jobID string, day time.Time) string {
	return jobID + ":" + day.Format("2006-01-02")
}

func (r *JobViewRepository) recalculateDailyStat(ctx context.Context, jobID string, date time.Time) (*dailyStatsAccumulator, error) {
	start := date.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT COALESCE(referrer, ''), COALESCE(country_code, ''), visitor_hash
		FROM job_view_events
		WHERE job_id = $1 AND viewed_at >= $2 AND viewed_at < $3
	`

	rows, err := r.repo.pool.Query(ctx, query, jobID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query view events: %w", err)
	}
	defer rows.Close()

	var events []*model.JobViewEvent
	for rows.Next() {
		var e model.JobViewEvent
		if err := rows.Scan(&e.Referrer, &e.CountryCode, &e.VisitorHash); err != nil {
			return nil, fmt.Errorf("scan view event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate view events: %w", err)
	}

	acc := accumulateDailyStats(events)
	acc.jobID = jobID
	acc.date = start
	return acc, nil
}

func accumulateDailyStats(events []*model.JobViewEvent) *dailyStatsAccumulator {
	acc := &dailyStatsAccumulator{
		referrers:   make(map[string]int64),
		countries:   make(map[string]int64),
		visitorSeen: make(map[string]bool),
	}

	for _, event := range events {
		acc.totalViews++

		if event.VisitorHash != "" && !acc.visitorSeen[event.VisitorHash] {
			acc.visitorSeen[event.VisitorHash] = true
			acc.uniqueVisitors++
		}

		acc.referrers[referrerDomain(event.Referrer)]++

		if event.CountryCode != "" {
			acc.countries[event.CountryCode]++
		}
	}

	return acc
}

func (r *JobViewRepository) upsertDailyStat(ctx context.Context, acc *dailyStatsAccumulator) error {
	referrerJSON, err := json.Marshal(acc.referrers)
	if err != nil {
		return err
	}
	countryJSON, err := json.Marshal(acc.countries)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO daily_job_stats (
			id, job_id, date, total_views, unique_visitors,
			referrer_breakdown, country_breakdown, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (job_id, date) DO UPDATE SET
			total_views = EXCLUDED.total_views,
			unique_visitors = EXCLUDED.unique_visitors,
			referrer_breakdown = EXCLUDED.referrer_breakdown,
			country_breakdown = EXCLUDED.country_breakdown,
			updated_at = NOW()
	`

	_, err = r.repo.pool.Exec(ctx, query,
		dailyStatID(acc.jobID, acc.date),
		acc.jobID,
		acc.date,
		acc.totalViews,
		acc.uniqueVisitors,
		referrerJSON,
		countryJSON,
	)
	return err
}

// GetDailyStats retrieves daily stats for a job within a date range.
func (r *JobViewRepository) GetDailyStats(ctx context.Context, jobID string, from, to time.Time) ([]*model.DailyJobStats, error) {
	query := `
		SELECT id, job_id, date, total_views, unique_visitors,
		       referrer_breakdown, country_breakdown, created_at, updated_at
		FROM daily_job_stats
		WHERE job_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC
	`

	rows, err := r.repo.pool.Query(ctx, query, jobID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []*model.DailyJobStats
	for rows.Next() {
		var stat model.DailyJobStats
		var referrerJSON, countryJSON []byte
		err := rows.Scan(
			&stat.ID,
			&stat.JobID,
			&stat.Date,
			&stat.TotalViews,
			&stat.UniqueVisitors,
			&referrerJSON,
			&countryJSON,
			&stat.CreatedAt,
			&stat.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		if len(referrerJSON) > 0 {
			_ = json.Unmarshal(referrerJSON, &stat.ReferrerBreakdown)
		}
		if len(countryJSON) > 0 {
			_ = json.Unmarshal(countryJSON, &stat.CountryBreakdown)
		}
		stats = append(stats, &stat)
	}

	return stats, rows.Err()
}

// GetAnalyticsSummary retrieves aggregated view counts for a job.
func (r *JobViewRepository) GetAnalyticsSummary(ctx context.Context, jobID string, from, to time.Time) (*model.AnalyticsSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(total_views), 0),
			COALESCE(SUM(unique_visitors), 0),
			COUNT(*)
		FROM daily_job_stats
		WHERE job_id = $1 AND date >= $2 AND date <= $3
	`

	var totalViews, uniqueVisitors int64
	var days int

	if err := r.repo.pool.QueryRow(ctx, query, jobID, from, to).Scan(&totalViews, &uniqueVisitors, &days); err != nil {
		return nil, fmt.Errorf("query analytics summary: %w", err)
	}

	summary := &model.AnalyticsSummary{
		TotalViews:     totalViews,
		UniqueVisitors: uniqueVisitors,
	}
	if days > 0 {
		summary.AvgViewsPerDay = float64(totalViews) / float64(days)
	}
	return summary, nil
}

// GetTopReferrers returns the top referrer domains for a job.
func (r *JobViewRepository) GetTopReferrers(ctx context.Context, jobID string, from, to time.Time, limit int) ([]model.ReferrerBreakdown, error) {
	query := `
		SELECT key, SUM(value::bigint) AS views
		FROM daily_job_stats, jsonb_each_text(referrer_breakdown)
		WHERE job_id = $1 AND date >= $2 AND date <= $3
		GROUP BY key
		ORDER BY views DESC
		LIMIT $4
	`

	rows, err := r.repo.pool.Query(ctx, query, jobID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query top referrers: %w", err)
	}
	defer rows.Close()

	var referrers []model.ReferrerBreakdown
	for rows.Next() {
		var rb model.ReferrerBreakdown
		if err := rows.Scan(&rb.Domain, &rb.Views); err != nil {
			return nil, fmt.Errorf("scan referrer: %w", err)
		}
		referrers = append(referrers, rb)
	}
	return referrers, rows.Err()
}

// GetTopCountries returns the top countries for a job.
func (r *JobViewRepository) GetTopCountries(ctx context.Context, jobID string, from, to time.Time, limit int) ([]model.CountryBreakdown, error) {
	query := `
		SELECT key, SUM(value::bigint) AS views
		FROM daily_job_stats, jsonb_each_text(country_breakdown)
		WHERE job_id = $1 AND date >= $2 AND date <= $3
		GROUP BY key
		ORDER BY views DESC
		LIMIT $4
	`

	rows, err := r.repo.pool.Query(ctx, query, jobID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query top countries: %w", err)
	}
	defer rows.Close()

	var countries []model.CountryBreakdown
	for rows.Next() {
		var c model.CountryBreakdown
		if err := rows.Scan(&c.Code, &c.Views); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		c.Name = countryName(c.Code)
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// referrerDomain reduces a referrer URL to its host.
func referrerDomain(referrer string) string {
	if referrer == "" {
		return "(direct)"
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Host == "" {
		return "(unknown)"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// countryName returns the full name for a country code.
func countryName(code string) string {
	names := map[string]string{
		"US": "United States",
		"VN": "Vietnam",
		"GB": "United Kingdom",
		"DE": "Germany",
		"FR": "France",
		"NL": "Netherlands",
		"JP": "Japan",
		"IN": "India",
		"BR": "Brazil",
		"CA": "Canada",
		"AU": "Australia",
		"SG": "Singapore",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

// IncrementViewCounts adds inserted view counts to jobs.view_count.
func (r *JobViewRepository) IncrementViewCounts(ctx context.Context, deltas map[string]int64) error {
	return r.repo.IncrementViewCounts(ctx, deltas)
}
