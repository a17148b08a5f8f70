package model

import "time"

// JobViewEvent is a single view of a job detail page.
type JobViewEvent struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	JobID     string `json:"job_id"`
	CompanyID string `json:"company_id"`

	Referrer  string `json:"referrer,omitempty"`   // truncated to 500 chars
	UserAgent string `json:"user_agent,omitempty"` // truncated to 500 chars

	// SHA256(IP + UA + daily_salt)[0:16]
	VisitorHash string `json:"visitor_hash"`

	// From CF-IPCountry
	CountryCode string `json:"country_code,omitempty"`

	ViewedAt  time.Time `json:"viewed_at"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyJobStats is the pre-aggregated view count of a job for one UTC day.
type DailyJobStats struct {
	ID    string    `json:"id"` // job_id:date
	JobID string    `json:"job_id"`
	Date  time.Time `json:"date"`

	TotalViews     int64 `json:"total_views"`
	UniqueVisitors int64 `json:"unique_visitors"`

	ReferrerBreakdown map[string]int64 `json:"referrer_breakdown,omitempty"`
	CountryBreakdown  map[string]int64 `json:"country_breakdown,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnalyticsSummary is the aggregate over a date range.
type AnalyticsSummary struct {
	TotalViews     int64   `json:"total_views"`
	UniqueVisitors int64   `json:"unique_visitors"`
	AvgViewsPerDay float64 `json:"avg_views_per_day"`
	Applications   int64   `json:"applications"`
	ConversionRate float64 `json:"conversion_rate"`
}

// AnalyticsResponse is the job analytics API response.
type AnalyticsResponse struct {
	JobID  string `json:"job_id"`
	Period struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"period"`
	Summary   AnalyticsSummary `json:"summary"`
	Breakdown struct {
		Daily     []DailyBreakdown    `json:"daily,omitempty"`
		Referrers []ReferrerBreakdown `json:"referrers,omitempty"`
		Countries []CountryBreakdown  `json:"countries,omitempty"`
	} `json:"breakdown"`
	GeneratedAt time.Time `json:"generated_at"`
}

// DailyBreakdown is the view count for a single day.
type DailyBreakdown struct {
	Date           string `json:"date"`
	TotalViews     int64  `json:"total_views"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

// ReferrerBreakdown is the view count from one referrer domain.
type ReferrerBreakdown struct {
	Domain string `json:"domain"`
	Views  int64  `json:"views"`
}

// CountryBreakdown is the view count from one country.
type CountryBreakdown struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Views int64  `json:"views"`
}
