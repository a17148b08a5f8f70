package model

import "time"

// JobQuery is the set of job filters shared by searches and alerts.
type JobQuery struct {
	Q              string         `json:"q,omitempty"`
	Location       string         `json:"location,omitempty"`
	CompanyID      string         `json:"company_id,omitempty"`
	EmploymentType EmploymentType `json:"employment_type,omitempty"`
	Remote         *bool          `json:"remote,omitempty"`
	SalaryMin      *int64         `json:"salary_min,omitempty"`
}

// IsEmpty returns true if no filter is set.
func (q JobQuery) IsEmpty() bool {
	return q.Q == "" && q.Location == "" && q.CompanyID == "" &&
		q.EmploymentType == "" && q.Remote == nil && q.SalaryMin == nil
}

// RecentSearch is a query a signed-in user ran against the job list.
type RecentSearch struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Query      JobQuery  `json:"query"`
	SearchedAt time.Time `json:"searched_at"`
}

// MaxRecentSearches is how many recent searches are kept per user.
const MaxRecentSearches = 20

// AlertFrequency controls how often a saved search is evaluated.
type AlertFrequency string

const (
	AlertInstant AlertFrequency = "instant"
	AlertDaily   AlertFrequency = "daily"
	AlertWeekly  AlertFrequency = "weekly"
)

// IsValid checks if the frequency is known.
func (f AlertFrequency) IsValid() bool {
	return f == AlertInstant || f == AlertDaily || f == AlertWeekly
}

// Interval returns the time between two evaluations.
func (f AlertFrequency) Interval() time.Duration {
	switch f {
	case AlertInstant:
		return 15 * time.Minute
	case AlertWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// SavedSearch is a stored query plus a delivery schedule.
type SavedSearch struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Name      string         `json:"name"`
	Query     JobQuery       `json:"query"`
	Frequency AlertFrequency `json:"frequency"`
	Enabled   bool           `json:"enabled"`
	LastRunAt *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt time.Time      `json:"next_run_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Since returns the lower bound for jobs matched on the next run.
func (s *SavedSearch) Since(now time.Time) time.Time {
	if s.LastRunAt != nil {
		return *s.LastRunAt
	}
	return now.Add(-s.Frequency.Interval())
}
