package model

import (
	"strconv"
	"time"
)

// JobStatus is the publication state of a job posting.
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusPublished JobStatus = "published"
	JobStatusClosed    JobStatus = "closed"
)

// IsValid checks if the status is known.
func (s JobStatus) IsValid() bool {
	return s == JobStatusDraft || s == JobStatusPublished || s == JobStatusClosed
}

// CanTransitionTo reports whether a job may move from s to next.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case JobStatusDraft:
		return next == JobStatusPublished
	case JobStatusPublished:
		return next == JobStatusClosed
	case JobStatusClosed:
		return next == JobStatusPublished
	}
	return false
}

// EmploymentType is the contract kind of a job.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
	EmploymentTemporary  EmploymentType = "temporary"
)

// IsValid checks if the employment type is known.
func (e EmploymentType) IsValid() bool {
	switch e {
	case EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentInternship, EmploymentTemporary:
		return true
	}
	return false
}

// Job is a posting published by a company.
type Job struct {
	ID             string         `json:"id"`
	CompanyID      string         `json:"company_id"`
	PostedBy       *string        `json:"posted_by,omitempty"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Location       string         `json:"location"`
	EmploymentType EmploymentType `json:"employment_type"`
	Remote         bool           `json:"remote"`
	SalaryMin      *int64         `json:"salary_min,omitempty"`
	SalaryMax      *int64         `json:"salary_max,omitempty"`
	Currency       string         `json:"currency"`
	Status         JobStatus      `json:"status"`
	PublishedAt    *time.Time     `json:"published_at,omitempty"`
	ClosesAt       *time.Time     `json:"closes_at,omitempty"`
	ViewCount      int64          `json:"view_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsPublic returns true if anonymous visitors may see the job.
func (j *Job) IsPublic() bool {
	if j.Status != JobStatusPublished {
		return false
	}
	return j.ClosesAt == nil || time.Now().Before(*j.ClosesAt)
}

// AcceptsApplications returns true while candidates may apply.
func (j *Job) AcceptsApplications() bool {
	return j.IsPublic()
}

// CachedJob is the Redis hash representation of a published job.
type CachedJob struct {
	ID             string `redis:"id"`
	CompanyID      string `redis:"company_id"`
	Title          string `redis:"title"`
	Description    string `redis:"description"`
	Location       string `redis:"location"`
	EmploymentType string `redis:"employment_type"`
	Remote         string `redis:"remote"`     // "1" or "0"
	SalaryMin      string `redis:"salary_min"` // empty when unset
	SalaryMax      string `redis:"salary_max"`
	Currency       string `redis:"currency"`
	Status         string `redis:"status"`
	PublishedAt    string `redis:"published_at"` // Unix timestamp or empty
	ClosesAt       string `redis:"closes_at"`
	ViewCount      string `redis:"view_count"`
	CreatedAt      string `redis:"created_at"`
	UpdatedAt      string `redis:"updated_at"`
}

// ToJob converts CachedJob to the Job domain model.
func (c *CachedJob) ToJob() *Job {
	job := &Job{
		ID:             c.ID,
		CompanyID:      c.CompanyID,
		Title:          c.Title,
		Description:    c.Description,
		Location:       c.Location,
		EmploymentType: EmploymentType(c.EmploymentType),
		Remote:         c.Remote == "1",
		Currency:       c.Currency,
		Status:         JobStatus(c.Status),
		SalaryMin:      parseOptionalInt(c.SalaryMin),
		SalaryMax:      parseOptionalInt(c.SalaryMax),
		PublishedAt:    parseOptionalUnix(c.PublishedAt),
		ClosesAt:       parseOptionalUnix(c.ClosesAt),
	}

	if n, err := strconv.ParseInt(c.ViewCount, 10, 64); err == nil {
		job.ViewCount = n
	}
	if t := parseOptionalUnix(c.CreatedAt); t != nil {
		job.CreatedAt = *t
	}
	if t := parseOptionalUnix(c.UpdatedAt); t != nil {
		job.UpdatedAt = *t
	}

	return job
}

// ToCachedJob converts a Job to its cache representation.
func (j *Job) ToCachedJob() *CachedJob {
	cached := &CachedJob{
		ID:             j.ID,
		CompanyID:      j.CompanyID,
		Title:          j.Title,
		Description:    j.Description,
		Location:       j.Location,
		EmploymentType: string(j.EmploymentType),
		Remote:         boolToString(j.Remote),
		Currency:       j.Currency,
		Status:         string(j.Status),
		ViewCount:      strconv.FormatInt(j.ViewCount, 10),
		CreatedAt:      strconv.FormatInt(j.CreatedAt.Unix(), 10),
		UpdatedAt:      strconv.FormatInt(j.UpdatedAt.Unix(), 10),
	}

	if j.SalaryMin != nil {
		cached.SalaryMin = strconv.FormatInt(*j.SalaryMin, 10)
	}
	if j.SalaryMax != nil {
		cached.SalaryMax = strconv.FormatInt(*j.SalaryMax, 10)
	}
	if j.PublishedAt != nil {
		cached.PublishedAt = strconv.FormatInt(j.PublishedAt.Unix(), 10)
	}
	if j.ClosesAt != nil {
		cached.ClosesAt = strconv.FormatInt(j.ClosesAt.Unix(), 10)
	}

	return cached
}

func parseOptionalInt(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func parseOptionalUnix(s string) *time.Time {
	if s == "" {
		return nil
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

// boolToString converts boolean to "1" or "0".
func boolToString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
