package model

import "time"

// ApplicationStatus tracks a candidate through the hiring pipeline.
type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationReviewing ApplicationStatus = "reviewing"
	ApplicationInterview ApplicationStatus = "interview"
	ApplicationOffered   ApplicationStatus = "offered"
	ApplicationHired     ApplicationStatus = "hired"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

// pipeline is the forward order an employer moves applications through.
var pipeline = map[ApplicationStatus]ApplicationStatus{
	ApplicationSubmitted: ApplicationReviewing,
	ApplicationReviewing: ApplicationInterview,
	ApplicationInterview: ApplicationOffered,
	ApplicationOffered:   ApplicationHired,
}

// IsValid checks if the status is known.
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationSubmitted, ApplicationReviewing, ApplicationInterview,
		ApplicationOffered, ApplicationHired, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// IsTerminal returns true once no further transitions are possible.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationHired || s == ApplicationRejected || s == ApplicationWithdrawn
}

// EmployerCanMove reports whether an employer may move an application from s to next.
// Employers advance one pipeline step at a time or reject at any open stage.
func (s ApplicationStatus) EmployerCanMove(next ApplicationStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == ApplicationRejected {
		return true
	}
	return pipeline[s] == next
}

// CandidateCanMove reports whether a candidate may move an application from s to next.
func (s ApplicationStatus) CandidateCanMove(next ApplicationStatus) bool {
	return !s.IsTerminal() && next == ApplicationWithdrawn
}

// Application is a candidate's submission to a job.
type Application struct {
	ID          string            `json:"id"`
	JobID       string            `json:"job_id"`
	CandidateID string            `json:"candidate_id"`
	ResumeID    *string           `json:"resume_id,omitempty"`
	CoverLetter string            `json:"cover_letter,omitempty"`
	Status      ApplicationStatus `json:"status"`
	StatusNote  string            `json:"status_note,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
