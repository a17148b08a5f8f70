package dto

import (
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// ApplicationRequest represents the request body for applying to a job.
type ApplicationRequest struct {
	JobID       string  `json:"job_id"`
	ResumeID    *string `json:"resume_id,omitempty"`
	CoverLetter string  `json:"cover_letter,omitempty"`
}

// ToInput converts the request to a service input.
func (r ApplicationRequest) ToInput() service.SubmitInput {
	return service.SubmitInput{
		JobID:       r.JobID,
		ResumeID:    r.ResumeID,
		CoverLetter: r.CoverLetter,
	}
}

// StatusChangeRequest moves an application to a new status.
type StatusChangeRequest struct {
	Status model.ApplicationStatus `json:"status"`
	Note   string                  `json:"note,omitempty"`
}
