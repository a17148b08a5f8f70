package dto

import (
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// JobRequest is used for both create and partial update. CompanyID is only
// read on create.
type JobRequest struct {
	CompanyID      string                `json:"company_id,omitempty"`
	Title          *string               `json:"title,omitempty"`
	Description    *string               `json:"description,omitempty"`
	Location       *string               `json:"location,omitempty"`
	EmploymentType *model.EmploymentType `json:"employment_type,omitempty"`
	Remote         *bool                 `json:"remote,omitempty"`
	SalaryMin      *int64                `json:"salary_min,omitempty"`
	SalaryMax      *int64                `json:"salary_max,omitempty"`
	Currency       *string               `json:"currency,omitempty"`
	Status         *model.JobStatus      `json:"status,omitempty"`
	ClosesAt       *time.Time            `json:"closes_at,omitempty"`
	// ClearClosesAt removes the closing date on update.
	ClearClosesAt bool `json:"clear_closes_at,omitempty"`
}

// ToInput converts the request to a service input.
func (r JobRequest) ToInput() service.JobInput {
	return service.JobInput{
		Title:          r.Title,
		Description:    r.Description,
		Location:       r.Location,
		EmploymentType: r.EmploymentType,
		Remote:         r.Remote,
		SalaryMin:      r.SalaryMin,
		SalaryMax:      r.SalaryMax,
		Currency:       r.Currency,
		Status:         r.Status,
		ClosesAt:       r.ClosesAt,
		ClearClosesAt:  r.ClearClosesAt,
	}
}
