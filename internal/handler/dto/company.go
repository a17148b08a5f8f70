package dto

import (
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// CompanyRequest is used for both create and partial update.
type CompanyRequest struct {
	Name        *string            `json:"name,omitempty"`
	Website     *string            `json:"website,omitempty"`
	Description *string            `json:"description,omitempty"`
	Location    *string            `json:"location,omitempty"`
	Size        *model.CompanySize `json:"size,omitempty"`
	LogoURL     *string            `json:"logo_url,omitempty"`
}

// ToInput converts the request to a service input.
func (r CompanyRequest) ToInput() service.CompanyInput {
	return service.CompanyInput{
		Name:        r.Name,
		Website:     r.Website,
		Description: r.Description,
		Location:    r.Location,
		Size:        r.Size,
		LogoURL:     r.LogoURL,
	}
}
