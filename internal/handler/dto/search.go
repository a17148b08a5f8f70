package dto

import (
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// AlertRequest is used for both create and partial update.
type AlertRequest struct {
	Name      *string               `json:"name,omitempty"`
	Query     *model.JobQuery       `json:"query,omitempty"`
	Frequency *model.AlertFrequency `json:"frequency,omitempty"`
	Enabled   *bool                 `json:"enabled,omitempty"`
}

// ToInput converts the request to a service input.
func (r AlertRequest) ToInput() service.AlertInput {
	return service.AlertInput{
		Name:      r.Name,
		Query:     r.Query,
		Frequency: r.Frequency,
		Enabled:   r.Enabled,
	}
}

// ClearSearchesResponse reports how many recent searches were removed.
type ClearSearchesResponse struct {
	Deleted int64 `json:"deleted"`
}
