package dto

import "github.com/hireline/hireline/internal/service"

// ResumeRequest is used for both create and partial update.
type ResumeRequest struct {
	Title     *string `json:"title,omitempty"`
	Summary   *string `json:"summary,omitempty"`
	Content   *string `json:"content,omitempty"`
	FileURL   *string `json:"file_url,omitempty"`
	IsPrimary *bool   `json:"is_primary,omitempty"`
}

// ToInput converts the request to a service input.
func (r ResumeRequest) ToInput() service.ResumeInput {
	return service.ResumeInput{
		Title:     r.Title,
		Summary:   r.Summary,
		Content:   r.Content,
		FileURL:   r.FileURL,
		IsPrimary: r.IsPrimary,
	}
}
