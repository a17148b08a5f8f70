// Package dto provides Data Transfer Objects for API requests and responses.
// Entities are returned as their model types; this package holds the
// request bodies and the envelopes around them.
package dto

import "github.com/hireline/hireline/internal/service"

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ListResponse represents a paginated list.
type ListResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewListResponse wraps a service page.
func NewListResponse[T any](page *service.Page[T]) ListResponse[T] {
	data := page.Items
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{
		Data: data,
		Pagination: Pagination{
			NextCursor: page.NextCursor,
			HasMore:    page.HasMore,
		},
	}
}

// DataResponse wraps an unpaginated list.
type DataResponse[T any] struct {
	Data []T `json:"data"`
}

// AppHealthResponse is returned by the per-app health endpoints.
type AppHealthResponse struct {
	Status string `json:"status"`
	App    string `json:"app"`
}
