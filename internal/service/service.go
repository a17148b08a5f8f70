// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/hireline/hireline/internal/model"
)

// Service errors shared across domains.
var (
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state transition")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxURLLength    = 500 // every URL column is VARCHAR(500)
)

// Page is a cursor-paginated result.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

func newPage[T any](items []T, next string) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, NextCursor: next, HasMore: next != ""}
}

// PageRequest carries pagination input from the transport layer.
type PageRequest struct {
	Cursor string
	Limit  int
}

func (p PageRequest) limit() int {
	if p.Limit <= 0 || p.Limit > maxPageSize {
		return defaultPageSize
	}
	return p.Limit
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func newID() string {
	return ulid.Make().String()
}

// canManage reports whether the actor owns the resource or is an admin.
func canManage(actor *model.AuthContext, ownerID string) bool {
	return actor != nil && (actor.IsAdmin() || actor.UserID == ownerID)
}

func validateOptionalURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > maxURLLength {
		return invalid("%s is too long", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return invalid("%s must be an http or https URL", field)
	}
	return nil
}

func validateLength(field, value string, min, max int) error {
	n := len([]rune(strings.TrimSpace(value)))
	if n < min {
		if min == 1 {
			return invalid("%s is required", field)
		}
		return invalid("%s must be at least %d characters", field, min)
	}
	if n > max {
		return invalid("%s must be at most %d characters", field, max)
	}
	return nil
}

func validateCurrency(code string) error {
	if len(code) != 3 {
		return invalid("currency must be a 3-letter ISO code")
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return invalid("currency must be a 3-letter ISO code")
		}
	}
	return nil
}
