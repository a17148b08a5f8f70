package model

import (
	"regexp"
	"strings"
	"time"
)

// CompanySize buckets employee headcount.
type CompanySize string

const (
	CompanySizeTiny       CompanySize = "1-10"
	CompanySizeSmall      CompanySize = "11-50"
	CompanySizeMedium     CompanySize = "51-200"
	CompanySizeLarge      CompanySize = "201-1000"
	CompanySizeEnterprise CompanySize = "1000+"
)

// IsValid checks if the size bucket is known. Empty is allowed.
func (s CompanySize) IsValid() bool {
	switch s {
	case "", CompanySizeTiny, CompanySizeSmall, CompanySizeMedium, CompanySizeLarge, CompanySizeEnterprise:
		return true
	}
	return false
}

// Company is an employer organisation that posts jobs.
type Company struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Website     string      `json:"website,omitempty"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	Size        CompanySize `json:"size,omitempty"`
	LogoURL     string      `json:"logo_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a display name into a URL-safe slug.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}
