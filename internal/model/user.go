// Package model defines domain entities for the application.
package model

import "time"

// Role is the account type of a user.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleEmployer  Role = "employer"
	RoleAdmin     Role = "admin"
)

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	return r == RoleCandidate || r == RoleEmployer || r == RoleAdmin
}

// CanSelfRegister reports whether the role may be chosen at signup.
func (r Role) CanSelfRegister() bool {
	return r == RoleCandidate || r == RoleEmployer
}

// User represents an account on the job board.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsAdmin returns true for admin accounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserProfile holds the public-facing details of a user.
type UserProfile struct {
	UserID          string    `json:"user_id"`
	Headline        string    `json:"headline"`
	Bio             string    `json:"bio"`
	Location        string    `json:"location"`
	Phone           string    `json:"phone"`
	Website         string    `json:"website"`
	Skills          []string  `json:"skills"`
	YearsExperience int       `json:"years_experience"`
	OpenToWork      bool      `json:"open_to_work"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
