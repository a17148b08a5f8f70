package dto

import (
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/service"
)

// RegisterRequest represents the request body for signing up.
type RegisterRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role"`
}

// ToInput converts the request to a service input.
func (r RegisterRequest) ToInput() service.RegisterInput {
	return service.RegisterInput{
		Email:    r.Email,
		Password: r.Password,
		FullName: r.FullName,
		Role:     r.Role,
	}
}

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries an access token for the user.
type AuthResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// ToAuthResponse converts a service auth result.
func ToAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{
		User:        res.User,
		AccessToken: res.Token,
		TokenType:   "Bearer",
		ExpiresAt:   res.ExpiresAt,
	}
}

// UpdateMeRequest represents PATCH /users/me.
type UpdateMeRequest struct {
	FullName *string `json:"full_name,omitempty"`
}

// ProfileRequest replaces the caller's profile.
type ProfileRequest struct {
	Headline        string   `json:"headline"`
	Bio             string   `json:"bio"`
	Location        string   `json:"location"`
	Phone           string   `json:"phone"`
	Website         string   `json:"website"`
	Skills          []string `json:"skills"`
	YearsExperience int      `json:"years_experience"`
	OpenToWork      bool     `json:"open_to_work"`
}

// ToInput converts the request to a service input.
func (r ProfileRequest) ToInput() service.ProfileInput {
	return service.ProfileInput{
		Headline:        r.Headline,
		Bio:             r.Bio,
		Location:        r.Location,
		Phone:           r.Phone,
		Website:         r.Website,
		Skills:          r.Skills,
		YearsExperience: r.YearsExperience,
		OpenToWork:      r.OpenToWork,
	}
}

// AdminUpdateUserRequest represents PATCH /users/{id}.
type AdminUpdateUserRequest struct {
	Role     *model.Role `json:"role,omitempty"`
	IsActive *bool       `json:"is_active,omitempty"`
}
