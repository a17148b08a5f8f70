package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/cache"
	"github.com/hireline/hireline/internal/mailer"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// User errors.
var (
	ErrUserNotFound       = repository.ErrUserNotFound
	ErrEmailExists        = repository.ErrEmailExists
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxSkills         = 50
)

// UserService handles accounts, profiles and sign-in.
type UserService struct {
	repo   *repository.Repository
	cache  *cache.Cache
	tokens *auth.TokenManager
	mailer *mailer.Mailer
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.Repository, c *cache.Cache, tokens *auth.TokenManager, m *mailer.Mailer, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		cache:  c,
		tokens: tokens,
		mailer: m,
		logger: logger.With("component", "service.user"),
	}
}

// RegisterInput defines input for signing up.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     model.Role
}

// AuthResult is a user together with a fresh access token.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Register creates an account, queues a welcome email and signs the user in.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = model.RoleCandidate
	}
	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)

	s.mailer.QueueBestEffort(ctx, mailer.Message{
		UserID:   user.ID,
		To:       user.Email,
		Template: model.TemplateWelcome,
		Data: struct {
			Name string
			Role model.Role
		}{displayName(user), user.Role},
	})

	return s.issue(user)
}

// Login verifies credentials and returns an access token.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn comparable time so unknown emails are not distinguishable.
			_, _ = auth.HashPassword(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if auth.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return s.issue(user)
}

// rehash upgrades a hash made with older cost settings. Failure is logged
// and the login proceeds.
func (s *UserService) rehash(ctx context.Context, user *model.User, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.repo.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}

func (s *UserService) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UpdateMe changes the caller's own account fields.
func (s *UserService) UpdateMe(ctx context.Context, actor *model.AuthContext, fullName *string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if fullName != nil {
		if err := validateLength("full_name", *fullName, 0, 200); err != nil {
			return nil, err
		}
		user.FullName = strings.TrimSpace(*fullName)
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns a page of users, optionally filtered by role.
func (s *UserService) ListUsers(ctx context.Context, role model.Role, page PageRequest) (*Page[*model.User], error) {
	if role != "" && !role.IsValid() {
		return nil, invalid("unknown role %q", role)
	}
	users, next, err := s.repo.ListUsers(ctx, repository.UserFilter{Role: role}, page.Cursor, page.limit())
	if err != nil {
		return nil, err
	}
	return newPage(users, next), nil
}

// AdminUpdateInput defines the fields an admin may change on any user.
type AdminUpdateInput struct {
	Role     *model.Role
	IsActive *bool
}

// AdminUpdateUser changes a user's role or active flag and drops their
// cached credentials so the change applies to the next request.
func (s *UserService) AdminUpdateUser(ctx context.Context, id string, input AdminUpdateInput) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, invalid("unknown role %q", *input.Role)
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateUserAuthContexts(ctx, user.ID); err != nil {
		s.logger.Warn("failed to invalidate auth cache", "user_id", user.ID, "error", err)
	}
	s.logger.Info("user updated by admin", "user_id", user.ID, "role", user.Role, "is_active", user.IsActive)
	return user, nil
}

// GetProfile retrieves a user's profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// ProfileInput replaces every editable profile field.
type ProfileInput struct {
	Headline        string
	Bio             string
	Location        string
	Phone           string
	Website         string
	Skills          []string
	YearsExperience int
	OpenToWork      bool
}

// UpdateProfile replaces the caller's profile.
func (s *UserService) UpdateProfile(ctx context.Context, actor *model.AuthContext, input ProfileInput) (*model.UserProfile, error) {
	if err := validateProfile(input); err != nil {
		return nil, err
	}

	skills := make([]string, 0, len(input.Skills))
	for _, skill := range input.Skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			skills = append(skills, skill)
		}
	}

	profile := &model.UserProfile{
		UserID:          actor.UserID,
		Headline:        strings.TrimSpace(input.Headline),
		Bio:             input.Bio,
		Location:        strings.TrimSpace(input.Location),
		Phone:           strings.TrimSpace(input.Phone),
		Website:         input.Website,
		Skills:          skills,
		YearsExperience: input.YearsExperience,
		OpenToWork:      input.OpenToWork,
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func validateRegistration(input RegisterInput) error {
	if !input.Role.CanSelfRegister() {
		return invalid("role must be candidate or employer")
	}
	if n := len(input.Password); n < minPasswordLength || n > maxPasswordLength {
		return invalid("password must be %d to %d characters", minPasswordLength, maxPasswordLength)
	}
	return validateLength("full_name", input.FullName, 0, 200)
}

func validateProfile(input ProfileInput) error {
	if err := validateLength("headline", input.Headline, 0, 200); err != nil {
		return err
	}
	if err := validateLength("bio", input.Bio, 0, 5000); err != nil {
		return err
	}
	if err := validateLength("location", input.Location, 0, 200); err != nil {
		return err
	}
	if err := validateLength("phone", input.Phone, 0, 32); err != nil {
		return err
	}
	if err := validateOptionalURL("website", input.Website); err != nil {
		return err
	}
	if len(input.Skills) > maxSkills {
		return invalid("at most %d skills are allowed", maxSkills)
	}
	for _, skill := range input.Skills {
		if len(skill) > 50 {
			return invalid("skill %q is too long", skill)
		}
	}
	if input.YearsExperience < 0 || input.YearsExperience > 80 {
		return invalid("years_experience must be between 0 and 80")
	}
	return nil
}

// normalizeEmail lower-cases the address and rejects display-name forms.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > 254 {
		return "", invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email is not a valid address")
	}
	return email, nil
}

func displayName(u *model.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
