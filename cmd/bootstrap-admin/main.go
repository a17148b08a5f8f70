// Command bootstrap-admin creates or promotes an administrator account and
// optionally issues an API key for it. Administrators cannot self-register.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

type output struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	Created   bool     `json:"created"`
	KeyID     string   `json:"key_id,omitempty"`
	Key       string   `json:"key,omitempty"`
	KeyPrefix string   `json:"key_prefix,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "admin@hireline.local", "Administrator email")
		fullName    = flag.String("name", "Administrator", "Administrator full name")
		withKey     = flag.Bool("api-key", false, "Also issue an API key")
		keyName     = flag.String("key-name", "bootstrap", "API key name")
		scopesInput = flag.String("scopes", "read,write,admin", "Comma-separated scopes (read,write,admin)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fail("DATABASE_URL is required")
	}

	// The password is read from the environment so it stays out of shell history.
	password := os.Getenv("ADMIN_PASSWORD")

	scopes, err := parseScopes(*scopesInput)
	if err != nil {
		fail(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL, repository.DefaultConnectWait)
	if err != nil {
		fail("connect database: " + err.Error())
	}
	defer repo.Close()

	user, created, err := ensureAdmin(ctx, repo, strings.ToLower(strings.TrimSpace(*email)), *fullName, password)
	if err != nil {
		fail(err.Error())
	}

	out := output{UserID: user.ID, Email: user.Email, Created: created}

	if *withKey {
		generated, err := auth.GenerateAPIKey(auth.EnvLive)
		if err != nil {
			fail("generate api key: " + err.Error())
		}

		apiKey := &model.APIKey{
			ID:            ulid.Make().String(),
			UserID:        user.ID,
			KeyHash:       generated.Hash,
			KeyPrefix:     generated.Prefix,
			Scopes:        scopes,
			RateLimitTier: model.TierUnlimited,
			Name:          *keyName,
			CreatedAt:     time.Now().UTC(),
		}
		if err := repo.CreateAPIKey(ctx, apiKey); err != nil {
			fail("create api key: " + err.Error())
		}

		out.KeyID = apiKey.ID
		out.Key = generated.Plaintext
		out.KeyPrefix = apiKey.KeyPrefix
		out.Scopes = scopes
	}

	switch strings.ToLower(*format) {
	case "plain":
		if out.Key != "" {
			fmt.Println(out.Key)
		} else {
			fmt.Println(out.UserID)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fail("invalid format; use plain or json")
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func parseScopes(input string) ([]string, error) {
	parts := strings.Split(input, ",")
	scopes := make([]string, 0, len(parts))
	for _, part := range parts {
		scope := strings.TrimSpace(part)
		if scope == "" {
			continue
		}
		if !slices.Contains(model.ValidScopes, scope) {
			return nil, fmt.Errorf("invalid scope: %s", scope)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		scopes = model.ScopesForRole(model.RoleAdmin)
	}
	return scopes, nil
}

// ensureAdmin promotes an existing account or creates a new one. A new
// account needs ADMIN_PASSWORD.
func ensureAdmin(ctx context.Context, repo *repository.Repository, email, fullName, password string) (*model.User, bool, error) {
	existing, err := repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == model.RoleAdmin && existing.IsActive {
			return existing, false, nil
		}
		existing.Role = model.RoleAdmin
		existing.IsActive = true
		existing.UpdatedAt = time.Now().UTC()
		if err := repo.UpdateUser(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("promote user: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, false, fmt.Errorf("look up user: %w", err)
	}

	if len(password) < 8 {
		return nil, false, errors.New("ADMIN_PASSWORD of at least 8 characters is required to create an account")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         model.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}
