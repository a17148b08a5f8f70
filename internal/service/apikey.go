package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/cache"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// ErrAPIKeyNotFound is returned for missing, foreign or revoked keys.
var ErrAPIKeyNotFound = repository.ErrAPIKeyNotFound

const maxKeyNameLength = 100

// APIKeyService manages integration credentials.
type APIKeyService struct {
	repo   *repository.Repository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(repo *repository.Repository, c *cache.Cache, logger *slog.Logger) *APIKeyService {
	return &APIKeyService{
		repo:   repo,
		cache:  c,
		logger: logger.With("component", "service.apikey"),
	}
}

// CreateAPIKey issues a key for the caller. The plaintext key is only
// available in the returned response.
func (s *APIKeyService) CreateAPIKey(ctx context.Context, actor *model.AuthContext, req model.APIKeyCreateRequest) (*model.APIKeyCreateResponse, error) {
	if actor.Role != model.RoleEmployer && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	scopes, err := validateScopes(actor, req.Scopes)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if len(name) > maxKeyNameLength {
		return nil, invalid("name must be at most %d characters", maxKeyNameLength)
	}

	key, plaintext, err := s.issue(ctx, actor.UserID, name, scopes, model.TierFree)
	if err != nil {
		return nil, err
	}

	s.logger.Info("API key created",
		"key_id", key.ID,
		"key_prefix", key.KeyPrefix,
		"user_id", key.UserID,
	)
	return createResponse(key, plaintext), nil
}

// ListAPIKeys returns the caller's keys, revoked ones included.
func (s *APIKeyService) ListAPIKeys(ctx context.Context, actor *model.AuthContext) ([]model.APIKeyResponse, error) {
	return s.ListAPIKeysForUser(ctx, actor.UserID)
}

// ListAPIKeysForUser returns every key of a user. Used by admin tooling.
func (s *APIKeyService) ListAPIKeysForUser(ctx context.Context, userID string) ([]model.APIKeyResponse, error) {
	keys, err := s.repo.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	responses := make([]model.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, key.ToResponse())
	}
	return responses, nil
}

// RevokeAPIKey revokes one of the caller's active keys.
func (s *APIKeyService) RevokeAPIKey(ctx context.Context, actor *model.AuthContext, id string) error {
	key, err := s.activeKey(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.RevokeAPIKey(ctx, key.ID); err != nil {
		return err
	}
	s.invalidate(ctx, key.UserID)

	s.logger.Info("API key revoked", "key_id", key.ID, "user_id", key.UserID)
	return nil
}

// RotateAPIKey replaces an active key with a new one carrying the same name,
// scopes and tier. The new key is created before the old one is revoked.
func (s *APIKeyService) RotateAPIKey(ctx context.Context, actor *model.AuthContext, id string) (*model.APIKeyRotateResponse, error) {
	old, err := s.activeKey(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key, plaintext, err := s.issue(ctx, old.UserID, old.Name, old.Scopes, old.RateLimitTier)
	if err != nil {
		return nil, err
	}

	revokedAt := time.Now().UTC()
	if err := s.repo.RevokeAPIKey(ctx, old.ID); err != nil {
		s.logger.Error("failed to revoke old API key during rotation", "key_id", old.ID, "error", err)
	}
	s.invalidate(ctx, old.UserID)

	s.logger.Info("API key rotated",
		"old_key_id", old.ID,
		"new_key_id", key.ID,
		"user_id", old.UserID,
	)
	return &model.APIKeyRotateResponse{
		OldKeyID:        old.ID,
		OldKeyRevokedAt: revokedAt,
		NewKey:          *createResponse(key, plaintext),
	}, nil
}

func (s *APIKeyService) issue(ctx context.Context, userID, name string, scopes []string, tier string) (*model.APIKey, string, error) {
	generated, err := auth.GenerateAPIKey(auth.EnvLive)
	if err != nil {
		return nil, "", err
	}
	key := &model.APIKey{
		ID:            newID(),
		UserID:        userID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: tier,
		Name:          name,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, generated.Plaintext, nil
}

// activeKey hides foreign and revoked keys behind ErrAPIKeyNotFound.
func (s *APIKeyService) activeKey(ctx context.Context, actor *model.AuthContext, id string) (*model.APIKey, error) {
	key, err := s.repo.GetAPIKeyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrAPIKeyNotFound
	}
	if key.IsRevoked() {
		return nil, ErrAPIKeyNotFound
	}
	return key, nil
}

// invalidate drops cached auth contexts so a revoked key stops working
// before the cache TTL runs out.
func (s *APIKeyService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.InvalidateUserAuthContexts(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate auth cache", "user_id", userID, "error", err)
	}
}

// validateScopes checks requested scopes and defaults to read. Only admins
// may mint admin keys.
func validateScopes(actor *model.AuthContext, scopes []string) ([]string, error) {
	if len(scopes) == 0 {
		return []string{model.ScopeRead}, nil
	}
	out := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if !slices.Contains(model.ValidScopes, scope) {
			return nil, invalid("invalid scope %q (valid: %s)", scope, strings.Join(model.ValidScopes, ", "))
		}
		if scope == model.ScopeAdmin && !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		if !slices.Contains(out, scope) {
			out = append(out, scope)
		}
	}
	return out, nil
}

func createResponse(key *model.APIKey, plaintext string) *model.APIKeyCreateResponse {
	return &model.APIKeyCreateResponse{
		ID:            key.ID,
		Key:           plaintext,
		Name:          key.Name,
		KeyPrefix:     key.KeyPrefix,
		Scopes:        key.Scopes,
		RateLimitTier: key.RateLimitTier,
		CreatedAt:     key.CreatedAt,
	}
}
