package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/hireline/hireline/internal/model"
)

var ErrAPIKeyNotFound = errors.New("API key not found")

const apiKeyColumns = `id, user_id, key_hash, key_prefix, scopes, rate_limit_tier, name, revoked_at, last_used_at, created_at`

// lastUsedResolution bounds how often a busy integration key writes
// last_used_at.
const lastUsedResolution = time.Minute

// CreateAPIKey stores a hashed key. An unknown owner is ErrUserNotFound.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_keys (id, user_id, key_hash, key_prefix, scopes, rate_limit_tier, name, created_at)
		VALUES (@id, @user_id, @hash, @prefix, @scopes, @tier, @name, @created_at)
	`, pgx.NamedArgs{
		"id":         key.ID,
		"user_id":    key.UserID,
		"hash":       key.KeyHash,
		"prefix":     key.KeyPrefix,
		"scopes":     pq.Array(key.Scopes),
		"tier":       key.RateLimitTier,
		"name":       key.Name,
		"created_at": key.CreatedAt,
	})
	switch {
	case err == nil:
		return nil
	case isForeignKeyViolation(err):
		return ErrUserNotFound
	default:
		return fmt.Errorf("create api key: %w", err)
	}
}

// GetAPIKeyByID returns the key whether or not it is revoked.
func (r *Repository) GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error) {
	key, err := scanAPIKey(r.pool.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return key, nil
}

// GetAPIKeysByPrefix returns the unrevoked keys sharing a visible prefix.
// Prefixes are short and may collide; the caller checks each hash.
func (r *Repository) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error) {
	return collect(ctx, r.pool, "api keys", scanAPIKey,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND revoked_at IS NULL`, prefix)
}

// ListAPIKeysByUserID returns all of a user's keys, revoked included, newest
// first.
func (r *Repository) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error) {
	return collect(ctx, r.pool, "api keys", scanAPIKey,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

// RevokeAPIKey stamps revoked_at. A key already revoked is ErrAPIKeyNotFound.
func (r *Repository) RevokeAPIKey(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE api_keys SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// UpdateAPIKeyLastUsed records use of a key at most once per
// lastUsedResolution.
func (r *Repository) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = NOW()
		WHERE id = $1
		  AND (last_used_at IS NULL OR last_used_at < NOW() - make_interval(secs => $2))
	`, id, lastUsedResolution.Seconds())
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var k model.APIKey
	if err := row.Scan(
		&k.ID, &k.UserID, &k.KeyHash, &k.KeyPrefix, pq.Array(&k.Scopes),
		&k.RateLimitTier, &k.Name, &k.RevokedAt, &k.LastUsedAt, &k.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &k, nil
}
