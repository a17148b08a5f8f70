package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/jackc/pgx/v5"
)

// ErrSavedSearchNotFound is returned when an alert does not exist.
var ErrSavedSearchNotFound = errors.New("saved search not found")

// RecordRecentSearch stores a search and trims the user's history to the
// most recent model.MaxRecentSearches entries.
func (r *Repository) RecordRecentSearch(ctx context.Context, s *model.RecentSearch) error {
	filters, err := json.Marshal(s.Query)
	if err != nil {
		return fmt.Errorf("marshal search filters: %w", err)
	}

	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO recent_searches (id, user_id, query, filters, searched_at)
			VALUES ($1, $2, $3, $4, $5)
		`, s.ID, s.UserID, s.Query.Q, filters, s.SearchedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to record search: %w", err)
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM recent_searches
			WHERE user_id = $1 AND id NOT IN (
				SELECT id FROM recent_searches WHERE user_id = $1
				ORDER BY searched_at DESC, id DESC
				LIMIT $2
			)
		`, s.UserID, model.MaxRecentSearches)
		if err != nil {
			return fmt.Errorf("failed to trim recent searches: %w", err)
		}
		return nil
	})
}

// ListRecentSearches returns a user's recent searches, newest first.
func (r *Repository) ListRecentSearches(ctx context.Context, userID string) ([]*model.RecentSearch, error) {
	query := `
		SELECT id, user_id, filters, searched_at
		FROM recent_searches
		WHERE user_id = $1
		ORDER BY searched_at DESC, id DESC
		LIMIT $2
	`

	searches, err := collect(ctx, r.pool, "recent searches", scanRecentSearch, query, userID, model.MaxRecentSearches)
	if err != nil {
		return nil, err
	}
	if searches == nil {
		searches = []*model.RecentSearch{}
	}
	return searches, nil
}

func scanRecentSearch(row pgx.Row) (*model.RecentSearch, error) {
	var s model.RecentSearch
	var filters []byte
	if err := row.Scan(&s.ID, &s.UserID, &filters, &s.SearchedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(filters, &s.Query); err != nil {
		return nil, fmt.Errorf("decode search filters: %w", err)
	}
	return &s, nil
}

// ClearRecentSearches deletes a user's search history.
func (r *Repository) ClearRecentSearches(ctx context.Context, userID string) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM recent_searches WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear recent searches: %w", err)
	}
	return result.RowsAffected(), nil
}

const savedSearchColumns = `id, user_id, name, filters, frequency, enabled, last_run_at, next_run_at, created_at, updated_at`

// CreateSavedSearch inserts a new alert.
func (r *Repository) CreateSavedSearch(ctx context.Context, s *model.SavedSearch) error {
	filters, err := json.Marshal(s.Query)
	if err != nil {
		return fmt.Errorf("marshal search filters: %w", err)
	}

	query := `
		INSERT INTO saved_searches (id, user_id, name, query, filters, frequency, enabled, next_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.Name,
		s.Query.Q,
		filters,
		s.Frequency,
		s.Enabled,
		s.NextRunAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create saved search: %w", err)
	}
	return nil
}

// GetSavedSearchByID retrieves an alert by its ID.
func (r *Repository) GetSavedSearchByID(ctx context.Context, id string) (*model.SavedSearch, error) {
	query := `SELECT ` + savedSearchColumns + ` FROM saved_searches WHERE id = $1`

	s, err := scanSavedSearch(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSavedSearchNotFound
		}
		return nil, fmt.Errorf("failed to get saved search: %w", err)
	}
	return s, nil
}

// ListSavedSearches retrieves a paginated list of a user's alerts.
func (r *Repository) ListSavedSearches(ctx context.Context, userID, cursor string, limit int) ([]*model.SavedSearch, string, error) {
	qb := newQueryBuilder(`SELECT `+savedSearchColumns+` FROM saved_searches WHERE user_id = $1`, userID)
	if err := qb.page("created_at", cursor, limit); err != nil {
		return nil, "", err
	}

	searches, err := r.querySavedSearches(ctx, qb.sql, qb.args...)
	if err != nil {
		return nil, "", err
	}

	searches, next := trimPage(searches, limit, func(s *model.SavedSearch) (string, time.Time) { return s.ID, s.CreatedAt })
	return searches, next, nil
}

// UpdateSavedSearch updates an alert's definition and schedule.
func (r *Repository) UpdateSavedSearch(ctx context.Context, s *model.SavedSearch) error {
	filters, err := json.Marshal(s.Query)
	if err != nil {
		return fmt.Errorf("marshal search filters: %w", err)
	}

	query := `
		UPDATE saved_searches
		SET name = $2, query = $3, filters = $4, frequency = $5, enabled = $6, next_run_at = $7
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.pool.QueryRow(ctx, query,
		s.ID,
		s.Name,
		s.Query.Q,
		filters,
		s.Frequency,
		s.Enabled,
		s.NextRunAt,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSavedSearchNotFound
		}
		return fmt.Errorf("failed to update saved search: %w", err)
	}
	return nil
}

// DeleteSavedSearch removes an alert.
func (r *Repository) DeleteSavedSearch(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM saved_searches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSavedSearchNotFound
	}
	return nil
}

// ClaimDueSavedSearches leases up to limit enabled alerts whose next_run_at
// has passed. Claimed rows have next_run_at pushed forward by lease so that
// other schedulers skip them until MarkSavedSearchRun records the outcome.
func (r *Repository) ClaimDueSavedSearches(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.SavedSearch, error) {
	query := `
		UPDATE saved_searches
		SET next_run_at = $2
		WHERE id IN (
			SELECT id FROM saved_searches
			WHERE enabled AND next_run_at <= $1
			ORDER BY next_run_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + savedSearchColumns

	return r.querySavedSearches(ctx, query, now, now.Add(lease), limit)
}

// MarkSavedSearchRun records a completed evaluation of an alert.
func (r *Repository) MarkSavedSearchRun(ctx context.Context, id string, ranAt, nextRunAt time.Time) error {
	query := `UPDATE saved_searches SET last_run_at = $2, next_run_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, ranAt, nextRunAt)
	if err != nil {
		return fmt.Errorf("failed to mark saved search run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSavedSearchNotFound
	}
	return nil
}

// CountEnabledSavedSearches returns the number of active alerts.
func (r *Repository) CountEnabledSavedSearches(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM saved_searches WHERE enabled`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count saved searches: %w", err)
	}
	return n, nil
}

func (r *Repository) querySavedSearches(ctx context.Context, sql string, args ...any) ([]*model.SavedSearch, error) {
	return collect(ctx, r.pool, "saved searches", scanSavedSearch, sql, args...)
}

func scanSavedSearch(row pgx.Row) (*model.SavedSearch, error) {
	var s model.SavedSearch
	var filters []byte
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&filters,
		&s.Frequency,
		&s.Enabled,
		&s.LastRunAt,
		&s.NextRunAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &s.Query); err != nil {
			return nil, fmt.Errorf("decode search filters: %w", err)
		}
	}
	return &s, nil
}
