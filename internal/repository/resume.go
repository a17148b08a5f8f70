package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/jackc/pgx/v5"
)

// ErrResumeNotFound is returned when a resume does not exist.
var ErrResumeNotFound = errors.New("resume not found")

const resumeColumns = `id, user_id, title, summary, content, file_url, is_primary, created_at, updated_at`

// CreateResume inserts a resume. The first resume of a user becomes primary,
// and a new primary resume clears the flag on the user's other resumes.
// Concurrent creates for one user are serialized on the user row.
func (r *Repository) CreateResume(ctx context.Context, res *model.Resume) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockResumeOwner(ctx, tx, res.UserID); err != nil {
			return err
		}

		var existing int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM resumes WHERE user_id = $1`, res.UserID).Scan(&existing); err != nil {
			return fmt.Errorf("failed to count resumes: %w", err)
		}
		if existing == 0 {
			res.IsPrimary = true
		}
		if res.IsPrimary {
			if err := clearPrimary(ctx, tx, res.UserID, res.ID); err != nil {
				return err
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO resumes (id, user_id, title, summary, content, file_url, is_primary, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			res.ID,
			res.UserID,
			res.Title,
			res.Summary,
			res.Content,
			res.FileURL,
			res.IsPrimary,
			res.CreatedAt,
			res.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to create resume: %w", err)
		}
		return nil
	})
}

// GetResumeByID retrieves a resume by its ID.
func (r *Repository) GetResumeByID(ctx context.Context, id string) (*model.Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1`

	res, err := scanResume(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResumeNotFound
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return res, nil
}

// ListResumes retrieves a paginated list of a user's resumes.
func (r *Repository) ListResumes(ctx context.Context, userID, cursor string, limit int) ([]*model.Resume, string, error) {
	qb := newQueryBuilder(`SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1`, userID)
	if err := qb.page("created_at", cursor, limit); err != nil {
		return nil, "", err
	}

	resumes, err := collect(ctx, r.pool, "resumes", scanResume, qb.sql, qb.args...)
	if err != nil {
		return nil, "", err
	}

	resumes, next := trimPage(resumes, limit, func(r *model.Resume) (string, time.Time) { return r.ID, r.CreatedAt })
	return resumes, next, nil
}

// UpdateResume updates a resume, switching the primary flag atomically.
func (r *Repository) UpdateResume(ctx context.Context, res *model.Resume) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if res.IsPrimary {
			if err := lockResumeOwner(ctx, tx, res.UserID); err != nil {
				return err
			}
			if err := clearPrimary(ctx, tx, res.UserID, res.ID); err != nil {
				return err
			}
		}

		err := tx.QueryRow(ctx, `
			UPDATE resumes
			SET title = $2, summary = $3, content = $4, file_url = $5, is_primary = $6
			WHERE id = $1
			RETURNING updated_at
		`,
			res.ID,
			res.Title,
			res.Summary,
			res.Content,
			res.FileURL,
			res.IsPrimary,
		).Scan(&res.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrResumeNotFound
			}
			return fmt.Errorf("failed to update resume: %w", err)
		}
		return nil
	})
}

// DeleteResume removes a resume. When the primary resume is deleted the
// most recent remaining resume is promoted.
func (r *Repository) DeleteResume(ctx context.Context, id string) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		var userID string
		var wasPrimary bool
		err := tx.QueryRow(ctx, `DELETE FROM resumes WHERE id = $1 RETURNING user_id, is_primary`, id).Scan(&userID, &wasPrimary)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrResumeNotFound
			}
			return fmt.Errorf("failed to delete resume: %w", err)
		}
		if !wasPrimary {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE resumes SET is_primary = TRUE
			WHERE id = (
				SELECT id FROM resumes WHERE user_id = $1
				ORDER BY created_at DESC, id DESC LIMIT 1
			)
		`, userID)
		if err != nil {
			return fmt.Errorf("failed to promote resume: %w", err)
		}
		return nil
	})
}

// lockResumeOwner takes a row lock on the user that primary-flag changes
// serialize on. FOR NO KEY UPDATE leaves foreign key checks from other
// tables unblocked.
func lockResumeOwner(ctx context.Context, tx pgx.Tx, userID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR NO KEY UPDATE`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock resume owner: %w", err)
	}
	return nil
}

func clearPrimary(ctx context.Context, q querier, userID, exceptID string) error {
	_, err := q.Exec(ctx, `UPDATE resumes SET is_primary = FALSE WHERE user_id = $1 AND id <> $2 AND is_primary`, userID, exceptID)
	if err != nil {
		return fmt.Errorf("failed to clear primary resume: %w", err)
	}
	return nil
}

func scanResume(row pgx.Row) (*model.Resume, error) {
	var res model.Resume
	err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.Title,
		&res.Summary,
		&res.Content,
		&res.FileURL,
		&res.IsPrimary,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
