package mailer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// maxErrorLen bounds the stored last_error text.
const maxErrorLen = 500

// Repository handles email log persistence. It runs on database/sql with the
// lib/pq driver, separate from the pgx pool used by request handlers.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new email log repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter defines filters for listing email logs.
type ListFilter struct {
	UserID   string
	Statuses []model.EmailStatus
}

const emailColumns = `id, user_id, to_address, subject, template, body, status,
	attempt_count, max_attempts, next_attempt_at, last_attempt_at,
	last_http_status, last_error, sent_at, created_at, updated_at`

// Insert stores a queued email.
func (r *Repository) Insert(ctx context.Context, e *model.EmailLog) error {
	query := `
		INSERT INTO email_logs (
			id, user_id, to_address, subject, template, body, status,
			attempt_count, max_attempts, next_attempt_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.ToAddress,
		e.Subject,
		e.Template,
		e.Body,
		string(e.Status),
		e.AttemptCount,
		e.MaxAttempts,
		e.NextAttemptAt,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}

// Get retrieves an email log by ID.
func (r *Repository) Get(ctx context.Context, id string) (*model.EmailLog, error) {
	query := `SELECT ` + emailColumns + ` FROM email_logs WHERE id = $1`

	e, err := scanEmail(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query email log: %w", err)
	}
	return e, nil
}

// List returns email logs newest first with cursor pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter, cursor string, limit int) ([]*model.EmailLog, string, error) {
	query := `SELECT ` + emailColumns + ` FROM email_logs WHERE TRUE`
	args := []any{}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if cursor != "" {
		c, err := repository.DecodeCursor(cursor)
		if err != nil {
			return nil, "", repository.ErrInvalidCursor
		}
		args = append(args, c.CreatedAt, c.ID)
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	emails, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(emails) > limit {
		emails = emails[:limit]
		last := emails[len(emails)-1]
		next = repository.EncodeCursor(&repository.PaginationCursor{ID: last.ID, CreatedAt: last.CreatedAt})
	}
	return emails, next, nil
}

// ClaimDue leases up to limit queued or failed emails whose next attempt is
// due. Claimed rows have next_attempt_at pushed out by lease so concurrent
// workers skip them until the attempt is recorded.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.EmailLog, error) {
	query := `
		UPDATE email_logs
		SET next_attempt_at = $2
		WHERE id IN (
			SELECT id FROM email_logs
			WHERE status IN ('queued', 'failed')
			  AND next_attempt_at <= $1
			ORDER BY next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + emailColumns

	return r.query(ctx, query, now, now.Add(lease), limit)
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id string, httpStatus int, now time.Time) error {
	query := `
		UPDATE email_logs
		SET status = 'sent',
			attempt_count = attempt_count + 1,
			last_attempt_at = $2,
			last_http_status = $3,
			last_error = '',
			sent_at = $2
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, now, httpStatus); err != nil {
		return fmt.Errorf("update email sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt and schedules the next one.
func (r *Repository) MarkFailed(ctx context.Context, id string, httpStatus *int, errMsg string, now, nextAttemptAt time.Time, exhausted bool) error {
	status := model.EmailStatusFailed
	if exhausted {
		status = model.EmailStatusExhausted
	}
	if len(errMsg) > maxErrorLen {
		errMsg = errMsg[:maxErrorLen]
	}

	query := `
		UPDATE email_logs
		SET status = $2,
			attempt_count = attempt_count + 1,
			last_attempt_at = $3,
			last_http_status = $4,
			last_error = $5,
			next_attempt_at = $6
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, string(status), now, httpStatus, errMsg, nextAttemptAt); err != nil {
		return fmt.Errorf("update email failure: %w", err)
	}
	return nil
}

// ResetForRetry requeues a failed or exhausted email with a fresh attempt budget.
func (r *Repository) ResetForRetry(ctx context.Context, id string, now time.Time) (*model.EmailLog, error) {
	query := `
		UPDATE email_logs
		SET status = 'queued',
			attempt_count = 0,
			next_attempt_at = $2,
			last_error = ''
		WHERE id = $1 AND status IN ('failed', 'exhausted')
		RETURNING ` + emailColumns

	e, err := scanEmail(r.db.QueryRowContext(ctx, query, id, now))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reset email: %w", err)
	}

	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrEmailNotRetryable
}

// QueueDepth returns the number of emails waiting for delivery.
func (r *Repository) QueueDepth(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_logs WHERE status IN ('queued', 'failed')`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count queue depth: %w", err)
	}
	return count, nil
}

// CountByStatus returns email counts per status.
func (r *Repository) CountByStatus(ctx context.Context) (map[model.EmailStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM email_logs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count emails: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.EmailStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan email count: %w", err)
		}
		counts[model.EmailStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*model.EmailLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query email logs: %w", err)
	}
	defer rows.Close()

	var emails []*model.EmailLog
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email log: %w", err)
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmail(row rowScanner) (*model.EmailLog, error) {
	var e model.EmailLog
	var status string
	var lastHTTPStatus sql.NullInt64

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.ToAddress,
		&e.Subject,
		&e.Template,
		&e.Body,
		&status,
		&e.AttemptCount,
		&e.MaxAttempts,
		&e.NextAttemptAt,
		&e.LastAttemptAt,
		&lastHTTPStatus,
		&e.LastError,
		&e.SentAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Status = model.EmailStatus(status)
	if lastHTTPStatus.Valid {
		code := int(lastHTTPStatus.Int64)
		e.LastHTTPStatus = &code
	}
	return &e, nil
}
