package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/jackc/pgx/v5"
)

// ErrJobNotFound is returned when a job does not exist.
var ErrJobNotFound = errors.New("job not found")

// JobFilter defines filters for listing jobs.
type JobFilter struct {
	model.JobQuery
	Status model.JobStatus
	// OwnerID restricts results to companies owned by the user.
	OwnerID string
	// PublicOnly hides jobs whose closing date has passed.
	PublicOnly     bool
	PublishedAfter *time.Time
}

const jobColumns = `id, company_id, posted_by, title, description, location, employment_type, remote,
	salary_min, salary_max, currency, status, published_at, closes_at, view_count, created_at, updated_at`

// CreateJob inserts a new job.
func (r *Repository) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (id, company_id, posted_by, title, description, location, employment_type, remote,
			salary_min, salary_max, currency, status, published_at, closes_at, view_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.CompanyID,
		job.PostedBy,
		job.Title,
		job.Description,
		job.Location,
		job.EmploymentType,
		job.Remote,
		job.SalaryMin,
		job.SalaryMax,
		job.Currency,
		job.Status,
		job.PublishedAt,
		job.ClosesAt,
		job.ViewCount,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCompanyNotFound
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJobByID retrieves a job by its ID.
func (r *Repository) GetJobByID(ctx context.Context, id string) (*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs retrieves a paginated list of jobs.
func (r *Repository) ListJobs(ctx context.Context, filter JobFilter, cursor string, limit int) ([]*model.Job, string, error) {
	qb := newQueryBuilder(`SELECT ` + jobColumns + ` FROM jobs WHERE TRUE`)
	applyJobFilter(qb, filter)
	if err := qb.page("created_at", cursor, limit); err != nil {
		return nil, "", err
	}

	jobs, err := r.queryJobs(ctx, qb)
	if err != nil {
		return nil, "", err
	}

	jobs, next := trimPage(jobs, limit, func(j *model.Job) (string, time.Time) { return j.ID, j.CreatedAt })
	return jobs, next, nil
}

// FindNewJobs returns up to limit published jobs matching q published after since,
// newest first.
func (r *Repository) FindNewJobs(ctx context.Context, q model.JobQuery, since time.Time, limit int) ([]*model.Job, error) {
	qb := newQueryBuilder(`SELECT ` + jobColumns + ` FROM jobs WHERE TRUE`)
	applyJobFilter(qb, JobFilter{
		JobQuery:       q,
		Status:         model.JobStatusPublished,
		PublicOnly:     true,
		PublishedAfter: &since,
	})
	qb.sql += fmt.Sprintf(" ORDER BY published_at DESC, id DESC LIMIT $%d", qb.next())
	qb.args = append(qb.args, limit)

	return r.queryJobs(ctx, qb)
}

func applyJobFilter(qb *queryBuilder, f JobFilter) {
	if f.Status != "" {
		qb.where("status = $%d", f.Status)
	}
	if f.PublicOnly {
		qb.sql += " AND (closes_at IS NULL OR closes_at > NOW())"
	}
	if f.OwnerID != "" {
		qb.where("company_id IN (SELECT id FROM companies WHERE owner_id = $%d)", f.OwnerID)
	}
	if f.Q != "" {
		qb.where(`(title ILIKE $%[1]d ESCAPE '\' OR description ILIKE $%[1]d ESCAPE '\')`, containsPattern(f.Q))
	}
	if f.Location != "" {
		qb.where(`location ILIKE $%d ESCAPE '\'`, containsPattern(f.Location))
	}
	if f.CompanyID != "" {
		qb.where("company_id = $%d", f.CompanyID)
	}
	if f.EmploymentType != "" {
		qb.where("employment_type = $%d", f.EmploymentType)
	}
	if f.Remote != nil {
		qb.where("remote = $%d", *f.Remote)
	}
	if f.SalaryMin != nil {
		qb.where("COALESCE(salary_max, salary_min) >= $%d", *f.SalaryMin)
	}
	if f.PublishedAfter != nil {
		qb.where("published_at > $%d", *f.PublishedAfter)
	}
}

func (r *Repository) queryJobs(ctx context.Context, qb *queryBuilder) ([]*model.Job, error) {
	return collect(ctx, r.pool, "jobs", scanJob, qb.sql, qb.args...)
}

// UpdateJob updates a job's mutable fields.
func (r *Repository) UpdateJob(ctx context.Context, job *model.Job) error {
	query := `
		UPDATE jobs
		SET title = $2, description = $3, location = $4, employment_type = $5, remote = $6,
		    salary_min = $7, salary_max = $8, currency = $9, status = $10, published_at = $11, closes_at = $12
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		job.ID,
		job.Title,
		job.Description,
		job.Location,
		job.EmploymentType,
		job.Remote,
		job.SalaryMin,
		job.SalaryMax,
		job.Currency,
		job.Status,
		job.PublishedAt,
		job.ClosesAt,
	).Scan(&job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// DeleteJob removes a job.
func (r *Repository) DeleteJob(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// IncrementViewCounts adds per-job view deltas in one batch.
func (r *Repository) IncrementViewCounts(ctx context.Context, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for jobID, n := range deltas {
		batch.Queue(`UPDATE jobs SET view_count = view_count + $2 WHERE id = $1`, jobID, n)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range deltas {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to increment view count: %w", err)
		}
	}
	return nil
}

// CountJobsByStatus returns the number of jobs per status.
func (r *Repository) CountJobsByStatus(ctx context.Context) (map[model.JobStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.JobStatus]int64)
	for rows.Next() {
		var status model.JobStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	err := row.Scan(
		&j.ID,
		&j.CompanyID,
		&j.PostedBy,
		&j.Title,
		&j.Description,
		&j.Location,
		&j.EmploymentType,
		&j.Remote,
		&j.SalaryMin,
		&j.SalaryMax,
		&j.Currency,
		&j.Status,
		&j.PublishedAt,
		&j.ClosesAt,
		&j.ViewCount,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
