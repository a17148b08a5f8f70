package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/jackc/pgx/v5"
)

// Common errors for application repository operations.
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrApplicationExists   = errors.New("candidate already applied to this job")
	ErrStatusChanged       = errors.New("status changed concurrently")
)

// ApplicationFilter defines filters for listing applications.
type ApplicationFilter struct {
	CandidateID string
	// EmployerID restricts results to jobs of companies owned by the user.
	EmployerID string
	JobID      string
	Status     model.ApplicationStatus
}

const applicationColumns = `id, job_id, candidate_id, resume_id, cover_letter, status, status_note, created_at, updated_at`

// CreateApplication inserts a new application.
func (r *Repository) CreateApplication(ctx context.Context, a *model.Application) error {
	query := `
		INSERT INTO applications (id, job_id, candidate_id, resume_id, cover_letter, status, status_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.JobID,
		a.CandidateID,
		a.ResumeID,
		a.CoverLetter,
		a.Status,
		a.StatusNote,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrApplicationExists
		}
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == "applications_resume_id_fkey" {
				return ErrResumeNotFound
			}
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// GetApplicationByID retrieves an application by its ID.
func (r *Repository) GetApplicationByID(ctx context.Context, id string) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	a, err := scanApplication(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return a, nil
}

// ListApplications retrieves a paginated list of applications.
func (r *Repository) ListApplications(ctx context.Context, filter ApplicationFilter, cursor string, limit int) ([]*model.Application, string, error) {
	qb := newQueryBuilder(`SELECT ` + applicationColumns + ` FROM applications WHERE TRUE`)
	if filter.CandidateID != "" {
		qb.where("candidate_id = $%d", filter.CandidateID)
	}
	if filter.EmployerID != "" {
		qb.where(`job_id IN (
			SELECT j.id FROM jobs j JOIN companies c ON c.id = j.company_id WHERE c.owner_id = $%d)`, filter.EmployerID)
	}
	if filter.JobID != "" {
		qb.where("job_id = $%d", filter.JobID)
	}
	if filter.Status != "" {
		qb.where("status = $%d", filter.Status)
	}
	if err := qb.page("created_at", cursor, limit); err != nil {
		return nil, "", err
	}

	apps, err := collect(ctx, r.pool, "applications", scanApplication, qb.sql, qb.args...)
	if err != nil {
		return nil, "", err
	}

	apps, next := trimPage(apps, limit, func(a *model.Application) (string, time.Time) { return a.ID, a.CreatedAt })
	return apps, next, nil
}

// UpdateApplicationStatus moves an application from one status to another.
// It fails with ErrStatusChanged when the stored status is no longer from.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, a *model.Application, from model.ApplicationStatus) error {
	query := `
		UPDATE applications
		SET status = $3, status_note = $4
		WHERE id = $1 AND status = $2
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query, a.ID, from, a.Status, a.StatusNote).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStatusChanged
		}
		return fmt.Errorf("failed to update application status: %w", err)
	}
	return nil
}

// CountApplicationsForJob returns the number of applications on a job
// created within [from, to).
func (r *Repository) CountApplicationsForJob(ctx context.Context, jobID string, from, to time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM applications WHERE job_id = $1 AND created_at >= $2 AND created_at < $3`

	var n int64
	if err := r.pool.QueryRow(ctx, query, jobID, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return n, nil
}

// CountApplicationsByStatus returns the number of applications per status.
func (r *Repository) CountApplicationsByStatus(ctx context.Context) (map[model.ApplicationStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ApplicationStatus]int64)
	for rows.Next() {
		var status model.ApplicationStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan application count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanApplication(row pgx.Row) (*model.Application, error) {
	var a model.Application
	err := row.Scan(
		&a.ID,
		&a.JobID,
		&a.CandidateID,
		&a.ResumeID,
		&a.CoverLetter,
		&a.Status,
		&a.StatusNote,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
