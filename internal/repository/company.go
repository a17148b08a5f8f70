package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/jackc/pgx/v5"
)

// Common errors for company repository operations.
var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrCompanyExists   = errors.New("company name already exists")
)

// CompanyFilter defines filters for listing companies.
type CompanyFilter struct {
	OwnerID  string
	Q        string
	Location string
}

const companyColumns = `id, owner_id, name, slug, website, description, location, size, logo_url, created_at, updated_at`

// CreateCompany inserts a new company.
func (r *Repository) CreateCompany(ctx context.Context, c *model.Company) error {
	query := `
		INSERT INTO companies (id, owner_id, name, slug, website, description, location, size, logo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.OwnerID,
		c.Name,
		c.Slug,
		c.Website,
		c.Description,
		c.Location,
		c.Size,
		c.LogoURL,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCompanyExists
		}
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// GetCompanyByID retrieves a company by its ID.
func (r *Repository) GetCompanyByID(ctx context.Context, id string) (*model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	c, err := scanCompany(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListCompanies retrieves a paginated list of companies.
func (r *Repository) ListCompanies(ctx context.Context, filter CompanyFilter, cursor string, limit int) ([]*model.Company, string, error) {
	qb := newQueryBuilder(`SELECT ` + companyColumns + ` FROM companies WHERE TRUE`)
	if filter.OwnerID != "" {
		qb.where("owner_id = $%d", filter.OwnerID)
	}
	if filter.Q != "" {
		qb.where(`name ILIKE $%d ESCAPE '\'`, containsPattern(filter.Q))
	}
	if filter.Location != "" {
		qb.where(`location ILIKE $%d ESCAPE '\'`, containsPattern(filter.Location))
	}
	if err := qb.page("created_at", cursor, limit); err != nil {
		return nil, "", err
	}

	companies, err := collect(ctx, r.pool, "companies", scanCompany, qb.sql, qb.args...)
	if err != nil {
		return nil, "", err
	}

	companies, next := trimPage(companies, limit, func(c *model.Company) (string, time.Time) { return c.ID, c.CreatedAt })
	return companies, next, nil
}

// UpdateCompany updates a company's mutable fields.
func (r *Repository) UpdateCompany(ctx context.Context, c *model.Company) error {
	query := `
		UPDATE companies
		SET name = $2, slug = $3, website = $4, description = $5, location = $6, size = $7, logo_url = $8
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		c.ID,
		c.Name,
		c.Slug,
		c.Website,
		c.Description,
		c.Location,
		c.Size,
		c.LogoURL,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCompanyNotFound
		}
		if isUniqueViolation(err) {
			return ErrCompanyExists
		}
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

// DeleteCompany removes a company and, by cascade, its jobs.
func (r *Repository) DeleteCompany(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

// CountCompanies returns the total number of companies.
func (r *Repository) CountCompanies(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	return n, nil
}

func scanCompany(row pgx.Row) (*model.Company, error) {
	var c model.Company
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Slug,
		&c.Website,
		&c.Description,
		&c.Location,
		&c.Size,
		&c.LogoURL,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
