package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/jackc/pgx/v5"
)

// Common errors for invoice repository operations.
var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrInvoiceNumberExists = errors.New("invoice number already exists")
	ErrInvoiceNotOpen      = errors.New("invoice is not open")
)

// InvoiceFilter defines filters for listing invoices.
type InvoiceFilter struct {
	CompanyID string
	// OwnerID restricts results to companies owned by the user.
	OwnerID string
	Status  model.InvoiceStatus
}

const invoiceColumns = `id, company_id, job_id, number, amount_cents, currency, description, status,
	payment_reference, due_at, paid_at, created_at, updated_at`

// CreateInvoice inserts a new invoice.
func (r *Repository) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	query := `
		INSERT INTO invoices (id, company_id, job_id, number, amount_cents, currency, description, status,
			payment_reference, due_at, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		inv.ID,
		inv.CompanyID,
		inv.JobID,
		inv.Number,
		inv.AmountCents,
		inv.Currency,
		inv.Description,
		inv.Status,
		inv.PaymentReference,
		inv.DueAt,
		inv.PaidAt,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrInvoiceNumberExists
		}
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == "invoices_job_id_fkey" {
				return ErrJobNotFound
			}
			return ErrCompanyNotFound
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// GetInvoiceByID retrieves an invoice by its ID.
func (r *Repository) GetInvoiceByID(ctx context.Context, id string) (*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

// ListInvoices retrieves a paginated list of invoices.
func (r *Repository) ListInvoices(ctx context.Context, filter InvoiceFilter, cursor string, limit int) ([]*model.Invoice, string, error) {
	qb := newQueryBuilder(`SELECT ` + invoiceColumns + ` FROM invoices WHERE TRUE`)
	if filter.CompanyID != "" {
		qb.where("company_id = $%d", filter.CompanyID)
	}
	if filter.OwnerID != "" {
		qb.where("company_id IN (SELECT id FROM companies WHERE owner_id = $%d)", filter.OwnerID)
	}
	if filter.Status != "" {
		qb.where("status = $%d", filter.Status)
	}
	if err := qb.page("created_at", cursor, limit); err != nil {
		return nil, "", err
	}

	invoices, err := collect(ctx, r.pool, "invoices", scanInvoice, qb.sql, qb.args...)
	if err != nil {
		return nil, "", err
	}

	invoices, next := trimPage(invoices, limit, func(i *model.Invoice) (string, time.Time) { return i.ID, i.CreatedAt })
	return invoices, next, nil
}

// MarkInvoicePaid moves an open invoice to paid.
func (r *Repository) MarkInvoicePaid(ctx context.Context, id, reference string, paidAt time.Time) (*model.Invoice, error) {
	query := `
		UPDATE invoices
		SET status = 'paid', payment_reference = $2, paid_at = $3
		WHERE id = $1 AND status = 'open'
		RETURNING ` + invoiceColumns

	return r.transitionInvoice(ctx, id, query, id, reference, paidAt)
}

// VoidInvoice moves an open invoice to void.
func (r *Repository) VoidInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	query := `
		UPDATE invoices
		SET status = 'void'
		WHERE id = $1 AND status = 'open'
		RETURNING ` + invoiceColumns

	return r.transitionInvoice(ctx, id, query, id)
}

func (r *Repository) transitionInvoice(ctx context.Context, id, query string, args ...any) (*model.Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	// Distinguish a missing invoice from one that is already closed.
	if _, err := r.GetInvoiceByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrInvoiceNotOpen
}

// SumInvoicesByStatus returns the invoiced amount in cents per status.
func (r *Repository) SumInvoicesByStatus(ctx context.Context) (map[model.InvoiceStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COALESCE(SUM(amount_cents), 0) FROM invoices GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to sum invoices: %w", err)
	}
	defer rows.Close()

	sums := make(map[model.InvoiceStatus]int64)
	for rows.Next() {
		var status model.InvoiceStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan invoice sum: %w", err)
		}
		sums[status] = n
	}
	return sums, rows.Err()
}

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var inv model.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.CompanyID,
		&inv.JobID,
		&inv.Number,
		&inv.AmountCents,
		&inv.Currency,
		&inv.Description,
		&inv.Status,
		&inv.PaymentReference,
		&inv.DueAt,
		&inv.PaidAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
