package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/events"
	"github.com/hireline/hireline/internal/mailer"
	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// Invoice errors.
var (
	ErrInvoiceNotFound     = repository.ErrInvoiceNotFound
	ErrInvoiceNumberExists = repository.ErrInvoiceNumberExists
	ErrInvoiceNotOpen      = repository.ErrInvoiceNotOpen
)

// InvoiceService handles billing records for companies. No payment
// processor is involved; status moves only through API calls.
type InvoiceService struct {
	repo   *repository.Repository
	mailer *mailer.Mailer
	events events.Publisher
	logger *slog.Logger
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(repo *repository.Repository, m *mailer.Mailer, publisher events.Publisher, logger *slog.Logger) *InvoiceService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &InvoiceService{
		repo:   repo,
		mailer: m,
		events: publisher,
		logger: logger.With("component", "service.invoice"),
	}
}

// maxInvoiceNumberLength matches invoices.number.
const maxInvoiceNumberLength = 40

// CreateInvoiceInput defines input for issuing an invoice.
type CreateInvoiceInput struct {
	CompanyID   string
	JobID       *string
	Number      string
	AmountCents int64
	Currency    string
	Description string
	DueAt       *time.Time
}

// CreateInvoice issues an open invoice to a company the caller manages.
func (s *InvoiceService) CreateInvoice(ctx context.Context, actor *model.AuthContext, input CreateInvoiceInput) (*model.Invoice, error) {
	now := time.Now().UTC()
	if err := validateInvoice(&input, now); err != nil {
		return nil, err
	}

	company, err := s.repo.GetCompanyByID(ctx, input.CompanyID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, company.OwnerID) {
		return nil, ErrForbidden
	}
	if input.JobID != nil {
		job, err := s.repo.GetJobByID(ctx, *input.JobID)
		if err != nil {
			return nil, err
		}
		if job.CompanyID != company.ID {
			return nil, invalid("job does not belong to company")
		}
	}

	inv := &model.Invoice{
		ID:          newID(),
		CompanyID:   company.ID,
		JobID:       input.JobID,
		Number:      input.Number,
		AmountCents: input.AmountCents,
		Currency:    input.Currency,
		Description: input.Description,
		Status:      model.InvoiceOpen,
		DueAt:       input.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if inv.Number == "" {
		inv.Number = invoiceNumber(now, inv.ID)
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice created", "invoice_id", inv.ID, "company_id", inv.CompanyID, "amount_cents", inv.AmountCents)
	s.notify(ctx, company, inv)
	return inv, nil
}

// GetInvoice returns an invoice of a company the caller manages.
func (s *InvoiceService) GetInvoice(ctx context.Context, actor *model.AuthContext, id string) (*model.Invoice, error) {
	inv, err := s.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return inv, nil
	}
	company, err := s.repo.GetCompanyByID(ctx, inv.CompanyID)
	if err != nil {
		return nil, err
	}
	if company.OwnerID != actor.UserID {
		return nil, ErrInvoiceNotFound
	}
	return inv, nil
}

// ListInvoicesInput defines filters for listing invoices.
type ListInvoicesInput struct {
	PageRequest
	CompanyID string
	Status    model.InvoiceStatus
}

// ListInvoices returns a page of invoices of the caller's companies, or of
// all companies for admins.
func (s *InvoiceService) ListInvoices(ctx context.Context, actor *model.AuthContext, input ListInvoicesInput) (*Page[*model.Invoice], error) {
	if input.Status != "" && !input.Status.IsValid() {
		return nil, invalid("unknown status %q", input.Status)
	}

	filter := repository.InvoiceFilter{CompanyID: input.CompanyID, Status: input.Status}
	if !actor.IsAdmin() {
		filter.OwnerID = actor.UserID
	}

	invoices, next, err := s.repo.ListInvoices(ctx, filter, input.Cursor, input.limit())
	if err != nil {
		return nil, err
	}
	return newPage(invoices, next), nil
}

// PayInvoice records a payment against an open invoice.
func (s *InvoiceService) PayInvoice(ctx context.Context, actor *model.AuthContext, id, reference string) (*model.Invoice, error) {
	reference = strings.TrimSpace(reference)
	if err := validateLength("payment_reference", reference, 1, 200); err != nil {
		return nil, err
	}
	if _, err := s.GetInvoice(ctx, actor, id); err != nil {
		return nil, err
	}

	inv, err := s.repo.MarkInvoicePaid(ctx, id, reference, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice paid", "invoice_id", inv.ID, "reference", reference)
	s.events.Publish(events.InvoicePaid, inv.CompanyID, inv)
	if company, err := s.repo.GetCompanyByID(ctx, inv.CompanyID); err == nil {
		s.notify(ctx, company, inv)
	}
	return inv, nil
}

// VoidInvoice cancels an open invoice.
func (s *InvoiceService) VoidInvoice(ctx context.Context, actor *model.AuthContext, id string) (*model.Invoice, error) {
	if _, err := s.GetInvoice(ctx, actor, id); err != nil {
		return nil, err
	}
	inv, err := s.repo.VoidInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice voided", "invoice_id", inv.ID)
	return inv, nil
}

func (s *InvoiceService) notify(ctx context.Context, company *model.Company, inv *model.Invoice) {
	owner, err := s.repo.GetUserByID(ctx, company.OwnerID)
	if err != nil {
		s.logger.Warn("skip invoice notification", "invoice_id", inv.ID, "error", err)
		return
	}
	s.mailer.QueueBestEffort(ctx, mailer.Message{
		UserID:   owner.ID,
		To:       owner.Email,
		Template: model.TemplateInvoice,
		Data: struct {
			Number   string
			Amount   string
			Currency string
			Status   model.InvoiceStatus
		}{inv.Number, FormatAmount(inv.AmountCents), inv.Currency, inv.Status},
	})
}

func validateInvoice(input *CreateInvoiceInput, now time.Time) error {
	if input.CompanyID == "" {
		return invalid("company_id is required")
	}
	if input.AmountCents <= 0 {
		return invalid("amount_cents must be positive")
	}
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = defaultCurrency
	}
	if err := validateCurrency(input.Currency); err != nil {
		return err
	}
	input.Number = strings.TrimSpace(input.Number)
	if err := validateLength("number", input.Number, 0, maxInvoiceNumberLength); err != nil {
		return err
	}
	if err := validateLength("description", input.Description, 0, 2000); err != nil {
		return err
	}
	if input.DueAt != nil && !input.DueAt.After(now) {
		return invalid("due_at must be in the future")
	}
	if input.JobID != nil && *input.JobID == "" {
		input.JobID = nil
	}
	return nil
}

// invoiceNumber derives a human-readable number from the issue date and
// the random tail of the invoice ID.
func invoiceNumber(now time.Time, id string) string {
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), id[len(id)-6:])
}

// FormatAmount renders cents as a decimal amount.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
