package dto

import (
	"time"

	"github.com/hireline/hireline/internal/service"
)

// InvoiceRequest represents the request body for issuing an invoice.
type InvoiceRequest struct {
	CompanyID   string     `json:"company_id"`
	JobID       *string    `json:"job_id,omitempty"`
	Number      string     `json:"number,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Description string     `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// ToInput converts the request to a service input.
func (r InvoiceRequest) ToInput() service.CreateInvoiceInput {
	return service.CreateInvoiceInput{
		CompanyID:   r.CompanyID,
		JobID:       r.JobID,
		Number:      r.Number,
		AmountCents: r.AmountCents,
		Currency:    r.Currency,
		Description: r.Description,
		DueAt:       r.DueAt,
	}
}

// PayInvoiceRequest records a payment.
type PayInvoiceRequest struct {
	PaymentReference string `json:"payment_reference"`
}
