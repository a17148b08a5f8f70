package model

import "time"

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceOpen InvoiceStatus = "open"
	InvoicePaid InvoiceStatus = "paid"
	InvoiceVoid InvoiceStatus = "void"
)

// IsValid checks if the status is known.
func (s InvoiceStatus) IsValid() bool {
	return s == InvoiceOpen || s == InvoicePaid || s == InvoiceVoid
}

// Invoice bills a company, usually for a job posting.
type Invoice struct {
	ID               string        `json:"id"`
	CompanyID        string        `json:"company_id"`
	JobID            *string       `json:"job_id,omitempty"`
	Number           string        `json:"number"`
	AmountCents      int64         `json:"amount_cents"`
	Currency         string        `json:"currency"`
	Description      string        `json:"description,omitempty"`
	Status           InvoiceStatus `json:"status"`
	PaymentReference string        `json:"payment_reference,omitempty"`
	DueAt            *time.Time    `json:"due_at,omitempty"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// IsOpen returns true while the invoice can be paid or voided.
func (i *Invoice) IsOpen() bool {
	return i.Status == InvoiceOpen
}
