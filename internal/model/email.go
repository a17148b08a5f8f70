package model

import "time"

// EmailStatus represents the delivery state of an outbound email.
type EmailStatus string

const (
	EmailStatusQueued    EmailStatus = "queued"
	EmailStatusSent      EmailStatus = "sent"
	EmailStatusFailed    EmailStatus = "failed"
	EmailStatusExhausted EmailStatus = "exhausted"
)

// Email templates.
const (
	TemplateWelcome           = "welcome"
	TemplateApplicationStatus = "application_status"
	TemplateApplicationNew    = "application_received"
	TemplateJobAlert          = "job_alert"
	TemplateInvoice           = "invoice"
)

// EmailLog is an outbound email and its delivery record.
type EmailLog struct {
	ID             string      `json:"id"`
	UserID         *string     `json:"user_id,omitempty"`
	ToAddress      string      `json:"to_address"`
	Subject        string      `json:"subject"`
	Template       string      `json:"template"`
	Body           string      `json:"body,omitempty"`
	Status         EmailStatus `json:"status"`
	AttemptCount   int         `json:"attempt_count"`
	MaxAttempts    int         `json:"max_attempts"`
	NextAttemptAt  time.Time   `json:"next_attempt_at"`
	LastAttemptAt  *time.Time  `json:"last_attempt_at,omitempty"`
	LastHTTPStatus *int        `json:"last_http_status,omitempty"`
	LastError      string      `json:"last_error,omitempty"`
	SentAt         *time.Time  `json:"sent_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// IsTerminal returns true if delivery is in a terminal state.
func (e *EmailLog) IsTerminal() bool {
	return e.Status == EmailStatusSent || e.Status == EmailStatusExhausted
}

// CanRetry returns true if an admin may requeue the email.
func (e *EmailLog) CanRetry() bool {
	return e.Status == EmailStatusFailed || e.Status == EmailStatusExhausted
}

// RelayMessage is the JSON body posted to the mail relay.
type RelayMessage struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Template string `json:"template"`
	Body     string `json:"body"`
}
