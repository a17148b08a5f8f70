package mailer

import "errors"

// Sentinel errors for mailer operations.
var (
	ErrEmailNotFound     = errors.New("email not found")
	ErrEmailNotRetryable = errors.New("email is not in a retryable state")
	ErrUnknownTemplate   = errors.New("unknown email template")
)
