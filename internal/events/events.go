// Package events publishes domain events for external collaborators such as
// resume scoring and job matching.
package events

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Type names a domain event.
type Type string

const (
	JobPublished             Type = "job.published"
	JobClosed                Type = "job.closed"
	ApplicationSubmitted     Type = "application.submitted"
	ApplicationStatusChanged Type = "application.status_changed"
	ResumeCreated            Type = "resume.created"
	ResumeUpdated            Type = "resume.updated"
	InvoicePaid              Type = "invoice.paid"
)

// Event is the envelope written to the event topic.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Key        string    `json:"key"` // aggregate ID, used as the partition key
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// NewEvent builds an event envelope.
func NewEvent(eventType Type, key string, data any) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher accepts domain events. Publish must not block the caller.
type Publisher interface {
	Publish(eventType Type, key string, data any)
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

// Publish is a no-op.
func (NoopPublisher) Publish(Type, string, any) {}
