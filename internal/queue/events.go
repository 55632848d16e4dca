// Package queue publishes domain events and queued e-mail to RabbitMQ and
// consumes them in the notifier process.
package queue

import (
	"context"
	"time"
)

// Queue names. Both are durable.
const (
	EventsQueue = "jobtracker.events"
	EmailQueue  = "jobtracker.email"
)

// EventType names a domain event.
type EventType string

const (
	EventApplicationSubmitted              EventType = "application.submitted"
	EventApplicationRecruiterStatusChanged EventType = "application.recruiter_status_changed"
	EventRecruiterApplicationApproved      EventType = "recruiter_application.approved"
	EventRecruiterApplicationRejected      EventType = "recruiter_application.rejected"
	EventAccountDeleted                    EventType = "account.deleted"
)

// Event is the JSON body published on EventsQueue.
type Event struct {
	Type                   EventType `json:"type"`
	OccurredAt             time.Time `json:"occurred_at"`
	UserID                 string    `json:"user_id,omitempty"`
	ActorID                string    `json:"actor_id,omitempty"`
	JobApplicationID       uint      `json:"job_application_id,omitempty"`
	JobPostingID           uint      `json:"job_posting_id,omitempty"`
	RecruiterApplicationID uint      `json:"recruiter_application_id,omitempty"`
	Status                 string    `json:"status,omitempty"`
	Reason                 string    `json:"reason,omitempty"`
}

// Publisher sends a JSON-encoded message to a durable queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, v interface{}) error
	Close() error
}

// NopPublisher discards every message. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func (NopPublisher) Close() error { return nil }

// PublishEvent stamps ev with the current time when unset and publishes it on EventsQueue.
func PublishEvent(ctx context.Context, p Publisher, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return p.Publish(ctx, EventsQueue, ev)
}
