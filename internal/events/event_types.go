package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketMessageAdded EventType = "ticket_message_added"
	EventTicketReopened     EventType = "ticket_reopened"
	EventTicketEscalated    EventType = "ticket_escalated"
	EventAutoResponseSent   EventType = "auto_response_sent"
)

// Event represents a domain event emitted by the pipeline.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	RequesterEmail string               `json:"requester_email"`
	Channel        domain.TicketChannel `json:"channel"`
	Category       domain.Category      `json:"category"`
	Subject        string               `json:"subject"`
	SLADueAt       time.Time            `json:"sla_due_at"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   int64             `json:"message_id"`
	Sender      domain.SenderRole `json:"sender"`
	BodyPreview string            `json:"body_preview"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	RequesterEmail string `json:"requester_email"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	EscalatedAt time.Time `json:"escalated_at"`
}

// AutoResponseSentPayload payload.
type AutoResponseSentPayload struct {
	Category domain.Category `json:"category"`
	Template string          `json:"template"`
}
