package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             int64                 `json:"id"`
	Subject        string                `json:"subject"`
	Category       domain.Category       `json:"category"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	Channel        domain.TicketChannel  `json:"channel"`
	SLADueAt       time.Time             `json:"sla_due_at"`
	LastMessageAt  time.Time             `json:"last_message_at"`
	LastResponseAt *time.Time            `json:"last_response_at"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with the thread.
type TicketDetailResponse struct {
	TicketSummary
	Description string                  `json:"description"`
	Messages    []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents one thread message.
type TicketMessageResponse struct {
	ID        int64             `json:"id"`
	Sender    domain.SenderRole `json:"sender"`
	Body      string            `json:"body"`
	CreatedAt time.Time         `json:"created_at"`
}
