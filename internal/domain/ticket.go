package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
)

// TicketChannel identifies which ingress created the ticket.
type TicketChannel string

const (
	ChannelEmail TicketChannel = "email"
	ChannelInApp TicketChannel = "in_app"
)

// Category is the fixed classification applied at ticket creation.
type Category string

const (
	CategoryPasswordReset Category = "password_reset"
	CategoryVerification  Category = "verification"
	CategoryOTPIssue      Category = "otp_issue"
	CategoryPaymentIssue  Category = "payment_issue"
	CategoryProfileIssue  Category = "profile_issue"
	CategoryLoginIssue    Category = "login_issue"
	CategoryGeneral       Category = "general"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID              int64
	RequesterEmail  string
	Subject         string
	Description     string
	Category        Category
	Status          TicketStatus
	Priority        TicketPriority
	SLADueAt        time.Time
	LastMessageAt   time.Time
	LastResponseAt  *time.Time
	EscalatedAt     *time.Time
	UserID          *string
	Channel         TicketChannel
	SourceMessageID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOpen reports whether the ticket is in the open state.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

// Escalated reports whether the ticket has already been escalated.
// EscalatedAt is set at most once and never cleared.
func (t *Ticket) Escalated() bool {
	return t.EscalatedAt != nil
}
