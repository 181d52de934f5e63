package domain

import "time"

// SenderRole indicates who authored a message in a ticket thread.
type SenderRole string

const (
	SenderUser   SenderRole = "user"
	SenderAgent  SenderRole = "agent"
	SenderSystem SenderRole = "system"
)

// Message captures one entry of a ticket thread. Messages are append-only
// and ordered by CreatedAt.
type Message struct {
	ID              int64
	TicketID        int64
	Sender          SenderRole
	Body            string
	SourceMessageID *string
	Metadata        map[string]string
	CreatedAt       time.Time
}
