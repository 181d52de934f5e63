package domain

import "time"

// ProcessedEmail is a dedup ledger entry for an inbound mail message that
// already produced a ticket or a thread update. MessageID is unique; a
// redelivery of the same MessageID must be treated as a no-op.
type ProcessedEmail struct {
	MessageID  string
	TicketID   int64
	From       string
	Subject    string
	ReceivedAt time.Time
}
