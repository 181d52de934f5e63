package domain

import "time"

// InboundEmail is the normalized envelope the mail source adapter hands to
// the ticket lifecycle. Body is already reduced to sanitized plain text.
type InboundEmail struct {
	MessageID string
	From      string
	Subject   string
	Body      string
	Date      time.Time
}
