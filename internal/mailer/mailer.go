// Package mailer defines the outbound mail collaborator. Rendering and
// SMTP transport live outside this service; the pipeline only needs a send
// contract that reports failure instead of returning an error.
package mailer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboundEmail is a delivery request for the external mail sender.
type OutboundEmail struct {
	To       string
	Subject  string
	Text     string
	Template string
	Metadata map[string]string
}

// SendResult reports the outcome of a delivery attempt.
type SendResult struct {
	OK        bool
	MessageID string
}

// Mailer delivers outbound mail. Implementations must not return an error
// for a failed delivery; they report it through SendResult.OK so callers
// can treat sends as best-effort.
type Mailer interface {
	Send(ctx context.Context, email OutboundEmail) SendResult
}

// LogMailer is the stand-in delivery collaborator: it logs the request and
// reports success. The platform's real sender is wired in deployment.
type LogMailer struct {
	logger *zap.Logger
	from   string
}

// NewLogMailer builds the logging mailer.
func NewLogMailer(logger *zap.Logger, from string) *LogMailer {
	return &LogMailer{logger: logger, from: from}
}

// Send logs the outbound email and assigns a synthetic message id.
func (m *LogMailer) Send(ctx context.Context, email OutboundEmail) SendResult {
	id := uuid.NewString()
	m.logger.Info("outbound email",
		zap.String("message_id", id),
		zap.String("from", m.from),
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("template", email.Template))
	return SendResult{OK: true, MessageID: id}
}
