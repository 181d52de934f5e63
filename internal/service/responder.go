package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/mailer"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
)

type responseTemplate struct {
	name    string
	subject string
	body    string
}

// Canned responses per category. Categories without an entry (general)
// get no automated response. Bodies embed the ticket number via %d.
var responseTemplates = map[domain.Category]responseTemplate{
	domain.CategoryPasswordReset: {
		name:    "auto_password_reset",
		subject: "Resetting your password",
		body:    "We received your request about a password reset (ticket #%d). You can reset your password from the login page using \"Forgot password\". If the reset email does not arrive within a few minutes, check your spam folder.",
	},
	domain.CategoryVerification: {
		name:    "auto_verification",
		subject: "Account verification",
		body:    "We received your verification question (ticket #%d). Verification usually completes within one business day once all documents are uploaded. We will follow up if anything is missing.",
	},
	domain.CategoryOTPIssue: {
		name:    "auto_otp_issue",
		subject: "About your one-time password",
		body:    "We received your report about a one-time password (ticket #%d). OTP codes expire after a short time; request a new code and make sure your phone can receive SMS. An agent will review your case shortly.",
	},
	domain.CategoryPaymentIssue: {
		name:    "auto_payment_issue",
		subject: "About your payment",
		body:    "We received your payment question (ticket #%d). Our payments team reviews every report; please do not retry a charged payment until we confirm its status.",
	},
	domain.CategoryProfileIssue: {
		name:    "auto_profile_issue",
		subject: "About your profile",
		body:    "We received your profile question (ticket #%d). Most profile details can be changed from account settings; changes to verified fields need a review, which we have now queued.",
	},
	domain.CategoryLoginIssue: {
		name:    "auto_login_issue",
		subject: "Trouble signing in",
		body:    "We received your sign-in report (ticket #%d). Please try clearing your browser cache and signing in again; if the problem persists an agent will walk you through recovery.",
	},
}

// Responder dispatches canned responses and acknowledgements for tickets.
type Responder struct {
	tickets  repository.TicketRepository
	messages repository.TicketMessageRepository
	mailer   mailer.Mailer
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewResponder constructs the responder.
func NewResponder(tickets repository.TicketRepository, messages repository.TicketMessageRepository, m mailer.Mailer, logger *zap.Logger, metrics *observability.Metrics) *Responder {
	return &Responder{
		tickets:  tickets,
		messages: messages,
		mailer:   m,
		logger:   logger,
		metrics:  metrics,
	}
}

// Respond looks up the canned response for a category and emits it: the
// response is persisted as an agent message and LastResponseAt is set
// before delivery is attempted, so a failed send leaves the response
// recorded. A category without a template is a valid no-op.
func (r *Responder) Respond(ctx context.Context, ticket *domain.Ticket, category domain.Category) (*domain.Message, error) {
	tpl, ok := responseTemplates[category]
	if !ok {
		return nil, nil
	}

	body := fmt.Sprintf(tpl.body, ticket.ID)
	msg := &domain.Message{
		TicketID: ticket.ID,
		Sender:   domain.SenderAgent,
		Body:     body,
		Metadata: map[string]string{"template": tpl.name},
	}
	if err := r.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist auto-response: %w", err)
	}

	now := time.Now()
	ticket.LastResponseAt = &now
	if err := r.tickets.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("update last_response_at: %w", err)
	}

	result := r.mailer.Send(ctx, mailer.OutboundEmail{
		To:       ticket.RequesterEmail,
		Subject:  fmt.Sprintf("[Support – Ticket #%d] %s", ticket.ID, tpl.subject),
		Text:     body,
		Template: tpl.name,
		Metadata: map[string]string{"ticket_id": fmt.Sprintf("%d", ticket.ID)},
	})
	if !result.OK {
		r.logger.Warn("auto-response delivery failed; response remains recorded",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("category", string(category)))
	}
	r.metrics.Incr(observability.CounterAutoResponses)
	return msg, nil
}

// Acknowledge sends the new-ticket acknowledgement. It is sent for
// brand-new tickets only and is distinct from the category auto-response.
func (r *Responder) Acknowledge(ctx context.Context, ticket *domain.Ticket) {
	result := r.mailer.Send(ctx, mailer.OutboundEmail{
		To:      ticket.RequesterEmail,
		Subject: fmt.Sprintf("[Support – Ticket #%d] We received your request", ticket.ID),
		Text: fmt.Sprintf("Thanks for contacting support. Your request was registered as ticket #%d; reply to this email to add details. An agent will get back to you.",
			ticket.ID),
		Template: "ticket_acknowledgement",
		Metadata: map[string]string{"ticket_id": fmt.Sprintf("%d", ticket.ID)},
	})
	if !result.OK {
		r.logger.Warn("acknowledgement delivery failed",
			zap.Int64("ticket_id", ticket.ID))
	}
}
