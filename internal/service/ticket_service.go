package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/classify"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/ingest"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
)

// ticketRefPattern matches a subject-line ticket reference such as
// "ticket #7" or "[Support – Ticket #7]".
var ticketRefPattern = regexp.MustCompile(`(?i)ticket\s*#\s*(\d+)`)

// ParseTicketRef extracts a ticket reference from a subject line. The
// second return is false when the subject carries no parsable reference.
func ParseTicketRef(subject string) (int64, bool) {
	match := ticketRefPattern.FindStringSubmatch(subject)
	if match == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// TicketService is the ticket lifecycle manager. It orchestrates create,
// append, reopen and escalate over the store, the categorizer and the
// automated responder.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	ledger     *DedupLedger
	responder  *Responder
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	slaWindow  time.Duration
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the lifecycle manager.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	Ledger      *DedupLedger
	Responder   *Responder
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	SLAWindow   time.Duration
}

// TicketCreateInput describes an in-app ticket submission.
type TicketCreateInput struct {
	Subject     string
	Description string
	Priority    domain.TicketPriority
}

// NewTicketService constructs the lifecycle manager.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		ledger:     deps.Ledger,
		responder:  deps.Responder,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		slaWindow:  deps.SLAWindow,
		now:        time.Now,
	}
}

// ProcessInboundEmail runs one inbound mail message through the lifecycle:
// dedup check, ticket resolution via subject reference, create or append
// (reopening closed tickets on user replies), ledger recording, automated
// response, and an acknowledgement for brand-new tickets.
func (s *TicketService) ProcessInboundEmail(ctx context.Context, email domain.InboundEmail) error {
	if s.ledger.HasProcessed(ctx, email.MessageID) {
		s.logger.Debug("duplicate delivery ignored", zap.String("message_id", email.MessageID))
		s.metrics.Incr(observability.CounterDuplicateEmails)
		return nil
	}

	var ticket *domain.Ticket
	if refID, ok := ParseTicketRef(email.Subject); ok {
		existing, err := s.tickets.GetByID(ctx, refID)
		switch {
		case err == nil:
			ticket = existing
		case errors.Is(err, repository.ErrNotFound):
			// stale or foreign reference; fall through to create
		default:
			return fmt.Errorf("resolve ticket reference #%d: %w", refID, err)
		}
	}

	isNew := ticket == nil
	sourceID := optional(email.MessageID)

	if isNew {
		created, err := s.createTicket(ctx, createParams{
			requesterEmail:  email.From,
			subject:         email.Subject,
			description:     email.Body,
			priority:        domain.TicketPriorityNormal,
			channel:         domain.ChannelEmail,
			sourceMessageID: sourceID,
		})
		if err != nil {
			return err
		}
		ticket = created
	} else {
		if err := s.appendUserMessage(ctx, ticket, email.Body, sourceID); err != nil {
			return err
		}
	}

	s.ledger.RecordProcessed(ctx, &domain.ProcessedEmail{
		MessageID:  email.MessageID,
		TicketID:   ticket.ID,
		From:       email.From,
		Subject:    email.Subject,
		ReceivedAt: email.Date,
	})

	// established tickets keep the category assigned at creation
	s.respond(ctx, ticket)
	if isNew {
		s.responder.Acknowledge(ctx, ticket)
	}

	s.metrics.Incr(observability.CounterEmailsProcessed)
	return nil
}

// CreateTicket registers an in-app submission for an authenticated user.
func (s *TicketService) CreateTicket(ctx context.Context, userID, email string, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, errors.New("subject is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}

	ticket, err := s.createTicket(ctx, createParams{
		requesterEmail: email,
		subject:        subject,
		description:    ingest.SanitizeBody(input.Description),
		priority:       priority,
		channel:        domain.ChannelInApp,
		userID:         &userID,
	})
	if err != nil {
		return nil, err
	}

	s.respond(ctx, ticket)
	s.responder.Acknowledge(ctx, ticket)
	return ticket, nil
}

// respond runs the category auto-response and publishes its event. The
// lifecycle continues on responder failure; the request itself succeeded.
func (s *TicketService) respond(ctx context.Context, ticket *domain.Ticket) {
	msg, err := s.responder.Respond(ctx, ticket, ticket.Category)
	if err != nil {
		s.logger.Error("automated response failed",
			zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	if msg == nil {
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventAutoResponseSent,
		TicketID: ticket.ID,
		Payload: events.AutoResponseSentPayload{
			Category: ticket.Category,
			Template: msg.Metadata["template"],
		},
	})
}

// Escalate marks a ticket escalated. Valid only from open with no prior
// escalation; the store enforces that atomically, so concurrent sweeps set
// escalated_at at most once. It reports whether this call performed the
// escalation.
func (s *TicketService) Escalate(ctx context.Context, ticketID int64) (bool, error) {
	escalatedAt := s.now()
	won, err := s.tickets.MarkEscalated(ctx, ticketID, escalatedAt)
	if err != nil {
		return false, fmt.Errorf("mark ticket %d escalated: %w", ticketID, err)
	}
	if !won {
		return false, nil
	}

	msg := &domain.Message{
		TicketID: ticketID,
		Sender:   domain.SenderSystem,
		Body:     fmt.Sprintf("Ticket #%d breached its SLA window and was escalated to the support leads.", ticketID),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.Error("escalation note not persisted",
			zap.Int64("ticket_id", ticketID), zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticketID,
		Payload: events.TicketEscalatedPayload{
			EscalatedAt: escalatedAt,
		},
	})
	s.metrics.Incr(observability.CounterEscalations)
	return true, nil
}

// GetTicketForUser fetches a ticket with its thread, ensuring ownership.
func (s *TicketService) GetTicketForUser(ctx context.Context, userID string, ticketID int64) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket.UserID == nil || *ticket.UserID != userID {
		return nil, nil, repository.ErrNotFound
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, msgs, nil
}

// ListUserTickets returns paginated tickets for a requester.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID, limit, offset)
}

type createParams struct {
	requesterEmail  string
	subject         string
	description     string
	priority        domain.TicketPriority
	channel         domain.TicketChannel
	userID          *string
	sourceMessageID *string
}

func (s *TicketService) createTicket(ctx context.Context, params createParams) (*domain.Ticket, error) {
	now := s.now()
	ticket := &domain.Ticket{
		RequesterEmail:  params.requesterEmail,
		Subject:         params.subject,
		Description:     params.description,
		Category:        classify.Categorize(params.subject, params.description),
		Status:          domain.TicketStatusOpen,
		Priority:        params.priority,
		SLADueAt:        now.Add(s.slaWindow),
		LastMessageAt:   now,
		UserID:          params.userID,
		Channel:         params.channel,
		SourceMessageID: params.sourceMessageID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	first := &domain.Message{
		TicketID:        ticket.ID,
		Sender:          domain.SenderUser,
		Body:            params.description,
		SourceMessageID: params.sourceMessageID,
	}
	if err := s.messages.Create(ctx, first); err != nil {
		return nil, fmt.Errorf("persist first message: %w", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			RequesterEmail: ticket.RequesterEmail,
			Channel:        ticket.Channel,
			Category:       ticket.Category,
			Subject:        ticket.Subject,
			SLADueAt:       ticket.SLADueAt,
		},
	})
	s.metrics.Incr(observability.CounterTicketsCreated)
	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("channel", string(ticket.Channel)),
		zap.String("category", string(ticket.Category)))
	return ticket, nil
}

func (s *TicketService) appendUserMessage(ctx context.Context, ticket *domain.Ticket, body string, sourceMessageID *string) error {
	msg := &domain.Message{
		TicketID:        ticket.ID,
		Sender:          domain.SenderUser,
		Body:            body,
		SourceMessageID: sourceMessageID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("append message to ticket %d: %w", ticket.ID, err)
	}

	reopened := false
	if ticket.Status == domain.TicketStatusClosed {
		ticket.Status = domain.TicketStatusOpen
		reopened = true
	}
	ticket.LastMessageAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return fmt.Errorf("update ticket %d: %w", ticket.ID, err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			Sender:      msg.Sender,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	if reopened {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketReopened,
			TicketID: ticket.ID,
			Payload:  events.TicketReopenedPayload{RequesterEmail: ticket.RequesterEmail},
		})
		s.metrics.Incr(observability.CounterTicketsReopened)
		s.logger.Info("ticket reopened by user reply", zap.Int64("ticket_id", ticket.ID))
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
