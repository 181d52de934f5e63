package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/mailer"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
)

// EscalationClaimer takes a short-lived shared claim before an escalation
// notice goes out, so processes sharing one store do not all notify.
// Satisfied by the redis wrapper. Claims are best-effort: when the claimer
// errors the sweep proceeds, accepting at-least-once notices.
type EscalationClaimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// SLAMonitor periodically scans for breached tickets and escalates each
// exactly once: fan out a notice per configured recipient, then run the
// lifecycle escalate transition.
type SLAMonitor struct {
	tickets    repository.TicketRepository
	lifecycle  *TicketService
	mailer     mailer.Mailer
	claimer    EscalationClaimer
	recipients []string
	interval   time.Duration
	logger     *zap.Logger
	metrics    *observability.Metrics

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	now       func() time.Time
}

// NewSLAMonitor constructs the monitor. claimer may be nil.
func NewSLAMonitor(tickets repository.TicketRepository, lifecycle *TicketService, m mailer.Mailer, claimer EscalationClaimer, recipients []string, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *SLAMonitor {
	return &SLAMonitor{
		tickets:    tickets,
		lifecycle:  lifecycle,
		mailer:     m,
		claimer:    claimer,
		recipients: recipients,
		interval:   interval,
		logger:     logger,
		metrics:    metrics,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
}

// Start launches the sweep loop and returns the monitor as its handle.
// Starting twice returns the existing handle rather than a second timer.
func (m *SLAMonitor) Start(ctx context.Context) *SLAMonitor {
	m.startOnce.Do(func() {
		interval := m.interval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-m.stop:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := m.Sweep(ctx); err != nil {
						m.logger.Error("sla sweep failed", zap.Error(err))
					}
				}
			}
		}()
		m.logger.Info("sla monitor started",
			zap.Duration("interval", interval),
			zap.Int("recipients", len(m.recipients)))
	})
	return m
}

// Stop ends the sweep loop. A sweep already in flight runs to completion.
func (m *SLAMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Sweep queries for breached tickets and escalates each one. A failure on
// one ticket does not stop the remaining tickets in the same cycle.
func (m *SLAMonitor) Sweep(ctx context.Context) error {
	breached, err := m.tickets.ListBreached(ctx, m.now())
	if err != nil {
		return fmt.Errorf("query breached tickets: %w", err)
	}

	for i := range breached {
		ticket := &breached[i]
		if err := m.escalateTicket(ctx, ticket); err != nil {
			m.metrics.Incr(observability.CounterEscalationErrors)
			m.logger.Error("escalation failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return nil
}

func (m *SLAMonitor) escalateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if m.claimer != nil {
		key := fmt.Sprintf("support:escalation:%d", ticket.ID)
		claimed, err := m.claimer.Claim(ctx, key, 2*m.sweepInterval())
		if err != nil {
			m.logger.Warn("escalation claim unavailable; proceeding without it",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		} else if !claimed {
			m.logger.Debug("escalation claimed by another process",
				zap.Int64("ticket_id", ticket.ID))
			return nil
		}
	}

	overdue := m.now().Sub(ticket.SLADueAt).Round(time.Minute)
	for _, recipient := range m.recipients {
		result := m.mailer.Send(ctx, mailer.OutboundEmail{
			To:      recipient,
			Subject: fmt.Sprintf("[SLA breach] Ticket #%d", ticket.ID),
			Text: fmt.Sprintf("Ticket #%d (%s) from %s has had no response for its full SLA window and is %s overdue.",
				ticket.ID, ticket.Subject, ticket.RequesterEmail, overdue),
			Template: "sla_escalation",
			Metadata: map[string]string{"ticket_id": fmt.Sprintf("%d", ticket.ID)},
		})
		if !result.OK {
			m.logger.Warn("escalation notice delivery failed",
				zap.Int64("ticket_id", ticket.ID),
				zap.String("recipient", recipient))
		}
	}

	won, err := m.lifecycle.Escalate(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if !won {
		// another process escalated between our query and the update
		m.logger.Debug("ticket already escalated", zap.Int64("ticket_id", ticket.ID))
	}
	return nil
}

func (m *SLAMonitor) sweepInterval() time.Duration {
	if m.interval > 0 {
		return m.interval
	}
	return 5 * time.Minute
}
