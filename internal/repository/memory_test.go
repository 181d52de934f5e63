package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

func openTicket(email string, due time.Time) *domain.Ticket {
	return &domain.Ticket{
		RequesterEmail: email,
		Subject:        "help",
		Description:    "something broke",
		Category:       domain.CategoryGeneral,
		Status:         domain.TicketStatusOpen,
		Priority:       domain.TicketPriorityNormal,
		SLADueAt:       due,
		Channel:        domain.ChannelEmail,
	}
}

func TestMemoryTicketSequentialIDs(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		ticket := openTicket("a@example.com", time.Now())
		if err := repo.Create(ctx, ticket); err != nil {
			t.Fatalf("create: %v", err)
		}
		if ticket.ID != want {
			t.Fatalf("expected id %d, got %d", want, ticket.ID)
		}
	}
}

func TestMemoryTicketGetByIDNotFound(t *testing.T) {
	repo := NewMemoryTicketRepository()
	if _, err := repo.GetByID(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryTicketListBreached(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	now := time.Now()

	overdue := openTicket("a@example.com", now.Add(-time.Hour))
	barelyOverdue := openTicket("b@example.com", now.Add(-time.Minute))
	future := openTicket("c@example.com", now.Add(time.Hour))
	closed := openTicket("d@example.com", now.Add(-time.Hour))
	closed.Status = domain.TicketStatusClosed
	for _, ticket := range []*domain.Ticket{overdue, barelyOverdue, future, closed} {
		if err := repo.Create(ctx, ticket); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	breached, err := repo.ListBreached(ctx, now)
	if err != nil {
		t.Fatalf("list breached: %v", err)
	}
	if len(breached) != 2 {
		t.Fatalf("expected 2 breached tickets, got %d", len(breached))
	}
	// most overdue first
	if breached[0].ID != overdue.ID || breached[1].ID != barelyOverdue.ID {
		t.Fatalf("unexpected order: %d, %d", breached[0].ID, breached[1].ID)
	}

	// due exactly now counts as breached
	atBoundary, err := repo.ListBreached(ctx, overdue.SLADueAt)
	if err != nil {
		t.Fatalf("list breached: %v", err)
	}
	if len(atBoundary) != 1 || atBoundary[0].ID != overdue.ID {
		t.Fatalf("boundary due time must count as breached: %v", atBoundary)
	}
}

func TestMemoryTicketMarkEscalated(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	ticket := openTicket("a@example.com", time.Now().Add(-time.Hour))
	if err := repo.Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Now()
	won, err := repo.MarkEscalated(ctx, ticket.ID, at)
	if err != nil || !won {
		t.Fatalf("first escalation must win: won=%v err=%v", won, err)
	}
	won, err = repo.MarkEscalated(ctx, ticket.ID, at.Add(time.Minute))
	if err != nil || won {
		t.Fatalf("second escalation must lose: won=%v err=%v", won, err)
	}

	stored, err := repo.GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.EscalatedAt == nil || !stored.EscalatedAt.Equal(at) {
		t.Fatalf("escalated at: %v", stored.EscalatedAt)
	}

	// escalated tickets leave the breach set
	breached, err := repo.ListBreached(ctx, time.Now())
	if err != nil {
		t.Fatalf("list breached: %v", err)
	}
	if len(breached) != 0 {
		t.Fatalf("escalated ticket still listed as breached")
	}

	if _, err := repo.MarkEscalated(ctx, 999, at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown ticket, got %v", err)
	}
}

func TestMemoryTicketMarkEscalatedSkipsClosed(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	ticket := openTicket("a@example.com", time.Now().Add(-time.Hour))
	if err := repo.Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}
	ticket.Status = domain.TicketStatusClosed
	if err := repo.Update(ctx, ticket); err != nil {
		t.Fatalf("update: %v", err)
	}

	won, err := repo.MarkEscalated(ctx, ticket.ID, time.Now())
	if err != nil {
		t.Fatalf("mark escalated: %v", err)
	}
	if won {
		t.Fatal("closed ticket must not be escalated")
	}
}

func TestMemoryTicketUpdatePreservesEscalation(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	ticket := openTicket("a@example.com", time.Now().Add(-time.Hour))
	if err := repo.Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}
	at := time.Now()
	if won, err := repo.MarkEscalated(ctx, ticket.ID, at); err != nil || !won {
		t.Fatalf("mark escalated: won=%v err=%v", won, err)
	}

	// a stale snapshot without the escalation stamp must not clear it
	ticket.Priority = domain.TicketPriorityHigh
	ticket.EscalatedAt = nil
	if err := repo.Update(ctx, ticket); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored, err := repo.GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.EscalatedAt == nil {
		t.Fatal("update cleared the escalation stamp")
	}
	if stored.Priority != domain.TicketPriorityHigh {
		t.Fatalf("update lost the field change: %v", stored.Priority)
	}
}

func TestMemoryTicketListByUser(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	alice := "user-alice"
	bob := "user-bob"

	for i := 0; i < 3; i++ {
		ticket := openTicket("alice@example.com", time.Now())
		ticket.UserID = &alice
		if err := repo.Create(ctx, ticket); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := openTicket("bob@example.com", time.Now())
	other.UserID = &bob
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}
	unowned := openTicket("anon@example.com", time.Now())
	if err := repo.Create(ctx, unowned); err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := repo.ListByUser(ctx, alice, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("expected 3 tickets for alice, got %d", len(mine))
	}

	paged, err := repo.ListByUser(ctx, alice, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paged) != 1 {
		t.Fatalf("expected 1 ticket on second page, got %d", len(paged))
	}

	empty, err := repo.ListByUser(ctx, alice, 10, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("offset past end must return nothing, got %d", len(empty))
	}
}

func TestMemoryMessagesOrderedByCreation(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()
	base := time.Now()

	for i, body := range []string{"first", "second", "third"} {
		msg := &domain.Message{
			TicketID:  1,
			Sender:    domain.SenderUser,
			Body:      body,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Create(ctx, msg); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.Create(ctx, &domain.Message{TicketID: 2, Sender: domain.SenderUser, Body: "other"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	msgs, err := repo.ListByTicket(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Body != want {
			t.Fatalf("message %d: got %q, want %q", i, msgs[i].Body, want)
		}
	}
}

func TestMemoryProcessedEmailLedger(t *testing.T) {
	repo := NewMemoryProcessedEmailRepository()
	ctx := context.Background()

	if _, err := repo.GetByMessageID(ctx, "m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	entry := &domain.ProcessedEmail{MessageID: "m1", TicketID: 4, From: "a@example.com"}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("create: %v", err)
	}
	// re-recording the same id keeps the first entry
	dup := &domain.ProcessedEmail{MessageID: "m1", TicketID: 99}
	if err := repo.Create(ctx, dup); err != nil {
		t.Fatalf("create duplicate: %v", err)
	}

	got, err := repo.GetByMessageID(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TicketID != 4 {
		t.Fatalf("duplicate create overwrote the entry: ticket %d", got.TicketID)
	}
}
