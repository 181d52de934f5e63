package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// The in-memory repositories back the service when no postgres DSN is
// configured and double as test fixtures. They assign sequential local IDs
// starting at 1; the durable backend assigns its own.

// MemoryTicketRepository is the in-process TicketRepository.
type MemoryTicketRepository struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*domain.Ticket
}

// NewMemoryTicketRepository builds an empty in-memory repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{nextID: 1, tickets: make(map[int64]*domain.Ticket)}
}

func (r *MemoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	ticket.ID = r.nextID
	r.nextID++
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *MemoryTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	ticket.UpdatedAt = time.Now()
	ticket.CreatedAt = stored.CreatedAt
	// escalation state is owned by MarkEscalated
	ticket.EscalatedAt = stored.EscalatedAt
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *MemoryTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (r *MemoryTicketRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var matched []domain.Ticket
	for _, t := range r.tickets {
		if t.UserID != nil && *t.UserID == userID {
			matched = append(matched, *t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryTicketRepository) ListBreached(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var breached []domain.Ticket
	for _, t := range r.tickets {
		if t.Status == domain.TicketStatusOpen && !t.SLADueAt.After(now) && t.EscalatedAt == nil {
			breached = append(breached, *t)
		}
	}
	sort.Slice(breached, func(i, j int) bool {
		return breached[i].SLADueAt.Before(breached[j].SLADueAt)
	})
	return breached, nil
}

func (r *MemoryTicketRepository) MarkEscalated(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return false, ErrNotFound
	}
	if stored.Status != domain.TicketStatusOpen || stored.EscalatedAt != nil {
		return false, nil
	}
	escalated := at
	stored.EscalatedAt = &escalated
	stored.UpdatedAt = time.Now()
	return true, nil
}

// MemoryMessageRepository is the in-process TicketMessageRepository.
type MemoryMessageRepository struct {
	mu       sync.Mutex
	nextID   int64
	messages []domain.Message
}

// NewMemoryMessageRepository builds an empty in-memory repository.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{nextID: 1}
}

func (r *MemoryMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = r.nextID
	r.nextID++
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *MemoryMessageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Message
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// MemoryProcessedEmailRepository is the in-process ProcessedEmailRepository.
type MemoryProcessedEmailRepository struct {
	mu      sync.Mutex
	entries map[string]domain.ProcessedEmail
}

// NewMemoryProcessedEmailRepository builds an empty in-memory ledger backend.
func NewMemoryProcessedEmailRepository() *MemoryProcessedEmailRepository {
	return &MemoryProcessedEmailRepository{entries: make(map[string]domain.ProcessedEmail)}
}

func (r *MemoryProcessedEmailRepository) Create(ctx context.Context, entry *domain.ProcessedEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.MessageID]; exists {
		return nil
	}
	r.entries[entry.MessageID] = *entry
	return nil
}

func (r *MemoryProcessedEmailRepository) GetByMessageID(ctx context.Context, messageID string) (*domain.ProcessedEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}
