package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Implemented by the
// postgres-backed repository and by the in-memory fallback; both honor the
// same contract, including the SLA sweep predicate and the conditional
// escalation update.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error)
	// ListBreached returns open tickets whose SLA deadline has passed and
	// that were never escalated.
	ListBreached(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	// MarkEscalated sets escalated_at iff the ticket is still open and not
	// yet escalated. It reports whether this call won the update, so racing
	// sweeps escalate a ticket at most once.
	MarkEscalated(ctx context.Context, id int64, at time.Time) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, requester_email, subject, description, category, status, priority,
               sla_due_at, last_message_at, last_response_at, escalated_at,
               user_id, channel, source_message_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (requester_email, subject, description, category, status, priority,
                             sla_due_at, last_message_at, user_id, channel, source_message_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.RequesterEmail,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
		ticket.SLADueAt,
		ticket.LastMessageAt,
		ticket.UserID,
		ticket.Channel,
		ticket.SourceMessageID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, category=$3, last_message_at=$4,
            last_response_at=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.LastMessageAt,
		ticket.LastResponseAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE user_id=$1
        ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListBreached(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status=$1 AND sla_due_at <= $2 AND escalated_at IS NULL
        ORDER BY sla_due_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusOpen, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) MarkEscalated(ctx context.Context, id int64, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET escalated_at=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3 AND escalated_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, id, domain.TicketStatusOpen)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.RequesterEmail,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Category,
		&ticket.Status,
		&ticket.Priority,
		&ticket.SLADueAt,
		&ticket.LastMessageAt,
		&ticket.LastResponseAt,
		&ticket.EscalatedAt,
		&ticket.UserID,
		&ticket.Channel,
		&ticket.SourceMessageID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
