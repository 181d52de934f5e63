package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// ProcessedEmailRepository is the durable side of the dedup ledger.
type ProcessedEmailRepository interface {
	// Create records a processed message. Recording an already-known
	// MessageID is a no-op, not an error.
	Create(ctx context.Context, entry *domain.ProcessedEmail) error
	GetByMessageID(ctx context.Context, messageID string) (*domain.ProcessedEmail, error)
}

type processedEmailRepository struct {
	pool *pgxpool.Pool
}

// NewProcessedEmailRepository builds the postgres-backed repository.
func NewProcessedEmailRepository(pool *pgxpool.Pool) ProcessedEmailRepository {
	return &processedEmailRepository{pool: pool}
}

func (r *processedEmailRepository) Create(ctx context.Context, entry *domain.ProcessedEmail) error {
	const query = `
        INSERT INTO processed_emails (message_id, ticket_id, from_email, subject, received_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (message_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		entry.MessageID,
		entry.TicketID,
		entry.From,
		entry.Subject,
		entry.ReceivedAt,
	)
	return err
}

func (r *processedEmailRepository) GetByMessageID(ctx context.Context, messageID string) (*domain.ProcessedEmail, error) {
	const query = `
        SELECT message_id, ticket_id, from_email, subject, received_at
        FROM processed_emails WHERE message_id=$1`
	var entry domain.ProcessedEmail
	if err := r.pool.QueryRow(ctx, query, messageID).Scan(
		&entry.MessageID,
		&entry.TicketID,
		&entry.From,
		&entry.Subject,
		&entry.ReceivedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}
