package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// DedupLedger answers whether an inbound mail message was already turned
// into a ticket or thread update. A process-local set is consulted before
// any durable lookup and is populated after durable writes and confirmed
// durable hits, so repeated checks for one identifier never re-query the
// backing store within a process.
//
// With no durable repository the ledger runs cache-only: still
// duplicate-safe within the process lifetime, but not across restarts.
type DedupLedger struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	repo   repository.ProcessedEmailRepository
	logger *zap.Logger
}

// NewDedupLedger builds a ledger over the given durable repository. repo
// may be nil; the degradation to cache-only semantics is logged once here.
func NewDedupLedger(repo repository.ProcessedEmailRepository, logger *zap.Logger) *DedupLedger {
	if repo == nil {
		logger.Warn("dedup ledger has no durable backend; duplicate protection does not survive restarts")
	}
	return &DedupLedger{
		seen:   make(map[string]struct{}),
		repo:   repo,
		logger: logger,
	}
}

// HasProcessed reports whether messageID already produced a ticket or
// update.
func (l *DedupLedger) HasProcessed(ctx context.Context, messageID string) bool {
	if messageID == "" {
		return false
	}

	l.mu.Lock()
	_, cached := l.seen[messageID]
	l.mu.Unlock()
	if cached {
		return true
	}

	if l.repo == nil {
		return false
	}
	entry, err := l.repo.GetByMessageID(ctx, messageID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			l.logger.Warn("dedup ledger lookup failed; relying on in-process cache",
				zap.String("message_id", messageID), zap.Error(err))
		}
		return false
	}

	l.mu.Lock()
	l.seen[entry.MessageID] = struct{}{}
	l.mu.Unlock()
	return true
}

// RecordProcessed marks a message as handled, durably when possible and
// always in the process-local cache.
func (l *DedupLedger) RecordProcessed(ctx context.Context, entry *domain.ProcessedEmail) {
	if entry.MessageID == "" {
		return
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, entry); err != nil {
			l.logger.Warn("dedup ledger durable record failed; entry kept in-process only",
				zap.String("message_id", entry.MessageID), zap.Error(err))
		}
	}
	l.mu.Lock()
	l.seen[entry.MessageID] = struct{}{}
	l.mu.Unlock()
}
