package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
)

// Processor consumes normalized inbound email. Implemented by the ticket
// lifecycle manager.
type Processor interface {
	ProcessInboundEmail(ctx context.Context, email domain.InboundEmail) error
}

// Poller drives the support mailbox on a fixed interval. A single in-flight
// guard collapses overlapping ticks into a no-op; one cycle always runs to
// completion once started.
type Poller struct {
	cfg       config.MailboxConfig
	mailbox   Mailbox
	processor Processor
	logger    *zap.Logger

	inFlight atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewPoller builds a poller over the given mailbox and processor.
func NewPoller(cfg config.MailboxConfig, mailbox Mailbox, processor Processor, logger *zap.Logger) *Poller {
	return &Poller{
		cfg:       cfg,
		mailbox:   mailbox,
		processor: processor,
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

// Start launches the polling loop. When mailbox credentials are absent the
// poller logs once and does not start; this is a configuration condition,
// not an error.
func (p *Poller) Start(ctx context.Context) bool {
	if !p.cfg.Configured() {
		p.logger.Info("support mailbox not configured; mail ingestion disabled")
		return false
	}
	if !p.started.CompareAndSwap(false, true) {
		return true
	}

	interval := p.cfg.PollInterval()
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Poll(ctx); err != nil {
					p.logger.Error("mail poll cycle failed", zap.Error(err))
				}
			}
		}
	}()

	p.logger.Info("mail poller started",
		zap.String("host", p.cfg.Host),
		zap.String("folder", p.cfg.Folder),
		zap.Duration("interval", interval))
	return true
}

// Stop ends the polling loop. A cycle already in flight runs to completion.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Poll runs one mailbox cycle: connect, select, search unseen, fetch,
// process sequentially, flag seen. Invoking Poll while a prior invocation
// is in flight is a no-op.
func (p *Poller) Poll(ctx context.Context) error {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("poll already in flight; skipping tick")
		return nil
	}
	defer p.inFlight.Store(false)

	session, err := p.mailbox.Connect()
	if err != nil {
		return err
	}
	// disconnect even when the cycle fails midway
	defer func() {
		if err := session.Close(); err != nil {
			p.logger.Warn("mailbox close failed", zap.Error(err))
		}
	}()

	if err := session.SelectFolder(p.cfg.Folder); err != nil {
		return err
	}
	uids, err := session.SearchUnseen()
	if err != nil {
		return err
	}
	if len(uids) == 0 {
		return nil
	}
	messages, err := session.Fetch(uids)
	if err != nil {
		return err
	}

	for _, raw := range messages {
		email, err := ParseMessage(raw.Source)
		if err != nil {
			// unparseable mail can never succeed; flag it so the next
			// cycle does not fetch it again
			p.logger.Warn("skipping unparseable message", zap.Uint32("uid", raw.UID), zap.Error(err))
			if err := session.MarkSeen(raw.UID); err != nil {
				p.logger.Warn("mark seen failed", zap.Uint32("uid", raw.UID), zap.Error(err))
			}
			continue
		}
		if err := p.processor.ProcessInboundEmail(ctx, email); err != nil {
			// leave unseen; the next cycle retries from scratch
			p.logger.Error("processing inbound email failed",
				zap.String("message_id", email.MessageID), zap.Error(err))
			continue
		}
		if err := session.MarkSeen(raw.UID); err != nil {
			p.logger.Warn("mark seen failed", zap.Uint32("uid", raw.UID), zap.Error(err))
		}
	}
	return nil
}
