package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
)

const rawTestMail = "Message-Id: <m1@mail.example>\r\n" +
	"From: Jane <jane@example.com>\r\n" +
	"Subject: Help with payment\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"My payment failed.\r\n"

type fakeSession struct {
	mu         sync.Mutex
	messages   []RawMessage
	seen       []uint32
	selectErr  error
	searchErr  error
	closed     bool
	closeCalls int
}

func (s *fakeSession) SelectFolder(folder string) error { return s.selectErr }

func (s *fakeSession) SearchUnseen() ([]uint32, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	uids := make([]uint32, 0, len(s.messages))
	for _, m := range s.messages {
		uids = append(uids, m.UID)
	}
	return uids, nil
}

func (s *fakeSession) Fetch(uids []uint32) ([]RawMessage, error) { return s.messages, nil }

func (s *fakeSession) MarkSeen(uid uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, uid)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeCalls++
	return nil
}

type fakeMailbox struct {
	mu       sync.Mutex
	connects int
	session  *fakeSession
	gate     chan struct{} // when set, Connect blocks until the gate closes
}

func (m *fakeMailbox) Connect() (MailboxSession, error) {
	m.mu.Lock()
	m.connects++
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return m.session, nil
}

func (m *fakeMailbox) connectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

type recordingProcessor struct {
	mu     sync.Mutex
	emails []domain.InboundEmail
	err    error
}

func (p *recordingProcessor) ProcessInboundEmail(ctx context.Context, email domain.InboundEmail) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emails = append(p.emails, email)
	return p.err
}

func testMailboxConfig() config.MailboxConfig {
	return config.MailboxConfig{
		Host:     "imap.example.com",
		Port:     993,
		Username: "support",
		Password: "secret",
		Folder:   "INBOX",
	}
}

func TestPollProcessesAndMarksSeen(t *testing.T) {
	session := &fakeSession{messages: []RawMessage{{UID: 7, Source: []byte(rawTestMail)}}}
	mailbox := &fakeMailbox{session: session}
	processor := &recordingProcessor{}
	poller := NewPoller(testMailboxConfig(), mailbox, processor, zap.NewNop())

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(processor.emails) != 1 {
		t.Fatalf("expected 1 processed email, got %d", len(processor.emails))
	}
	email := processor.emails[0]
	if email.MessageID != "m1@mail.example" {
		t.Fatalf("unexpected message id: %q", email.MessageID)
	}
	if email.From != "jane@example.com" {
		t.Fatalf("unexpected from: %q", email.From)
	}
	if len(session.seen) != 1 || session.seen[0] != 7 {
		t.Fatalf("message not flagged seen: %v", session.seen)
	}
	if !session.closed {
		t.Fatal("session not closed after cycle")
	}
}

func TestPollLeavesUnseenOnProcessingError(t *testing.T) {
	session := &fakeSession{messages: []RawMessage{{UID: 7, Source: []byte(rawTestMail)}}}
	mailbox := &fakeMailbox{session: session}
	processor := &recordingProcessor{err: errors.New("store down")}
	poller := NewPoller(testMailboxConfig(), mailbox, processor, zap.NewNop())

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(session.seen) != 0 {
		t.Fatal("failed message must stay unseen for the next cycle")
	}
}

func TestPollMarksUnparseableSeen(t *testing.T) {
	session := &fakeSession{messages: []RawMessage{{UID: 9, Source: []byte("not an email at all \x00")}}}
	mailbox := &fakeMailbox{session: session}
	processor := &recordingProcessor{}
	poller := NewPoller(testMailboxConfig(), mailbox, processor, zap.NewNop())

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(processor.emails) != 0 {
		t.Fatal("unparseable message reached the processor")
	}
	if len(session.seen) != 1 {
		t.Fatal("unparseable message must be flagged seen to avoid refetching")
	}
}

func TestPollClosesSessionOnFailure(t *testing.T) {
	session := &fakeSession{searchErr: errors.New("imap broke")}
	mailbox := &fakeMailbox{session: session}
	poller := NewPoller(testMailboxConfig(), mailbox, &recordingProcessor{}, zap.NewNop())

	if err := poller.Poll(context.Background()); err == nil {
		t.Fatal("expected search error to surface")
	}
	if !session.closed {
		t.Fatal("session must be closed even when the cycle fails")
	}
}

func TestPollReentrancyGuard(t *testing.T) {
	gate := make(chan struct{})
	session := &fakeSession{}
	mailbox := &fakeMailbox{session: session, gate: gate}
	poller := NewPoller(testMailboxConfig(), mailbox, &recordingProcessor{}, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- poller.Poll(context.Background()) }()

	// wait for the first poll to be inside Connect
	for mailbox.connectCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	// an overlapping poll is a no-op touching neither mailbox nor store
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("overlapping poll: %v", err)
	}
	if mailbox.connectCount() != 1 {
		t.Fatalf("overlapping poll connected to the mailbox: %d connects", mailbox.connectCount())
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first poll: %v", err)
	}

	// once the first cycle finished, polling works again
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("subsequent poll: %v", err)
	}
	if mailbox.connectCount() != 2 {
		t.Fatalf("expected 2 connects, got %d", mailbox.connectCount())
	}
}

func TestStartDisabledWithoutCredentials(t *testing.T) {
	cfg := testMailboxConfig()
	cfg.Password = ""
	poller := NewPoller(cfg, &fakeMailbox{session: &fakeSession{}}, &recordingProcessor{}, zap.NewNop())

	if poller.Start(context.Background()) {
		t.Fatal("poller must not start without mailbox credentials")
	}
}
