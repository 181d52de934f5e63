// Package ingest connects the support mailbox to the ticket lifecycle.
package ingest

import (
	"fmt"
	"io"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/spec-kit/support-desk/internal/config"
)

// RawMessage is one fetched mailbox message with its raw source.
type RawMessage struct {
	UID    uint32
	Source []byte
}

// Mailbox opens sessions against the inbound support mailbox.
type Mailbox interface {
	Connect() (MailboxSession, error)
}

// MailboxSession is one scoped mailbox connection. Close must be safe to
// call after any prior call failed.
type MailboxSession interface {
	SelectFolder(folder string) error
	SearchUnseen() ([]uint32, error)
	Fetch(uids []uint32) ([]RawMessage, error)
	MarkSeen(uid uint32) error
	Close() error
}

// IMAPMailbox dials the configured IMAP server.
type IMAPMailbox struct {
	cfg config.MailboxConfig
}

// NewIMAPMailbox builds an IMAP-backed Mailbox.
func NewIMAPMailbox(cfg config.MailboxConfig) *IMAPMailbox {
	return &IMAPMailbox{cfg: cfg}
}

// Connect dials and authenticates, returning a live session.
func (m *IMAPMailbox) Connect() (MailboxSession, error) {
	var (
		c   *client.Client
		err error
	)
	if m.cfg.TLS {
		c, err = client.DialTLS(m.cfg.Addr(), nil)
	} else {
		c, err = client.Dial(m.cfg.Addr())
	}
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", m.cfg.Addr(), err)
	}
	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return &imapSession{client: c}, nil
}

type imapSession struct {
	client *client.Client
}

func (s *imapSession) SelectFolder(folder string) error {
	if _, err := s.client.Select(folder, false); err != nil {
		return fmt.Errorf("select %s: %w", folder, err)
	}
	return nil
}

func (s *imapSession) SearchUnseen() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	return uids, nil
}

func (s *imapSession) Fetch(uids []uint32) ([]RawMessage, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqset, items, messages)
	}()

	var result []RawMessage
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			continue
		}
		result = append(result, RawMessage{UID: msg.Uid, Source: raw})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return result, nil
}

func (s *imapSession) MarkSeen(uid uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := s.client.UidStore(seqset, item, flags, nil); err != nil {
		return fmt.Errorf("mark seen %d: %w", uid, err)
	}
	return nil
}

func (s *imapSession) Close() error {
	return s.client.Logout()
}
