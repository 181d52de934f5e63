package ingest

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/microcosm-cc/bluemonday"

	"github.com/spec-kit/support-desk/internal/domain"
)

var stripMarkup = bluemonday.StrictPolicy()

// ParseMessage turns a raw RFC 5322 message into a normalized envelope.
// The body is the first inline part, reduced to sanitized plain text.
func ParseMessage(source []byte) (domain.InboundEmail, error) {
	var env domain.InboundEmail

	mr, err := mail.CreateReader(bytes.NewReader(source))
	if err != nil {
		return env, fmt.Errorf("parse message: %w", err)
	}

	header := mr.Header
	env.MessageID, _ = header.MessageID()
	env.Subject, _ = header.Subject()
	if date, err := header.Date(); err == nil {
		env.Date = date
	} else {
		env.Date = time.Now()
	}
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		env.From = from[0].Address
	}

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// keep whatever parts already decoded
			break
		}
		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		content, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch contentType {
		case "text/plain":
			if textBody == "" {
				textBody = string(content)
			}
		case "text/html":
			if htmlBody == "" {
				htmlBody = string(content)
			}
		}
	}

	body := textBody
	if body == "" {
		body = htmlBody
	}
	env.Body = SanitizeBody(body)

	if env.MessageID == "" {
		return env, fmt.Errorf("message has no Message-Id header")
	}
	return env, nil
}

// SanitizeBody strips all markup from a message body and normalizes
// whitespace, leaving plain text only.
func SanitizeBody(body string) string {
	clean := stripMarkup.Sanitize(body)
	clean = html.UnescapeString(clean)
	return strings.TrimSpace(clean)
}
