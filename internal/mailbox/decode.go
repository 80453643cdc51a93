package mailbox

import (
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/spigell/job-inbox/internal/tracker"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// maxPartSize caps how much of a single MIME part is read.
const maxPartSize = 1 << 20

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	styleBlock  = regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)
	comment     = regexp.MustCompile(`(?s)<!--.*?-->`)
	lineBreak   = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|li|tr|h[1-6]|table)\s*>`)
	tag         = regexp.MustCompile(`(?s)<[^>]*>`)
	hspace      = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// DecodeMessage parses an RFC 822 message. The first text/plain and text/html
// parts become Body and HTML; when there is no plain part the HTML is
// flattened into Body. An empty threadID is derived from the reference headers.
func DecodeMessage(id, threadID string, r io.Reader) (tracker.Email, error) {
	mr, err := mail.CreateReader(r)
	if mr == nil || (err != nil && !tolerable(err)) {
		return tracker.Email{}, fmt.Errorf("reading message %s: %w", id, err)
	}
	defer mr.Close()

	h := mr.Header
	email := tracker.Email{ID: id, ThreadID: threadID}

	if from, err := h.Text("From"); err == nil {
		email.From = strings.TrimSpace(from)
	} else {
		email.From = strings.TrimSpace(h.Get("From"))
	}

	if subject, err := h.Subject(); err == nil {
		email.Subject = strings.TrimSpace(subject)
	} else {
		email.Subject = strings.TrimSpace(h.Get("Subject"))
	}

	if date, err := h.Date(); err == nil && !date.IsZero() {
		email.Date = date.UTC().Format(time.RFC3339)
	}

	messageID, _ := h.MessageID()
	if email.ID == "" {
		email.ID = messageID
	}
	if email.ThreadID == "" {
		email.ThreadID = threadRoot(h, messageID)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if tolerable(err) {
				continue
			}
			return email, fmt.Errorf("reading part of message %s: %w", email.ID, err)
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := inline.ContentType()
		if contentType == "" {
			contentType = "text/plain"
		}
		if contentType != "text/plain" && contentType != "text/html" {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part.Body, maxPartSize))
		if err != nil && !tolerable(err) {
			return email, fmt.Errorf("reading %s part of message %s: %w", contentType, email.ID, err)
		}

		switch {
		case contentType == "text/plain" && email.Body == "":
			email.Body = strings.TrimSpace(string(data))
		case contentType == "text/html" && email.HTML == "":
			email.HTML = string(data)
		}
	}

	if email.Body == "" && email.HTML != "" {
		email.Body = HTMLToText(email.HTML)
	}

	return email, nil
}

func tolerable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

// threadRoot picks the oldest referenced message id so replies share a key.
func threadRoot(h mail.Header, messageID string) string {
	if refs, err := h.MsgIDList("References"); err == nil && len(refs) > 0 {
		return refs[0]
	}
	if replyTo, err := h.MsgIDList("In-Reply-To"); err == nil && len(replyTo) > 0 {
		return replyTo[0]
	}
	return messageID
}

// HTMLToText strips markup and decodes entities, keeping block boundaries as newlines.
func HTMLToText(s string) string {
	s = scriptBlock.ReplaceAllString(s, "")
	s = styleBlock.ReplaceAllString(s, "")
	s = comment.ReplaceAllString(s, "")
	s = lineBreak.ReplaceAllString(s, "\n")
	s = tag.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for idx, line := range lines {
		lines[idx] = strings.TrimSpace(hspace.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")

	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
}
