package tracker

import (
	"net/mail"
	"strings"
	"time"
)

const (
	EmailIDField     = "ID"
	EmailThreadField = "ThreadID"
	EmailSenderField = "Sender"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02",
}

// Email is a message already decoded from the provider wire format.
type Email struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id,omitempty"`
	// From keeps the raw "Display Name <address>" header.
	From    string `json:"from"`
	Subject string `json:"subject"`
	// Date is an ISO-8601 timestamp.
	Date string `json:"date"`
	Body string `json:"body"`
	HTML string `json:"html,omitempty"`
}

// Time parses Date. The second value is false when the date is missing or malformed.
func (e Email) Time() (time.Time, bool) {
	raw := strings.TrimSpace(e.Date)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	if t, err := mail.ParseDate(raw); err == nil {
		return t, true
	}

	return time.Time{}, false
}

// SenderAddress returns the lower-cased address part of the From header.
func (e Email) SenderAddress() string {
	from := strings.TrimSpace(e.From)
	if from == "" {
		return ""
	}

	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}

	if start := strings.LastIndex(from, "<"); start >= 0 {
		if end := strings.Index(from[start:], ">"); end > 0 {
			return strings.ToLower(strings.TrimSpace(from[start+1 : start+end]))
		}
	}

	if strings.Contains(from, "@") {
		return strings.ToLower(strings.Trim(from, "<>\" "))
	}

	return ""
}

// ThreadKey returns the thread identifier, falling back to the email id.
func (e Email) ThreadKey() string {
	if e.ThreadID != "" {
		return e.ThreadID
	}
	return e.ID
}

func (e *Email) GetStringField(name string) string {
	switch name {
	case EmailIDField:
		return e.ID
	case EmailThreadField:
		return e.ThreadKey()
	case EmailSenderField:
		return e.SenderAddress()
	default:
		return ""
	}
}

type Emails struct {
	Items []*Email
}

func (e *Emails) Len() int {
	return len(e.Items)
}

func (e *Emails) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, email := range e.Items {
		ids = append(ids, email.ID)
	}
	return ids
}

// Exclude drops emails whose field matches any target and returns the dropped ids.
// Order of the remaining emails is preserved.
func (e *Emails) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		set[target] = struct{}{}
	}

	return e.Filter(func(email *Email) bool {
		_, found := set[email.GetStringField(name)]
		return !found
	})
}

// Filter keeps the emails for which keep returns true and returns the ids of the dropped ones.
func (e *Emails) Filter(keep func(*Email) bool) []string {
	var excluded []string
	kept := e.Items[:0]
	for _, email := range e.Items {
		if keep(email) {
			kept = append(kept, email)
			continue
		}
		excluded = append(excluded, email.ID)
	}

	// release references held by the tail of the backing array
	for idx := len(kept); idx < len(e.Items); idx++ {
		e.Items[idx] = nil
	}
	e.Items = kept

	return excluded
}
