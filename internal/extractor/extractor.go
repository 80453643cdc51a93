// Package extractor builds application records from classified emails.
//
// Every field is resolved independently through an ordered chain of
// strategies. A strategy either yields a cleaned and validated candidate or
// nothing, and the first candidate wins. Extraction never fails: fields with
// no candidate fall back to a sentinel or stay empty.
package extractor

import (
	"regexp"
	"strings"
	"time"

	"github.com/spigell/job-inbox/internal/tracker"
)

const (
	// MaxBodyScan bounds how many characters of the body are scanned.
	MaxBodyScan = 3000
	// MaxSubjectScan bounds how many characters of the subject are scanned.
	MaxSubjectScan = 1000
	// MaxLinkScan bounds how many characters are scanned for links.
	MaxLinkScan = 20000
)

var isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

var notes = map[tracker.Category]string{
	tracker.CategoryApplicationConfirmation: "Application confirmation received",
	tracker.CategoryRejection:               "Rejection received",
	tracker.CategoryInterviewInvitation:     "Interview invitation received",
	tracker.CategoryOffer:                   "Offer received",
	tracker.CategoryFollowUp:                "Follow-up received",
	tracker.CategoryUnknown:                 "Job-related email",
}

// Extract builds an application record from the email and its category.
func Extract(email tracker.Email, category tracker.Category) tracker.Application {
	body := prefix(email.Body, MaxBodyScan)
	subject := prefix(email.Subject, MaxSubjectScan)

	date, hasDate := email.Time()

	linkSource := email.HTML
	if strings.TrimSpace(linkSource) == "" {
		linkSource = email.Body
	}

	return tracker.Application{
		Company:      Company(email.From, subject, body),
		Position:     Position(subject, body),
		DateApplied:  dateApplied(email.Date, date, hasDate),
		Status:       tracker.StatusFor(category),
		Category:     category,
		Salary:       Salary(body),
		Location:     Location(body),
		JobLink:      JobLink(prefix(linkSource, MaxLinkScan)),
		ThreadLink:   tracker.ThreadLink(email.ThreadKey()),
		FollowUpDate: FollowUpDate(category, date, hasDate),
		Notes:        note(category, date, hasDate),
		Subject:      email.Subject,
		EmailID:      email.ID,
		ThreadID:     email.ThreadID,
	}
}

// FollowUpDate returns the date to chase the application, or empty when none applies.
func FollowUpDate(category tracker.Category, date time.Time, ok bool) string {
	if !ok {
		return ""
	}

	switch category {
	case tracker.CategoryApplicationConfirmation:
		return date.AddDate(0, 0, 7).Format(tracker.DateLayout)
	case tracker.CategoryInterviewInvitation:
		return date.AddDate(0, 0, 1).Format(tracker.DateLayout)
	default:
		return ""
	}
}

func dateApplied(raw string, date time.Time, ok bool) string {
	if ok {
		return date.Format(tracker.DateLayout)
	}
	// keep a readable calendar date even when the time part is malformed
	return isoDatePrefix.FindString(strings.TrimSpace(raw))
}

func note(category tracker.Category, date time.Time, ok bool) string {
	text, found := notes[category]
	if !found {
		text = notes[tracker.CategoryUnknown]
	}
	if !ok {
		return text
	}
	return text + " (detected " + date.Format(tracker.DateLayout) + ")"
}
