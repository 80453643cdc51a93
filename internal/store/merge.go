package store

import (
	"fmt"

	"github.com/spigell/job-inbox/internal/tracker"

	"github.com/google/uuid"
)

// Record is a stored application together with its merge bookkeeping.
type Record struct {
	tracker.Application
	Key string
	// LastSeen is the calendar date of the newest email merged into the record.
	LastSeen string
}

// Key derives a stable record key from the thread of an application.
// Applications without a thread id fall back to their email id.
func Key(app tracker.Application) (string, error) {
	thread := app.ThreadID
	if thread == "" {
		thread = app.EmailID
	}
	if thread == "" {
		return "", fmt.Errorf("application %q at %q has neither thread nor email id", app.Position, app.Company)
	}

	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(tracker.ThreadLink(thread))).String(), nil
}

// Merge folds incoming into existing. A nil existing starts a new record.
//
// Status, category, notes and follow-up come from the newest email. Company
// and position only replace unresolved values. Optional fields keep the
// stored value unless incoming carries one. DateApplied keeps the earliest date.
func Merge(existing *Record, incoming tracker.Application) (Record, error) {
	key, err := Key(incoming)
	if err != nil {
		return Record{}, err
	}

	if incoming.ThreadID == "" {
		incoming.ThreadID = incoming.EmailID
	}

	if existing == nil {
		return Record{Application: incoming, Key: key, LastSeen: incoming.DateApplied}, nil
	}

	merged := *existing
	merged.Key = key

	if newer(existing.LastSeen, incoming.DateApplied) {
		merged.Status = incoming.Status
		merged.Category = incoming.Category
		merged.Notes = incoming.Notes
		merged.FollowUpDate = incoming.FollowUpDate
		merged.Subject = incoming.Subject
		merged.EmailID = incoming.EmailID
		if incoming.DateApplied != "" {
			merged.LastSeen = incoming.DateApplied
		}
	}

	if merged.Company == tracker.UnknownCompany && incoming.Company != tracker.UnknownCompany {
		merged.Company = incoming.Company
	}
	if merged.Position == tracker.UnknownPosition && incoming.Position != tracker.UnknownPosition {
		merged.Position = incoming.Position
	}

	merged.Salary = preferPresent(merged.Salary, incoming.Salary)
	merged.Location = preferPresent(merged.Location, incoming.Location)
	merged.JobLink = preferPresent(merged.JobLink, incoming.JobLink)
	merged.ThreadLink = preferPresent(merged.ThreadLink, incoming.ThreadLink)

	if incoming.DateApplied != "" && (merged.DateApplied == "" || incoming.DateApplied < merged.DateApplied) {
		merged.DateApplied = incoming.DateApplied
	}

	return merged, nil
}

// newer treats undated emails as the latest ones.
func newer(lastSeen, date string) bool {
	return lastSeen == "" || date == "" || date >= lastSeen
}

func preferPresent(stored, incoming string) string {
	if incoming != "" {
		return incoming
	}
	return stored
}
