package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/job-inbox/internal/tracker"
)

const reprocessFlagSetMsg = "reprocess flag is set"

type processedFilter struct {
	ignore bool
}

// NewProcessed creates a filter that removes emails handled by an earlier sync.
func NewProcessed(ignore bool) Filter {
	return &processedFilter{ignore: ignore}
}

func (f *processedFilter) Name() string { return "processed" }

func (f *processedFilter) Disable(string) {}

func (f *processedFilter) IsEnabled() bool { return true }

func (f *processedFilter) Validate(*Config) error { return nil }

func (f *processedFilter) Apply(ctx context.Context, deps Deps, e *tracker.Emails) (*tracker.Emails, Step, error) {
	initial := e.Len()
	if f.ignore {
		if deps.Logger != nil {
			deps.Logger.Info("keeping already processed emails", zap.String("reason", reprocessFlagSetMsg))
		}
		return e, Step{Initial: initial, Dropped: 0, Left: e.Len()}, nil
	}

	if deps.History == nil {
		return e, Step{}, fmt.Errorf("processing history is required")
	}

	processed, err := deps.History.Processed(ctx, e.IDs())
	if err != nil {
		return e, Step{}, fmt.Errorf("get processed emails: %w", err)
	}

	ids := make([]string, 0, len(processed))
	for id, done := range processed {
		if done {
			ids = append(ids, id)
		}
	}

	excluded := e.Exclude(tracker.EmailIDField, ids)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding already processed emails",
			zap.Strings("excluded_emails", excluded),
			zap.Int("emails_left", e.Len()),
		)
	}

	return e, Step{Initial: initial, Dropped: len(excluded), Left: e.Len()}, nil
}

func (f *processedFilter) Status() Status {
	details := map[string]string{
		"exclude_processed": strconv.FormatBool(!f.ignore),
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}
