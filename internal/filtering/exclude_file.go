package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-inbox/internal/tracker"
)

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes emails whose thread is listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, e *tracker.Emails) (*tracker.Emails, Step, error) {
	initial := e.Len()
	if f.path == "" {
		return e, Step{Initial: initial, Dropped: 0, Left: e.Len()}, nil
	}

	excluded, err := tracker.GetExcludedThreadsFromFile(f.path)
	if err != nil {
		return e, Step{}, fmt.Errorf("getting excluded threads from file: %w", err)
	}

	removed := e.Exclude(tracker.EmailThreadField, excluded.ThreadIDs())
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding emails based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_emails", removed),
			zap.Int("emails_left", e.Len()),
		)
	}

	return e, Step{Initial: initial, Dropped: len(removed), Left: e.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
