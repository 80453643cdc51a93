package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/job-inbox/internal/tracker"

	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to fetched emails.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, e *tracker.Emails) (*tracker.Emails, Step, error)
}

// History reports emails that were already handled by an earlier sync.
type History interface {
	Processed(ctx context.Context, ids []string) (map[string]bool, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger  *zap.Logger
	History History
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	// Senders lists addresses or domains whose mail is ignored.
	Senders     []string
	ExcludeFile string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// categoryCollector is implemented by filters that classify emails on the way.
type categoryCollector interface {
	Categories() map[string]tracker.Category
}

// Default returns the standard pipeline. Cheap lookups run before classification.
func Default(ignoreProcessed bool) []Filter {
	return []Filter{
		NewProcessed(ignoreProcessed),
		NewSenders(),
		NewExcludeFile(),
		NewJobRelated(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially, returning the remaining emails
// and the categories assigned along the way keyed by email id.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, e *tracker.Emails) (*tracker.Emails, map[string]tracker.Category, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	categories := make(map[string]tracker.Category)
	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Info("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(ctx, deps, e)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		e = next

		if collector, ok := step.(categoryCollector); ok {
			for id, category := range collector.Categories() {
				categories[id] = category
			}
		}
	}

	return e, categories, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
