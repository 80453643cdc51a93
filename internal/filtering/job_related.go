package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/job-inbox/internal/classifier"
	"github.com/spigell/job-inbox/internal/logger"
	"github.com/spigell/job-inbox/internal/tracker"
	"github.com/spigell/job-inbox/internal/utils"
)

const subjectLogLimit = 80

type jobRelatedFilter struct {
	categories map[string]tracker.Category
}

// NewJobRelated creates a filter that keeps only emails the classifier recognizes.
func NewJobRelated() Filter {
	return &jobRelatedFilter{}
}

func (f *jobRelatedFilter) Name() string { return "job_related" }

func (f *jobRelatedFilter) Disable(string) {}

func (f *jobRelatedFilter) IsEnabled() bool { return true }

func (f *jobRelatedFilter) Validate(*Config) error { return nil }

func (f *jobRelatedFilter) Apply(_ context.Context, deps Deps, e *tracker.Emails) (*tracker.Emails, Step, error) {
	initial := e.Len()
	f.categories = make(map[string]tracker.Category, initial)

	excluded := e.Filter(func(email *tracker.Email) bool {
		category := classifier.Classify(*email)
		if category == tracker.CategoryUnknown {
			return false
		}

		f.categories[email.ID] = category
		if deps.Logger != nil {
			deps.Logger.Debug("email classified",
				append(logger.MailFields(email.ID, email.ThreadID, string(category)),
					zap.String("subject", utils.TruncateForLog(email.Subject, subjectLogLimit)))...,
			)
		}
		return true
	})

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding emails unrelated to job search",
			zap.Strings("excluded_emails", excluded),
			zap.Int("emails_left", e.Len()),
		)
	}

	return e, Step{Initial: initial, Dropped: len(excluded), Left: e.Len()}, nil
}

func (f *jobRelatedFilter) Categories() map[string]tracker.Category {
	if f.categories == nil {
		return map[string]tracker.Category{}
	}
	return f.categories
}

func (f *jobRelatedFilter) Status() Status {
	details := map[string]string{}
	if f.categories != nil {
		details["classified"] = strconv.Itoa(len(f.categories))
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
