package filtering

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-inbox/internal/tracker"
)

type fakeHistory struct {
	processed map[string]bool
	err       error
}

func (f *fakeHistory) Processed(_ context.Context, ids []string) (map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]bool{}
	for _, id := range ids {
		if f.processed[id] {
			out[id] = true
		}
	}
	return out, nil
}

func testEmails() *tracker.Emails {
	return &tracker.Emails{Items: []*tracker.Email{
		{ID: "m1", ThreadID: "t1", From: "careers@acme.com", Subject: "Thank you for applying to Acme"},
		{ID: "m2", ThreadID: "t2", From: "news@digest.example.com", Subject: "Weekly digest"},
		{ID: "m3", ThreadID: "t3", From: "jobs@globex.com", Subject: "Interview invitation"},
		{ID: "m4", ThreadID: "t4", From: "no-reply@greenhouse.io", Body: "Unfortunately we moved on."},
		{ID: "m5", From: "friend@gmail.com", Subject: "Following up on your application"},
	}}
}

func ids(e *tracker.Emails) string {
	return strings.Join(e.IDs(), ",")
}

func TestJobRelated(t *testing.T) {
	emails := testEmails()
	f := NewJobRelated()

	got, step, err := f.Apply(context.Background(), Deps{}, emails)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ids(got) != "m1,m3,m4,m5" {
		t.Fatalf("unexpected emails left %q", ids(got))
	}
	if step != (Step{Initial: 5, Dropped: 1, Left: 4}) {
		t.Fatalf("unexpected step %+v", step)
	}

	categories := f.(categoryCollector).Categories()
	expected := map[string]tracker.Category{
		"m1": tracker.CategoryApplicationConfirmation,
		"m3": tracker.CategoryInterviewInvitation,
		"m4": tracker.CategoryRejection,
		"m5": tracker.CategoryFollowUp,
	}
	for id, category := range expected {
		if categories[id] != category {
			t.Fatalf("expected %s for %s, got %s", category, id, categories[id])
		}
	}
	if _, ok := categories["m2"]; ok {
		t.Fatalf("expected dropped email to have no category")
	}
}

func TestProcessed(t *testing.T) {
	history := &fakeHistory{processed: map[string]bool{"m1": true, "m4": true}}

	got, step, err := NewProcessed(false).Apply(context.Background(), Deps{History: history}, testEmails())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids(got) != "m2,m3,m5" || step.Dropped != 2 {
		t.Fatalf("unexpected result %q %+v", ids(got), step)
	}

	got, step, err = NewProcessed(true).Apply(context.Background(), Deps{}, testEmails())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 5 || step.Dropped != 0 {
		t.Fatalf("expected reprocess to keep everything, got %q", ids(got))
	}

	if _, _, err := NewProcessed(false).Apply(context.Background(), Deps{}, testEmails()); err == nil {
		t.Fatalf("expected error without history")
	}

	history.err = errors.New("db down")
	if _, _, err := NewProcessed(false).Apply(context.Background(), Deps{History: history}, testEmails()); err == nil {
		t.Fatalf("expected history error")
	}
}

func TestSenders(t *testing.T) {
	tests := []struct {
		name    string
		senders []string
		expect  string
	}{
		{name: "no config", senders: nil, expect: "m1,m2,m3,m4,m5"},
		{name: "exact address", senders: []string{" Careers@Acme.com "}, expect: "m2,m3,m4,m5"},
		{name: "domain matches subdomains", senders: []string{"example.com"}, expect: "m1,m3,m4,m5"},
		{name: "at domain", senders: []string{"@greenhouse.io", "@"}, expect: "m1,m2,m3,m5"},
		{name: "suffix is not a subdomain", senders: []string{"bex.com"}, expect: "m1,m2,m3,m4,m5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewSenders()
			if err := f.Validate(&Config{Senders: tt.senders}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, _, err := f.Apply(context.Background(), Deps{}, testEmails())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ids(got) != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, ids(got))
			}
		})
	}
}

func TestExcludeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclude.json")
	excluded := &tracker.ExcludedThreads{Items: []*tracker.ExcludedThread{
		{ThreadID: "t3", ExcludedAt: time.Now()},
		{ThreadID: "m5", ExcludedAt: time.Now()},
	}}
	if err := excluded.ToFile(path); err != nil {
		t.Fatalf("writing exclude file: %v", err)
	}

	f := NewExcludeFile()
	if err := f.Validate(&Config{ExcludeFile: path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, step, err := f.Apply(context.Background(), Deps{}, testEmails())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// m5 has no thread id, so its email id acts as the thread
	if ids(got) != "m1,m2,m4" || step.Dropped != 2 {
		t.Fatalf("unexpected result %q %+v", ids(got), step)
	}

	if err := f.Validate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _, err = f.Apply(context.Background(), Deps{}, testEmails())
	if err != nil || got.Len() != 5 {
		t.Fatalf("expected no-op without path, got %d, %v", got.Len(), err)
	}
}

func TestRun(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	steps := Default(false)
	DisableByName(steps, "senders", "not needed")

	history := &fakeHistory{processed: map[string]bool{"m1": true}}
	cfg := &Config{Senders: []string{"globex.com"}}

	got, categories, err := Run(context.Background(), cfg, Deps{Logger: logger, History: history}, steps, testEmails())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// senders filter never disables itself, so globex is still dropped
	if ids(got) != "m4,m5" {
		t.Fatalf("unexpected emails %q", ids(got))
	}
	if len(categories) != 2 || categories["m4"] != tracker.CategoryRejection {
		t.Fatalf("unexpected categories %v", categories)
	}

	stepLogs := observed.FilterMessage("filter step").All()
	if len(stepLogs) != len(steps) {
		t.Fatalf("expected %d step logs, got %d", len(steps), len(stepLogs))
	}
	last := stepLogs[len(stepLogs)-1].ContextMap()
	if last["name"] != "job_related" || last["dropped"] != int64(1) {
		t.Fatalf("unexpected last step log %v", last)
	}
}

func TestRunPropagatesErrors(t *testing.T) {
	history := &fakeHistory{err: errors.New("db down")}

	_, _, err := Run(context.Background(), &Config{}, Deps{History: history}, Default(false), testEmails())
	if err == nil || !strings.HasPrefix(err.Error(), "processed: ") {
		t.Fatalf("expected error prefixed with step name, got %v", err)
	}
}

type toggleFilter struct {
	jobRelatedFilter
	disabled bool
	reason   string
}

func (f *toggleFilter) Name() string { return "toggle" }

func (f *toggleFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *toggleFilter) IsEnabled() bool { return !f.disabled }

func (f *toggleFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

func TestDescribeAndDisable(t *testing.T) {
	toggle := &toggleFilter{}
	steps := []Filter{NewProcessed(true), toggle}

	DisableByName(steps, "toggle", "testing")

	core, observed := observer.New(zapcore.InfoLevel)
	got, _, err := Run(context.Background(), nil, Deps{Logger: zap.New(core)}, steps, testEmails())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 5 {
		t.Fatalf("expected disabled classifier step to keep emails, got %d", got.Len())
	}
	if observed.FilterMessage("filter disabled").Len() != 1 {
		t.Fatalf("expected disabled step to be logged")
	}

	statuses := Describe(steps)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Reason != "skip requested via flag" || statuses[0].Details["exclude_processed"] != "false" {
		t.Fatalf("unexpected processed status %+v", statuses[0])
	}
	if statuses[1].Enabled || statuses[1].Reason != "testing" {
		t.Fatalf("unexpected toggle status %+v", statuses[1])
	}
}
