package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/spigell/job-inbox/internal/tracker"

	"github.com/google/uuid"
)

// Runs against a real server when JOB_INBOX_TEST_POSTGRES_DSN is set.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("JOB_INBOX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("JOB_INBOX_TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	p, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("opening postgres: %v", err)
	}
	defer p.Close()

	thread := "test-" + uuid.NewString()
	app := tracker.Application{
		Company:     "Acme",
		Position:    "Data Analyst",
		DateApplied: "2024-01-01",
		Status:      tracker.StatusRejected,
		EmailID:     thread + "-m1",
		ThreadID:    thread,
	}
	if err := p.Upsert(ctx, app); err != nil {
		t.Fatalf("upserting: %v", err)
	}
	if err := p.RecordProcessed(ctx, []string{thread + "-m2"}); err != nil {
		t.Fatalf("recording processed: %v", err)
	}

	processed, err := p.Processed(ctx, []string{app.EmailID, thread + "-m2", thread + "-m3"})
	if err != nil {
		t.Fatalf("checking processed: %v", err)
	}
	if len(processed) != 2 {
		t.Fatalf("expected 2 processed ids, got %v", processed)
	}

	apps, err := p.Applications(ctx)
	if err != nil {
		t.Fatalf("listing applications: %v", err)
	}
	found := false
	for _, stored := range apps {
		if stored.ThreadID == thread {
			found = stored.Status == tracker.StatusRejected
		}
	}
	if !found {
		t.Fatalf("expected stored application for thread %s", thread)
	}

	wm := time.Now().UTC().Truncate(time.Second)
	if err := p.SetWatermark(ctx, wm); err != nil {
		t.Fatalf("setting watermark: %v", err)
	}
	got, err := p.Watermark(ctx)
	if err != nil || !got.Equal(wm) {
		t.Fatalf("expected watermark %v, got %v (%v)", wm, got, err)
	}
}
