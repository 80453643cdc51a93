// Package syncer runs one mailbox synchronization: fetch new mail, filter it,
// classify and extract applications, then persist them and move the watermark.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/spigell/job-inbox/internal/classifier"
	"github.com/spigell/job-inbox/internal/extractor"
	"github.com/spigell/job-inbox/internal/filtering"
	"github.com/spigell/job-inbox/internal/logger"
	"github.com/spigell/job-inbox/internal/mailbox"
	"github.com/spigell/job-inbox/internal/store"
	"github.com/spigell/job-inbox/internal/tracker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultLookback = 30 * 24 * time.Hour

type Options struct {
	// Lookback is used when no watermark was stored yet. Zero means everything.
	Lookback time.Duration
	// Limit bounds the number of fetched emails. Zero means no limit.
	Limit  int
	DryRun bool
	// Mark tags job-related emails in the mailbox after they are stored.
	Mark bool
}

// Batch is a planned sync that has not been written yet.
type Batch struct {
	RunID string
	Since time.Time
	// Fetched counts all emails returned by the source.
	Fetched      int
	Emails       *tracker.Emails
	Applications *tracker.Applications
	// Skipped holds ids of fetched emails that produced no application.
	Skipped []string
	// Watermark is the newest date among fetched emails.
	Watermark time.Time
}

type Result struct {
	RunID        string
	Applications *tracker.Applications
	// ProcessedIDs are the stored emails handed to the source for tagging.
	ProcessedIDs []string
	Watermark    time.Time
	Fetched      int
	Stored       int
	Skipped      int
	ByCategory   map[tracker.Category]int
	DryRun       bool
}

type Syncer struct {
	source    mailbox.Source
	store     store.Store
	steps     []filtering.Filter
	filterCfg *filtering.Config
	logger    *zap.Logger
	now       func() time.Time
}

func New(source mailbox.Source, st store.Store, steps []filtering.Filter, filterCfg *filtering.Config, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		source:    source,
		store:     st,
		steps:     steps,
		filterCfg: filterCfg,
		logger:    log,
		now:       time.Now,
	}
}

func (s *Syncer) since(ctx context.Context, lookback time.Duration) (time.Time, error) {
	wm, err := s.store.Watermark(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !wm.IsZero() {
		return wm, nil
	}
	if lookback <= 0 {
		return time.Time{}, nil
	}
	return s.now().Add(-lookback), nil
}

// Plan fetches, filters, classifies and extracts without writing anything.
func (s *Syncer) Plan(ctx context.Context, opts Options) (*Batch, error) {
	runID := uuid.NewString()
	log := s.logger.With(zap.String(logger.FieldRunID, runID), zap.String(logger.FieldProvider, s.source.Name()))

	since, err := s.since(ctx, opts.Lookback)
	if err != nil {
		return nil, fmt.Errorf("resolving sync start: %w", err)
	}

	fetched, err := s.source.Fetch(ctx, since, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetching from %s: %w", s.source.Name(), err)
	}

	log.Info("emails fetched", zap.Int("count", len(fetched)), zap.Time("since", since))

	batch := &Batch{
		RunID:        runID,
		Since:        since,
		Fetched:      len(fetched),
		Applications: &tracker.Applications{},
	}

	emails := &tracker.Emails{Items: make([]*tracker.Email, 0, len(fetched))}
	for idx := range fetched {
		emails.Items = append(emails.Items, &fetched[idx])
		if t, ok := fetched[idx].Time(); ok && t.After(batch.Watermark) {
			batch.Watermark = t
		}
	}

	kept, categories, err := filtering.Run(ctx, s.filterCfg, filtering.Deps{Logger: log, History: s.store}, s.steps, emails)
	if err != nil {
		return nil, fmt.Errorf("filtering emails: %w", err)
	}
	batch.Emails = kept

	keptIDs := make(map[string]struct{}, kept.Len())
	for _, email := range kept.Items {
		keptIDs[email.ID] = struct{}{}

		category, ok := categories[email.ID]
		if !ok {
			category = classifier.Classify(*email)
		}
		if category == tracker.CategoryUnknown {
			continue
		}

		app := extractor.Extract(*email, category)
		batch.Applications.Add(&app)

		log.Debug("application extracted",
			append(logger.MailFields(email.ID, email.ThreadID, string(category)),
				zap.String("company", app.Company),
				zap.String("position", app.Position),
				zap.String("status", string(app.Status)))...,
		)
	}

	for idx := range fetched {
		if _, ok := keptIDs[fetched[idx].ID]; !ok {
			batch.Skipped = append(batch.Skipped, fetched[idx].ID)
		}
	}

	batch.Applications.SortByDate()

	return batch, nil
}

// Commit stores a planned batch, tags the mailbox and advances the watermark.
func (s *Syncer) Commit(ctx context.Context, batch *Batch, opts Options) (Result, error) {
	log := s.logger.With(zap.String(logger.FieldRunID, batch.RunID), zap.String(logger.FieldProvider, s.source.Name()))

	result := Result{
		RunID:        batch.RunID,
		Applications: batch.Applications,
		Watermark:    batch.Watermark,
		Fetched:      batch.Fetched,
		Skipped:      len(batch.Skipped),
		ByCategory:   map[tracker.Category]int{},
		DryRun:       opts.DryRun,
	}
	for _, app := range batch.Applications.Items {
		result.ByCategory[app.Category]++
	}

	if opts.DryRun {
		log.Info("dry run, nothing is stored", zap.Int("applications", batch.Applications.Len()))
		return result, nil
	}

	for _, app := range batch.Applications.Items {
		if err := s.store.Upsert(ctx, *app); err != nil {
			return result, fmt.Errorf("storing application from %s: %w", app.EmailID, err)
		}
		result.Stored++
		result.ProcessedIDs = append(result.ProcessedIDs, app.EmailID)
	}

	if err := s.store.RecordProcessed(ctx, batch.Skipped); err != nil {
		return result, fmt.Errorf("recording skipped emails: %w", err)
	}

	if opts.Mark && len(result.ProcessedIDs) > 0 {
		if err := s.source.MarkProcessed(ctx, result.ProcessedIDs); err != nil {
			// records are stored already, a later run can retry the tagging
			log.Warn("tagging processed emails failed", zap.Error(err))
		}
	}

	if !batch.Watermark.IsZero() && batch.Watermark.After(batch.Since) {
		if err := s.store.SetWatermark(ctx, batch.Watermark); err != nil {
			return result, fmt.Errorf("advancing watermark: %w", err)
		}
	}

	log.Info("sync committed",
		zap.Int("stored", result.Stored),
		zap.Int("skipped", result.Skipped),
		zap.Time("watermark", batch.Watermark),
	)

	return result, nil
}

// Run plans and commits in one go.
func (s *Syncer) Run(ctx context.Context, opts Options) (Result, error) {
	batch, err := s.Plan(ctx, opts)
	if err != nil {
		return Result{}, err
	}
	return s.Commit(ctx, batch, opts)
}
