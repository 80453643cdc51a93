// Package mailbox retrieves job-search email from IMAP servers and the Gmail
// API and decodes it into tracker.Email values.
package mailbox

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spigell/job-inbox/internal/tracker"

	"go.uber.org/zap"
)

const (
	ProviderIMAP  = "imap"
	ProviderGmail = "gmail"
)

// Source is a mail provider the syncer can read from.
type Source interface {
	Name() string
	// Fetch returns emails received at or after since, oldest first, at most limit of them.
	Fetch(ctx context.Context, since time.Time, limit int) ([]tracker.Email, error)
	// MarkProcessed tags the given emails so a mail client shows they were tracked.
	MarkProcessed(ctx context.Context, ids []string) error
}

type Config struct {
	Provider string       `mapstructure:"provider"`
	IMAP     *IMAPConfig  `mapstructure:"imap"`
	Gmail    *GmailConfig `mapstructure:"gmail"`
}

// Open builds the configured source.
func Open(ctx context.Context, cfg *Config, logger *zap.Logger) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mailbox is not configured")
	}

	switch cfg.Provider {
	case ProviderIMAP:
		if cfg.IMAP == nil {
			return nil, fmt.Errorf("imap provider selected but imap section is missing")
		}
		return NewIMAPSource(cfg.IMAP, logger)
	case ProviderGmail:
		if cfg.Gmail == nil {
			return nil, fmt.Errorf("gmail provider selected but gmail section is missing")
		}
		svc, err := NewGmailService(ctx, cfg.Gmail)
		if err != nil {
			return nil, err
		}
		return NewGmailSource(NewGoogleAPI(svc), cfg.Gmail, logger), nil
	default:
		return nil, fmt.Errorf("unknown mailbox provider %q", cfg.Provider)
	}
}

// limitOldest keeps at most limit items from the start of items.
func limitOldest[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// sortOldestFirst orders emails by date. Undated emails keep their relative position at the end.
func sortOldestFirst(emails []tracker.Email) {
	sort.SliceStable(emails, func(i, j int) bool {
		ti, okI := emails[i].Time()
		tj, okJ := emails[j].Time()
		switch {
		case okI && okJ:
			return ti.Before(tj)
		default:
			return okI && !okJ
		}
	})
}
