// Package store persists tracked applications, processed email ids and the
// sync watermark in SQLite or Postgres.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/job-inbox/internal/secrets"
	"github.com/spigell/job-inbox/internal/tracker"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	watermarkKey = "watermark"
	// inChunk bounds the number of bound parameters in one IN list.
	inChunk = 500
)

type Store interface {
	// Watermark returns the newest email date already synced. Zero when nothing was synced.
	Watermark(ctx context.Context) (time.Time, error)
	SetWatermark(ctx context.Context, t time.Time) error
	// Upsert merges app into the record of its thread and marks its email processed.
	Upsert(ctx context.Context, app tracker.Application) error
	// Processed reports which of ids were already handled.
	Processed(ctx context.Context, ids []string) (map[string]bool, error)
	// RecordProcessed marks emails as handled without creating records.
	RecordProcessed(ctx context.Context, ids []string) error
	Applications(ctx context.Context) ([]tracker.Application, error)
	Close() error
}

type Config struct {
	Driver string `mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `mapstructure:"path"`
	// DSN is the Postgres connection string.
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
}

// Open connects to the configured database and creates the schema.
func Open(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store is not configured")
	}

	switch cfg.Driver {
	case DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		dsn, err := secrets.Load(secrets.Source{Name: "database dsn", Value: cfg.DSN, File: cfg.DSNFile})
		if err != nil {
			return nil, err
		}
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS applications (
		id             TEXT PRIMARY KEY,
		company        TEXT NOT NULL,
		position       TEXT NOT NULL,
		date_applied   TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		category       TEXT NOT NULL DEFAULT '',
		salary         TEXT NOT NULL DEFAULT '',
		location       TEXT NOT NULL DEFAULT '',
		job_link       TEXT NOT NULL DEFAULT '',
		thread_link    TEXT NOT NULL DEFAULT '',
		follow_up_date TEXT NOT NULL DEFAULT '',
		notes          TEXT NOT NULL DEFAULT '',
		subject        TEXT NOT NULL DEFAULT '',
		email_id       TEXT NOT NULL DEFAULT '',
		thread_id      TEXT NOT NULL DEFAULT '',
		last_seen      TEXT NOT NULL DEFAULT '',
		updated_at     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS processed_emails (
		email_id     TEXT PRIMARY KEY,
		processed_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sync_state (
		name  TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

const recordColumns = `id, company, position, date_applied, status, category, salary, location, job_link,
	thread_link, follow_up_date, notes, subject, email_id, thread_id, last_seen`

var (
	selectRecord = `SELECT ` + recordColumns + ` FROM applications WHERE id = ?`
	listRecords  = `SELECT ` + recordColumns + ` FROM applications ORDER BY date_applied, company, position`
	upsertRecord = `INSERT INTO applications (` + recordColumns + `, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		company = excluded.company,
		position = excluded.position,
		date_applied = excluded.date_applied,
		status = excluded.status,
		category = excluded.category,
		salary = excluded.salary,
		location = excluded.location,
		job_link = excluded.job_link,
		thread_link = excluded.thread_link,
		follow_up_date = excluded.follow_up_date,
		notes = excluded.notes,
		subject = excluded.subject,
		email_id = excluded.email_id,
		thread_id = excluded.thread_id,
		last_seen = excluded.last_seen,
		updated_at = excluded.updated_at`

	selectState = `SELECT value FROM sync_state WHERE name = ?`
	upsertState = `INSERT INTO sync_state (name, value) VALUES (?, ?)
	ON CONFLICT (name) DO UPDATE SET value = excluded.value`

	insertProcessed = `INSERT INTO processed_emails (email_id, processed_at) VALUES (?, ?)
	ON CONFLICT (email_id) DO NOTHING`
)

// selectProcessed returns a query checking n email ids.
func selectProcessed(n int) string {
	return `SELECT email_id FROM processed_emails WHERE email_id IN (` +
		strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + `)`
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var r Record
	var status, category string
	err := row.Scan(&r.Key, &r.Company, &r.Position, &r.DateApplied, &status, &category, &r.Salary,
		&r.Location, &r.JobLink, &r.ThreadLink, &r.FollowUpDate, &r.Notes, &r.Subject, &r.EmailID,
		&r.ThreadID, &r.LastSeen)
	if err != nil {
		return Record{}, err
	}
	r.Status = tracker.Status(status)
	r.Category = tracker.Category(category)

	return r, nil
}

func recordArgs(r Record, now time.Time) []any {
	return []any{
		r.Key, r.Company, r.Position, r.DateApplied, string(r.Status), string(r.Category), r.Salary,
		r.Location, r.JobLink, r.ThreadLink, r.FollowUpDate, r.Notes, r.Subject, r.EmailID,
		r.ThreadID, r.LastSeen, now.UTC().Format(time.RFC3339),
	}
}

func parseWatermark(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored watermark %q: %w", value, err)
	}
	return t, nil
}

func formatWatermark(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// rebind turns ? placeholders into $1..$n.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for idx, id := range ids {
		args[idx] = id
	}
	return args
}
