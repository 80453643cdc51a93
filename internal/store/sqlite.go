package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spigell/job-inbox/internal/tracker"
	"github.com/spigell/job-inbox/internal/utils"

	_ "modernc.org/sqlite"
)

const defaultSQLitePath = "job-inbox.db"

type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", path, err)
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating sqlite schema: %w", err)
		}
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Watermark(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, selectState, watermarkKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading watermark: %w", err)
	}

	return parseWatermark(value)
}

func (s *SQLite) SetWatermark(ctx context.Context, t time.Time) error {
	if _, err := s.db.ExecContext(ctx, upsertState, watermarkKey, formatWatermark(t)); err != nil {
		return fmt.Errorf("storing watermark: %w", err)
	}
	return nil
}

func (s *SQLite) Upsert(ctx context.Context, app tracker.Application) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	key, err := Key(app)
	if err != nil {
		return err
	}

	var existing *Record
	current, err := scanRecord(tx.QueryRowContext(ctx, selectRecord, key))
	switch {
	case err == nil:
		existing = &current
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("loading record %s: %w", key, err)
	}

	merged, err := Merge(existing, app)
	if err != nil {
		return err
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx, upsertRecord, recordArgs(merged, now)...); err != nil {
		return fmt.Errorf("writing record %s: %w", key, err)
	}

	if app.EmailID != "" {
		if _, err := tx.ExecContext(ctx, insertProcessed, app.EmailID, now.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("marking email %s processed: %w", app.EmailID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) Processed(ctx context.Context, ids []string) (map[string]bool, error) {
	processed := make(map[string]bool)

	for _, chunk := range utils.Chunk(ids, inChunk) {
		rows, err := s.db.QueryContext(ctx, selectProcessed(len(chunk)), toArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("checking processed emails: %w", err)
		}

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning processed email: %w", err)
			}
			processed[id] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("checking processed emails: %w", err)
		}
	}

	return processed, nil
}

func (s *SQLite) RecordProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC().Format(time.RFC3339)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, insertProcessed, id, now); err != nil {
			return fmt.Errorf("marking email %s processed: %w", id, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) Applications(ctx context.Context) ([]tracker.Application, error) {
	rows, err := s.db.QueryContext(ctx, listRecords)
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	defer rows.Close()

	var apps []tracker.Application
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning application: %w", err)
		}
		apps = append(apps, r.Application)
	}

	return apps, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLite)(nil)
