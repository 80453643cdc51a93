package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/job-inbox/internal/tracker"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects a pool to dsn and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is not configured")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating postgres schema: %w", err)
		}
	}

	return &Postgres{pool: pool, now: time.Now}, nil
}

func (p *Postgres) Watermark(ctx context.Context) (time.Time, error) {
	var value string
	err := p.pool.QueryRow(ctx, rebind(selectState), watermarkKey).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading watermark: %w", err)
	}

	return parseWatermark(value)
}

func (p *Postgres) SetWatermark(ctx context.Context, t time.Time) error {
	if _, err := p.pool.Exec(ctx, rebind(upsertState), watermarkKey, formatWatermark(t)); err != nil {
		return fmt.Errorf("storing watermark: %w", err)
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, app tracker.Application) error {
	key, err := Key(app)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing *Record
	// row lock keeps concurrent syncs from losing a merge
	current, err := scanRecord(tx.QueryRow(ctx, rebind(selectRecord+` FOR UPDATE`), key))
	switch {
	case err == nil:
		existing = &current
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("loading record %s: %w", key, err)
	}

	merged, err := Merge(existing, app)
	if err != nil {
		return err
	}

	now := p.now()
	if _, err := tx.Exec(ctx, rebind(upsertRecord), recordArgs(merged, now)...); err != nil {
		return fmt.Errorf("writing record %s: %w", key, err)
	}

	if app.EmailID != "" {
		if _, err := tx.Exec(ctx, rebind(insertProcessed), app.EmailID, now.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("marking email %s processed: %w", app.EmailID, err)
		}
	}

	return tx.Commit(ctx)
}

func (p *Postgres) Processed(ctx context.Context, ids []string) (map[string]bool, error) {
	processed := make(map[string]bool)
	if len(ids) == 0 {
		return processed, nil
	}

	rows, err := p.pool.Query(ctx, `SELECT email_id FROM processed_emails WHERE email_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("checking processed emails: %w", err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("checking processed emails: %w", err)
	}
	for _, id := range found {
		processed[id] = true
	}

	return processed, nil
}

func (p *Postgres) RecordProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	now := p.now().UTC().Format(time.RFC3339)
	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(rebind(insertProcessed), id, now)
	}

	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("marking %d emails processed: %w", len(ids), err)
	}
	return nil
}

func (p *Postgres) Applications(ctx context.Context) ([]tracker.Application, error) {
	rows, err := p.pool.Query(ctx, listRecords)
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

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

var _ Store = (*Postgres)(nil)
