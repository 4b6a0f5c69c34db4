// Package stats persists bandwidth samples locally so the bandwidth page can
// chart a longer window than the server keeps in memory.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/sbrink/flowdash/internal/api"
	"github.com/sbrink/flowdash/internal/log"
)

// schema is applied on every open; statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS samples (
	ts INTEGER PRIMARY KEY,
	rx_kbps INTEGER NOT NULL,
	tx_kbps INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts);
`

// Store holds bandwidth samples in a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sample database at path.
// The parent directory is created with owner-only permissions.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating stats directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening stats database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSamples upserts samples keyed by timestamp. Re-recording an
// overlapping window from the server is expected and harmless.
func (s *Store) RecordSamples(ctx context.Context, samples []api.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (ts, rx_kbps, tx_kbps) VALUES (?, ?, ?)
		 ON CONFLICT(ts) DO UPDATE SET rx_kbps = excluded.rx_kbps, tx_kbps = excluded.tx_kbps`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, sample := range samples {
		if _, err := stmt.ExecContext(ctx, sample.Timestamp.Unix(), sample.RxKbps, sample.TxKbps); err != nil {
			return fmt.Errorf("inserting sample at %s: %w", sample.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing samples: %w", err)
	}

	log.Debug(log.CatStats, "recorded samples", "count", len(samples))
	return nil
}

// Recent returns the samples within the window, ordered by timestamp
// ascending.
func (s *Store) Recent(ctx context.Context, window time.Duration) ([]api.Sample, error) {
	cutoff := time.Now().Add(-window).Unix()

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, rx_kbps, tx_kbps FROM samples WHERE ts >= ? ORDER BY ts ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []api.Sample
	for rows.Next() {
		var ts int64
		var sample api.Sample
		if err := rows.Scan(&ts, &sample.RxKbps, &sample.TxKbps); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		sample.Timestamp = time.Unix(ts, 0).UTC()
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating samples: %w", err)
	}
	return samples, nil
}

// Prune deletes samples older than the retention window and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()

	result, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning samples: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned samples: %w", err)
	}
	if removed > 0 {
		log.Debug(log.CatStats, "pruned samples", "count", removed)
	}
	return removed, nil
}
