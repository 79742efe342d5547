// Package history journals capture outcomes to a relational database so
// repeated runs against the same site can be audited later. Entirely
// optional: without a configured DSN the pipeline never touches it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/sathishvj/site-to-pdf/internal/config"
	"github.com/sathishvj/site-to-pdf/pkg/types"
)

const createTableStmt = `
CREATE TABLE IF NOT EXISTS capture_outcomes (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT        NOT NULL,
	sequence    INT         NOT NULL,
	url         TEXT        NOT NULL,
	state       TEXT        NOT NULL,
	attempts    INT         NOT NULL,
	artifact    TEXT,
	error       TEXT,
	finished_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Journal writes one row per resolved capture job.
type Journal struct {
	db *sql.DB
}

// Open connects to the configured database and optionally creates the
// outcome table.
func Open(cfg config.HistoryConfig) (*Journal, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("history config missing driver or dsn")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if cfg.AutoMigrate {
		if _, err := db.ExecContext(ctx, createTableStmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create capture_outcomes table: %w", err)
		}
	}
	return &Journal{db: db}, nil
}

// RecordRun inserts every outcome under the given run id.
func (j *Journal) RecordRun(ctx context.Context, runID string, outcomes []types.Outcome) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO capture_outcomes (run_id, sequence, url, state, attempts, artifact, error, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		var errText sql.NullString
		if o.Err != nil {
			errText = sql.NullString{String: o.Err.Error(), Valid: true}
		}
		var artifact sql.NullString
		if o.Artifact != "" {
			artifact = sql.NullString{String: o.Artifact, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			runID, o.Job.Sequence, o.Job.URL, string(o.State), o.Attempts, artifact, errText, o.FinishedAt,
		); err != nil {
			return fmt.Errorf("insert outcome for %s: %w", o.Job.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
