// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal records fetch runs and their per-window outcomes in a
// SQLite database, so gaps left by a run can be inspected after it exits.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/seqfetch/pkg/types"
)

const defaultListLimit = 20

// Journal is an open run journal.
type Journal struct {
	db *sql.DB
}

// Run summarizes one recorded run.
type Run struct {
	ID         int64     `json:"id" yaml:"id"`
	Term       string    `json:"term" yaml:"term"`
	Query      string    `json:"query" yaml:"query"`
	Database   string    `json:"database" yaml:"database"`
	Count      int       `json:"count" yaml:"count"`
	BatchSize  int       `json:"batch_size" yaml:"batch_size"`
	StartBatch int       `json:"start_batch" yaml:"start_batch"`
	OutputPath string    `json:"output_path" yaml:"output_path"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Canceled   bool      `json:"canceled" yaml:"canceled"`
	Windows    int       `json:"windows" yaml:"windows"`
	Gaps       int       `json:"gaps" yaml:"gaps"`
}

// Open opens or creates the journal at path and ensures its schema.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return j, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			term TEXT NOT NULL,
			query_text TEXT,
			db_name TEXT,
			record_count INTEGER,
			batch_size INTEGER,
			start_batch INTEGER,
			output_path TEXT,
			started_at TEXT,
			finished_at TEXT,
			canceled INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS windows (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			win_start INTEGER NOT NULL,
			win_end INTEGER NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER,
			bytes INTEGER,
			records INTEGER,
			error TEXT,
			PRIMARY KEY (run_id, win_start)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_term ON runs(term)`,
	}
	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores report and all its window outcomes in one transaction and
// returns the new run ID.
func (j *Journal) Record(ctx context.Context, report types.FetchReport) (int64, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (term, query_text, db_name, record_count, batch_size, start_batch, output_path, started_at, finished_at, canceled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Term, report.Query, report.Handle.Database, report.Handle.Count,
		report.BatchSize, report.StartBatch, report.OutputPath,
		formatTime(report.StartedAt), formatTime(report.FinishedAt), report.Canceled,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO windows (run_id, win_start, win_end, status, attempts, bytes, records, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing window insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range report.Outcomes {
		if _, err := stmt.ExecContext(ctx, runID, o.Window.Start, o.Window.End,
			string(o.Status), o.Attempts, o.Bytes, o.Records, o.Error); err != nil {
			return 0, fmt.Errorf("inserting window %s: %w", o.Window, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ErrRunNotFound is returned by Run for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `
	SELECT r.id, r.term, r.query_text, r.db_name, r.record_count, r.batch_size, r.start_batch,
	       r.output_path, r.started_at, r.finished_at, r.canceled,
	       COUNT(w.win_start),
	       COALESCE(SUM(CASE WHEN w.status != ? THEN 1 ELSE 0 END), 0)
	FROM runs r
	LEFT JOIN windows w ON w.run_id = r.id`

// Runs returns the most recent runs, newest first. An empty term matches
// every run; limit <= 0 selects the default of 20.
func (j *Journal) Runs(ctx context.Context, term string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := j.db.QueryContext(ctx, runColumns+`
		WHERE ? = '' OR r.term = ?
		GROUP BY r.id
		ORDER BY r.id DESC
		LIMIT ?`,
		string(types.WindowSucceeded), term, term, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns the run with the given ID, including runs that recorded no
// windows. An unknown ID yields ErrRunNotFound.
func (j *Journal) Run(ctx context.Context, id int64) (Run, error) {
	row := j.db.QueryRowContext(ctx, runColumns+`
		WHERE r.id = ?
		GROUP BY r.id`,
		string(types.WindowSucceeded), id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var started, finished string
	if err := s.Scan(&r.ID, &r.Term, &r.Query, &r.Database, &r.Count, &r.BatchSize, &r.StartBatch,
		&r.OutputPath, &started, &finished, &r.Canceled, &r.Windows, &r.Gaps); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return r, nil
}

// Windows returns the outcomes recorded for runID in offset order.
func (j *Journal) Windows(ctx context.Context, runID int64) ([]types.WindowOutcome, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT win_start, win_end, status, attempts, bytes, records, error
		FROM windows WHERE run_id = ? ORDER BY win_start`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying windows: %w", err)
	}
	defer rows.Close()

	var outcomes []types.WindowOutcome
	for rows.Next() {
		var o types.WindowOutcome
		var status string
		if err := rows.Scan(&o.Window.Start, &o.Window.End, &status, &o.Attempts, &o.Bytes, &o.Records, &o.Error); err != nil {
			return nil, fmt.Errorf("scanning window: %w", err)
		}
		o.Status = types.WindowStatus(status)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
