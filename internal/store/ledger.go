// Package store keeps a SQLite ledger of update runs: the parameters of
// each run, the relations before and after it, its statistics, and the
// knowledge base files it produced.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tagkb/internal/logging"
	"tagkb/internal/relation"
	"tagkb/internal/types"
	"tagkb/internal/update"
)

// Relation phases.
const (
	PhaseOriginal = "orig"
	PhaseFinal    = "final"
)

// Snapshot kinds.
const (
	SnapshotTaxonomy  = "taxonomy"
	SnapshotTagging   = "tagging"
	SnapshotExpansion = "expansion"
)

// RunParams describes the input of a run.
type RunParams struct {
	Input         string
	MinJointCount int
	MinRatio      float64
}

// Run is a ledger entry.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is open
	RunParams
	Load  relation.LoadStats
	Stats update.RunStats
}

// Ledger stores runs in SQLite.
type Ledger struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Open creates or opens the ledger database at path.
func Open(path string) (*Ledger, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.StoreDebug("Opening run ledger at path: %s", path)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	l := &Ledger{db: db, dbPath: path, now: time.Now}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		input TEXT NOT NULL,
		min_joint_count INTEGER NOT NULL,
		min_ratio REAL NOT NULL,
		passes INTEGER DEFAULT 0,
		known INTEGER DEFAULT 0,
		aliases INTEGER DEFAULT 0,
		tags_added INTEGER DEFAULT 0,
		expansions INTEGER DEFAULT 0,
		contradictions INTEGER DEFAULT 0,
		unresolved INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_relations (
		run_id TEXT NOT NULL REFERENCES runs(id),
		phase TEXT NOT NULL, -- orig | final
		t1 TEXT NOT NULL,
		t2 TEXT NOT NULL,
		path1 TEXT NOT NULL,
		path2 TEXT NOT NULL,
		t1_count INTEGER NOT NULL,
		t2_count INTEGER NOT NULL,
		joint_count INTEGER NOT NULL,
		t1_given_t2 REAL NOT NULL,
		t2_given_t1 REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_relations_run ON run_relations(run_id, phase);

	CREATE TABLE IF NOT EXISTS kb_snapshots (
		run_id TEXT NOT NULL REFERENCES runs(id),
		kind TEXT NOT NULL, -- taxonomy | tagging | expansion
		content TEXT NOT NULL,
		PRIMARY KEY(run_id, kind)
	);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return RunMigrations(l.db)
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// BeginRun records a new run and returns its ID.
func (l *Ledger) BeginRun(ctx context.Context, p RunParams) (string, error) {
	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input, min_joint_count, min_ratio) VALUES (?, ?, ?, ?, ?)`,
		id, l.now().UnixMilli(), p.Input, p.MinJointCount, p.MinRatio)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	logging.Store("Started run %s for %s", id, p.Input)
	return id, nil
}

// RecordRelations stores rels under the given phase, with their taxonomy
// paths at the time of the call.
func (l *Ledger) RecordRelations(ctx context.Context, runID, phase string, tax types.Taxonomy, rels *relation.Set) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_relations
		(run_id, phase, t1, t2, path1, path2, t1_count, t2_count, joint_count, t1_given_t2, t2_given_t1)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rels.Sorted() {
		if _, err := stmt.ExecContext(ctx, runID, phase, r.T1, r.T2, tax.Path(r.T1), tax.Path(r.T2),
			r.T1Count, r.T2Count, r.JointCount, r.T1GivenT2, r.T2GivenT1); err != nil {
			return fmt.Errorf("failed to insert relation %s/%s: %w", r.T1, r.T2, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit relations: %w", err)
	}
	logging.StoreDebug("Recorded %d %s relations for run %s", rels.Len(), phase, runID)
	return nil
}

// Relations returns the relations stored for a run and phase.
func (l *Ledger) Relations(ctx context.Context, runID, phase string) ([]types.Relation, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT t1, t2, t1_count, t2_count, joint_count, t1_given_t2, t2_given_t1
		FROM run_relations WHERE run_id = ? AND phase = ?`, runID, phase)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	var out []types.Relation
	for rows.Next() {
		var r types.Relation
		if err := rows.Scan(&r.T1, &r.T2, &r.T1Count, &r.T2Count, &r.JointCount, &r.T1GivenT2, &r.T2GivenT1); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveSnapshot stores the serialized content of one knowledge base file.
func (l *Ledger) SaveSnapshot(ctx context.Context, runID, kind, content string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO kb_snapshots (run_id, kind, content) VALUES (?, ?, ?)`,
		runID, kind, content)
	if err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", kind, err)
	}
	return nil
}

// Snapshot returns a stored knowledge base file.
func (l *Ledger) Snapshot(ctx context.Context, runID, kind string) (string, error) {
	var content string
	err := l.db.QueryRowContext(ctx,
		`SELECT content FROM kb_snapshots WHERE run_id = ? AND kind = ?`, runID, kind).Scan(&content)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no %s snapshot for run %s", kind, runID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot: %w", err)
	}
	return content, nil
}

// RecordLoadStats stores how many records the loader read and filtered.
func (l *Ledger) RecordLoadStats(ctx context.Context, runID string, stats relation.LoadStats) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET records = ?, weak = ?, blacklisted = ?, ignored = ?, kept = ? WHERE id = ?`,
		stats.Records, stats.Weak, stats.Blacklisted, stats.Ignored, stats.Kept, runID)
	if err != nil {
		return fmt.Errorf("failed to record load statistics: %w", err)
	}
	return nil
}

// FinishRun closes a run with its statistics.
func (l *Ledger) FinishRun(ctx context.Context, runID string, stats update.RunStats) error {
	res, err := l.db.ExecContext(ctx, `UPDATE runs SET finished_at = ?, passes = ?, known = ?, aliases = ?,
		tags_added = ?, expansions = ?, contradictions = ?, unresolved = ? WHERE id = ?`,
		l.now().UnixMilli(), stats.Passes, stats.Known, stats.Aliases, stats.TagsAdded,
		stats.Expansions, stats.Contradictions, stats.Unresolved, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("unknown run %s", runID)
	}
	logging.Store("Finished run %s", runID)
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, input, min_joint_count, min_ratio,
		passes, known, aliases, tags_added, expansions, contradictions, unresolved,
		records, weak, blacklisted, ignored, kept
		FROM runs ORDER BY started_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Input, &r.MinJointCount, &r.MinRatio,
			&r.Stats.Passes, &r.Stats.Known, &r.Stats.Aliases, &r.Stats.TagsAdded,
			&r.Stats.Expansions, &r.Stats.Contradictions, &r.Stats.Unresolved,
			&r.Load.Records, &r.Load.Weak, &r.Load.Blacklisted, &r.Load.Ignored, &r.Load.Kept); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			r.FinishedAt = time.UnixMilli(finished.Int64)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
