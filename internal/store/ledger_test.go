package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tagkb/internal/kb"
	"tagkb/internal/relation"
	"tagkb/internal/types"
	"tagkb/internal/update"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerRunLifecycle(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)

	tax := kb.NewTaxonomy()
	_, err := tax.ReadFrom(strings.NewReader("FAM:zbot\n"))
	require.NoError(t, err)
	rel := types.Relation{T1: "zeus", T2: "zbot", T1Count: 40, T2Count: 900, JointCount: 39, T1GivenT2: 0.975, T2GivenT1: 0.04}

	id, err := l.BeginRun(ctx, RunParams{Input: "sample.alias", MinJointCount: 20, MinRatio: 0.94})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, l.RecordRelations(ctx, id, PhaseOriginal, tax, relation.NewSet(rel)))
	require.NoError(t, l.RecordRelations(ctx, id, PhaseFinal, tax, relation.NewSet()))
	require.NoError(t, l.SaveSnapshot(ctx, id, SnapshotTaxonomy, "FAM:zbot\n"))

	stats := update.RunStats{Passes: 2, Aliases: 1, Unresolved: 0}
	require.NoError(t, l.FinishRun(ctx, id, stats))

	orig, err := l.Relations(ctx, id, PhaseOriginal)
	require.NoError(t, err)
	assert.Equal(t, []types.Relation{rel}, orig)

	final, err := l.Relations(ctx, id, PhaseFinal)
	require.NoError(t, err)
	assert.Empty(t, final)

	snap, err := l.Snapshot(ctx, id, SnapshotTaxonomy)
	require.NoError(t, err)
	assert.Equal(t, "FAM:zbot\n", snap)

	_, err = l.Snapshot(ctx, id, SnapshotExpansion)
	assert.Error(t, err)

	runs, err := l.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "sample.alias", runs[0].Input)
	assert.Equal(t, stats, runs[0].Stats)
	assert.False(t, runs[0].FinishedAt.IsZero())
}

func TestLedgerListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		l.now = func() time.Time { return ts }
		id, err := l.BeginRun(ctx, RunParams{Input: "in"})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := l.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.True(t, runs[0].FinishedAt.IsZero())
}

func TestLedgerFinishUnknownRun(t *testing.T) {
	l := openLedger(t)
	assert.Error(t, l.FinishRun(context.Background(), "missing", update.RunStats{}))
}

func TestLedgerReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.BeginRun(ctx, RunParams{Input: "a"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestLedgerLoadStats(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)

	id, err := l.BeginRun(ctx, RunParams{Input: "in"})
	require.NoError(t, err)
	load := relation.LoadStats{Records: 10, Weak: 4, Blacklisted: 2, Ignored: 1, Kept: 3}
	require.NoError(t, l.RecordLoadStats(ctx, id, load))

	runs, err := l.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, load, runs[0].Load)
}

func TestMigrateVersionOneLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE runs (
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
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO runs (id, started_at, input, min_joint_count, min_ratio) VALUES ('old', 1, 'old.alias', 20, 0.94)`)
	require.NoError(t, err)
	assert.Equal(t, 1, GetSchemaVersion(db))
	require.NoError(t, db.Close())

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(l.db))
	for _, m := range pendingMigrations {
		assert.True(t, columnExists(l.db, m.Table, m.Column), "missing %s.%s", m.Table, m.Column)
	}

	runs, err := l.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "old.alias", runs[0].Input)
	assert.Zero(t, runs[0].Load.Records)
}
