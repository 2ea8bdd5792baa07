package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tagkb/internal/config"
	"tagkb/internal/kb"
	"tagkb/internal/relation"
	"tagkb/internal/report"
	"tagkb/internal/store"
	"tagkb/internal/update"
)

var (
	outPrefix string
	inPlace   bool
)

// session holds what every command loads: the knowledge base and the
// filtered relations.
type session struct {
	cfg    *config.Config
	store  *kb.Store
	loader *relation.Loader
	rels   *relation.Set
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	if aliasPath == "" {
		return nil, errMissingAlias
	}

	s, err := kb.LoadAll(ctx, kb.Paths{
		Taxonomy:  cfg.Paths.Taxonomy,
		Tagging:   cfg.Paths.Tagging,
		Expansion: cfg.Paths.Expansion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}

	loader, err := relation.NewLoader(relation.Options{
		MinJointCount: cfg.Thresholds.MinJointCount,
		MinRatio:      cfg.Thresholds.MinRatio,
		Blacklist:     s.Taxonomy.PlatformTags(),
		Ignore:        cfg.Filter.Ignore,
	})
	if err != nil {
		return nil, err
	}
	rels, err := loader.LoadFile(aliasPath)
	if err != nil {
		return nil, err
	}

	logger.Info("Processing relations",
		zap.Int("relations", rels.Len()),
		zap.Float64("t", cfg.Thresholds.MinRatio),
		zap.Int("n", cfg.Thresholds.MinJointCount))
	return &session{cfg: cfg, store: s, loader: loader, rels: rels}, nil
}

// defaultPrefix strips the extension from the alias path.
func defaultPrefix(alias string) string {
	return strings.TrimSuffix(alias, filepath.Ext(alias))
}

// runUpdate loads everything, runs the updater and writes the results
func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg := activeConfig

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}

	prefix := outPrefix
	if prefix == "" {
		prefix = defaultPrefix(aliasPath)
	}
	if dir := filepath.Dir(prefix); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var (
		ledger *store.Ledger
		runID  string
	)
	if cfg.Store.DatabasePath != "" {
		ledger, err = store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer ledger.Close()
		runID, err = ledger.BeginRun(ctx, store.RunParams{
			Input:         aliasPath,
			MinJointCount: cfg.Thresholds.MinJointCount,
			MinRatio:      cfg.Thresholds.MinRatio,
		})
		if err != nil {
			return err
		}
		if err := ledger.RecordLoadStats(ctx, runID, sess.loader.Stats()); err != nil {
			return err
		}
		if err := ledger.RecordRelations(ctx, runID, store.PhaseOriginal, sess.store.Taxonomy, sess.rels); err != nil {
			return err
		}
	}

	if err := report.WriteRelationsFile(prefix+".orig.rules", sess.store.Taxonomy, sess.rels, sess.loader); err != nil {
		return err
	}

	u := update.New(sess.store.KB(), sess.rels, sess.loader.Counts(), update.Options{
		AliasThreshold: cfg.Thresholds.MinRatio,
	})
	stats := u.Run()

	outPaths := kb.PathsWithPrefix(prefix)
	if inPlace {
		outPaths = kb.Paths{
			Taxonomy:  cfg.Paths.Taxonomy,
			Tagging:   cfg.Paths.Tagging,
			Expansion: cfg.Paths.Expansion,
		}
	}
	if err := sess.store.SaveAll(outPaths); err != nil {
		return err
	}

	finalPath := prefix + ".final.rules"
	if err := report.WriteRelationsFile(finalPath, sess.store.Taxonomy, u.Remaining(), sess.loader); err != nil {
		return err
	}

	if ledger != nil {
		if err := recordResults(ctx, ledger, runID, sess.store, u, outPaths, stats); err != nil {
			return err
		}
	}

	logger.Info("Update complete",
		zap.Int("passes", stats.Passes),
		zap.Int("aliases", stats.Aliases),
		zap.Int("tags", stats.TagsAdded),
		zap.Int("expansions", stats.Expansions),
		zap.Int("known", stats.Known),
		zap.Int("contradictions", stats.Contradictions),
		zap.Int("unresolved", stats.Unresolved))
	fmt.Printf("Updated knowledge base: %d aliases, %d tags, %d expansions, %d relations left in %s\n",
		stats.Aliases, stats.TagsAdded, stats.Expansions, stats.Unresolved, finalPath)
	return nil
}

func recordResults(ctx context.Context, ledger *store.Ledger, runID string, s *kb.Store, u *update.Updater, paths kb.Paths, stats update.RunStats) error {
	if err := ledger.RecordRelations(ctx, runID, store.PhaseFinal, s.Taxonomy, u.Remaining()); err != nil {
		return err
	}
	snapshots := map[string]string{
		store.SnapshotTaxonomy:  paths.Taxonomy,
		store.SnapshotTagging:   paths.Tagging,
		store.SnapshotExpansion: paths.Expansion,
	}
	for kind, path := range snapshots {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s for snapshot: %w", path, err)
		}
		if err := ledger.SaveSnapshot(ctx, runID, kind, string(data)); err != nil {
			return err
		}
	}
	return ledger.FinishRun(ctx, runID, stats)
}
