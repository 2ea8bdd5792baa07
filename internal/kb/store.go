package kb

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"tagkb/internal/logging"
	"tagkb/internal/types"
)

// Paths locates the three knowledge base files.
type Paths struct {
	Taxonomy  string
	Tagging   string
	Expansion string
}

// PathsWithPrefix returns <prefix>.taxonomy, <prefix>.tagging and
// <prefix>.expansion.
func PathsWithPrefix(prefix string) Paths {
	return Paths{
		Taxonomy:  prefix + ".taxonomy",
		Tagging:   prefix + ".tagging",
		Expansion: prefix + ".expansion",
	}
}

// Store bundles the taxonomy, translation and expansion knowledge bases.
type Store struct {
	Taxonomy    *Taxonomy
	Translation *Translation
	Expansion   *Expansion
}

// NewStore returns an empty store.
func NewStore() *Store {
	tax := NewTaxonomy()
	return &Store{
		Taxonomy:    tax,
		Translation: NewTranslation(),
		Expansion:   NewExpansion(tax),
	}
}

// KB exposes the store through the engine's interfaces.
func (s *Store) KB() types.KnowledgeBase {
	return types.KnowledgeBase{
		Taxonomy:    s.Taxonomy,
		Translation: s.Translation,
		Expansion:   s.Expansion,
	}
}

// LoadAll reads the three files concurrently. An empty path leaves the
// corresponding knowledge base empty.
func LoadAll(ctx context.Context, paths Paths) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "LoadAll")
	defer timer.Stop()

	s := NewStore()
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return readFile(paths.Taxonomy, s.Taxonomy) })
	g.Go(func() error { return readFile(paths.Tagging, &s.Translation.Rules) })
	g.Go(func() error { return readFile(paths.Expansion, &s.Expansion.Rules) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Store("Read %d taxonomy tags from %s", s.Taxonomy.Len(), paths.Taxonomy)
	logging.Store("Read %d tagging rules from %s", s.Translation.Len(), paths.Tagging)
	logging.Store("Read %d expansion rules from %s", s.Expansion.Len(), paths.Expansion)
	return s, nil
}

// SaveAll writes the three files. Translation destinations are fully
// expanded first.
func (s *Store) SaveAll(paths Paths) error {
	s.Translation.ExpandAllDestinations()

	if err := writeFile(paths.Taxonomy, s.Taxonomy); err != nil {
		return err
	}
	logging.Store("Output %d taxonomy tags to %s", s.Taxonomy.Len(), paths.Taxonomy)
	if err := writeFile(paths.Tagging, s.Translation); err != nil {
		return err
	}
	logging.Store("Output %d tagging rules to %s", s.Translation.Len(), paths.Tagging)
	if err := writeFile(paths.Expansion, s.Expansion); err != nil {
		return err
	}
	logging.Store("Output %d expansion rules to %s", s.Expansion.Len(), paths.Expansion)
	return nil
}

func readFile(path string, dst io.ReaderFrom) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := dst.ReadFrom(f); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, src io.WriterTo) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := src.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
