// Package report writes the relation files produced around an update run
// and summarizes what is left for manual review.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"tagkb/internal/logging"
	"tagkb/internal/relation"
	"tagkb/internal/types"
)

// Header is the first line of a rules file.
const Header = "# t1\tt2\t|t1|\t|t2|\t|t1^t2|\t|t1^t2|/|t1|\t|t1^t2|/|t2|"

// SortByCategory orders relations by the categories of t1 and t2, then by
// tokens.
func SortByCategory(tax types.Taxonomy, rels *relation.Set) []types.Relation {
	out := rels.Sorted()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ca1, cb1 := tax.Category(a.T1), tax.Category(b.T1)
		if ca1 != cb1 {
			return ca1 < cb1
		}
		ca2, cb2 := tax.Category(a.T2), tax.Category(b.T2)
		if ca2 != cb2 {
			return ca2 < cb2
		}
		if a.T1 != b.T1 {
			return a.T1 < b.T1
		}
		return a.T2 < b.T2
	})
	return out
}

// RatioText returns the ratio fields of a relation as they were read.
// relation.Loader implements it.
type RatioText interface {
	RatioText(rel types.Relation) (string, string, bool)
}

// WriteRelations writes rels with taxonomy paths in place of tokens. Ratios
// are echoed from text when it knows the relation and formatted otherwise;
// text may be nil.
func WriteRelations(w io.Writer, tax types.Taxonomy, rels *relation.Set, text RatioText) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Header); err != nil {
		return err
	}
	for _, rel := range SortByCategory(tax, rels) {
		fields := rel.Fields()
		fields[0] = tax.Path(rel.T1)
		fields[1] = tax.Path(rel.T2)
		if text != nil {
			if r1, r2, ok := text.RatioText(rel); ok {
				fields[5], fields[6] = r1, r2
			}
		}
		if _, err := fmt.Fprintln(bw, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteRelationsFile writes rels to path.
func WriteRelationsFile(path string, tax types.Taxonomy, rels *relation.Set, text RatioText) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteRelations(f, tax, rels, text); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logging.Report("Output %d relations to %s", rels.Len(), path)
	return nil
}
