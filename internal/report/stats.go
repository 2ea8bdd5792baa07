package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tagkb/internal/relation"
	"tagkb/internal/types"
)

// PairCount counts relations per category pair.
type PairCount struct {
	C1, C2 types.Category
	Count  int
}

// DestinationCount counts relations per t2.
type DestinationCount struct {
	Path  string
	Count int
}

// Summary describes a relation set against the taxonomy.
type Summary struct {
	Relations    int
	Pairs        []PairCount
	Destinations []DestinationCount
}

// Summarize counts category pairs and destinations, both most frequent
// first.
func Summarize(tax types.Taxonomy, rels *relation.Set) Summary {
	pairs := make(map[[2]types.Category]int)
	dsts := make(map[string]int)
	for _, rel := range rels.Sorted() {
		pairs[[2]types.Category{tax.Category(rel.T1), tax.Category(rel.T2)}]++
		dsts[tax.Path(rel.T2)]++
	}

	s := Summary{Relations: rels.Len()}
	for k, n := range pairs {
		s.Pairs = append(s.Pairs, PairCount{C1: k[0], C2: k[1], Count: n})
	}
	sort.Slice(s.Pairs, func(i, j int) bool {
		a, b := s.Pairs[i], s.Pairs[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.C1 != b.C1 {
			return a.C1 < b.C1
		}
		return a.C2 < b.C2
	})

	for p, n := range dsts {
		s.Destinations = append(s.Destinations, DestinationCount{Path: p, Count: n})
	}
	sort.Slice(s.Destinations, func(i, j int) bool {
		a, b := s.Destinations[i], s.Destinations[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Path < b.Path
	})
	return s
}

// WriteTSV writes the summary as plain tab-separated lines.
func (s Summary) WriteTSV(w io.Writer) error {
	for _, p := range s.Pairs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%03d\n", p.C1, p.C2, p.Count); err != nil {
			return err
		}
	}
	for _, d := range s.Destinations {
		if _, err := fmt.Fprintf(w, "%s\t%03d\n", d.Path, d.Count); err != nil {
			return err
		}
	}
	return nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	countStyle = lipgloss.NewStyle().Bold(true).Width(6).Align(lipgloss.Right)
)

// Render formats the summary for a terminal. limit caps the number of
// destinations shown, 0 shows all.
func (s Summary) Render(limit int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Category pairs (%d relations)", s.Relations)))
	b.WriteString("\n")
	for _, p := range s.Pairs {
		b.WriteString(countStyle.Render(fmt.Sprintf("%d", p.Count)))
		b.WriteString("  ")
		b.WriteString(keyStyle.Render(fmt.Sprintf("%s -> %s", p.C1, p.C2)))
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("Destinations"))
	b.WriteString("\n")
	for i, d := range s.Destinations {
		if limit > 0 && i >= limit {
			b.WriteString(fmt.Sprintf("  ... %d more\n", len(s.Destinations)-limit))
			break
		}
		b.WriteString(countStyle.Render(fmt.Sprintf("%d", d.Count)))
		b.WriteString("  ")
		b.WriteString(keyStyle.Render(d.Path))
		b.WriteString("\n")
	}
	return b.String()
}
