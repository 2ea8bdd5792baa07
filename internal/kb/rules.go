package kb

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"tagkb/internal/types"
)

// Rules maps a source tag to a sorted, de-duplicated list of destinations.
type Rules struct {
	rules map[string][]string
}

var _ types.RuleSet = (*Rules)(nil)

func newRules() Rules {
	return Rules{rules: make(map[string][]string)}
}

// Len returns the number of rules.
func (r *Rules) Len() int {
	return len(r.rules)
}

// Sources returns every source tag, sorted.
func (r *Rules) Sources() []string {
	out := make([]string, 0, len(r.rules))
	for src := range r.rules {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

// HasRule reports whether src is the source of a rule.
func (r *Rules) HasRule(src string) bool {
	_, ok := r.rules[src]
	return ok
}

// Destinations implements types.RuleSet.
func (r *Rules) Destinations(src string) []string {
	dsts, ok := r.rules[src]
	if !ok {
		return nil
	}
	return append([]string(nil), dsts...)
}

// AddRule implements types.RuleSet. A source never lists itself as a
// destination; a rule left without destinations is dropped.
func (r *Rules) AddRule(src string, dsts []string, overwrite bool) {
	merged := make([]string, 0, len(dsts))
	if !overwrite {
		merged = append(merged, r.rules[src]...)
	}
	merged = append(merged, dsts...)
	merged = normalize(src, merged)
	if len(merged) == 0 {
		delete(r.rules, src)
		return
	}
	r.rules[src] = merged
}

// RemoveRule deletes the rule for src.
func (r *Rules) RemoveRule(src string) {
	delete(r.rules, src)
}

func normalize(src string, dsts []string) []string {
	seen := make(map[string]struct{}, len(dsts))
	out := make([]string, 0, len(dsts))
	for _, d := range dsts {
		if d == "" || d == src {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ReadFrom loads "src<TAB>dst1[<TAB>dst2...]" lines, merging repeated
// sources. Blank lines and '#' comments are skipped.
func (r *Rules) ReadFrom(rd io.Reader) (int64, error) {
	scanner := bufio.NewScanner(rd)
	var n int64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		n += int64(len(line)) + 1
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
		if len(fields) < 2 {
			return n, fmt.Errorf("line %d: rule needs a source and at least one destination", lineNo)
		}
		r.AddRule(strings.TrimSpace(fields[0]), trimAll(fields[1:]), false)
	}
	return n, scanner.Err()
}

// WriteTo writes one rule per line sorted by source.
func (r *Rules) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, src := range r.Sources() {
		c, err := fmt.Fprintf(bw, "%s\t%s\n", src, strings.Join(r.rules[src], "\t"))
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// Translation holds the tagging rules: alias -> canonical tags.
type Translation struct {
	Rules
}

// NewTranslation returns an empty rule set.
func NewTranslation() *Translation {
	return &Translation{Rules: newRules()}
}

// ExpandAllDestinations rewrites every rule so that its destinations are
// fully resolved through chained rules (a -> b, b -> c becomes a -> c).
// A cycle stops at the last tag before it closes.
func (tr *Translation) ExpandAllDestinations() {
	resolved := make(map[string][]string, len(tr.rules))
	for _, src := range tr.Sources() {
		visiting := map[string]bool{src: true}
		var out []string
		for _, dst := range tr.rules[src] {
			out = append(out, tr.resolve(dst, visiting)...)
		}
		resolved[src] = out
	}
	for src, dsts := range resolved {
		tr.AddRule(src, dsts, true)
	}
}

func (tr *Translation) resolve(tag string, visiting map[string]bool) []string {
	dsts, ok := tr.rules[tag]
	if !ok {
		return []string{tag}
	}
	visiting[tag] = true
	defer delete(visiting, tag)
	var out []string
	for _, d := range dsts {
		if visiting[d] {
			out = append(out, tag)
			continue
		}
		out = append(out, tr.resolve(d, visiting)...)
	}
	return out
}

// Expansion holds the expansion rules: tag -> implied tags.
type Expansion struct {
	Rules
	tax *Taxonomy
}

var _ types.ExpansionSet = (*Expansion)(nil)

// NewExpansion returns an empty rule set that resolves overlaps against tax.
func NewExpansion(tax *Taxonomy) *Expansion {
	return &Expansion{Rules: newRules(), tax: tax}
}

// RemoveOverlaps drops destinations that are ancestors of other
// destinations in the list.
func (e *Expansion) RemoveOverlaps(tags []string) []string {
	if e.tax == nil {
		return normalize("", tags)
	}
	return e.tax.RemoveOverlaps(tags)
}
