// Package relation loads the co-occurrence relations emitted by the
// labeler and keeps the working set the update engine consumes.
package relation

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"tagkb/internal/logging"
	"tagkb/internal/types"
)

// NumFields is the number of tab-separated fields in a relation record.
const NumFields = 7

// ParseError reports a malformed relation record. It aborts the load.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("relation line %d: %s", e.Line, e.Msg)
}

// Options configures a Loader.
type Options struct {
	// MinJointCount drops relations seen together fewer times (n).
	MinJointCount int
	// MinRatio drops relations whose t1_given_t2 ratio is lower (t).
	MinRatio float64
	// Blacklist holds tokens whose relations are dropped, normally the
	// taxonomy platform tags.
	Blacklist map[string]struct{}
	// Ignore holds glob patterns; a relation with a matching token is dropped.
	Ignore []string
}

// LoadStats counts what happened to the records of one load.
type LoadStats struct {
	Records     int
	Weak        int
	Blacklisted int
	Ignored     int
	Kept        int
}

// Loader parses relation records and filters weak and blacklisted ones.
type Loader struct {
	opts   Options
	ignore []glob.Glob
	counts Counts
	stats  LoadStats
	// ratios keeps the ratio fields as written by the labeler.
	ratios map[types.Relation][2]string
}

// NewLoader compiles the ignore patterns.
func NewLoader(opts Options) (*Loader, error) {
	l := &Loader{opts: opts, counts: make(Counts), ratios: make(map[types.Relation][2]string)}
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		l.ignore = append(l.ignore, g)
	}
	return l, nil
}

// Counts returns the largest occurrence count seen for each token of the
// kept relations.
func (l *Loader) Counts() Counts {
	return l.counts
}

// RatioText returns the two ratio fields of rel as they appeared in the
// input. Records that parse to the same relation keep the first text.
func (l *Loader) RatioText(rel types.Relation) (string, string, bool) {
	text, ok := l.ratios[rel]
	return text[0], text[1], ok
}

// Stats returns the counters of the loads performed so far.
func (l *Loader) Stats() LoadStats {
	return l.stats
}

// LoadFile opens path and calls Load.
func (l *Loader) LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open relations: %w", err)
	}
	defer f.Close()

	set, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return set, nil
}

// Load reads relation records from r. Lines starting with '#' are comments.
// Known relations are kept: whether a relation is known depends on the
// knowledge base, which changes while relations are processed.
func (l *Loader) Load(r io.Reader) (*Set, error) {
	timer := logging.StartTimer(logging.CategoryLoader, "Load")
	defer timer.Stop()

	set := NewSet()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		rel, err := Parse(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Msg: err.Error()}
		}
		l.stats.Records++

		switch {
		case l.IsWeak(rel):
			l.stats.Weak++
			continue
		case l.IsBlacklisted(rel):
			l.stats.Blacklisted++
			continue
		case l.isIgnored(rel):
			l.stats.Ignored++
			continue
		}

		if set.Add(rel) {
			l.stats.Kept++
			fields := strings.Split(strings.TrimSpace(line), "\t")
			l.ratios[rel] = [2]string{strings.TrimSpace(fields[5]), strings.TrimSpace(fields[6])}
		}
		l.counts.observe(rel.T1, rel.T1Count)
		l.counts.observe(rel.T2, rel.T2Count)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read relations: %w", err)
	}

	logging.Loader("Loaded %d relations (%d records, %d weak, %d blacklisted, %d ignored)",
		set.Len(), l.stats.Records, l.stats.Weak, l.stats.Blacklisted, l.stats.Ignored)
	return set, nil
}

// Parse decodes one tab-separated record.
func Parse(line string) (types.Relation, error) {
	fields := strings.Split(strings.TrimSpace(line), "\t")
	if len(fields) != NumFields {
		return types.Relation{}, fmt.Errorf("expected %d fields, got %d", NumFields, len(fields))
	}

	ints := make([]int, 3)
	for i := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(fields[2+i]))
		if err != nil {
			return types.Relation{}, fmt.Errorf("field %d: %w", 3+i, err)
		}
		if v < 0 {
			return types.Relation{}, fmt.Errorf("field %d: negative count %d", 3+i, v)
		}
		ints[i] = v
	}
	floats := make([]float64, 2)
	for i := range floats {
		text := strings.TrimSpace(fields[5+i])
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return types.Relation{}, fmt.Errorf("field %d: %w", 6+i, err)
		}
		// NaN would also break set membership, since it never equals itself.
		if math.IsNaN(v) || v < 0 || v > 1 {
			return types.Relation{}, fmt.Errorf("field %d: ratio %q outside [0,1]", 6+i, text)
		}
		floats[i] = v
	}

	return types.Relation{
		T1:         strings.TrimSpace(fields[0]),
		T2:         strings.TrimSpace(fields[1]),
		T1Count:    ints[0],
		T2Count:    ints[1],
		JointCount: ints[2],
		T1GivenT2:  floats[0],
		T2GivenT1:  floats[1],
	}, nil
}

// IsWeak reports whether the relation misses the strength thresholds.
func (l *Loader) IsWeak(rel types.Relation) bool {
	return rel.JointCount < l.opts.MinJointCount || rel.T1GivenT2 < l.opts.MinRatio
}

// IsBlacklisted reports whether either token is blacklisted.
func (l *Loader) IsBlacklisted(rel types.Relation) bool {
	if _, ok := l.opts.Blacklist[rel.T1]; ok {
		return true
	}
	_, ok := l.opts.Blacklist[rel.T2]
	return ok
}

func (l *Loader) isIgnored(rel types.Relation) bool {
	for _, g := range l.ignore {
		if g.Match(rel.T1) || g.Match(rel.T2) {
			return true
		}
	}
	return false
}

// Counts maps a token to the largest occurrence count observed for it.
type Counts map[string]int

func (c Counts) observe(tag string, n int) {
	if n > c[tag] {
		c[tag] = n
	}
}

// Get returns the count for tag, 0 if it was never observed.
func (c Counts) Get(tag string) int {
	return c[tag]
}
