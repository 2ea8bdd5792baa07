// Package kb implements the three knowledge bases the update engine works
// on: the taxonomy of known tags, the translation (tagging) rules mapping
// aliases to canonical tags, and the expansion rules mapping a tag to the
// tags it implies.
package kb

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"tagkb/internal/logging"
	"tagkb/internal/types"
)

// platformPrefix is the path under which operating system tags live.
const platformPrefix = "FILE:os"

// Tag is a taxonomy entry.
type Tag struct {
	Name     string
	Path     string
	Category types.Category
	// Ancestors holds the path segments between the category and the name.
	Ancestors []string
}

// ParseTag builds a Tag from a path like "CLASS:grayware:adware".
func ParseTag(path string) (Tag, error) {
	path = strings.TrimSpace(path)
	parts := strings.Split(path, types.PathSeparator)
	if len(parts) < 2 {
		return Tag{}, fmt.Errorf("invalid tag path %q: want CATEGORY:name", path)
	}
	cat, err := types.ParseCategory(parts[0])
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag path %q: %w", path, err)
	}
	if cat == types.CategoryUnknown {
		return Tag{}, fmt.Errorf("invalid tag path %q: UNK tags are not stored", path)
	}
	name := parts[len(parts)-1]
	if name == "" {
		return Tag{}, fmt.Errorf("invalid tag path %q: empty name", path)
	}
	return Tag{
		Name:      name,
		Path:      path,
		Category:  cat,
		Ancestors: append([]string(nil), parts[1:len(parts)-1]...),
	}, nil
}

func (t Tag) hasAncestor(name string) bool {
	for _, a := range t.Ancestors {
		if a == name {
			return true
		}
	}
	return false
}

// Taxonomy maps tag names to their entries. Each name has exactly one
// entry, so a tag belongs to exactly one category at a time.
type Taxonomy struct {
	tags map[string]Tag
}

var _ types.Taxonomy = (*Taxonomy)(nil)

// NewTaxonomy returns an empty taxonomy.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{tags: make(map[string]Tag)}
}

// Len returns the number of tags.
func (t *Taxonomy) Len() int {
	return len(t.tags)
}

// Contains reports whether the tag is in the taxonomy.
func (t *Taxonomy) Contains(name string) bool {
	_, ok := t.tags[name]
	return ok
}

// Get returns the entry for a tag.
func (t *Taxonomy) Get(name string) (Tag, bool) {
	tag, ok := t.tags[name]
	return tag, ok
}

// Tags returns all tag names sorted by path.
func (t *Taxonomy) Tags() []string {
	names := make([]string, 0, len(t.tags))
	for name := range t.tags {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return t.tags[names[i]].Path < t.tags[names[j]].Path
	})
	return names
}

// Category implements types.Taxonomy.
func (t *Taxonomy) Category(name string) types.Category {
	if tag, ok := t.tags[name]; ok {
		return tag.Category
	}
	return types.CategoryUnknown
}

// Path implements types.Taxonomy.
func (t *Taxonomy) Path(name string) string {
	if tag, ok := t.tags[name]; ok {
		return tag.Path
	}
	return types.JoinPath(string(types.CategoryUnknown), name)
}

// Info implements types.Taxonomy.
func (t *Taxonomy) Info(name string) (string, types.Category) {
	if tag, ok := t.tags[name]; ok {
		return tag.Path, tag.Category
	}
	return types.JoinPath(string(types.CategoryUnknown), name), types.CategoryUnknown
}

// Overlaps implements types.Taxonomy. A known tag overlaps itself and two
// tags overlap when one is an ancestor of the other.
func (t *Taxonomy) Overlaps(a, b string) bool {
	ta, okA := t.tags[a]
	if a == b {
		return okA
	}
	tb, okB := t.tags[b]
	return (okB && tb.hasAncestor(a)) || (okA && ta.hasAncestor(b))
}

// RemoveOverlaps implements types.Taxonomy. The result keeps the input
// order of the surviving tags.
func (t *Taxonomy) RemoveOverlaps(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	uniq := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		uniq = append(uniq, tag)
	}

	out := make([]string, 0, len(uniq))
	for _, cand := range uniq {
		ancestor := false
		for _, other := range uniq {
			if other == cand {
				continue
			}
			if tag, ok := t.tags[other]; ok && tag.hasAncestor(cand) {
				ancestor = true
				break
			}
		}
		if !ancestor {
			out = append(out, cand)
		}
	}
	return out
}

// PlatformTags implements types.Taxonomy: every tag under FILE:os.
func (t *Taxonomy) PlatformTags() map[string]struct{} {
	out := make(map[string]struct{})
	for name, tag := range t.tags {
		if strings.HasPrefix(tag.Path, platformPrefix+types.PathSeparator) {
			out[name] = struct{}{}
		}
	}
	return out
}

// AddTag implements types.Taxonomy. Existing tags keep their path.
// Invalid paths are logged and ignored.
func (t *Taxonomy) AddTag(path string) {
	if err := t.Insert(path, false); err != nil {
		logging.Get(logging.CategoryStore).Warn("Ignoring tag: %v", err)
	}
}

// Insert adds the tag described by path. With override an existing entry
// for the same name is replaced.
func (t *Taxonomy) Insert(path string, override bool) error {
	tag, err := ParseTag(path)
	if err != nil {
		return err
	}
	if _, exists := t.tags[tag.Name]; exists && !override {
		return nil
	}
	t.tags[tag.Name] = tag
	return nil
}

// RemoveTag implements types.Taxonomy.
func (t *Taxonomy) RemoveTag(name string) {
	delete(t.tags, name)
}

// ReadFrom loads paths, one per line. Blank lines and '#' comments are
// skipped.
func (t *Taxonomy) ReadFrom(r io.Reader) (int64, error) {
	scanner := bufio.NewScanner(r)
	var n int64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		n += int64(len(line)) + 1
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := t.Insert(line, false); err != nil {
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return n, scanner.Err()
}

// WriteTo writes one path per line sorted by path.
func (t *Taxonomy) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, name := range t.Tags() {
		c, err := fmt.Fprintln(bw, t.tags[name].Path)
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
