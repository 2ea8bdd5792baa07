// Package types provides shared type definitions used across tagkb packages.
// This package exists to break import cycles between the loader, the stores
// and the update engine. Types in this package should be foundational data
// structures with no complex dependencies.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// TAG CATEGORIES
// =============================================================================

// Category is the structural role of a tag in the taxonomy.
type Category string

const (
	CategoryUnknown  Category = "UNK"   // Not in the taxonomy
	CategoryFamily   Category = "FAM"   // Malware family
	CategoryClass    Category = "CLASS" // Generic class (grayware, ransomware, ...)
	CategoryBehavior Category = "BEH"   // Behavior
	CategoryFile     Category = "FILE"  // File property (platform, packer, ...)
)

// Categories lists every known category, UNK first.
var Categories = []Category{
	CategoryUnknown,
	CategoryFamily,
	CategoryClass,
	CategoryBehavior,
	CategoryFile,
}

// ParseCategory maps a path prefix to a Category.
// Anything that is not a known category is reported as an error.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown category %q", s)
}

// IsKnown reports whether the category is anything other than UNK.
func (c Category) IsKnown() bool {
	return c != CategoryUnknown && c != ""
}

func (c Category) String() string {
	return string(c)
}

// =============================================================================
// TAG PATHS
// =============================================================================

// PathSeparator separates the segments of a taxonomy path.
const PathSeparator = ":"

// JoinPath builds a path from a prefix and a tag name.
func JoinPath(prefix, name string) string {
	return prefix + PathSeparator + name
}

// PathPrefix returns everything before the last separator of a path,
// i.e. the category plus the ancestor chain of the tag.
// "CLASS:grayware:adware" -> "CLASS:grayware", "FAM:upatre" -> "FAM".
func PathPrefix(path string) string {
	idx := strings.LastIndex(path, PathSeparator)
	if idx < 0 {
		return path
	}
	return path[:idx]
}

// PathName returns the last segment of a path.
func PathName(path string) string {
	idx := strings.LastIndex(path, PathSeparator)
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// =============================================================================
// RELATIONS
// =============================================================================

// Relation is an observed co-occurrence between two tag tokens, as produced
// by the labeler's alias detection. Relations are values: two relations with
// the same seven fields are the same relation, so Relation can be used
// directly as a map key.
type Relation struct {
	T1         string
	T2         string
	T1Count    int
	T2Count    int
	JointCount int
	// T1GivenT2 is |t1^t2|/|t1|, the strength of t1 -> t2.
	T1GivenT2 float64
	// T2GivenT1 is |t1^t2|/|t2|, the strength of t2 -> t1.
	T2GivenT1 float64
}

// Fields returns the relation in its tab-separated record order.
func (r Relation) Fields() []string {
	return []string{
		r.T1,
		r.T2,
		strconv.Itoa(r.T1Count),
		strconv.Itoa(r.T2Count),
		strconv.Itoa(r.JointCount),
		FormatRatio(r.T1GivenT2),
		FormatRatio(r.T2GivenT1),
	}
}

// String returns the relation in record form.
func (r Relation) String() string {
	return strings.Join(r.Fields(), "\t")
}

// FormatRatio renders a ratio with the shortest exact representation.
func FormatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
