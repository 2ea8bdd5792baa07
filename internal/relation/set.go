package relation

import (
	"sort"

	"tagkb/internal/types"
)

// Set is a set of relations. Identical records collapse into one entry.
type Set struct {
	m map[types.Relation]struct{}
}

// NewSet returns a set holding rels.
func NewSet(rels ...types.Relation) *Set {
	s := &Set{m: make(map[types.Relation]struct{}, len(rels))}
	for _, r := range rels {
		s.Add(r)
	}
	return s
}

// Add inserts rel and reports whether it was new.
func (s *Set) Add(rel types.Relation) bool {
	if _, ok := s.m[rel]; ok {
		return false
	}
	s.m[rel] = struct{}{}
	return true
}

// Remove deletes rel.
func (s *Set) Remove(rel types.Relation) {
	delete(s.m, rel)
}

// Contains reports whether rel is in the set.
func (s *Set) Contains(rel types.Relation) bool {
	_, ok := s.m[rel]
	return ok
}

// Len returns the number of relations.
func (s *Set) Len() int {
	return len(s.m)
}

// Sorted returns the relations strongest first: by t1->t2 ratio, t2->t1
// ratio and joint count, all descending, then by tokens. The order is
// total, so a worklist built from it is reproducible across runs.
func (s *Set) Sorted() []types.Relation {
	out := make([]types.Relation, 0, len(s.m))
	for r := range s.m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return Stronger(out[i], out[j])
	})
	return out
}

// Stronger orders relations for processing.
func Stronger(a, b types.Relation) bool {
	if a.T1GivenT2 != b.T1GivenT2 {
		return a.T1GivenT2 > b.T1GivenT2
	}
	if a.T2GivenT1 != b.T2GivenT1 {
		return a.T2GivenT1 > b.T2GivenT1
	}
	if a.JointCount != b.JointCount {
		return a.JointCount > b.JointCount
	}
	if a.T1 != b.T1 {
		return a.T1 < b.T1
	}
	if a.T2 != b.T2 {
		return a.T2 < b.T2
	}
	if a.T1Count != b.T1Count {
		return a.T1Count > b.T1Count
	}
	return a.T2Count > b.T2Count
}
