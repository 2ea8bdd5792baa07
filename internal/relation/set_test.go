package relation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"tagkb/internal/types"
)

func TestSetOperations(t *testing.T) {
	a := types.Relation{T1: "a", T2: "b", JointCount: 30, T1GivenT2: 0.95, T2GivenT1: 0.5}
	s := NewSet(a, a)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Add(a))
	assert.True(t, s.Contains(a))
	s.Remove(a)
	assert.Equal(t, 0, s.Len())
}

func TestSortedStrongestFirst(t *testing.T) {
	weak := types.Relation{T1: "w", T2: "x", JointCount: 90, T1GivenT2: 0.95, T2GivenT1: 0.5}
	strong := types.Relation{T1: "s", T2: "x", JointCount: 30, T1GivenT2: 0.99, T2GivenT1: 0.5}
	tieB := types.Relation{T1: "b", T2: "x", JointCount: 30, T1GivenT2: 0.95, T2GivenT1: 0.5}
	tieA := types.Relation{T1: "a", T2: "x", JointCount: 30, T1GivenT2: 0.95, T2GivenT1: 0.5}

	got := NewSet(tieB, weak, tieA, strong).Sorted()
	want := []types.Relation{strong, weak, tieA, tieB}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Sorted mismatch (-want +got):\n%s", diff)
	}
}
