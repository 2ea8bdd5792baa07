package update

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tagkb/internal/kb"
	"tagkb/internal/relation"
	"tagkb/internal/types"
)

const testThreshold = 0.94

const testTaxonomy = `CLASS:grayware
CLASS:grayware:adware
CLASS:ransomware
BEH:ddos
FAM:upatre
FAM:zbot
FILE:os:windows
FILE:packed
FILE:packed:upx
`

func newStore(t *testing.T) *kb.Store {
	t.Helper()
	s := kb.NewStore()
	_, err := s.Taxonomy.ReadFrom(strings.NewReader(testTaxonomy))
	require.NoError(t, err)
	return s
}

func rel(t1, t2 string, r1, r2 float64) types.Relation {
	return types.Relation{
		T1: t1, T2: t2,
		T1Count: 100, T2Count: 100, JointCount: 90,
		T1GivenT2: r1, T2GivenT1: r2,
	}
}

type counts map[string]int

func (c counts) Get(tag string) int { return c[tag] }

func newClassifier(s *kb.Store, c Counter) *Classifier {
	return NewClassifier(s.KB(), c, testThreshold)
}

// snapshot serializes the three stores so tests can detect any mutation.
func snapshot(t *testing.T, s *kb.Store) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := s.Taxonomy.WriteTo(&buf)
	require.NoError(t, err)
	buf.WriteString("--\n")
	_, err = s.Translation.WriteTo(&buf)
	require.NoError(t, err)
	buf.WriteString("--\n")
	_, err = s.Expansion.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

// requireNoAliasInTaxonomy checks that translation sources are never
// taxonomy entries.
func requireNoAliasInTaxonomy(t *testing.T, s *kb.Store) {
	t.Helper()
	for _, src := range s.Translation.Sources() {
		require.Falsef(t, s.Taxonomy.Contains(src), "alias %s is also a taxonomy tag", src)
	}
}

func runUpdater(s *kb.Store, rels ...types.Relation) (*Updater, RunStats) {
	u := New(s.KB(), relation.NewSet(rels...), nil, Options{AliasThreshold: testThreshold})
	return u, u.Run()
}
