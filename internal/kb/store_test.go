package kb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tagkb/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeKB(t *testing.T, dir string) Paths {
	t.Helper()
	paths := PathsWithPrefix(filepath.Join(dir, "default"))
	require.NoError(t, os.WriteFile(paths.Taxonomy, []byte(sampleTaxonomy), 0644))
	require.NoError(t, os.WriteFile(paths.Tagging, []byte("zeus\tzbot\n"), 0644))
	require.NoError(t, os.WriteFile(paths.Expansion, []byte("upatre\tdownloader\n"), 0644))
	return paths
}

func TestLoadAllAndSaveAll(t *testing.T) {
	dir := t.TempDir()
	paths := writeKB(t, dir)

	s, err := LoadAll(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 9, s.Taxonomy.Len())
	assert.Equal(t, []string{"zbot"}, s.Translation.Destinations("zeus"))
	assert.Equal(t, []string{"downloader"}, s.Expansion.Destinations("upatre"))

	kb := s.KB()
	assert.Equal(t, types.CategoryFamily, kb.Taxonomy.Category("upatre"))

	s.Taxonomy.AddTag("FAM:zbot")
	out := PathsWithPrefix(filepath.Join(dir, "out", "run"))
	require.NoError(t, s.SaveAll(out))

	again, err := LoadAll(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 10, again.Taxonomy.Len())
	assert.Equal(t, types.CategoryFamily, again.Taxonomy.Category("zbot"))
	assert.Equal(t, 1, again.Translation.Len())
}

func TestLoadAllEmptyPaths(t *testing.T) {
	s, err := LoadAll(context.Background(), Paths{})
	require.NoError(t, err)
	assert.Zero(t, s.Taxonomy.Len())
	assert.Zero(t, s.Translation.Len())
	assert.Zero(t, s.Expansion.Len())
}

func TestLoadAllMissingFile(t *testing.T) {
	_, err := LoadAll(context.Background(), Paths{Taxonomy: filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}
