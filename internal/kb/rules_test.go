package kb

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesAddRule(t *testing.T) {
	tr := NewTranslation()

	tr.AddRule("zeus", []string{"zbot"}, false)
	tr.AddRule("zeus", []string{"citadel", "zbot"}, false)
	assert.Equal(t, []string{"citadel", "zbot"}, tr.Destinations("zeus"))

	tr.AddRule("zeus", []string{"zbot"}, true)
	assert.Equal(t, []string{"zbot"}, tr.Destinations("zeus"))

	// Self references never survive.
	tr.AddRule("loop", []string{"loop"}, true)
	assert.False(t, tr.HasRule("loop"))

	assert.Nil(t, tr.Destinations("absent"))
}

func TestRulesDestinationsIsCopy(t *testing.T) {
	tr := NewTranslation()
	tr.AddRule("a", []string{"b"}, true)

	dsts := tr.Destinations("a")
	dsts[0] = "mutated"
	assert.Equal(t, []string{"b"}, tr.Destinations("a"))
}

func TestRulesReadWrite(t *testing.T) {
	in := "# comment\nzeus\tzbot\nwannacry\twannacryptor\tcryptolocker\nzeus\tcitadel\n\n"
	tr := NewTranslation()
	_, err := tr.ReadFrom(strings.NewReader(in))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = tr.WriteTo(&buf)
	require.NoError(t, err)

	want := "wannacry\tcryptolocker\twannacryptor\nzeus\tcitadel\tzbot\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRulesReadRejectsSourceOnly(t *testing.T) {
	tr := NewTranslation()
	_, err := tr.ReadFrom(strings.NewReader("lonely\n"))
	assert.Error(t, err)
}

func TestExpandAllDestinations(t *testing.T) {
	tr := NewTranslation()
	tr.AddRule("a", []string{"b"}, true)
	tr.AddRule("b", []string{"c", "d"}, true)
	tr.AddRule("d", []string{"e"}, true)
	// Cycle
	tr.AddRule("x", []string{"y"}, true)
	tr.AddRule("y", []string{"x"}, true)

	tr.ExpandAllDestinations()

	assert.Equal(t, []string{"c", "e"}, tr.Destinations("a"))
	assert.Equal(t, []string{"c", "e"}, tr.Destinations("b"))
	assert.Equal(t, []string{"e"}, tr.Destinations("d"))
	assert.Equal(t, []string{"y"}, tr.Destinations("x"))
	assert.Equal(t, []string{"x"}, tr.Destinations("y"))
}

func TestExpansionRemoveOverlaps(t *testing.T) {
	tax := sampleTax(t)
	exp := NewExpansion(tax)

	got := exp.RemoveOverlaps([]string{"adware", "grayware"})
	assert.Equal(t, []string{"adware"}, got)

	bare := NewExpansion(nil)
	assert.Equal(t, []string{"a", "b"}, bare.RemoveOverlaps([]string{"b", "a", "b"}))
}
