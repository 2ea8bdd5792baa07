package types

import (
	"testing"
)

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		if err != nil {
			t.Fatalf("ParseCategory(%q) returned error: %v", c, err)
		}
		if got != c {
			t.Fatalf("expected %s, got %s", c, got)
		}
	}
	if _, err := ParseCategory("GEN"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestCategoryIsKnown(t *testing.T) {
	if CategoryUnknown.IsKnown() {
		t.Fatalf("UNK must not be known")
	}
	if !CategoryFile.IsKnown() {
		t.Fatalf("FILE must be known")
	}
}

func TestPathHelpers(t *testing.T) {
	tests := []struct {
		path   string
		prefix string
		name   string
	}{
		{"FAM:upatre", "FAM", "upatre"},
		{"CLASS:grayware:adware", "CLASS:grayware", "adware"},
		{"plain", "plain", "plain"},
	}
	for _, tt := range tests {
		if got := PathPrefix(tt.path); got != tt.prefix {
			t.Errorf("PathPrefix(%q) = %q, want %q", tt.path, got, tt.prefix)
		}
		if got := PathName(tt.path); got != tt.name {
			t.Errorf("PathName(%q) = %q, want %q", tt.path, got, tt.name)
		}
	}
	if got := JoinPath("FILE:os", "android"); got != "FILE:os:android" {
		t.Errorf("JoinPath = %q", got)
	}
}

func TestRelationIsComparable(t *testing.T) {
	a := Relation{T1: "a", T2: "b", T1Count: 10, T2Count: 12, JointCount: 9, T1GivenT2: 0.9, T2GivenT1: 0.75}
	b := a
	set := map[Relation]struct{}{a: {}}
	if _, ok := set[b]; !ok {
		t.Fatalf("identical relations must collide in a set")
	}
	b.T2GivenT1 = 0.76
	if _, ok := set[b]; ok {
		t.Fatalf("relations differing in one field must not collide")
	}
}

func TestRelationString(t *testing.T) {
	r := Relation{T1: "zbot", T2: "zeus", T1Count: 100, T2Count: 98, JointCount: 97, T1GivenT2: 0.97, T2GivenT1: 0.989796}
	want := "zbot\tzeus\t100\t98\t97\t0.97\t0.989796"
	if got := r.String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
