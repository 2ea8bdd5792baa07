package types

// Taxonomy is the authoritative set of known tags, each with one category.
type Taxonomy interface {
	// Category returns the tag's category, UNK when the tag is unknown.
	Category(tag string) Category
	// Path returns the tag's full path, "UNK:<tag>" when the tag is unknown.
	Path(tag string) string
	// Info returns both path and category in one lookup.
	Info(tag string) (string, Category)
	// Overlaps reports whether one tag is the other or one of its ancestors.
	Overlaps(a, b string) bool
	// RemoveOverlaps drops duplicates and every tag that is an ancestor of
	// another tag in the list.
	RemoveOverlaps(tags []string) []string
	// PlatformTags returns the tags excluded from relation processing.
	PlatformTags() map[string]struct{}
	// AddTag inserts the tag described by path unless the tag already exists.
	AddTag(path string)
	// RemoveTag deletes a tag. Unknown tags are ignored.
	RemoveTag(tag string)
}

// RuleSet maps a source tag to destination tags. Both the translation
// (tagging) rules and the expansion rules satisfy it.
type RuleSet interface {
	// Destinations returns a copy of the destinations of src, nil if none.
	Destinations(src string) []string
	// AddRule installs a rule. With overwrite the previous destinations are
	// replaced, otherwise dsts are merged into them.
	AddRule(src string, dsts []string, overwrite bool)
}

// ExpansionSet is a RuleSet whose destinations must not overlap.
type ExpansionSet interface {
	RuleSet
	// RemoveOverlaps drops destinations that are ancestors of other
	// destinations in the list.
	RemoveOverlaps(tags []string) []string
}

// KnowledgeBase groups the three stores the update engine mutates.
type KnowledgeBase struct {
	Taxonomy    Taxonomy
	Translation RuleSet
	Expansion   ExpansionSet
}
