// Package update turns labeler relations into taxonomy, tagging and
// expansion updates. A Classifier decides what a single relation means for
// the current knowledge base and applies at most one mutation; the Updater
// drives passes over the working set until nothing changes and then
// resolves the remaining generalizations as expansion rules.
package update

import (
	"tagkb/internal/logging"
	"tagkb/internal/types"
)

// Outcome is the result of classifying one relation.
type Outcome int

const (
	// OutcomeDeferred keeps the relation for a later pass or the finalizer.
	OutcomeDeferred Outcome = iota
	// OutcomeKnown means the knowledge base already implies the relation.
	OutcomeKnown
	// OutcomeMutated means exactly one update was applied.
	OutcomeMutated
	// OutcomeContradiction marks an equivalence between tags of different
	// known categories. The relation is dropped without mutation.
	OutcomeContradiction
)

func (o Outcome) String() string {
	switch o {
	case OutcomeKnown:
		return "known"
	case OutcomeMutated:
		return "mutated"
	case OutcomeContradiction:
		return "contradiction"
	default:
		return "deferred"
	}
}

// Action names the mutation a decision performed.
type Action string

const (
	ActionNone      Action = ""
	ActionAlias     Action = "alias"
	ActionExpansion Action = "expansion"
	ActionTag       Action = "tag"
)

// Decision describes what happened to a relation.
type Decision struct {
	Outcome Outcome
	Action  Action
}

// Counter returns how often a token was observed. relation.Counts
// satisfies it.
type Counter interface {
	Get(tag string) int
}

// Classifier applies the relation decision table to a knowledge base.
type Classifier struct {
	kb        types.KnowledgeBase
	counts    Counter
	threshold float64
}

// NewClassifier returns a classifier that treats a relation as an
// equivalence when both directional ratios reach threshold.
func NewClassifier(kb types.KnowledgeBase, counts Counter, threshold float64) *Classifier {
	if counts == nil {
		counts = zeroCounter{}
	}
	return &Classifier{kb: kb, counts: counts, threshold: threshold}
}

type zeroCounter struct{}

func (zeroCounter) Get(string) int { return 0 }

// IsKnown reports whether the knowledge base already captures the
// relation: the tokens are the same, the tags overlap in the taxonomy, an
// expansion or tagging rule links them, or both are aliases of the same
// destinations.
func (c *Classifier) IsKnown(rel types.Relation) bool {
	t1, t2 := rel.T1, rel.T2

	// A token related to itself carries no information.
	if t1 == t2 {
		return true
	}
	if c.kb.Taxonomy.Overlaps(t1, t2) {
		return true
	}

	if contains(c.kb.Expansion.Destinations(t1), t2) || contains(c.kb.Expansion.Destinations(t2), t1) {
		return true
	}

	d1 := c.kb.Translation.Destinations(t1)
	d2 := c.kb.Translation.Destinations(t2)
	if contains(d1, t2) || contains(d2, t1) {
		return true
	}
	return len(d1) > 0 && equalSets(d1, d2)
}

// IsExpansion reports whether the relation reads as "t1 implies t2":
// a family implying another known category, a class implying a file
// property or behavior, or an unknown tag implying a behavior or class.
func (c *Classifier) IsExpansion(rel types.Relation) bool {
	c1 := c.kb.Taxonomy.Category(rel.T1)
	c2 := c.kb.Taxonomy.Category(rel.T2)
	switch c1 {
	case types.CategoryFamily:
		return c2 != c1 && c2.IsKnown()
	case types.CategoryClass:
		return c2 == types.CategoryFile || c2 == types.CategoryBehavior
	case types.CategoryUnknown:
		return c2 == types.CategoryBehavior || c2 == types.CategoryClass
	}
	return false
}

// Classify checks whether the relation is known and otherwise applies the
// decision table.
func (c *Classifier) Classify(rel types.Relation) Decision {
	if c.IsKnown(rel) {
		return Decision{Outcome: OutcomeKnown}
	}
	return c.decide(rel)
}

func (c *Classifier) decide(rel types.Relation) Decision {
	t1, t2 := rel.T1, rel.T2
	p1, c1 := c.kb.Taxonomy.Info(t1)
	p2, c2 := c.kb.Taxonomy.Info(t2)

	logging.ClassifierDebug("Processing %s\t%s", p1, p2)

	unk := types.CategoryUnknown
	fam := string(types.CategoryFamily)

	// Strong in both directions: the tags are the same thing.
	if rel.T1GivenT2 >= c.threshold && rel.T2GivenT1 >= c.threshold {
		var prefix string
		switch {
		case c1 != unk && c2 == unk:
			prefix = types.PathPrefix(p1)
		case c1 == unk && c2 != unk:
			prefix = types.PathPrefix(p2)
		case c1 == unk && c2 == unk:
			prefix = fam
		case c1 == c2:
			prefix = types.PathPrefix(p1)
		default:
			logging.Get(logging.CategoryClassifier).Warnw(
				"Equivalent rule with different categories", "t1", p1, "t2", p2)
			return Decision{Outcome: OutcomeContradiction}
		}
		// An unknown token becomes the alias of the categorized one.
		if c1.IsKnown() && !c2.IsKnown() {
			return c.alias(t2, t1, prefix)
		}
		return c.alias(t1, t2, prefix)
	}

	switch {
	case c1 == unk && c2 == types.CategoryFamily:
		return c.alias(t1, t2, fam)

	// The unknown token is a family of that class or behavior. The
	// expansion itself is left to the finalizer.
	case c1 == unk && (c2 == types.CategoryClass || c2 == types.CategoryBehavior):
		if c.addTag(t1, types.JoinPath(fam, t1)) {
			return Decision{Outcome: OutcomeDeferred, Action: ActionTag}
		}
		return Decision{Outcome: OutcomeDeferred}

	// An alias never gets a file category of its own.
	case c1 == unk && c2 == types.CategoryFile:
		if c.addTag(t1, types.JoinPath(p2, t1)) {
			return Decision{Outcome: OutcomeMutated, Action: ActionTag}
		}
		return Decision{Outcome: OutcomeDeferred}

	case c1 == unk && c2 == unk:
		return c.alias(t1, t2, fam)

	// The unknown token takes t1's place in the taxonomy.
	case c1 == types.CategoryFamily && c2 == unk:
		return c.alias(t1, t2, fam)

	case c1 == types.CategoryFile && c2 == unk:
		return c.alias(t1, t2, types.PathPrefix(p1))

	case c1 == types.CategoryFamily && c2 == types.CategoryFamily:
		return c.alias(t1, t2, types.PathPrefix(p2))
	}

	// Unknown target with a known source, or category pairs that need a
	// manual look at the taxonomy.
	return Decision{Outcome: OutcomeDeferred}
}

func (c *Classifier) alias(src, dst, prefix string) Decision {
	c.addAlias(src, dst, prefix)
	return Decision{Outcome: OutcomeMutated, Action: ActionAlias}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// equalSets compares two destination lists ignoring order.
func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		if seen[v] == 0 {
			return false
		}
		seen[v]--
	}
	return true
}
