package update

import (
	"tagkb/internal/logging"
	"tagkb/internal/relation"
	"tagkb/internal/types"
)

// Options configures an Updater.
type Options struct {
	// AliasThreshold is the ratio both directions of a relation must reach
	// for the tags to be treated as aliases (t).
	AliasThreshold float64
}

// RunStats summarizes one run.
type RunStats struct {
	Passes         int
	Known          int
	Aliases        int
	TagsAdded      int
	Expansions     int
	Contradictions int
	Unresolved     int
}

// Mutations returns the number of knowledge base updates performed.
func (s RunStats) Mutations() int {
	return s.Aliases + s.TagsAdded + s.Expansions
}

// Updater runs the classifier over a working set until it converges.
// It is single threaded: the knowledge base is mutated in place without
// locking.
type Updater struct {
	cls     *Classifier
	working *relation.Set
	stats   RunStats
}

// New returns an updater over rels. The set is consumed by Run.
func New(kb types.KnowledgeBase, rels *relation.Set, counts Counter, opts Options) *Updater {
	if rels == nil {
		rels = relation.NewSet()
	}
	return &Updater{
		cls:     NewClassifier(kb, counts, opts.AliasThreshold),
		working: rels,
	}
}

// Classifier returns the classifier the updater uses.
func (u *Updater) Classifier() *Classifier {
	return u.cls
}

// Remaining returns the relations nothing could be decided for.
func (u *Updater) Remaining() *relation.Set {
	return u.working
}

// Stats returns the statistics of the last Run.
func (u *Updater) Stats() RunStats {
	return u.stats
}

// Run processes the working set to a fixed point and then resolves
// expansions. Each pass classifies a sorted snapshot of the set: known and
// contradictory relations are dropped, mutated relations are dropped and
// counted, deferred ones form the next pass. A pass without mutations ends
// the loop. Every mutation removes its relation, so the loop ends after at
// most one pass per relation plus one.
//
// Within a pass later relations see the updates of earlier ones. When two
// relations compete for the same tag the stronger one, in Sorted order,
// goes first.
func (u *Updater) Run() RunStats {
	timer := logging.StartTimer(logging.CategoryUpdater, "Run")
	defer timer.StopWithInfo()

	for u.working.Len() > 0 {
		logging.UpdaterDebug("[-] %03d Processing %d relations", u.stats.Passes, u.working.Len())
		mutated := u.pass()
		u.stats.Passes++
		if mutated == 0 {
			break
		}
	}

	logging.UpdaterDebug("[-] Finding expansions")
	u.findExpansions()

	u.stats.Unresolved = u.working.Len()
	logging.Get(logging.CategoryUpdater).Infow("Run finished",
		"passes", u.stats.Passes,
		"aliases", u.stats.Aliases,
		"tags", u.stats.TagsAdded,
		"expansions", u.stats.Expansions,
		"known", u.stats.Known,
		"contradictions", u.stats.Contradictions,
		"unresolved", u.stats.Unresolved)
	return u.stats
}

func (u *Updater) pass() int {
	next := relation.NewSet()
	mutated := 0
	for _, rel := range u.working.Sorted() {
		d := u.cls.Classify(rel)
		u.count(d)
		switch d.Outcome {
		case OutcomeMutated:
			mutated++
		case OutcomeDeferred:
			next.Add(rel)
		}
	}
	u.working = next
	return mutated
}

func (u *Updater) count(d Decision) {
	switch d.Outcome {
	case OutcomeKnown:
		u.stats.Known++
	case OutcomeContradiction:
		u.stats.Contradictions++
	}
	switch d.Action {
	case ActionAlias:
		u.stats.Aliases++
	case ActionTag:
		u.stats.TagsAdded++
	case ActionExpansion:
		u.stats.Expansions++
	}
}

// findExpansions turns the remaining generalizations into expansion rules
// and drops them from the working set. Relations whose t1 is an alias are
// skipped.
func (u *Updater) findExpansions() {
	kb := u.cls.kb
	var resolved []types.Relation
	for _, rel := range u.working.Sorted() {
		p1 := kb.Taxonomy.Path(rel.T1)
		logging.UpdaterDebug("Processing %s\t%s", p1, kb.Taxonomy.Path(rel.T2))
		if len(kb.Translation.Destinations(rel.T1)) > 0 {
			logging.UpdaterDebug("Ignoring relation for alias %s", p1)
			continue
		}
		if u.cls.IsExpansion(rel) {
			u.cls.addExpansion(rel.T1, []string{rel.T2})
			u.count(Decision{Outcome: OutcomeMutated, Action: ActionExpansion})
			resolved = append(resolved, rel)
		}
	}
	for _, rel := range resolved {
		u.working.Remove(rel)
	}
}
