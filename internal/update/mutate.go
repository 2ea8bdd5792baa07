package update

import (
	"tagkb/internal/logging"
	"tagkb/internal/types"
)

// addTag puts a tag in the taxonomy unless it is already an alias. It
// reports whether the tag was added.
func (c *Classifier) addTag(name, path string) bool {
	if len(c.kb.Translation.Destinations(name)) > 0 {
		return false
	}
	if c.kb.Taxonomy.Category(name).IsKnown() {
		return false
	}
	c.kb.Taxonomy.AddTag(path)
	return c.kb.Taxonomy.Category(name).IsKnown()
}

// addAlias makes src an alias of dst. If src already aliases other tags the
// most observed of dst and those tags wins; if dst is itself an alias, src
// inherits its destinations. The chosen destination is registered in the
// taxonomy under prefix and src leaves the taxonomy.
func (c *Classifier) addAlias(src, dst, prefix string) {
	target := dst
	if prev := c.kb.Translation.Destinations(src); len(prev) > 0 {
		best := c.counts.Get(dst)
		for _, e := range prev {
			if n := c.counts.Get(e); n > best {
				best = n
				target = e
			}
		}
	}

	var targets []string
	if inherited := c.kb.Translation.Destinations(dst); len(inherited) > 0 {
		targets = inherited
	} else {
		targets = []string{target}
		c.addTag(target, types.JoinPath(prefix, target))
	}

	c.kb.Taxonomy.RemoveTag(src)
	c.kb.Translation.AddRule(src, targets, true)
	logging.ClassifierDebug("Alias %s -> %v", src, targets)
}

// addExpansion records that src implies dsts. The rule is keyed on the
// canonical form of src and merged with any existing destinations; no
// destination of the result is an ancestor of another.
func (c *Classifier) addExpansion(src string, dsts []string) {
	key := src
	if canon := c.kb.Translation.Destinations(src); len(canon) > 0 {
		key = canon[0]
	}

	merged := append(c.kb.Expansion.Destinations(key), dsts...)
	targets := c.kb.Expansion.RemoveOverlaps(merged)
	c.kb.Expansion.AddRule(key, targets, true)
	logging.ClassifierDebug("Expansion %s -> %v", key, targets)
}
