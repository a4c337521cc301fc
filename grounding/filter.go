package grounding

import "regexp"

// FilterKind tags which arm of Filter is populated.
type FilterKind int

const (
	// FilterNone means no filter was configured; every discoverable name is
	// a candidate seed.
	FilterNone FilterKind = iota
	// FilterList means Names is the exhaustive, explicit seed set; when this
	// arm is set, getAllTableNames-equivalent enumeration is skipped
	// entirely.
	FilterList
	// FilterRegex means Regex is matched against every enumerated name.
	FilterRegex
	// FilterPredicate means Predicate is invoked with every enumerated name.
	FilterPredicate
)

// Filter selects which tables or views a grounding phase seeds from. Exactly
// one of the three shapes applies, chosen by Kind.
type Filter struct {
	Kind      FilterKind
	Names     []string
	Regex     *regexp.Regexp
	Predicate func(qualifiedName string) bool
}

// NewListFilter builds an explicit, exhaustive seed list.
func NewListFilter(names ...string) Filter {
	return Filter{Kind: FilterList, Names: names}
}

// NewRegexFilter builds a filter matched against every enumerated name.
func NewRegexFilter(re *regexp.Regexp) Filter {
	return Filter{Kind: FilterRegex, Regex: re}
}

// NewPredicateFilter builds a filter evaluated per enumerated name.
func NewPredicateFilter(pred func(qualifiedName string) bool) Filter {
	return Filter{Kind: FilterPredicate, Predicate: pred}
}

// Apply resolves the filter into a seed set. When Kind is FilterList, names
// is ignored and f.Names is returned verbatim — callers must skip the
// enumeration query entirely in that case, not merely ignore its result.
func (f Filter) Apply(names []string) []string {
	switch f.Kind {
	case FilterList:
		return f.Names
	case FilterRegex:
		if f.Regex == nil {
			return names
		}
		out := make([]string, 0, len(names))
		for _, n := range names {
			if f.Regex.MatchString(n) {
				out = append(out, n)
			}
		}
		return out
	case FilterPredicate:
		if f.Predicate == nil {
			return names
		}
		out := make([]string, 0, len(names))
		for _, n := range names {
			if f.Predicate(n) {
				out = append(out, n)
			}
		}
		return out
	default:
		return names
	}
}

// SkipEnumeration reports whether getAllTableNames-equivalent enumeration
// should be skipped because the filter already names an explicit seed set.
func (f Filter) SkipEnumeration() bool {
	return f.Kind == FilterList
}

// Depth models a forward/backward traversal bound: absent means no
// traversal in that direction, unbounded means no depth cap, and bounded
// carries a non-negative hard cap.
type Depth struct {
	Enabled   bool
	Unbounded bool
	Limit     int
}

// NoDepth disables traversal in a direction.
func NoDepth() Depth { return Depth{Enabled: false} }

// UnboundedDepth enables traversal with no cap.
func UnboundedDepth() Depth { return Depth{Enabled: true, Unbounded: true} }

// BoundedDepth enables traversal capped at limit hops from the seed (seed is
// depth 0).
func BoundedDepth(limit int) Depth {
	if limit < 0 {
		limit = 0
	}
	return Depth{Enabled: true, Limit: limit}
}

// Allows reports whether traversal may proceed from depth to depth+1.
func (d Depth) Allows(depth int) bool {
	if !d.Enabled {
		return false
	}
	if d.Unbounded {
		return true
	}
	return depth < d.Limit
}
