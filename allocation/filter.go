/*
filter.go - Restriction dimension filters

PURPOSE:
  A restriction dimension (quality, origin, variety, supplier) either
  accepts everything or accepts a fixed set of values. That is a tagged
  union, and Filter models it as one: the wildcard is an explicit state,
  not an overloaded empty collection. An empty OneOf filter is therefore
  detectably malformed rather than accidentally-accept-all.

NORMALIZATION:
  OneOf trims whitespace, drops blank entries, and deduplicates. Matching
  and serialization are order-insensitive.

SEE ALSO:
  - restrictions.go: RestrictionSet built from five filters
  - engine.go: Filters applied when computing the eligible pool
*/
package allocation

import (
	"sort"
	"strings"
)

// =============================================================================
// FILTER - Any | OneOf(set)
// =============================================================================

// Filter restricts one dimension of batch eligibility.
// The zero value is NOT valid; construct with Any() or OneOf().
type Filter struct {
	any    bool
	values map[string]struct{}
}

// Any returns the wildcard filter: every value passes.
func Any() Filter {
	return Filter{any: true}
}

// OneOf returns a filter accepting exactly the given values.
// Values are trimmed, blanks dropped, duplicates collapsed. If nothing
// survives normalization the filter is malformed (see Valid).
func OneOf(values ...string) Filter {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return Filter{values: set}
}

// FilterFromValues maps the wire representation onto the union: an empty
// list is the documented wildcard, a non-empty list is OneOf.
func FilterFromValues(values []string) Filter {
	if len(values) == 0 {
		return Any()
	}
	return OneOf(values...)
}

// IsAny reports whether the filter is the wildcard.
func (f Filter) IsAny() bool {
	return f.any
}

// Valid reports whether the filter is usable: the wildcard, or a OneOf
// with at least one value. A OneOf whose stated values all normalized
// away references no valid dimension values.
func (f Filter) Valid() bool {
	return f.any || len(f.values) > 0
}

// Matches reports whether v passes the filter.
func (f Filter) Matches(v string) bool {
	if f.any {
		return true
	}
	_, ok := f.values[v]
	return ok
}

// Values returns the accepted values sorted, or nil for the wildcard.
func (f Filter) Values() []string {
	if f.any {
		return nil
	}
	out := make([]string, 0, len(f.values))
	for v := range f.values {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two filters accept the same values.
func (f Filter) Equal(other Filter) bool {
	if f.any || other.any {
		return f.any == other.any
	}
	if len(f.values) != len(other.values) {
		return false
	}
	for v := range f.values {
		if _, ok := other.values[v]; !ok {
			return false
		}
	}
	return true
}
