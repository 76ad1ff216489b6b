package formula

import (
	"maps"
	"slices"
	"strings"
)

// Resolver maps a formula name to its expression. Implementations must not
// change while a call that received them is running; the engine only reads.
type Resolver interface {
	Lookup(name string) (expr string, ok bool)
}

// ResolverFunc adapts a function to [Resolver].
type ResolverFunc func(name string) (string, bool)

// Lookup calls f(name).
func (f ResolverFunc) Lookup(name string) (string, bool) { return f(name) }

// Map is a name → formula snapshot. The zero value is an empty map.
type Map map[string]string

// PlaceholderSuffix marks a formula that stands in for a dependency nobody
// has defined yet. See [Seed].
const PlaceholderSuffix = "_placeholder"

// IsPlaceholder reports whether expr is a placeholder formula.
func IsPlaceholder(expr string) bool { return strings.HasSuffix(expr, PlaceholderSuffix) }

// Lookup returns the formula stored under name. Empty and placeholder
// formulas count as missing so that they render as leaves.
func (m Map) Lookup(name string) (string, bool) {
	expr, ok := m[name]
	if !ok || expr == "" || IsPlaceholder(expr) {
		return "", false
	}
	return expr, true
}

// Has reports whether Lookup finds a formula for name.
func (m Map) Has(name string) bool {
	_, ok := m.Lookup(name)
	return ok
}

// Seed returns a map holding expr under name plus a placeholder for each
// variable expr references. It is the starting point for editing a single
// calculation in isolation.
func Seed(name, expr string) Map {
	m := Map{name: expr}
	for _, v := range Inspect(expr).Variables {
		if _, ok := m[v]; !ok {
			m[v] = v + PlaceholderSuffix
		}
	}
	return m
}

// Placeholders returns the names whose formula is a placeholder, sorted.
func (m Map) Placeholders() []string {
	var out []string
	for name, expr := range m {
		if IsPlaceholder(expr) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Names returns the formula names in sorted order.
func (m Map) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

// Clone returns an independent copy of m.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	return maps.Clone(m)
}

var _ Resolver = Map(nil)
