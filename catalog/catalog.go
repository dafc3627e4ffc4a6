// Package catalog implements the schema catalog: a registry of statement
// shapes, each tagged by a selector predicate, with a dispatcher that picks
// the most specific matching shape for any incoming record.
package catalog

import (
	"fmt"
	"sort"
)

// Constraint is a single dotted-path equality constraint, e.g.
// {Path: "verb.id", Literal: "http://adlnet.gov/expapi/verbs/answered"}.
type Constraint struct {
	Path    string
	Literal string
}

// Selector is the set of equality constraints a record must satisfy for a
// Shape to match it.
type Selector []Constraint

// isSupersetOf reports whether every constraint in other also appears in s,
// i.e. s ⊇ other.
func (s Selector) isSupersetOf(other Selector) bool {
	for _, oc := range other {
		found := false
		for _, sc := range s {
			if sc == oc {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s Selector) equalSet(other Selector) bool {
	return s.isSupersetOf(other) && other.isSupersetOf(s)
}

// moreSpecificThan reports whether s is a strict superset of other: s
// matches a narrower set of records.
func (s Selector) moreSpecificThan(other Selector) bool {
	return s.isSupersetOf(other) && !s.equalSet(other)
}

// Shape is a registered statement or event shape: a name and its selector.
// It carries no decoder; Dispatch only reports which shape was chosen.
type Shape struct {
	Name     string
	Selector Selector
}

// Record is the generic nested-mapping view of an incoming raw record that
// selectors and field-contract checks operate against.
type Record map[string]interface{}

// Lookup resolves a dotted path (e.g. "object.definition.type") against the
// record, returning ok=false if any segment is missing or not a nested map.
func (r Record) Lookup(path string) (interface{}, bool) {
	cur := map[string]interface{}(r)
	segments := splitPath(path)
	for i, seg := range segments {
		v, ok := cur[seg]
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return v, true
		}
		next, ok := v.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			out = append(out, path[start:i])
			start = i + 1
		}
	}
	out = append(out, path[start:])
	return out
}

// matches reports whether every constraint of sel holds against rec.
func (sel Selector) matches(rec Record) bool {
	for _, c := range sel {
		v, ok := rec.Lookup(c.Path)
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok || s != c.Literal {
			return false
		}
	}
	return true
}

// DispatchError distinguishes the two failure modes of Dispatch: no
// matching shape, or two incomparable shapes both matching.
type DispatchError struct {
	NoMatch   bool
	Ambiguous bool
	Candidates []string
}

func (e *DispatchError) Error() string {
	if e.NoMatch {
		return "catalog: no matching shape"
	}
	return fmt.Sprintf("catalog: ambiguous match among shapes %v", e.Candidates)
}

// Catalog is the immutable, startup-populated registry of shapes.
type Catalog struct {
	shapes []Shape
}

// New builds a Catalog from a static registration list, panicking if the
// selectors do not form a forest under the superset ordering (spec §8 P2):
// no two registered shapes may have incomparable selector sets unless one
// is a strict superset of the other or they are unrelated entirely — what
// is forbidden is two shapes whose selectors partially overlap without one
// containing the other, since that breaks dispatch determinism. Siblings
// that require different literals on the same path never match the same
// record and are allowed.
func New(shapes []Shape) *Catalog {
	for i := range shapes {
		for j := range shapes {
			if i == j {
				continue
			}
			a, b := shapes[i].Selector, shapes[j].Selector
			if a.equalSet(b) {
				panic(fmt.Sprintf("catalog: shapes %q and %q have identical selectors", shapes[i].Name, shapes[j].Name))
			}
			if overlaps(a, b) && !a.isSupersetOf(b) && !b.isSupersetOf(a) {
				panic(fmt.Sprintf("catalog: shapes %q and %q break the selector forest property", shapes[i].Name, shapes[j].Name))
			}
		}
	}
	out := make([]Shape, len(shapes))
	copy(out, shapes)
	return &Catalog{shapes: out}
}

// overlaps reports whether a and b share at least one constraint and do
// not require different literals on any common path, the condition under
// which subsumption must hold one way or the other.
func overlaps(a, b Selector) bool {
	shared := false
	for _, ac := range a {
		for _, bc := range b {
			if ac.Path != bc.Path {
				continue
			}
			if ac.Literal != bc.Literal {
				return false
			}
			shared = true
		}
	}
	return shared
}

// Dispatch returns the unique most-specific shape matching rec.
func (c *Catalog) Dispatch(rec Record) (Shape, error) {
	var matched []Shape
	for _, s := range c.shapes {
		if s.Selector.matches(rec) {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		return Shape{}, &DispatchError{NoMatch: true}
	}
	sort.Slice(matched, func(i, j int) bool {
		return len(matched[i].Selector) > len(matched[j].Selector)
	})
	best := matched[0]
	for _, m := range matched[1:] {
		if !best.Selector.moreSpecificThan(m.Selector) {
			names := make([]string, len(matched))
			for i, s := range matched {
				names[i] = s.Name
			}
			return Shape{}, &DispatchError{Ambiguous: true, Candidates: names}
		}
	}
	return best, nil
}
