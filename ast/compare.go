// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

// sortOrder assigns each Value kind a rank in the total ordering:
// Null < Bool < Number < String < Array < Set < Object (Var/Ref/comprehensions
// sort after Object since they only ever appear inside non-ground terms,
// which callers compare structurally rather than by value).
func sortOrder(v Value) int {
	switch v.(type) {
	case Null:
		return 0
	case Boolean:
		return 1
	case Number:
		return 2
	case String:
		return 3
	case Array:
		return 4
	case *Set:
		return 5
	case Object:
		return 6
	case Var:
		return 7
	case Ref:
		return 8
	case *ArrayComprehension:
		return 9
	case *SetComprehension:
		return 10
	case *ObjectComprehension:
		return 11
	case Undefined:
		return 12
	case Call:
		return 13
	}
	return 100
}

// Compare returns -1, 0 or 1 depending on whether a is less than, equal to,
// or greater than b in the total order spec.md §3 defines over Values.
func Compare(a, b Value) int {
	if a == nil {
		if b == nil {
			return 0
		}
		return -1
	}
	if b == nil {
		return 1
	}

	oa, ob := sortOrder(a), sortOrder(b)
	if oa != ob {
		if oa < ob {
			return -1
		}
		return 1
	}

	switch a := a.(type) {
	case Null:
		return 0
	case Boolean:
		b := b.(Boolean)
		if a == b {
			return 0
		}
		if !bool(a) {
			return -1
		}
		return 1
	case Number:
		b := b.(Number)
		return a.BigFloat().Cmp(b.BigFloat())
	case String:
		b := b.(String)
		if a < b {
			return -1
		} else if a > b {
			return 1
		}
		return 0
	case Var:
		b := b.(Var)
		if a < b {
			return -1
		} else if a > b {
			return 1
		}
		return 0
	case Ref:
		return compareTermSlices(a, b.(Ref))
	case Array:
		return compareTermSlices(a, b.(Array))
	case *Set:
		return compareSets(a, b.(*Set))
	case Object:
		return compareObjects(a, b.(Object))
	case *ArrayComprehension:
		b := b.(*ArrayComprehension)
		if c := Compare(a.Term.Value, b.Term.Value); c != 0 {
			return c
		}
		return compareBodies(a.Body, b.Body)
	case *SetComprehension:
		b := b.(*SetComprehension)
		if c := Compare(a.Term.Value, b.Term.Value); c != 0 {
			return c
		}
		return compareBodies(a.Body, b.Body)
	case *ObjectComprehension:
		b := b.(*ObjectComprehension)
		if c := Compare(a.Key.Value, b.Key.Value); c != 0 {
			return c
		}
		if c := Compare(a.Value.Value, b.Value.Value); c != 0 {
			return c
		}
		return compareBodies(a.Body, b.Body)
	case Undefined:
		return 0
	case Call:
		return compareTermSlices(a, b.(Call))
	}
	return 0
}

func compareTermSlices(a, b []*Term) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i].Value, b[i].Value); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// compareSets orders two sets by their sorted element sequence, per spec.md
// §3 ("sets/objects by sorted element sequence").
func compareSets(a, b *Set) int {
	as := sortedTerms(*a)
	bs := sortedTerms(*b)
	return compareTermSlices(as, bs)
}

func compareObjects(a, b Object) int {
	as := sortObjectKeys(a)
	bs := sortObjectKeys(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		if c := Compare(as[i][0].Value, bs[i][0].Value); c != 0 {
			return c
		}
		if c := Compare(as[i][1].Value, bs[i][1].Value); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

func compareBodies(a, b Body) int {
	return compareTermSlicesExpr(a, b)
}

func compareTermSlicesExpr(a, b []*Expr) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func sortedTerms(s Set) []*Term {
	cpy := make([]*Term, len(s))
	copy(cpy, s)
	for i := 1; i < len(cpy); i++ {
		for j := i; j > 0 && Compare(cpy[j-1].Value, cpy[j].Value) > 0; j-- {
			cpy[j-1], cpy[j] = cpy[j], cpy[j-1]
		}
	}
	return cpy
}

func sortObjectKeys(o Object) Object {
	cpy := make(Object, len(o))
	copy(cpy, o)
	for i := 1; i < len(cpy); i++ {
		for j := i; j > 0 && Compare(cpy[j-1][0].Value, cpy[j][0].Value) > 0; j-- {
			cpy[j-1], cpy[j] = cpy[j], cpy[j-1]
		}
	}
	return cpy
}

// VarSet represents a set of variable names.
type VarSet map[Var]struct{}

// NewVarSet returns a new VarSet containing the given variables.
func NewVarSet(vs ...Var) VarSet {
	s := VarSet{}
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

// Add inserts v into the set.
func (s VarSet) Add(v Var) { s[v] = struct{}{} }

// Contains returns true if v is a member of s.
func (s VarSet) Contains(v Var) bool {
	_, ok := s[v]
	return ok
}

// Diff returns a VarSet containing the vars in s that are not in vs.
func (s VarSet) Diff(vs VarSet) VarSet {
	r := VarSet{}
	for v := range s {
		if !vs.Contains(v) {
			r.Add(v)
		}
	}
	return r
}

// Union returns a VarSet containing the vars in either s or vs.
func (s VarSet) Union(vs VarSet) VarSet {
	r := VarSet{}
	for v := range s {
		r.Add(v)
	}
	for v := range vs {
		r.Add(v)
	}
	return r
}

// Update mutates s to include every var in vs.
func (s VarSet) Update(vs VarSet) {
	for v := range vs {
		s.Add(v)
	}
}

// Equal returns true if s contains exactly the same vars as vs.
func (s VarSet) Equal(vs VarSet) bool {
	return len(s.Diff(vs)) == 0 && len(vs.Diff(s)) == 0
}

// Sorted returns the vars in s as a lexicographically sorted slice.
func (s VarSet) Sorted() []Var {
	sorted := make([]Var, 0, len(s))
	for v := range s {
		sorted = append(sorted, v)
	}
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted
}
