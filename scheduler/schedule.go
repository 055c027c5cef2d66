// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package scheduler reorders the statements of a query body into a
// dependency-safe execution order: every statement's used variables must be
// defined by some earlier statement.
package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/regorus-go/regorus/ast"
)

// Error reports an unresolved dependency: a set of statements whose used
// variables can never be made safe by any ordering of the remaining body.
type Error struct {
	Vars ast.VarSet
	Body ast.Body
}

func (e *Error) Error() string {
	sorted := e.Vars.Sorted()
	names := make([]string, len(sorted))
	for i, v := range sorted {
		names[i] = string(v)
	}
	return fmt.Sprintf("unresolved dependency: unsafe variables %v", strings.Join(names, ", "))
}

// Schedule reorders body so that every statement's used variables are bound
// by an earlier statement (or by declared, variables already safe on entry:
// rule arguments, enclosing closure bindings, `data`/`input`). It returns a
// new Body; the input is not mutated.
func Schedule(body ast.Body, declared ast.VarSet) (ast.Body, error) {
	if len(body) == 0 {
		return body, nil
	}

	safe := ast.VarSet{}
	safe.Update(declared)
	safe.Update(ast.ReservedVars)

	remaining := make([]*ast.Expr, len(body))
	copy(remaining, body)

	// Rule 2: bare `some x[, y]` declarations (no `in` domain) introduce
	// variables without constraining them; float them to the front so
	// anything that uses them later in the body is immediately safe.
	var floated []*ast.Expr
	var rest []*ast.Expr
	for _, e := range remaining {
		if e.Some != nil && e.Some.Domain == nil {
			for _, s := range e.Some.Symbols {
				safe.Update(s.Vars())
			}
			floated = append(floated, e)
			continue
		}
		rest = append(rest, e)
	}
	remaining = rest

	used := make(map[*ast.Expr]ast.VarSet, len(remaining))
	defines := make(map[*ast.Expr]ast.VarSet, len(remaining))
	for _, e := range remaining {
		used[e] = usedVars(e)
		defines[e] = definedVars(e)
	}

	out := append(ast.Body{}, floated...)

	for len(remaining) > 0 {
		progressed := false

		var stillRemaining []*ast.Expr
		for _, e := range remaining {
			if len(used[e].Diff(safe)) == 0 {
				out = append(out, e)
				safe.Update(defines[e])
				progressed = true
			} else {
				stillRemaining = append(stillRemaining, e)
			}
		}
		remaining = stillRemaining

		if progressed || len(remaining) == 0 {
			continue
		}

		// Rule 4: no statement is individually safe. Look for a strongly
		// connected cluster of equality/assignment statements whose
		// variables, taken together with what's already safe, unify to
		// ground every member — these are solved together via the
		// interpreter's unification rather than left-to-right binding.
		scc, sccSafe := unifiableCluster(remaining)
		if len(scc) == 0 {
			unsafe := ast.VarSet{}
			for _, e := range remaining {
				unsafe.Update(used[e].Diff(safe))
			}
			return nil, &Error{Vars: unsafe, Body: body}
		}

		inCluster := make(map[*ast.Expr]bool, len(scc))
		for _, e := range scc {
			inCluster[e] = true
		}
		var stays []*ast.Expr
		for _, e := range remaining {
			if inCluster[e] {
				out = append(out, e)
			} else {
				stays = append(stays, e)
			}
		}
		remaining = stays
		safe.Update(sccSafe)
	}

	return out, nil
}

// usedVars returns every variable an expression reads: the whole expression's
// variables for negated expressions (nothing can be deferred past a negation
// the way it can for a positive one), and non-target operand positions
// otherwise.
func usedVars(e *ast.Expr) ast.VarSet {
	if e.Negated {
		return e.Vars()
	}

	vs := ast.VarSet{}
	if e.Some != nil {
		if e.Some.Domain != nil {
			vs.Update(e.Some.Domain.Vars())
		}
		return vs
	}
	if e.Every != nil {
		vs.Update(e.Every.Domain.Vars())
		return vs
	}

	switch ts := e.Terms.(type) {
	case *ast.Term:
		if r, ok := ts.Value.(ast.Ref); ok {
			for _, t := range r[1:] {
				vs.Update(t.Vars())
			}
		}
	case []*ast.Term:
		b := ast.BuiltinMap[operatorVar(ts[0])]
		for i, t := range ts[1:] {
			if b != nil && b.Unifies(i) {
				continue
			}
			vs.Update(t.Vars())
		}
	}
	return vs
}

// definedVars returns every variable an expression, once evaluated, makes
// safe for later statements: `some`/`every` introduced names, and the
// binding positions of a call (for `=` both operands, for `:=` only the
// left-hand side, per the builtin's TargetPos).
func definedVars(e *ast.Expr) ast.VarSet {
	vs := ast.VarSet{}
	if e.Negated {
		return vs
	}
	if e.Some != nil {
		for _, s := range e.Some.Symbols {
			vs.Update(s.Vars())
		}
		if e.Some.Key != nil {
			vs.Update(e.Some.Key.Vars())
		}
		if e.Some.Value != nil {
			vs.Update(e.Some.Value.Vars())
		}
		return vs
	}
	if e.Every != nil {
		if e.Every.Key != nil {
			vs.Update(e.Every.Key.Vars())
		}
		vs.Update(e.Every.Value.Vars())
		return vs
	}

	switch ts := e.Terms.(type) {
	case *ast.Term:
		if r, ok := ts.Value.(ast.Ref); ok {
			vs.Update(r[0].Vars())
		} else {
			vs.Update(ts.Vars())
		}
	case []*ast.Term:
		b := ast.BuiltinMap[operatorVar(ts[0])]
		for i, t := range ts[1:] {
			if b != nil && b.Unifies(i) {
				vs.Update(t.Vars())
			}
		}
	}
	return vs
}

func operatorVar(t *ast.Term) ast.Var {
	switch v := t.Value.(type) {
	case ast.Var:
		return v
	case ast.Ref:
		if len(v) == 1 {
			if s, ok := v[0].Value.(ast.Var); ok {
				return s
			}
		}
	}
	return ""
}

// unifiableCluster collects every remaining equality/assignment statement:
// these can be solved together by the interpreter's unification regardless
// of left-to-right order, so they always form a valid SCC. Returns nil if
// none of the stuck statements are equalities (a genuine unresolved
// dependency on a call or reference, which unification cannot help).
func unifiableCluster(remaining []*ast.Expr) ([]*ast.Expr, ast.VarSet) {
	var cluster []*ast.Expr
	clusterVars := ast.VarSet{}

	for _, e := range remaining {
		if e.Negated || !e.IsEquality() {
			continue
		}
		ts := e.Terms.([]*ast.Term)
		clusterVars.Update(ts[1].Vars())
		clusterVars.Update(ts[2].Vars())
		cluster = append(cluster, e)
	}
	if len(cluster) == 0 {
		return nil, nil
	}

	sort.SliceStable(cluster, func(i, j int) bool { return cluster[i].Index < cluster[j].Index })
	return cluster, clusterVars
}
