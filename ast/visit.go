// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

// Visitor defines the interface for iterating AST elements.
// The Visit function can return a Visitor w which will be
// used to visit the children of the AST element v. If the
// Visit function returns nil, the children will not be visited.
type Visitor interface {
	Visit(v interface{}) (w Visitor)
}

// Walk iterates the AST by calling the Visit function on the Visitor
// v for x before recursing.
func Walk(v Visitor, x interface{}) {
	if t, ok := x.(*Term); ok {
		Walk(v, t.Value)
		return
	}
	w := v.Visit(x)
	if w == nil {
		return
	}
	switch x := x.(type) {
	case *Module:
		Walk(w, x.Package)
		for _, i := range x.Imports {
			Walk(w, i)
		}
		for _, r := range x.Rules {
			Walk(w, r)
		}
	case *Package:
		Walk(w, x.Path)
	case *Import:
		Walk(w, x.Path.Value)
		Walk(w, x.Alias)
	case *Rule:
		Walk(w, x.Head)
		Walk(w, x.Body)
		if x.Else != nil {
			Walk(w, x.Else)
		}
	case *Head:
		Walk(w, x.Name)
		for _, a := range x.Args {
			Walk(w, a.Value)
		}
		if x.Key != nil {
			Walk(w, x.Key.Value)
		}
		if x.Value != nil {
			Walk(w, x.Value.Value)
		}
	case Body:
		for _, e := range x {
			Walk(w, e)
		}
	case *Expr:
		switch ts := x.Terms.(type) {
		case []*Term:
			for _, t := range ts {
				Walk(w, t.Value)
			}
		case *Term:
			Walk(w, ts.Value)
		}
		if x.Some != nil {
			for _, s := range x.Some.Symbols {
				Walk(w, s.Value)
			}
			if x.Some.Domain != nil {
				Walk(w, x.Some.Domain.Value)
			}
		}
		if x.Every != nil {
			if x.Every.Key != nil {
				Walk(w, x.Every.Key.Value)
			}
			Walk(w, x.Every.Value.Value)
			Walk(w, x.Every.Domain.Value)
			Walk(w, x.Every.Body)
		}
		for _, wi := range x.With {
			Walk(w, wi.Target.Value)
			Walk(w, wi.Value.Value)
		}
	case With:
		Walk(w, x.Target.Value)
		Walk(w, x.Value.Value)
	case Ref:
		for _, t := range x {
			Walk(w, t.Value)
		}
	case Object:
		for _, t := range x {
			Walk(w, t[0].Value)
			Walk(w, t[1].Value)
		}
	case Array:
		for _, t := range x {
			Walk(w, t.Value)
		}
	case *Set:
		for _, t := range *x {
			Walk(w, t.Value)
		}
	case Call:
		for _, t := range x {
			Walk(w, t.Value)
		}
	case *ArrayComprehension:
		Walk(w, x.Term)
		Walk(w, x.Body)
	case *SetComprehension:
		Walk(w, x.Term)
		Walk(w, x.Body)
	case *ObjectComprehension:
		Walk(w, x.Key)
		Walk(w, x.Value)
		Walk(w, x.Body)
	}
}

// GenericVisitor adapts a plain predicate function into a Visitor: f is
// called on every node Walk descends into, and a true return stops further
// recursion into that node's children.
type GenericVisitor struct {
	f func(x interface{}) bool
}

// NewGenericVisitor returns a GenericVisitor backed by f.
func NewGenericVisitor(f func(x interface{}) bool) *GenericVisitor {
	return &GenericVisitor{f: f}
}

// Visit implements the Visitor interface.
func (vis *GenericVisitor) Visit(x interface{}) Visitor {
	if vis.f(x) {
		return nil
	}
	return vis
}

// WalkBodies calls f for every Body reachable from x, including nested
// comprehension bodies and else-chained rule bodies.
func WalkBodies(x interface{}, f func(Body) bool) {
	vis := NewGenericVisitor(func(x interface{}) bool {
		if b, ok := x.(Body); ok {
			return f(b)
		}
		return false
	})
	Walk(vis, x)
}

// WalkRules calls f for every rule in x (a *Module, Body or Rule), including
// else-chained rules.
func WalkRules(x interface{}, f func(*Rule) bool) {
	vis := &genericVisitor{rule: f}
	Walk(vis, x)
}

// WalkExprs calls f for every expression reachable from x.
func WalkExprs(x interface{}, f func(*Expr) bool) {
	vis := &genericVisitor{expr: f}
	Walk(vis, x)
}

type genericVisitor struct {
	rule func(*Rule) bool
	expr func(*Expr) bool
}

func (vis *genericVisitor) Visit(x interface{}) Visitor {
	switch x := x.(type) {
	case *Rule:
		if vis.rule != nil {
			if vis.rule(x) {
				return nil
			}
		}
	case *Expr:
		if vis.expr != nil {
			if vis.expr(x) {
				return nil
			}
		}
	}
	return vis
}
