// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"github.com/regorus-go/regorus/ast"
)

// env is the interpreter's variable binding environment. It is a flat map
// plus a trail of the order variables were bound in, so that a failed
// statement (or an exhausted loop candidate) can unwind to a prior mark
// without discarding bindings made by statements that are still live.
//
// Grounded on the teacher's topdown/bindings.go undo-list idiom, simplified
// to the tree-walking interpreter's single-environment-per-query shape
// instead of the teacher's namespaced-binding-list-per-frame design (the
// register VM, not the interpreter, is where per-frame registers live).
type env struct {
	vals  map[ast.Var]*ast.Term
	trail []ast.Var
}

func newEnv() *env {
	return &env{vals: map[ast.Var]*ast.Term{}}
}

// mark returns a restore point for undo.
func (e *env) mark() int { return len(e.trail) }

// undo unbinds every variable bound since mark.
func (e *env) undo(mark int) {
	for i := len(e.trail) - 1; i >= mark; i-- {
		delete(e.vals, e.trail[i])
	}
	e.trail = e.trail[:mark]
}

func (e *env) bind(v ast.Var, t *ast.Term) {
	if v.IsWildcard() {
		return
	}
	e.vals[v] = t
	e.trail = append(e.trail, v)
}

func (e *env) get(v ast.Var) (*ast.Term, bool) {
	t, ok := e.vals[v]
	return t, ok
}

// plug substitutes every bound variable in t with its value, recursively.
// Unbound variables (and the operator position of a Call) are left as-is.
func (e *env) plug(t *ast.Term) *ast.Term {
	if t == nil {
		return nil
	}
	switch v := t.Value.(type) {
	case ast.Var:
		if bound, ok := e.get(v); ok {
			return e.plug(bound)
		}
		return t
	case ast.Ref:
		cpy := make(ast.Ref, len(v))
		for i, x := range v {
			cpy[i] = e.plug(x)
		}
		return &ast.Term{Value: cpy, Location: t.Location}
	case ast.Call:
		cpy := make(ast.Call, len(v))
		cpy[0] = v[0]
		for i := 1; i < len(v); i++ {
			cpy[i] = e.plug(v[i])
		}
		return &ast.Term{Value: cpy, Location: t.Location}
	case ast.Array:
		cpy := make(ast.Array, len(v))
		for i, x := range v {
			cpy[i] = e.plug(x)
		}
		return &ast.Term{Value: cpy, Location: t.Location}
	case *ast.Set:
		cpy := ast.NewSet()
		v.Foreach(func(x *ast.Term) { cpy.Add(e.plug(x)) })
		return &ast.Term{Value: cpy, Location: t.Location}
	case ast.Object:
		cpy := make(ast.Object, len(v))
		for i, pair := range v {
			cpy[i] = [2]*ast.Term{e.plug(pair[0]), e.plug(pair[1])}
		}
		return &ast.Term{Value: cpy, Location: t.Location}
	default:
		return t
	}
}

// unify attempts to make a and b structurally equal, binding free variables
// as needed. Returns false (with the environment rolled back to mark by the
// caller) if the terms cannot be unified.
func (e *env) unify(a, b *ast.Term) bool {
	a, b = e.plug(a), e.plug(b)
	av, aIsVar := a.Value.(ast.Var)
	bv, bIsVar := b.Value.(ast.Var)
	switch {
	case aIsVar && bIsVar:
		if av == bv {
			return true
		}
		e.bind(av, b)
		return true
	case aIsVar:
		e.bind(av, b)
		return true
	case bIsVar:
		e.bind(bv, a)
		return true
	}
	aArr, aIsArr := a.Value.(ast.Array)
	bArr, bIsArr := b.Value.(ast.Array)
	if aIsArr && bIsArr {
		if len(aArr) != len(bArr) {
			return false
		}
		for i := range aArr {
			if !e.unify(aArr[i], bArr[i]) {
				return false
			}
		}
		return true
	}
	aObj, aIsObj := a.Value.(ast.Object)
	bObj, bIsObj := b.Value.(ast.Object)
	if aIsObj && bIsObj {
		if len(aObj) != len(bObj) {
			return false
		}
		for _, pair := range aObj {
			v := bObj.Get(pair[0])
			if v == nil || !e.unify(pair[1], v) {
				return false
			}
		}
		return true
	}
	return a.Value.Equal(b.Value)
}
