// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import "github.com/regorus-go/regorus/ast"

func asSet(t *ast.Term) (*ast.Set, bool) {
	s, ok := t.Value.(*ast.Set)
	return s, ok
}

func init() {
	RegisterBuiltinFunc(ast.SetDiff.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		a, ok1 := asSet(args[0])
		b, ok2 := asSet(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "set_diff: operands must be sets")
		}
		return &ast.Term{Value: a.Diff(b)}, nil
	})
	RegisterBuiltinFunc(ast.Intersection.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		elems, ok := collectionElems(args[0])
		if !ok || len(elems) == 0 {
			return nil, newError(TypeErr, bctx.Location, "intersection: operand must be a non-empty set of sets")
		}
		result, ok := asSet(elems[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "intersection: elements must be sets")
		}
		for _, e := range elems[1:] {
			s, ok := asSet(e)
			if !ok {
				return nil, newError(TypeErr, bctx.Location, "intersection: elements must be sets")
			}
			result = result.Intersect(s)
		}
		return &ast.Term{Value: result}, nil
	})
	RegisterBuiltinFunc(ast.Union.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		elems, ok := collectionElems(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "union: operand must be a set of sets")
		}
		result := ast.NewSet()
		for _, e := range elems {
			s, ok := asSet(e)
			if !ok {
				return nil, newError(TypeErr, bctx.Location, "union: elements must be sets")
			}
			result = result.Union(s)
		}
		return &ast.Term{Value: result}, nil
	})
}
