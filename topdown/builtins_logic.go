// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import "github.com/regorus-go/regorus/ast"

// Equality (=) and Assign (:=) bind variables and are handled directly by
// the interpreter's unify/assign statement dispatch (spec.md §4.5), not
// through the built-in registry: a built-in's signature is a pure
// (args)->Value function and cannot itself introduce bindings into the
// caller's environment.

func compareBuiltin(cmp func(int) bool) BuiltinFunc {
	return func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		return ast.BooleanTerm(cmp(ast.Compare(args[0].Value, args[1].Value))), nil
	}
}

func init() {
	RegisterBuiltinFunc(ast.Equal.Name, compareBuiltin(func(c int) bool { return c == 0 }))
	RegisterBuiltinFunc(ast.NotEqual.Name, compareBuiltin(func(c int) bool { return c != 0 }))
	RegisterBuiltinFunc(ast.GreaterThan.Name, compareBuiltin(func(c int) bool { return c > 0 }))
	RegisterBuiltinFunc(ast.GreaterThanEq.Name, compareBuiltin(func(c int) bool { return c >= 0 }))
	RegisterBuiltinFunc(ast.LessThan.Name, compareBuiltin(func(c int) bool { return c < 0 }))
	RegisterBuiltinFunc(ast.LessThanEq.Name, compareBuiltin(func(c int) bool { return c <= 0 }))

	RegisterBuiltinFunc(ast.And.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		a, ok1 := args[0].Value.(*ast.Set)
		b, ok2 := args[1].Value.(*ast.Set)
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "and: operands must be sets")
		}
		return &ast.Term{Value: a.Intersect(b)}, nil
	})
	RegisterBuiltinFunc(ast.Or.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		a, ok1 := args[0].Value.(*ast.Set)
		b, ok2 := args[1].Value.(*ast.Set)
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "or: operands must be sets")
		}
		return &ast.Term{Value: a.Union(b)}, nil
	})
	RegisterBuiltinFunc(ast.In.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		needle, haystack := args[0], args[1]
		switch c := haystack.Value.(type) {
		case ast.Array:
			for _, t := range c {
				if t.Equal(needle) {
					return ast.BooleanTerm(true), nil
				}
			}
		case *ast.Set:
			return ast.BooleanTerm(c.Contains(needle)), nil
		case ast.Object:
			for _, pair := range c {
				if pair[1].Equal(needle) {
					return ast.BooleanTerm(true), nil
				}
			}
		default:
			return nil, newError(TypeErr, bctx.Location, "in: operand must be array, set, or object")
		}
		return ast.BooleanTerm(false), nil
	})
}
