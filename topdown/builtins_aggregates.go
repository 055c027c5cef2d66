// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"math/big"
	"sort"

	"github.com/regorus-go/regorus/ast"
)

func collectionElems(t *ast.Term) ([]*ast.Term, bool) {
	switch v := t.Value.(type) {
	case ast.Array:
		return []*ast.Term(v), true
	case *ast.Set:
		return v.Slice(), true
	}
	return nil, false
}

func init() {
	RegisterBuiltinFunc(ast.Count.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		switch v := args[0].Value.(type) {
		case ast.Array:
			return ast.IntNumberTerm(int64(len(v))), nil
		case *ast.Set:
			return ast.IntNumberTerm(int64(v.Len())), nil
		case ast.Object:
			return ast.IntNumberTerm(int64(len(v))), nil
		case ast.String:
			return ast.IntNumberTerm(int64(len([]rune(string(v))))), nil
		}
		return nil, newError(TypeErr, bctx.Location, "count: operand must be array, set, object, or string")
	})

	RegisterBuiltinFunc(ast.Sum.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		elems, ok := collectionElems(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "sum: operand must be array or set")
		}
		total := new(big.Float)
		for _, e := range elems {
			f, ok := bigFloatOf(e)
			if !ok {
				return nil, newError(TypeErr, bctx.Location, "sum: elements must be numbers")
			}
			total.Add(total, f)
		}
		return numResult(total), nil
	})

	extreme := func(better func(c int) bool) BuiltinFunc {
		return func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
			elems, ok := collectionElems(args[0])
			if !ok || len(elems) == 0 {
				return nil, newError(TypeErr, bctx.Location, "operand must be a non-empty array/set")
			}
			best := elems[0]
			for _, e := range elems[1:] {
				if better(ast.Compare(e.Value, best.Value)) {
					best = e
				}
			}
			return best, nil
		}
	}
	RegisterBuiltinFunc(ast.Max.Name, extreme(func(c int) bool { return c > 0 }))
	RegisterBuiltinFunc(ast.Min.Name, extreme(func(c int) bool { return c < 0 }))

	RegisterBuiltinFunc(ast.Sort.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		elems, ok := collectionElems(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "sort: operand must be array or set")
		}
		cpy := append([]*ast.Term(nil), elems...)
		sort.SliceStable(cpy, func(i, j int) bool { return ast.Compare(cpy[i].Value, cpy[j].Value) < 0 })
		return &ast.Term{Value: ast.Array(cpy)}, nil
	})

	RegisterBuiltinFunc(ast.All.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		elems, ok := collectionElems(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "all: operand must be array or set")
		}
		for _, e := range elems {
			if b, ok := e.Value.(ast.Boolean); !ok || !bool(b) {
				return ast.BooleanTerm(false), nil
			}
		}
		return ast.BooleanTerm(true), nil
	})
	RegisterBuiltinFunc(ast.Any.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		elems, ok := collectionElems(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "any: operand must be array or set")
		}
		for _, e := range elems {
			if b, ok := e.Value.(ast.Boolean); ok && bool(b) {
				return ast.BooleanTerm(true), nil
			}
		}
		return ast.BooleanTerm(false), nil
	})
}
