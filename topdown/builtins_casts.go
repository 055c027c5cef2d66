// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"strconv"

	"github.com/regorus-go/regorus/ast"
)

func init() {
	RegisterBuiltinFunc(ast.ToNumber.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		switch v := args[0].Value.(type) {
		case ast.Number:
			return args[0], nil
		case ast.String:
			f, err := strconv.ParseFloat(string(v), 64)
			if err != nil {
				if !bctx.Strict {
					return nil, nil
				}
				return nil, newError(TypeErr, bctx.Location, "to_number: %v", err)
			}
			return ast.NumberTerm(f), nil
		case ast.Boolean:
			if v {
				return ast.IntNumberTerm(1), nil
			}
			return ast.IntNumberTerm(0), nil
		case ast.Null:
			return ast.IntNumberTerm(0), nil
		}
		return nil, newError(TypeErr, bctx.Location, "to_number: unsupported operand")
	})
	RegisterBuiltinFunc(ast.CastArray.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		elems, ok := collectionElems(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "cast_array: operand must be array or set")
		}
		return &ast.Term{Value: ast.Array(elems)}, nil
	})

	// is_* built-ins are boolean guards, not value-producing calls: a
	// mismatch is an ordinary statement failure (Undefined), never a
	// type error.
	isType := func(name string, test func(ast.Value) bool) BuiltinFunc {
		return func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
			return ast.BooleanTerm(test(args[0].Value)), nil
		}
	}
	RegisterBuiltinFunc(ast.IsNumber.Name, isType("is_number", func(v ast.Value) bool { _, ok := v.(ast.Number); return ok }))
	RegisterBuiltinFunc(ast.IsString.Name, isType("is_string", func(v ast.Value) bool { _, ok := v.(ast.String); return ok }))
	RegisterBuiltinFunc(ast.IsBoolean.Name, isType("is_boolean", func(v ast.Value) bool { _, ok := v.(ast.Boolean); return ok }))
	RegisterBuiltinFunc(ast.IsArray.Name, isType("is_array", func(v ast.Value) bool { _, ok := v.(ast.Array); return ok }))
	RegisterBuiltinFunc(ast.IsSet.Name, isType("is_set", func(v ast.Value) bool { _, ok := v.(*ast.Set); return ok }))
	RegisterBuiltinFunc(ast.IsObject.Name, isType("is_object", func(v ast.Value) bool { _, ok := v.(ast.Object); return ok }))
	RegisterBuiltinFunc(ast.IsNull.Name, isType("is_null", func(v ast.Value) bool { _, ok := v.(ast.Null); return ok }))

	RegisterBuiltinFunc(ast.TypeNameBuiltin.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		switch args[0].Value.(type) {
		case ast.Null:
			return ast.StringTerm("null"), nil
		case ast.Boolean:
			return ast.StringTerm("boolean"), nil
		case ast.Number:
			return ast.StringTerm("number"), nil
		case ast.String:
			return ast.StringTerm("string"), nil
		case ast.Array:
			return ast.StringTerm("array"), nil
		case *ast.Set:
			return ast.StringTerm("set"), nil
		case ast.Object:
			return ast.StringTerm("object"), nil
		}
		return ast.StringTerm("unknown"), nil
	})
}
