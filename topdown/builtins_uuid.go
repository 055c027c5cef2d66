// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"github.com/google/uuid"

	"github.com/regorus-go/regorus/ast"
)

func init() {
	RegisterBuiltinFunc(ast.UUIDRFC4122.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		// uuid.rfc4122(k) returns the caller-supplied Seed hook's value
		// when one is wired in; k is not passed to the hook and results
		// are not remembered per key. Without a Seed, every call returns
		// a fresh random v4 uuid, so two calls with the same k differ.
		if bctx.Seed != nil {
			return ast.StringTerm(bctx.Seed()), nil
		}
		return ast.StringTerm(uuid.New().String()), nil
	})
	RegisterBuiltinFunc(ast.UUIDParse.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "uuid.parse: operand must be a string")
		}
		parsed, err := uuid.Parse(s)
		if err != nil {
			if !bctx.Strict {
				return nil, nil
			}
			return nil, newError(TypeErr, bctx.Location, "uuid.parse: %v", err)
		}
		obj := ast.Object{
			{ast.StringTerm("version"), ast.IntNumberTerm(int64(parsed.Version()))},
			{ast.StringTerm("variant"), ast.StringTerm(parsed.Variant().String())},
		}
		return &ast.Term{Value: obj}, nil
	})
}
