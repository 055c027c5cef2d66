// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"encoding/base64"
	"encoding/json"
	"net/url"

	"github.com/regorus-go/regorus/ast"
)

func init() {
	RegisterBuiltinFunc(ast.ObjectGet.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		obj, ok := args[0].Value.(ast.Object)
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "object.get: first operand must be an object")
		}
		if v := obj.Get(args[1]); v != nil {
			return v, nil
		}
		return args[2], nil
	})
	RegisterBuiltinFunc(ast.ObjectUnion.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		a, ok1 := args[0].Value.(ast.Object)
		b, ok2 := args[1].Value.(ast.Object)
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "object.union: operands must be objects")
		}
		merged, ok := a.Merge(b)
		if !ok {
			return nil, newError(ConflictErr, bctx.Location, "object.union: conflicting values")
		}
		return &ast.Term{Value: merged}, nil
	})
	RegisterBuiltinFunc(ast.ObjectRemove.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		obj, ok := args[0].Value.(ast.Object)
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "object.remove: first operand must be an object")
		}
		keys, ok := collectionElems(args[1])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "object.remove: second operand must be array or set of keys")
		}
		drop := ast.NewSet()
		for _, k := range keys {
			drop.Add(k)
		}
		result := ast.Object{}
		for _, pair := range obj {
			if !drop.Contains(pair[0]) {
				result = append(result, pair)
			}
		}
		return &ast.Term{Value: result}, nil
	})
	RegisterBuiltinFunc(ast.ObjectFilter.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		obj, ok := args[0].Value.(ast.Object)
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "object.filter: first operand must be an object")
		}
		keys, ok := collectionElems(args[1])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "object.filter: second operand must be array or set of keys")
		}
		keep := ast.NewSet()
		for _, k := range keys {
			keep.Add(k)
		}
		result := ast.Object{}
		for _, pair := range obj {
			if keep.Contains(pair[0]) {
				result = append(result, pair)
			}
		}
		return &ast.Term{Value: result}, nil
	})

	RegisterBuiltinFunc(ast.JSONMarshal.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		b, err := json.Marshal(valueToGo(args[0].Value))
		if err != nil {
			return nil, newError(TypeErr, bctx.Location, "json.marshal: %v", err)
		}
		return ast.StringTerm(string(b)), nil
	})
	RegisterBuiltinFunc(ast.JSONUnmarshal.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "json.unmarshal: operand must be a string")
		}
		var x interface{}
		if err := json.Unmarshal([]byte(s), &x); err != nil {
			if !bctx.Strict {
				return nil, nil
			}
			return nil, newError(TypeErr, bctx.Location, "json.unmarshal: %v", err)
		}
		return goToTerm(x)
	})

	RegisterBuiltinFunc(ast.Base64Encode.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "base64.encode: operand must be a string")
		}
		return ast.StringTerm(base64.StdEncoding.EncodeToString([]byte(s))), nil
	})
	RegisterBuiltinFunc(ast.Base64Decode.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "base64.decode: operand must be a string")
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			if !bctx.Strict {
				return nil, nil
			}
			return nil, newError(TypeErr, bctx.Location, "base64.decode: %v", err)
		}
		return ast.StringTerm(string(b)), nil
	})
	RegisterBuiltinFunc(ast.URLQueryEncode.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "urlquery.encode: operand must be a string")
		}
		return ast.StringTerm(url.QueryEscape(s)), nil
	})
	RegisterBuiltinFunc(ast.URLQueryDecode.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "urlquery.decode: operand must be a string")
		}
		dec, err := url.QueryUnescape(s)
		if err != nil {
			if !bctx.Strict {
				return nil, nil
			}
			return nil, newError(TypeErr, bctx.Location, "urlquery.decode: %v", err)
		}
		return ast.StringTerm(dec), nil
	})
}
