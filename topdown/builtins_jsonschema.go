// Copyright 2022 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"

	"github.com/regorus-go/regorus/ast"
)

func valueToSchemaLoader(t *ast.Term) (gojsonschema.JSONLoader, error) {
	switch v := t.Value.(type) {
	case ast.String:
		if !json.Valid([]byte(v)) {
			return nil, errInvalidJSON
		}
		return gojsonschema.NewStringLoader(string(v)), nil
	default:
		b, err := json.Marshal(valueToGo(v))
		if err != nil {
			return nil, err
		}
		return gojsonschema.NewStringLoader(string(b)), nil
	}
}

var errInvalidJSON = newError(TypeErr, nil, "invalid JSON string")

func init() {
	RegisterBuiltinFunc(ast.JSONSchemaVerify.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		schemaLoader, err := valueToSchemaLoader(args[0])
		if err != nil {
			return nil, newError(TypeErr, bctx.Location, "json.schema.verify: %v", err)
		}
		docLoader, err := valueToSchemaLoader(args[1])
		if err != nil {
			return nil, newError(TypeErr, bctx.Location, "json.schema.verify: %v", err)
		}
		schema, err := gojsonschema.NewSchema(schemaLoader)
		if err != nil {
			obj := ast.Object{
				{ast.StringTerm("valid"), ast.BooleanTerm(false)},
				{ast.StringTerm("errors"), &ast.Term{Value: ast.Array{ast.StringTerm(err.Error())}}},
			}
			return &ast.Term{Value: obj}, nil
		}
		result, err := schema.Validate(docLoader)
		if err != nil {
			return nil, newError(TypeErr, bctx.Location, "json.schema.verify: %v", err)
		}
		errs := ast.Array{}
		for _, e := range result.Errors() {
			errs = append(errs, ast.StringTerm(e.String()))
		}
		obj := ast.Object{
			{ast.StringTerm("valid"), ast.BooleanTerm(result.Valid())},
			{ast.StringTerm("errors"), &ast.Term{Value: errs}},
		}
		return &ast.Term{Value: obj}, nil
	})
}
