// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import "github.com/regorus-go/regorus/ast"

// valueToGo is the inverse of ast.InterfaceToValue: it lowers an AST Value
// into the native Go shape (map[string]interface{}, []interface{}, string,
// float64/int64, bool, nil) that encoding/json and fmt.Sprintf expect.
func valueToGo(v ast.Value) interface{} {
	switch v := v.(type) {
	case ast.Null:
		return nil
	case ast.Boolean:
		return bool(v)
	case ast.Number:
		if i, ok := v.Int64(); ok {
			return i
		}
		f, _ := v.Float64()
		return f
	case ast.String:
		return string(v)
	case ast.Array:
		out := make([]interface{}, len(v))
		for i, t := range v {
			out[i] = valueToGo(t.Value)
		}
		return out
	case *ast.Set:
		out := make([]interface{}, 0, v.Len())
		v.Foreach(func(t *ast.Term) { out = append(out, valueToGo(t.Value)) })
		return out
	case ast.Object:
		out := make(map[string]interface{}, len(v))
		for _, pair := range v {
			if k, ok := pair[0].Value.(ast.String); ok {
				out[string(k)] = valueToGo(pair[1].Value)
			}
		}
		return out
	default:
		return v.String()
	}
}

func goToTerm(x interface{}) (*ast.Term, error) {
	v, err := ast.InterfaceToValue(x)
	if err != nil {
		return nil, err
	}
	return &ast.Term{Value: v}, nil
}
