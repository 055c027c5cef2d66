// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/regorus-go/regorus/ast"
)

func asString(t *ast.Term) (string, bool) {
	s, ok := t.Value.(ast.String)
	return string(s), ok
}

func unaryStr(name string, f func(string) string) BuiltinFunc {
	return func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "%s: operand must be a string", name)
		}
		return ast.StringTerm(f(s)), nil
	}
}

func init() {
	RegisterBuiltinFunc(ast.Concat.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		delim, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "concat: delimiter must be a string")
		}
		elems, ok := collectionElems(args[1])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "concat: operand must be array or set of strings")
		}
		parts := make([]string, 0, len(elems))
		for _, e := range elems {
			s, ok := asString(e)
			if !ok {
				return nil, newError(TypeErr, bctx.Location, "concat: elements must be strings")
			}
			parts = append(parts, s)
		}
		return ast.StringTerm(strings.Join(parts, delim)), nil
	})
	RegisterBuiltinFunc(ast.FormatInt.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		n, ok := asNumber(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "format_int: operand must be a number")
		}
		base, ok := asNumber(args[1])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "format_int: base must be a number")
		}
		i, _ := n.Int64()
		b, _ := base.Int64()
		return ast.StringTerm(strconv.FormatInt(i, int(b))), nil
	})
	RegisterBuiltinFunc(ast.IndexOf.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok1 := asString(args[0])
		sub, ok2 := asString(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "indexof: operands must be strings")
		}
		return ast.IntNumberTerm(int64(strings.Index(s, sub))), nil
	})
	RegisterBuiltinFunc(ast.Substring.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		startN, ok2 := asNumber(args[1])
		lenN, ok3 := asNumber(args[2])
		if !ok || !ok2 || !ok3 {
			return nil, newError(TypeErr, bctx.Location, "substring: bad operand types")
		}
		runes := []rune(s)
		start, _ := startN.Int64()
		if start < 0 {
			start = 0
		}
		if int(start) > len(runes) {
			start = int64(len(runes))
		}
		length, _ := lenN.Int64()
		end := len(runes)
		if length >= 0 && int(start)+int(length) < end {
			end = int(start) + int(length)
		}
		return ast.StringTerm(string(runes[start:end])), nil
	})
	RegisterBuiltinFunc(ast.Contains.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok1 := asString(args[0])
		sub, ok2 := asString(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "contains: operands must be strings")
		}
		return ast.BooleanTerm(strings.Contains(s, sub)), nil
	})
	RegisterBuiltinFunc(ast.StartsWith.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok1 := asString(args[0])
		prefix, ok2 := asString(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "startswith: operands must be strings")
		}
		return ast.BooleanTerm(strings.HasPrefix(s, prefix)), nil
	})
	RegisterBuiltinFunc(ast.EndsWith.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok1 := asString(args[0])
		suffix, ok2 := asString(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "endswith: operands must be strings")
		}
		return ast.BooleanTerm(strings.HasSuffix(s, suffix)), nil
	})
	RegisterBuiltinFunc(ast.Lower.Name, unaryStr("lower", strings.ToLower))
	RegisterBuiltinFunc(ast.Upper.Name, unaryStr("upper", strings.ToUpper))
	RegisterBuiltinFunc(ast.ReverseString.Name, unaryStr("strings.reverse", func(s string) string {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r)
	}))
	RegisterBuiltinFunc(ast.TrimSpace.Name, unaryStr("trim_space", strings.TrimSpace))
	RegisterBuiltinFunc(ast.Split.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok1 := asString(args[0])
		sep, ok2 := asString(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "split: operands must be strings")
		}
		parts := strings.Split(s, sep)
		terms := make(ast.Array, len(parts))
		for i, p := range parts {
			terms[i] = ast.StringTerm(p)
		}
		return &ast.Term{Value: terms}, nil
	})
	RegisterBuiltinFunc(ast.Replace.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok1 := asString(args[0])
		old, ok2 := asString(args[1])
		nw, ok3 := asString(args[2])
		if !ok1 || !ok2 || !ok3 {
			return nil, newError(TypeErr, bctx.Location, "replace: operands must be strings")
		}
		return ast.StringTerm(strings.ReplaceAll(s, old, nw)), nil
	})
	trimFn := func(name string, f func(s, cut string) string) BuiltinFunc {
		return func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
			s, ok1 := asString(args[0])
			cut, ok2 := asString(args[1])
			if !ok1 || !ok2 {
				return nil, newError(TypeErr, bctx.Location, "%s: operands must be strings", name)
			}
			return ast.StringTerm(f(s, cut)), nil
		}
	}
	RegisterBuiltinFunc(ast.Trim.Name, trimFn("trim", strings.Trim))
	RegisterBuiltinFunc(ast.TrimLeft.Name, trimFn("trim_left", strings.TrimLeft))
	RegisterBuiltinFunc(ast.TrimRight.Name, trimFn("trim_right", strings.TrimRight))
	RegisterBuiltinFunc(ast.Sprintf.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		format, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "sprintf: format must be a string")
		}
		elems, ok := collectionElems(args[1])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "sprintf: operand must be an array")
		}
		vals := make([]interface{}, len(elems))
		for i, e := range elems {
			vals[i] = valueToGo(e.Value)
		}
		return ast.StringTerm(fmt.Sprintf(format, vals...)), nil
	})
}
