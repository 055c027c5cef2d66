// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"github.com/gobwas/glob"

	"github.com/regorus-go/regorus/ast"
)

func globDelimiters(t *ast.Term) ([]rune, bool) {
	if _, ok := t.Value.(ast.Null); ok {
		return []rune{'.'}, true
	}
	elems, ok := collectionElems(t)
	if !ok {
		return nil, false
	}
	delims := make([]rune, 0, len(elems))
	for _, e := range elems {
		s, ok := asString(e)
		if !ok || len(s) == 0 {
			return nil, false
		}
		delims = append(delims, []rune(s)[0])
	}
	if len(delims) == 0 {
		delims = []rune{'.'}
	}
	return delims, true
}

func init() {
	RegisterBuiltinFunc(ast.GlobMatch.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		pattern, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "glob.match: pattern must be a string")
		}
		delims, ok := globDelimiters(args[1])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "glob.match: delimiters must be an array of single-rune strings or null")
		}
		match, ok := asString(args[2])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "glob.match: match must be a string")
		}
		g, err := glob.Compile(pattern, delims...)
		if err != nil {
			if !bctx.Strict {
				return nil, nil
			}
			return nil, newError(TypeErr, bctx.Location, "glob.match: %v", err)
		}
		return ast.BooleanTerm(g.Match(match)), nil
	})
	RegisterBuiltinFunc(ast.GlobQuoteMeta.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "glob.quote_meta: operand must be a string")
		}
		out := make([]byte, 0, len(s))
		for _, r := range s {
			switch r {
			case '*', '?', '\\', '[', ']', '{', '}':
				out = append(out, '\\')
			}
			out = append(out, string(r)...)
		}
		return ast.StringTerm(string(out)), nil
	})
}
