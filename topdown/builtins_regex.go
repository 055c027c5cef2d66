// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"regexp"

	"github.com/regorus-go/regorus/ast"
)

func init() {
	RegisterBuiltinFunc(ast.RegexMatch.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		pattern, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "regex.match: pattern must be a string")
		}
		value, ok := asString(args[1])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "regex.match: value must be a string")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			if !bctx.Strict {
				return nil, nil
			}
			return nil, newError(TypeErr, bctx.Location, "regex.match: %v", err)
		}
		return ast.BooleanTerm(re.MatchString(value)), nil
	})
}
