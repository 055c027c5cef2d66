// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"strconv"
	"strings"

	"github.com/regorus-go/regorus/ast"
)

// semverCore is a minimal major.minor.patch parse, deliberately not
// handling build metadata or prerelease precedence (no example repo in the
// corpus carries a semver comparison library to ground a fuller one on;
// see DESIGN.md).
type semverCore struct{ major, minor, patch int }

func parseSemver(s string) (semverCore, bool) {
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return semverCore{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return semverCore{}, false
		}
		nums[i] = n
	}
	return semverCore{nums[0], nums[1], nums[2]}, true
}

func (a semverCore) compare(b semverCore) int {
	switch {
	case a.major != b.major:
		return cmpInt(a.major, b.major)
	case a.minor != b.minor:
		return cmpInt(a.minor, b.minor)
	default:
		return cmpInt(a.patch, b.patch)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func init() {
	RegisterBuiltinFunc(ast.SemverCompare.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		aStr, ok1 := asString(args[0])
		bStr, ok2 := asString(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "semver.compare: operands must be strings")
		}
		a, ok1 := parseSemver(aStr)
		b, ok2 := parseSemver(bStr)
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "semver.compare: operands must be valid semver strings")
		}
		return ast.IntNumberTerm(int64(a.compare(b))), nil
	})
	RegisterBuiltinFunc(ast.SemverIsValid.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return ast.BooleanTerm(false), nil
		}
		_, valid := parseSemver(s)
		return ast.BooleanTerm(valid), nil
	})
}
