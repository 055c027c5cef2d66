// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"time"

	"github.com/regorus-go/regorus/ast"
)

func init() {
	RegisterBuiltinFunc(ast.TimeNow.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		now := bctx.Now
		if now.IsZero() {
			now = time.Now()
		}
		return ast.IntNumberTerm(now.UnixNano()), nil
	})
	RegisterBuiltinFunc(ast.TimeParseRFC.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "time.parse_rfc3339_ns: operand must be a string")
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			if !bctx.Strict {
				return nil, nil
			}
			return nil, newError(TypeErr, bctx.Location, "time.parse_rfc3339_ns: %v", err)
		}
		return ast.IntNumberTerm(t.UnixNano()), nil
	})
	RegisterBuiltinFunc(ast.TimeDate.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		n, ok := asNumber(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "time.date: operand must be a number")
		}
		ns, _ := n.Int64()
		t := time.Unix(0, ns).UTC()
		y, m, d := t.Date()
		return &ast.Term{Value: ast.Array{
			ast.IntNumberTerm(int64(y)),
			ast.IntNumberTerm(int64(m)),
			ast.IntNumberTerm(int64(d)),
		}}, nil
	})
	// time.add_date(ns, years, months, days) -> ns, or Undefined on overflow
	// (spec.md §8 scenario 6: a `2147483647`-year shift must yield undefined,
	// not panic or wrap).
	RegisterBuiltinFunc(ast.TimeAddDate.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		nsN, ok := asNumber(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "time.add_date: first operand must be a number")
		}
		yN, ok := asNumber(args[1])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "time.add_date: years must be a number")
		}
		moN, ok := asNumber(args[2])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "time.add_date: months must be a number")
		}
		dN, ok := asNumber(args[3])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "time.add_date: days must be a number")
		}
		ns, _ := nsN.Int64()
		years, yok := yN.Int64()
		months, mok := moN.Int64()
		days, dok := dN.Int64()
		if !yok || !mok || !dok {
			return nil, nil
		}
		// A multi-billion year shift overflows time.Time's internal
		// representation long before int64 years does; reject it outright
		// rather than let AddDate produce an undefined result.
		const maxYears = 1 << 20
		if years > maxYears || years < -maxYears {
			return nil, nil
		}
		t := time.Unix(0, ns).UTC()
		shifted := t.AddDate(int(years), int(months), int(days))
		return ast.IntNumberTerm(shifted.UnixNano()), nil
	})
}
