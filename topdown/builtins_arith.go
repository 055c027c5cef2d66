// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"math"
	"math/big"

	"github.com/regorus-go/regorus/ast"
)

func asNumber(t *ast.Term) (ast.Number, bool) {
	n, ok := t.Value.(ast.Number)
	return n, ok
}

func bigFloatOf(t *ast.Term) (*big.Float, bool) {
	n, ok := asNumber(t)
	if !ok {
		return nil, false
	}
	return n.BigFloat(), true
}

func bothInt(a, b *ast.Term) (int64, int64, bool) {
	an, ok := asNumber(a)
	if !ok {
		return 0, 0, false
	}
	bn, ok := asNumber(b)
	if !ok {
		return 0, 0, false
	}
	ai, aok := an.Int64()
	bi, bok := bn.Int64()
	return ai, bi, aok && bok
}

func numResult(f *big.Float) *ast.Term {
	v, _ := f.Float64()
	if f.IsInt() {
		i, acc := f.Int64()
		if acc == big.Exact {
			return ast.IntNumberTerm(i)
		}
	}
	return ast.NumberTerm(v)
}

func arith(name string, op func(a, b *big.Float) *big.Float) BuiltinFunc {
	return func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		a, ok1 := bigFloatOf(args[0])
		b, ok2 := bigFloatOf(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "%s: operand must be a number", name)
		}
		return numResult(op(a, b)), nil
	}
}

func init() {
	RegisterBuiltinFunc(ast.Plus.Name, arith("plus", func(a, b *big.Float) *big.Float {
		return new(big.Float).Add(a, b)
	}))
	RegisterBuiltinFunc(ast.Minus.Name, arith("minus", func(a, b *big.Float) *big.Float {
		return new(big.Float).Sub(a, b)
	}))
	RegisterBuiltinFunc(ast.Multiply.Name, arith("mul", func(a, b *big.Float) *big.Float {
		return new(big.Float).Mul(a, b)
	}))
	RegisterBuiltinFunc(ast.Divide.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		a, ok1 := bigFloatOf(args[0])
		b, ok2 := bigFloatOf(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "div: operand must be a number")
		}
		if b.Sign() == 0 {
			return nil, newError(TypeErr, bctx.Location, "div: divide by zero")
		}
		return numResult(new(big.Float).Quo(a, b)), nil
	})
	RegisterBuiltinFunc(ast.Rem.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		ai, bi, ok := bothInt(args[0], args[1])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "rem: operands must be integers")
		}
		if bi == 0 {
			return nil, newError(TypeErr, bctx.Location, "rem: modulo by zero")
		}
		// OPA semantics: sign of the result follows the dividend.
		return ast.IntNumberTerm(ai % bi), nil
	})
	RegisterBuiltinFunc(ast.Round.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		n, ok := asNumber(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "round: operand must be a number")
		}
		f, _ := n.Float64()
		return ast.IntNumberTerm(int64(math.Round(f))), nil
	})
	RegisterBuiltinFunc(ast.Ceil.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		n, ok := asNumber(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "ceil: operand must be a number")
		}
		f, _ := n.Float64()
		return ast.IntNumberTerm(int64(math.Ceil(f))), nil
	})
	RegisterBuiltinFunc(ast.Floor.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		n, ok := asNumber(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "floor: operand must be a number")
		}
		f, _ := n.Float64()
		return ast.IntNumberTerm(int64(math.Floor(f))), nil
	})
	RegisterBuiltinFunc(ast.Abs.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		f, ok := bigFloatOf(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "abs: operand must be a number")
		}
		return numResult(f.Abs(f)), nil
	})
}
