// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"

	"github.com/regorus-go/regorus/ast"
)

func init() {
	RegisterBuiltinFunc(ast.CryptoSha256.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "crypto.sha256: operand must be a string")
		}
		sum := sha256.Sum256([]byte(s))
		return ast.StringTerm(hex.EncodeToString(sum[:])), nil
	})
	RegisterBuiltinFunc(ast.CryptoMd5.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		s, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "crypto.md5: operand must be a string")
		}
		sum := md5.Sum([]byte(s))
		return ast.StringTerm(hex.EncodeToString(sum[:])), nil
	})
}
