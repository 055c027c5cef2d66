// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"crypto/x509"
	"encoding/json"
	"encoding/pem"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"

	"github.com/regorus-go/regorus/ast"
)

func init() {
	RegisterBuiltinFunc(ast.JWTDecode.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		token, ok := asString(args[0])
		if !ok {
			return nil, newError(TypeErr, bctx.Location, "io.jwt.decode: operand must be a string")
		}
		msg, err := jws.Parse([]byte(token))
		if err != nil {
			if !bctx.Strict {
				return nil, nil
			}
			return nil, newError(TypeErr, bctx.Location, "io.jwt.decode: %v", err)
		}
		headers := ast.Object{}
		if sigs := msg.Signatures(); len(sigs) > 0 {
			hdrs := sigs[0].ProtectedHeaders()
			if alg, ok := hdrs.Algorithm(); ok {
				headers = append(headers, [2]*ast.Term{ast.StringTerm("alg"), ast.StringTerm(alg.String())})
			}
		}
		var payload interface{}
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			if !bctx.Strict {
				return nil, nil
			}
			return nil, newError(TypeErr, bctx.Location, "io.jwt.decode: %v", err)
		}
		payloadTerm, err := goToTerm(payload)
		if err != nil {
			return nil, newError(TypeErr, bctx.Location, "io.jwt.decode: %v", err)
		}
		return &ast.Term{Value: ast.Array{
			{Value: headers},
			payloadTerm,
			ast.StringTerm(""),
		}}, nil
	})

	RegisterBuiltinFunc(ast.JWTVerifyHS256.Name, jwtVerify(jwa.HS256(), func(secret string) interface{} {
		return []byte(secret)
	}))
	RegisterBuiltinFunc(ast.JWTVerifyRS256.Name, jwtVerify(jwa.RS256(), func(pemKey string) interface{} {
		block, _ := pem.Decode([]byte(pemKey))
		if block == nil {
			return nil
		}
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil
		}
		return pub
	}))
}

func jwtVerify(alg jwa.SignatureAlgorithm, keyFor func(string) interface{}) BuiltinFunc {
	return func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		token, ok1 := asString(args[0])
		keyMaterial, ok2 := asString(args[1])
		if !ok1 || !ok2 {
			return nil, newError(TypeErr, bctx.Location, "io.jwt.verify: operands must be strings")
		}
		key := keyFor(keyMaterial)
		if key == nil {
			return ast.BooleanTerm(false), nil
		}
		_, err := jws.Verify([]byte(token), jws.WithKey(alg, key))
		return ast.BooleanTerm(err == nil), nil
	}
}
