// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"time"

	"github.com/regorus-go/regorus/ast"
)

// BuiltinContext is the context handle spec.md §4.6 gives to built-ins that
// need it: non-deterministic built-ins (uuid.rfc4122, time.now_ns) read
// Seed/Now from here instead of touching the real clock/RNG directly, so
// an embedder (or a differential test against the VM) can pin them.
type BuiltinContext struct {
	Location *ast.Location
	Strict   bool
	Now      time.Time
	Seed     func() string // returns a fresh random identifier; uuid group default
}

// BuiltinFunc is a built-in's pure evaluator. Returning (nil, nil) means the
// built-in yielded Undefined (the call fails, it does not error). Returning
// a non-nil error is a category-4 Type error; in non-strict mode the
// interpreter absorbs it into Undefined at the statement boundary.
type BuiltinFunc func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error)

var builtinFuncs = map[ast.Var]BuiltinFunc{}

// RegisterBuiltinFunc lets an embedder add or override a built-in's
// implementation, e.g. to plug in a real http.send.
func RegisterBuiltinFunc(name ast.Var, fn BuiltinFunc) {
	builtinFuncs[name] = fn
}

func lookupBuiltinFunc(name ast.Var) (BuiltinFunc, bool) {
	fn, ok := builtinFuncs[name]
	return fn, ok
}

// LookupBuiltinFunc exposes the same built-in registry evalBuiltinCall uses
// internally so the vm package can dispatch CallBuiltin through identical
// implementations instead of a second, divergent copy (spec.md §8 "the
// interpreter and VM produce identical values for the same query").
func LookupBuiltinFunc(name ast.Var) (BuiltinFunc, bool) {
	return lookupBuiltinFunc(name)
}
