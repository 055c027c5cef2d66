// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import "github.com/regorus-go/regorus/ast"

// http.send is an explicit leaf gap: this evaluator has no network access
// (no sandboxing or host allowlisting to ground that on in the corpus), so
// every call fails with a HostAwaitErr rather than silently returning
// Undefined. An embedder that needs it can RegisterBuiltinFunc its own
// implementation before evaluating.
func init() {
	RegisterBuiltinFunc(ast.HTTPSend.Name, func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
		return nil, newError(HostAwaitErr, bctx.Location, "http.send: no network access in this evaluator")
	})
}
