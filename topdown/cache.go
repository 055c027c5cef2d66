// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/regorus-go/regorus/ast"
)

// ruleCache memoizes complete/partial rule results by fully-qualified rule
// ref for one evaluation epoch (spec.md §3 `rule_cache`). The teacher's
// topdown/cache.go keeps a stack of tries scoped to rule-set generations;
// we only ever evaluate one generation at a time (no incremental
// re-evaluation, an explicit spec.md Non-goal), so a bounded LRU keyed by
// the ref's string form is a direct, simpler replacement with the same
// "per-epoch, invalidate on data/input/with change" contract.
const defaultRuleCacheSize = 4096

type ruleCache struct {
	lru *lru.Cache[string, *ast.Term]
}

func newRuleCache() *ruleCache {
	c, err := lru.New[string, *ast.Term](defaultRuleCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// compile-time constant here.
		panic(err)
	}
	return &ruleCache{lru: c}
}

func (c *ruleCache) get(ref ast.Ref) (*ast.Term, bool) {
	return c.lru.Get(ref.String())
}

func (c *ruleCache) put(ref ast.Ref, v *ast.Term) {
	c.lru.Add(ref.String(), v)
}

func (c *ruleCache) invalidate() {
	c.lru.Purge()
}
