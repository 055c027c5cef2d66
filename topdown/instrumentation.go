// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"github.com/regorus-go/regorus/ast"
	"github.com/regorus-go/regorus/internal/instrumentation"
)

// Limits bounds one evaluation epoch, per spec.md §5 "resource limits":
// instruction count, recursion depth, and (advisory, not separately
// metered here) total allocated bytes.
type Limits struct {
	MaxInstructions int64
	MaxDepth        int
}

// DefaultLimits returns generous limits suitable for interactive use.
func DefaultLimits() Limits {
	return Limits{MaxInstructions: 10_000_000, MaxDepth: 1_000}
}

// budget tracks one query's progress against Limits, checked every N
// statements (checkEvery) rather than on every single step, to keep the
// hot path cheap per spec.md §5.
type budget struct {
	limits    Limits
	counters  *instrumentation.Counters
	steps     int64
	checkEvery int64
	depth     int
}

const defaultCheckEvery = 256

func newBudget(limits Limits, counters *instrumentation.Counters) *budget {
	return &budget{limits: limits, counters: counters, checkEvery: defaultCheckEvery}
}

func (b *budget) step(loc *ast.Location) error {
	b.steps++
	if b.counters != nil {
		b.counters.Step()
	}
	if b.limits.MaxInstructions > 0 && b.steps%b.checkEvery == 0 && b.steps > b.limits.MaxInstructions {
		return newError(ResourceErr, loc, "instruction budget of %d exceeded", b.limits.MaxInstructions)
	}
	return nil
}

func (b *budget) enter(loc *ast.Location) error {
	b.depth++
	if b.counters != nil {
		b.counters.EnterFrame(b.depth)
	}
	if b.limits.MaxDepth > 0 && b.depth > b.limits.MaxDepth {
		return newError(ResourceErr, loc, "recursion depth budget of %d exceeded", b.limits.MaxDepth)
	}
	return nil
}

func (b *budget) leave() { b.depth-- }
