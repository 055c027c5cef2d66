// Copyright 2022 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import "github.com/regorus-go/regorus/ast"

// PrintHook receives the formatted output of a `print(...)` statement.
// SPEC_FULL §4 backs the Engine façade's set_gather_prints/take_prints
// operations with this real statement type rather than a bare config flag.
type PrintHook interface {
	Print(loc *ast.Location, msg string)
}

// prints accumulates print() output for later retrieval via take_prints,
// gated by a gather flag so evaluation with no installed hook pays no cost.
type prints struct {
	gather bool
	hook   PrintHook
	buf    []string
}

func (p *prints) emit(loc *ast.Location, msg string) {
	if p.hook != nil {
		p.hook.Print(loc, msg)
	}
	if p.gather {
		if loc != nil {
			p.buf = append(p.buf, loc.String()+": "+msg)
		} else {
			p.buf = append(p.buf, msg)
		}
	}
}

func (p *prints) take() []string {
	out := p.buf
	p.buf = nil
	return out
}
