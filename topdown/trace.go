// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"fmt"

	"github.com/regorus-go/regorus/ast"
)

// Op identifies the kind of trace Event, adapted from the teacher's
// topdown/trace.go five-event vocabulary (Enter/Exit/Eval/Redo/Fail) plus
// Note for print()-style statements.
type Op string

const (
	EnterOp Op = "Enter"
	ExitOp  Op = "Exit"
	EvalOp  Op = "Eval"
	RedoOp  Op = "Redo"
	FailOp  Op = "Fail"
	NoteOp  Op = "Note"
)

// Event is a single step emitted during evaluation when a Tracer is
// installed through Interpreter.Tracer. The rego Engine installs only its
// coverage collector there and exposes no trace sink of its own; rendering
// events for a human (a `--explain` CLI flag) is out of scope.
type Event struct {
	Op       Op
	Location *ast.Location
	Message  string
}

func (e *Event) String() string {
	if e.Location != nil {
		return fmt.Sprintf("%v %v %v", e.Op, e.Location, e.Message)
	}
	return fmt.Sprintf("%v %v", e.Op, e.Message)
}

// Tracer receives Events as the interpreter walks a query. Implementations
// must not retain the Event's Location beyond the call (the interpreter
// reuses term pointers across iterations of a loop).
type Tracer interface {
	Trace(*Event)
}

// BufferTracer is the simplest Tracer: it appends every event to a slice.
type BufferTracer []*Event

func NewBufferTracer() *BufferTracer {
	bt := BufferTracer(nil)
	return &bt
}

func (t *BufferTracer) Trace(evt *Event) { *t = append(*t, evt) }
