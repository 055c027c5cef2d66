// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package vm implements the register-based bytecode machine spec.md §4.7
// describes: a Program of flat instructions over a fixed register file,
// compiled from a scheduled ast.Body, with run-to-completion and
// suspendable (HostAwait) execution modes. It is grounded on the teacher's
// internal/ir plan/block/stmt tree (internal/ir/ir.go) flattened onto
// register operands, and on internal/planner/planner.go's one-function-
// per-node-kind walk for the compiler in compile.go.
package vm

import "fmt"

// Reg addresses one slot in a frame's register file.
type Reg uint16

// Opcode identifies one instruction family member. Grouping mirrors
// spec.md §4.7's instruction family table.
type Opcode uint8

const (
	// Move/Load
	OpLoadConst Opcode = iota
	OpLoadTrue
	OpLoadFalse
	OpLoadNull
	OpLoadData
	OpLoadInput
	OpMove

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	// Comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Logic
	OpAnd
	OpOr
	OpNot

	// Containers
	OpArrayCreate
	OpSetCreate
	OpObjectCreate
	OpObjectInsert
	OpSetInsert
	OpArrayPush
	OpIndexGet

	// Control
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpJumpIfUndefined
	OpAssertCondition
	OpHalt
	OpReturn

	// Iteration
	OpLoopBegin
	OpLoopNext
	OpLoopEnd

	// Comprehensions
	OpArrayComprBegin
	OpArrayComprPush
	OpArrayComprEnd
	OpSetComprBegin
	OpSetComprPush
	OpSetComprEnd
	OpObjectComprBegin
	OpObjectComprInsert
	OpObjectComprEnd

	// Rules
	OpCallRule
	OpCallFunction
	OpCallBuiltin
	OpVirtualDataDocumentLookup

	// Host
	OpHostAwait

	// OpSomeIn binds A(key)/B(val) to the first element of collection C,
	// or jumps to Aux (a failure target) if C is empty. A simplified,
	// single-solution stand-in for `some k, v in xs` used as a generator
	// (see vm/compile.go's compileSome doc comment for why).
	OpSomeIn

	// OpLoopBodyFail sets register A (the enclosing `every`'s running
	// all-ok accumulator) to false and falls through to LoopNext: one
	// failing iteration marks the `every` false without aborting the
	// whole rule alternative the way an ordinary AssertCondition jump
	// would.
	OpLoopBodyFail
)

var opcodeNames = map[Opcode]string{
	OpLoadConst: "LoadConst", OpLoadTrue: "LoadTrue", OpLoadFalse: "LoadFalse",
	OpLoadNull: "LoadNull", OpLoadData: "LoadData", OpLoadInput: "LoadInput", OpMove: "Move",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod",
	OpEq: "Eq", OpNe: "Ne", OpLt: "Lt", OpLe: "Le", OpGt: "Gt", OpGe: "Ge",
	OpAnd: "And", OpOr: "Or", OpNot: "Not",
	OpArrayCreate: "ArrayCreate", OpSetCreate: "SetCreate", OpObjectCreate: "ObjectCreate",
	OpObjectInsert: "ObjectInsert", OpSetInsert: "SetInsert", OpArrayPush: "ArrayPush", OpIndexGet: "IndexGet",
	OpJump: "Jump", OpJumpIfFalse: "JumpIfFalse", OpJumpIfTrue: "JumpIfTrue",
	OpJumpIfUndefined: "JumpIfUndefined", OpAssertCondition: "AssertCondition", OpHalt: "Halt", OpReturn: "Return",
	OpLoopBegin: "LoopBegin", OpLoopNext: "LoopNext", OpLoopEnd: "LoopEnd",
	OpArrayComprBegin: "ArrayComprBegin", OpArrayComprPush: "ArrayComprPush", OpArrayComprEnd: "ArrayComprEnd",
	OpSetComprBegin: "SetComprBegin", OpSetComprPush: "SetComprPush", OpSetComprEnd: "SetComprEnd",
	OpObjectComprBegin: "ObjectComprBegin", OpObjectComprInsert: "ObjectComprInsert", OpObjectComprEnd: "ObjectComprEnd",
	OpCallRule: "CallRule", OpCallFunction: "CallFunction", OpCallBuiltin: "CallBuiltin",
	OpVirtualDataDocumentLookup: "VirtualDataDocumentLookup",
	OpHostAwait:                 "HostAwait",
	OpSomeIn:                    "SomeIn",
	OpLoopBodyFail:              "LoopBodyFail",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// LoopMode distinguishes the three LoopBegin semantics spec.md §4.7 names.
type LoopMode uint8

const (
	LoopFor LoopMode = iota
	LoopEvery
	LoopAny
)

// Instr is one bytecode instruction. Most opcodes use at most three 16-bit
// register operands (A, B, C); CallBuiltin/CallFunction/CallRule instead
// use A as the destination register and B/C as (argument-window base,
// argument count) so a call can pass an arbitrary number of arguments
// without growing the operand count past three. Aux carries the
// Program.Constants index for LoadConst and other family-specific extra
// data (jump targets, rule/function/builtin ids); Const holds the loop mode
// of LoopBegin.
type Instr struct {
	Op    Opcode
	A, B, C Reg
	Const int
	Aux   int
}
