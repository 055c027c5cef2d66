// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package vm

import (
	"fmt"

	"github.com/regorus-go/regorus/ast"
	"github.com/regorus-go/regorus/internal/instrumentation"
	"github.com/regorus-go/regorus/topdown"
)

// Limits reuses topdown's resource-limit shape: spec.md §5 gives the
// interpreter and the VM one shared resource-limit vocabulary
// (instruction count, recursion depth).
type Limits = topdown.Limits

// DefaultLimits mirrors topdown.DefaultLimits.
func DefaultLimits() Limits { return topdown.DefaultLimits() }

// AwaitResolver resolves a HostAwait synchronously: run-to-completion mode
// (spec.md §4.7) uses this instead of ever producing a Suspension.
type AwaitResolver func(kind, key *ast.Term) (*ast.Term, error)

// Suspension is the descriptor a suspendable-mode Run surfaces at
// HostAwait (resolve == nil): the host inspects Kind/Key, computes a value
// out of band, and calls Resume with it to continue exactly where
// execution left off (PC, register file, frame stack, pending loops all
// preserved, since frame is the very callFrame the interpreter loop was
// already mutating).
type Suspension struct {
	Kind *ast.Term
	Key  *ast.Term

	vm      *Machine
	frame   *callFrame
	destReg Reg
}

func (s *Suspension) Error() string { return "vm: suspended on host await" }

// Resume supplies the host's answer to a Suspension and continues
// execution from the HostAwait that produced it. resolve handles any
// further HostAwait the remaining computation hits; pass nil to demand
// the whole remaining computation be resolvable synchronously.
func (s *Suspension) Resume(value *ast.Term, resolve AwaitResolver) (*ast.Term, error) {
	s.vm.setReg(s.frame, s.destReg, value)
	s.frame.pc++
	return s.vm.run(s.frame, resolve)
}

// AsSuspension reports whether err is a Suspension raised by Run/Resume.
func AsSuspension(err error) (*Suspension, bool) {
	s, ok := err.(*Suspension)
	return s, ok
}

type kv struct{ key, val *ast.Term }

type loopFrame struct {
	mode           LoopMode
	items          []kv
	idx            int
	keyReg, valReg Reg
	endPC          int
}

type comprFrame struct {
	kind Opcode
	arr  ast.Array
	set  *ast.Set
	obj  ast.Object
}

type callFrame struct {
	pc      int
	regs    []*ast.Term
	loops   []*loopFrame
	comprs  []*comprFrame
	retDest Reg
	retTo   *callFrame
}

// Machine executes one Program against a fixed data/input pair. A Machine
// is single-use per top-level Run call in suspendable mode (Resume
// continues the same Machine); construct a fresh one for each independent
// evaluation epoch otherwise.
type Machine struct {
	Prog   *Program
	Data   *ast.Term
	Input  *ast.Term
	Limits Limits

	counters *instrumentation.Counters
	steps    int64
	depth    int

	frame *callFrame
}

// NewMachine builds a Machine ready to Run entries compiled into prog.
func NewMachine(prog *Program, data, input *ast.Term, limits Limits) *Machine {
	if data == nil {
		data = &ast.Term{Value: ast.Object{}}
	}
	if input == nil {
		input = &ast.Term{Value: ast.Object{}}
	}
	return &Machine{
		Prog:     prog,
		Data:     data,
		Input:    input,
		Limits:   limits,
		counters: instrumentation.NewCounters(),
	}
}

// Run executes the entry at pc to completion (using resolve for any
// HostAwait) and returns the register holding its Return value, or nil if
// the entry ran off into Halt without ever returning (undefined).
func (m *Machine) Run(pc int, args []*ast.Term, resolve AwaitResolver) (*ast.Term, error) {
	f := m.newFrame(pc, args, nil, 0)
	return m.run(f, resolve)
}

// RunQuery runs a compiled query entry and reads back its free-variable
// bindings the way topdown.Interpreter.EvalQuery does, for differential
// testing between the two evaluators. A query's own frame is never torn
// down until Run returns (it is the root of the call tree, retTo == nil),
// so m.frame still points at it once Run completes.
func (m *Machine) RunQuery(name string, resolve AwaitResolver) (map[ast.Var]*ast.Term, bool, error) {
	pc, ok := m.Prog.RulesTable[name]
	if !ok {
		return nil, false, topdownError(topdown.InternalErr, nil, "vm: no such query %q", name)
	}
	result, err := m.Run(pc, nil, resolve)
	if err != nil || result == nil || !truthy(result) {
		return nil, false, err
	}
	out := map[ast.Var]*ast.Term{}
	for v, r := range m.Prog.QueryVars[name] {
		out[v] = m.reg(m.frame, r)
	}
	return out, true, nil
}

func (m *Machine) enterFrame() error {
	m.depth++
	if m.Limits.MaxDepth > 0 && m.depth > m.Limits.MaxDepth {
		return topdownError(topdown.ResourceErr, nil, "vm: recursion depth budget of %d exceeded", m.Limits.MaxDepth)
	}
	return nil
}

func (m *Machine) newFrame(pc int, args []*ast.Term, retTo *callFrame, retDest Reg) *callFrame {
	size := m.Prog.FrameSize[pc]
	if size < len(args) {
		size = len(args)
	}
	regs := make([]*ast.Term, size)
	copy(regs, args)
	return &callFrame{pc: pc, regs: regs, retDest: retDest, retTo: retTo}
}

func (m *Machine) reg(f *callFrame, r Reg) *ast.Term {
	if int(r) >= len(f.regs) {
		return nil
	}
	return f.regs[r]
}

func (m *Machine) setReg(f *callFrame, r Reg, v *ast.Term) {
	for int(r) >= len(f.regs) {
		f.regs = append(f.regs, nil)
	}
	f.regs[r] = v
}

func truthy(t *ast.Term) bool {
	if t == nil {
		return false
	}
	switch v := t.Value.(type) {
	case ast.Boolean:
		return bool(v)
	case ast.Null:
		return false
	default:
		_ = v
		return true
	}
}

// run is the bytecode interpreter loop. It drives f (and any frames it
// calls into) until the call stack returns to f's caller (nil), budget is
// exceeded, a HostAwait needs a resolver it doesn't have (returns a
// *Suspension as the error, handled by callers that support it),
// or an instruction-level error occurs.
func (m *Machine) run(f *callFrame, resolve AwaitResolver) (*ast.Term, error) {
	m.frame = f
	for {
		if f.pc >= len(m.Prog.Instructions) {
			return nil, topdownError(topdown.InternalErr, nil, "vm: pc out of range")
		}
		instr := m.Prog.Instructions[f.pc]
		m.steps++
		if m.Limits.MaxInstructions > 0 && m.steps > m.Limits.MaxInstructions {
			return nil, topdownError(topdown.ResourceErr, nil, "vm: instruction limit exceeded")
		}
		m.counters.Step()

		switch instr.Op {
		case OpLoadConst:
			m.setReg(f, instr.A, m.Prog.Constants[instr.Aux])
			f.pc++
		case OpLoadTrue:
			m.setReg(f, instr.A, ast.BooleanTerm(true))
			f.pc++
		case OpLoadFalse:
			m.setReg(f, instr.A, ast.BooleanTerm(false))
			f.pc++
		case OpLoadNull:
			m.setReg(f, instr.A, ast.NullTerm())
			f.pc++
		case OpLoadData:
			m.setReg(f, instr.A, m.Data)
			f.pc++
		case OpLoadInput:
			m.setReg(f, instr.A, m.Input)
			f.pc++
		case OpMove:
			m.setReg(f, instr.A, m.reg(f, instr.B))
			f.pc++

		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpAnd, OpOr:
			lhs, rhs := m.reg(f, instr.B), m.reg(f, instr.C)
			if lhs == nil || rhs == nil {
				// An undefined operand makes the whole expression undefined
				// rather than an error, matching topdown's collapse-to-
				// undefined-at-the-statement-boundary behavior.
				m.setReg(f, instr.A, nil)
				f.pc++
				continue
			}
			v, err := m.binOp(instr.Op, lhs, rhs)
			if err != nil {
				return nil, err
			}
			m.setReg(f, instr.A, v)
			f.pc++
		case OpNot:
			m.setReg(f, instr.A, ast.BooleanTerm(!truthy(m.reg(f, instr.B))))
			f.pc++

		case OpArrayCreate:
			m.setReg(f, instr.A, &ast.Term{Value: ast.Array{}})
			f.pc++
		case OpArrayPush:
			cur := m.reg(f, instr.A)
			arr := cur.Value.(ast.Array)
			m.setReg(f, instr.A, &ast.Term{Value: append(arr, m.reg(f, instr.B))})
			f.pc++
		case OpSetCreate:
			m.setReg(f, instr.A, &ast.Term{Value: ast.NewSet()})
			f.pc++
		case OpSetInsert:
			m.reg(f, instr.A).Value.(*ast.Set).Add(m.reg(f, instr.B))
			f.pc++
		case OpObjectCreate:
			m.setReg(f, instr.A, &ast.Term{Value: ast.Object{}})
			f.pc++
		case OpObjectInsert:
			cur := m.reg(f, instr.A)
			obj := cur.Value.(ast.Object)
			m.setReg(f, instr.A, &ast.Term{Value: append(obj, [2]*ast.Term{m.reg(f, instr.B), m.reg(f, instr.C)})})
			f.pc++
		case OpIndexGet:
			v := indexGet(m.reg(f, instr.B), m.reg(f, instr.C))
			m.setReg(f, instr.A, v)
			f.pc++

		case OpJump:
			f.pc = instr.Aux
		case OpJumpIfFalse:
			if !truthy(m.reg(f, instr.A)) {
				f.pc = instr.Aux
			} else {
				f.pc++
			}
		case OpJumpIfTrue:
			if truthy(m.reg(f, instr.A)) {
				f.pc = instr.Aux
			} else {
				f.pc++
			}
		case OpJumpIfUndefined:
			if m.reg(f, instr.A) == nil {
				f.pc = instr.Aux
			} else {
				f.pc++
			}
		case OpAssertCondition:
			if !truthy(m.reg(f, instr.A)) {
				f.pc = instr.Aux
			} else {
				f.pc++
			}
		case OpHalt:
			if f.retTo == nil {
				return nil, nil
			}
			caller := f.retTo
			m.depth--
			m.frame = caller
			f = caller
		case OpReturn:
			val := m.reg(f, instr.A)
			if f.retTo == nil {
				return val, nil
			}
			caller := f.retTo
			m.setReg(caller, f.retDest, val)
			m.depth--
			m.frame = caller
			f = caller
			f.pc++

		case OpLoopBegin:
			items, err := materialize(m.reg(f, instr.C))
			if err != nil {
				return nil, err
			}
			lf := &loopFrame{mode: LoopMode(instr.Const), items: items, idx: -1, keyReg: instr.A, valReg: instr.B, endPC: instr.Aux}
			f.loops = append(f.loops, lf)
			if len(items) == 0 {
				f.loops = f.loops[:len(f.loops)-1]
				f.pc = lf.endPC + 1
				continue
			}
			lf.idx = 0
			m.setReg(f, lf.keyReg, items[0].key)
			m.setReg(f, lf.valReg, items[0].val)
			f.pc++
		case OpLoopNext:
			lf := f.loops[len(f.loops)-1]
			lf.idx++
			if lf.idx >= len(lf.items) {
				f.loops = f.loops[:len(f.loops)-1]
				f.pc++
				continue
			}
			m.setReg(f, lf.keyReg, lf.items[lf.idx].key)
			m.setReg(f, lf.valReg, lf.items[lf.idx].val)
			f.pc = loopBodyStart(m.Prog, f.pc)
		case OpLoopEnd:
			f.pc++
		case OpLoopBodyFail:
			m.setReg(f, instr.A, ast.BooleanTerm(false))
			f.pc++

		case OpSomeIn:
			items, err := materialize(m.reg(f, instr.C))
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				f.pc = instr.Aux
				continue
			}
			m.setReg(f, instr.A, items[0].key)
			m.setReg(f, instr.B, items[0].val)
			f.pc++

		case OpArrayComprBegin:
			f.comprs = append(f.comprs, &comprFrame{kind: OpArrayComprBegin, arr: ast.Array{}})
			f.pc++
		case OpArrayComprPush:
			cf := f.comprs[len(f.comprs)-1]
			cf.arr = append(cf.arr, m.reg(f, instr.B))
			f.pc++
		case OpArrayComprEnd:
			cf := f.comprs[len(f.comprs)-1]
			f.comprs = f.comprs[:len(f.comprs)-1]
			m.setReg(f, instr.A, &ast.Term{Value: cf.arr})
			f.pc++
		case OpSetComprBegin:
			f.comprs = append(f.comprs, &comprFrame{kind: OpSetComprBegin, set: ast.NewSet()})
			f.pc++
		case OpSetComprPush:
			cf := f.comprs[len(f.comprs)-1]
			cf.set.Add(m.reg(f, instr.B))
			f.pc++
		case OpSetComprEnd:
			cf := f.comprs[len(f.comprs)-1]
			f.comprs = f.comprs[:len(f.comprs)-1]
			m.setReg(f, instr.A, &ast.Term{Value: cf.set})
			f.pc++
		case OpObjectComprBegin:
			f.comprs = append(f.comprs, &comprFrame{kind: OpObjectComprBegin, obj: ast.Object{}})
			f.pc++
		case OpObjectComprInsert:
			cf := f.comprs[len(f.comprs)-1]
			cf.obj = append(cf.obj, [2]*ast.Term{m.reg(f, instr.B), m.reg(f, instr.C)})
			f.pc++
		case OpObjectComprEnd:
			cf := f.comprs[len(f.comprs)-1]
			f.comprs = f.comprs[:len(f.comprs)-1]
			m.setReg(f, instr.A, &ast.Term{Value: cf.obj})
			f.pc++

		case OpCallBuiltin:
			name := ast.Var(m.Prog.Strings[instr.Aux])
			fn, ok := topdown.LookupBuiltinFunc(name)
			if !ok {
				return nil, topdownError(topdown.InternalErr, nil, "vm: unsupported built-in %v", name)
			}
			args := make([]*ast.Term, int(instr.C))
			undefined := false
			for i := range args {
				args[i] = m.reg(f, instr.B+Reg(i))
				if args[i] == nil {
					undefined = true
				}
			}
			if undefined {
				m.setReg(f, instr.A, nil)
				f.pc++
				continue
			}
			v, err := fn(topdown.BuiltinContext{}, args)
			if err != nil {
				return nil, err
			}
			m.setReg(f, instr.A, v)
			f.pc++

		case OpCallFunction, OpCallRule:
			name := m.Prog.Strings[instr.Aux]
			table := m.Prog.FuncTable
			if instr.Op == OpCallRule {
				table = m.Prog.RulesTable
			}
			entry, ok := table[name]
			if !ok {
				return nil, topdownError(topdown.InternalErr, nil, "vm: undefined %v", name)
			}
			args := make([]*ast.Term, int(instr.C))
			for i := range args {
				args[i] = m.reg(f, instr.B+Reg(i))
			}
			f.pc++
			if err := m.enterFrame(); err != nil {
				return nil, err
			}
			child := m.newFrame(entry, args, f, instr.A)
			m.frame = child
			f = child

		case OpVirtualDataDocumentLookup:
			key := m.Prog.Strings[instr.Aux]
			if entry, ok := m.Prog.RulesTable[key]; ok {
				f.pc++
				if err := m.enterFrame(); err != nil {
					return nil, err
				}
				child := m.newFrame(entry, nil, f, instr.A)
				m.frame = child
				f = child
				continue
			}
			m.setReg(f, instr.A, indexPath(m.Data, key))
			f.pc++

		case OpHostAwait:
			kind := m.reg(f, instr.B)
			key := m.reg(f, instr.C)
			if resolve == nil {
				return nil, &Suspension{Kind: kind, Key: key, vm: m, frame: f, destReg: instr.A}
			}
			v, err := resolve(kind, key)
			if err != nil {
				return nil, topdownError(topdown.HostAwaitErr, nil, "host await: %v", err)
			}
			m.setReg(f, instr.A, v)
			f.pc++

		default:
			return nil, topdownError(topdown.InternalErr, nil, "vm: unimplemented opcode %v", instr.Op)
		}
	}
}

// loopBodyStart finds the pc right after the LoopBegin that the LoopNext at
// nextPC belongs to, by scanning back for the nearest unmatched LoopBegin.
// Loop bodies are always compiled directly between their LoopBegin and
// LoopNext, so the body start is simply LoopBegin's own pc+1.
func loopBodyStart(prog *Program, loopNextPC int) int {
	depth := 0
	for pc := loopNextPC - 1; pc >= 0; pc-- {
		switch prog.Instructions[pc].Op {
		case OpLoopNext:
			depth++
		case OpLoopBegin:
			if depth == 0 {
				return pc + 1
			}
			depth--
		}
	}
	return 0
}

func (m *Machine) binOp(op Opcode, a, b *ast.Term) (*ast.Term, error) {
	name, ok := opBuiltinName[op]
	if !ok {
		return nil, topdownError(topdown.InternalErr, nil, "vm: no builtin for opcode %v", op)
	}
	fn, ok := topdown.LookupBuiltinFunc(name)
	if !ok {
		return nil, topdownError(topdown.InternalErr, nil, "vm: builtin %v not registered", name)
	}
	return fn(topdown.BuiltinContext{}, []*ast.Term{a, b})
}

var opBuiltinName = map[Opcode]ast.Var{
	OpAdd: ast.Plus.Name, OpSub: ast.Minus.Name, OpMul: ast.Multiply.Name,
	OpDiv: ast.Divide.Name, OpMod: ast.Rem.Name,
	OpEq: ast.Equal.Name, OpNe: ast.NotEqual.Name,
	OpLt: ast.LessThan.Name, OpLe: ast.LessThanEq.Name,
	OpGt: ast.GreaterThan.Name, OpGe: ast.GreaterThanEq.Name,
	OpAnd: ast.And.Name, OpOr: ast.Or.Name,
}

// materialize enumerates a collection's (key, value) pairs for LoopBegin /
// SomeIn. An undefined collection simply iterates zero times, the same as
// topdown.iterate walking an unbound ref: it is not a type error, it just
// contributes no solutions.
func materialize(t *ast.Term) ([]kv, error) {
	if t == nil {
		return nil, nil
	}
	switch v := t.Value.(type) {
	case ast.Array:
		out := make([]kv, len(v))
		for i, e := range v {
			out[i] = kv{ast.IntNumberTerm(int64(i)), e}
		}
		return out, nil
	case *ast.Set:
		var out []kv
		v.Foreach(func(x *ast.Term) { out = append(out, kv{x, x}) })
		return out, nil
	case ast.Object:
		out := make([]kv, len(v))
		for i, pair := range v {
			out[i] = kv{pair[0], pair[1]}
		}
		return out, nil
	default:
		return nil, topdownError(topdown.TypeErr, nil, "vm: iteration over non-collection value")
	}
}

func indexGet(base, idx *ast.Term) *ast.Term {
	if base == nil || idx == nil {
		return nil
	}
	switch v := base.Value.(type) {
	case ast.Object:
		return v.Get(idx)
	case ast.Array:
		n, ok := idx.Value.(ast.Number)
		if !ok {
			return nil
		}
		i, ok := n.Int64()
		if !ok || i < 0 || int(i) >= len(v) {
			return nil
		}
		return v[i]
	case *ast.Set:
		if v.Contains(idx) {
			return idx
		}
		return nil
	default:
		return nil
	}
}

// indexPath walks a dotted path key (the suffix of a data ref that did not
// match any compiled rule document) directly into the literal data tree.
func indexPath(data *ast.Term, key string) *ast.Term {
	cur := data
	start := 0
	for i := 0; i <= len(key); i++ {
		if i == len(key) || key[i] == '.' {
			if i > start {
				cur = indexGet(cur, ast.StringTerm(key[start:i]))
				if cur == nil {
					return nil
				}
			}
			start = i + 1
		}
	}
	return cur
}

func topdownError(code topdown.Code, loc *ast.Location, format string, a ...interface{}) *topdown.Error {
	return &topdown.Error{Code: code, Location: loc, Message: fmt.Sprintf(format, a...)}
}
