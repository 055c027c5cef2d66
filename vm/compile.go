// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package vm

import (
	"fmt"

	"github.com/regorus-go/regorus/ast"
	"github.com/regorus-go/regorus/scheduler"
)

// Program is a compiled unit: a flat instruction stream shared by every
// compiled rule/function/query, plus the tables needed to resolve a call by
// name at CallRule/CallFunction/CallBuiltin time. Grounded on
// internal/ir.Policy's Plans/Funcs/Static split, flattened onto one shared
// instruction array instead of a tree of named blocks.
type Program struct {
	Instructions []Instr
	Constants    []*ast.Term
	Strings      []string // Aux indexes into this for VirtualDataDocumentLookup/CallFunction/CallBuiltin names

	RulesTable  map[string]int // document path key -> entry pc
	FuncTable   map[string]int // function key -> entry pc
	EntryPoints []string       // named query entry points (compile_program argument)

	FrameSize  map[int]int               // entry pc -> register count needed for that frame
	QueryVars  map[string]map[ast.Var]Reg // query name -> free var -> register, for result readback

	// FeatureFlags records, per built-in group or language feature, that the
	// program depends on it (see MarkFeature); Decode checks those entries
	// against the build's knownFeatures to report
	// is_partial (spec.md §4.7 "Serialization").
	FeatureFlags map[string]bool
}

// Compiler lowers a scheduled ast.Body (or a rule's head+body) into
// instructions appended to a shared Program. One Compiler produces one
// Program; call CompileRule/CompileFunction/CompileQuery repeatedly, then
// take Program().
type Compiler struct {
	prog *Program

	next       Reg
	vars       map[ast.Var]Reg
	constIndex map[string]int
	strIndex   map[string]int

	// failScopes is a stack of pending-jump-site lists: every
	// AssertCondition (or empty-domain `some`/LoopAny) compiled while a
	// scope is on top records its pc here instead of a resolved target,
	// because the target (the next rule alternative, or the enclosing
	// every-loop's body-failed marker) is only known once compilation
	// reaches that point. patchFailScope backfills them.
	failScopes []*failScope
}

type failScope struct {
	sites []int
}

func (c *Compiler) pushFailScope() {
	c.failScopes = append(c.failScopes, &failScope{})
}

func (c *Compiler) popFailScope() *failScope {
	n := len(c.failScopes) - 1
	s := c.failScopes[n]
	c.failScopes = c.failScopes[:n]
	return s
}

func (c *Compiler) recordFail(pc int) {
	s := c.failScopes[len(c.failScopes)-1]
	s.sites = append(s.sites, pc)
}

func (c *Compiler) patchFailScope(s *failScope, target int) {
	for _, pc := range s.sites {
		c.prog.Instructions[pc].Aux = target
	}
}

// NewCompiler returns a Compiler with an empty Program.
func NewCompiler() *Compiler {
	return &Compiler{
		prog: &Program{
			RulesTable:   map[string]int{},
			FuncTable:    map[string]int{},
			FrameSize:    map[int]int{},
			FeatureFlags: map[string]bool{},
		},
		constIndex: map[string]int{},
		strIndex:   map[string]int{},
	}
}

// Program returns the Program built so far.
func (c *Compiler) Program() *Program { return c.prog }

func (c *Compiler) resetFrame() {
	c.next = 0
	c.vars = map[ast.Var]Reg{}
}

func (c *Compiler) allocReg() Reg {
	r := c.next
	c.next++
	return r
}

func (c *Compiler) emit(op Opcode, a, b, c_ Reg) int {
	c.prog.Instructions = append(c.prog.Instructions, Instr{Op: op, A: a, B: b, C: c_})
	return len(c.prog.Instructions) - 1
}

func (c *Compiler) emitAux(op Opcode, a, b, cc Reg, aux int) int {
	c.prog.Instructions = append(c.prog.Instructions, Instr{Op: op, A: a, B: b, C: cc, Aux: aux})
	return len(c.prog.Instructions) - 1
}

// emitLoopBegin stores the loop mode in Const (Aux is reserved for the
// end-of-loop pc, patched in once known).
func (c *Compiler) emitLoopBegin(keyReg, valReg, domain Reg, mode LoopMode) int {
	c.prog.Instructions = append(c.prog.Instructions, Instr{Op: OpLoopBegin, A: keyReg, B: valReg, C: domain, Const: int(mode)})
	return len(c.prog.Instructions) - 1
}

func (c *Compiler) constant(t *ast.Term) int {
	key := t.String()
	if i, ok := c.constIndex[key]; ok {
		return i
	}
	i := len(c.prog.Constants)
	c.prog.Constants = append(c.prog.Constants, t)
	c.constIndex[key] = i
	return i
}

func (c *Compiler) str(s string) int {
	if i, ok := c.strIndex[s]; ok {
		return i
	}
	i := len(c.prog.Strings)
	c.prog.Strings = append(c.prog.Strings, s)
	c.strIndex[s] = i
	return i
}

// patch backfills a jump instruction's Aux (target pc) once the target is
// known.
func (c *Compiler) patch(pc int, target int) {
	c.prog.Instructions[pc].Aux = target
}

func (c *Compiler) here() int { return len(c.prog.Instructions) }

// varReg returns the register holding v, allocating an uninitialized one on
// first reference (the reference will be that var's first binding site, per
// scheduler ordering guarantees).
func (c *Compiler) varReg(v ast.Var) Reg {
	if r, ok := c.vars[v]; ok {
		return r
	}
	r := c.allocReg()
	c.vars[v] = r
	return r
}

// CompileQuery schedules and compiles a top-level query body, returning its
// entry pc. The compiled code ends with Halt; AssertCondition failures
// simply fall through to Halt without a Return (a query's solutions are
// read back from the registers named by its free variables, recorded in
// QueryVars).
func (c *Compiler) CompileQuery(name string, body ast.Body) (int, error) {
	c.resetFrame()
	scheduled, err := scheduler.Schedule(body, ast.VarSet{})
	if err != nil {
		return 0, err
	}
	entry := c.here()
	c.pushFailScope()
	if err := c.compileBody(scheduled); err != nil {
		return 0, err
	}
	success := c.allocReg()
	c.emit(OpLoadTrue, success, 0, 0)
	c.emit(OpReturn, success, 0, 0)
	scope := c.popFailScope()
	final := c.emit(OpHalt, 0, 0, 0)
	c.patchFailScope(scope, final)

	c.prog.FrameSize[entry] = int(c.next)
	c.prog.EntryPoints = append(c.prog.EntryPoints, name)
	c.prog.RulesTable[name] = entry
	if c.prog.QueryVars == nil {
		c.prog.QueryVars = map[string]map[ast.Var]Reg{}
	}
	vars := map[ast.Var]Reg{}
	for v := range body.Vars() {
		if v.IsWildcard() {
			continue
		}
		if r, ok := c.vars[v]; ok {
			vars[v] = r
		}
	}
	c.prog.QueryVars[name] = vars
	return entry, nil
}

// CompileRule compiles one document-path's rule group (every rule sharing a
// path is compiled as one entry that tries each definition/else-chain in
// turn, mirroring topdown.evalComplete/evalPartialSet/evalPartialObject's
// try-in-order semantics but as straight-line jumps instead of recursion).
func (c *Compiler) CompileRule(pathKey string, rules []*ast.Rule) (int, error) {
	entry := c.here()
	var scopes []*failScope
	var starts []int
	for _, rule := range rules {
		for r := rule; r != nil; r = r.Else {
			starts = append(starts, c.here())
			c.resetFrame()
			c.pushFailScope()
			scheduled, err := scheduler.Schedule(r.Body, ast.VarSet{})
			if err != nil {
				return 0, err
			}
			if err := c.compileBody(scheduled); err != nil {
				return 0, err
			}
			dest := c.allocReg()
			if r.Head.Value != nil {
				vr, err := c.compileTerm(r.Head.Value)
				if err != nil {
					return 0, err
				}
				c.emit(OpMove, dest, vr, 0)
			} else {
				c.emit(OpLoadTrue, dest, 0, 0)
			}
			c.emit(OpReturn, dest, 0, 0)
			c.prog.FrameSize[starts[len(starts)-1]] = int(c.next)
			scopes = append(scopes, c.popFailScope())
		}
	}
	final := c.emit(OpHalt, 0, 0, 0)
	for i, s := range scopes {
		target := final
		if i+1 < len(starts) {
			target = starts[i+1]
		}
		c.patchFailScope(s, target)
	}
	c.prog.RulesTable[pathKey] = entry
	return entry, nil
}

// CompileFunction compiles a function rule group the same way CompileRule
// does, except the entry's frame reserves the first len(Args) registers for
// the caller-supplied argument window (CallFunction's argBase convention).
func (c *Compiler) CompileFunction(key string, rules []*ast.Rule) (int, error) {
	entry := c.here()
	var scopes []*failScope
	var starts []int
	for _, rule := range rules {
		for r := rule; r != nil; r = r.Else {
			starts = append(starts, c.here())
			c.resetFrame()
			c.pushFailScope()
			for _, a := range r.Head.Args {
				if v, ok := a.Value.(ast.Var); ok {
					c.vars[v] = c.allocReg()
				} else {
					c.allocReg()
				}
			}
			scheduled, err := scheduler.Schedule(r.Body, ast.VarSet{})
			if err != nil {
				return 0, err
			}
			if err := c.compileBody(scheduled); err != nil {
				return 0, err
			}
			dest := c.allocReg()
			if r.Head.Value != nil {
				vr, err := c.compileTerm(r.Head.Value)
				if err != nil {
					return 0, err
				}
				c.emit(OpMove, dest, vr, 0)
			} else {
				c.emit(OpLoadTrue, dest, 0, 0)
			}
			c.emit(OpReturn, dest, 0, 0)
			c.prog.FrameSize[starts[len(starts)-1]] = int(c.next)
			scopes = append(scopes, c.popFailScope())
		}
	}
	final := c.emit(OpHalt, 0, 0, 0)
	for i, s := range scopes {
		target := final
		if i+1 < len(starts) {
			target = starts[i+1]
		}
		c.patchFailScope(s, target)
	}
	c.prog.FuncTable[key] = entry
	return entry, nil
}

func (c *Compiler) compileBody(body ast.Body) error {
	for _, expr := range body {
		if err := c.compileExpr(expr); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileExpr(expr *ast.Expr) error {
	if len(expr.With) > 0 {
		return fmt.Errorf("vm: `with` modifiers are not compiled; evaluate this query through topdown instead")
	}
	switch {
	case expr.Some != nil:
		return c.compileSome(expr.Some)
	case expr.Every != nil:
		return c.compileEvery(expr.Every)
	case expr.Negated:
		return c.compileNegated(expr)
	default:
		return c.compileStatement(expr)
	}
}

func (c *Compiler) compileNegated(expr *ast.Expr) error {
	plain := expr.Complement()
	plain.Negated = false
	r, err := c.compileBoolean(plain)
	if err != nil {
		return err
	}
	neg := c.allocReg()
	c.emit(OpNot, neg, r, 0)
	c.assert(neg)
	return nil
}

// assert emits AssertCondition with an unresolved (-1) failure target and
// records the site so the enclosing failScope can backfill it once the
// jump destination (next rule alternative, or the every-loop's
// body-failed marker) is known.
func (c *Compiler) assert(cond Reg) {
	pc := c.emitAux(OpAssertCondition, cond, 0, 0, -1)
	c.recordFail(pc)
}

// compileStatement lowers one non-negated, non-some/every statement: either
// a bind/compare (handled specially so unbound variables become register
// aliases instead of round-tripping through a runtime Eq) or a general
// boolean condition asserted true.
func (c *Compiler) compileStatement(expr *ast.Expr) error {
	if expr.IsEquality() {
		return c.compileEquality(expr)
	}
	r, err := c.compileBoolean(expr)
	if err != nil {
		return err
	}
	c.assert(r)
	return nil
}

func (c *Compiler) compileEquality(expr *ast.Expr) error {
	ts := expr.Terms.([]*ast.Term)
	lhs, rhs := ts[1], ts[2]
	if v, ok := lhs.Value.(ast.Var); ok {
		if _, bound := c.vars[v]; !bound {
			rr, err := c.compileTerm(rhs)
			if err != nil {
				return err
			}
			c.vars[v] = rr
			return nil
		}
	}
	if !expr.IsAssignment() {
		if v, ok := rhs.Value.(ast.Var); ok {
			if _, bound := c.vars[v]; !bound {
				lr, err := c.compileTerm(lhs)
				if err != nil {
					return err
				}
				c.vars[v] = lr
				return nil
			}
		}
	}
	lr, err := c.compileTerm(lhs)
	if err != nil {
		return err
	}
	rr, err := c.compileTerm(rhs)
	if err != nil {
		return err
	}
	dest := c.allocReg()
	c.emit(OpEq, dest, lr, rr)
	c.assert(dest)
	return nil
}

// compileBoolean compiles expr as a value-producing expression (rather than
// a binding statement) and returns the register holding its truth value.
func (c *Compiler) compileBoolean(expr *ast.Expr) (Reg, error) {
	switch ts := expr.Terms.(type) {
	case *ast.Term:
		return c.compileTerm(ts)
	case []*ast.Term:
		return c.compileCallTerms(ts)
	default:
		return 0, fmt.Errorf("vm: malformed expression")
	}
}

// compileSome handles `some x[, y]` (a bare declaration, nothing to emit:
// the var gets a register lazily on first real use) and `some k, v in xs`.
// The latter is compiled as a single membership test that binds the FIRST
// matching element rather than a full backtracking generator: correctly
// compiling `some ... in` as a generator feeding the rest of the body would
// need general choice-point/backtracking support over a fixed register
// file, which this flat bytecode machine does not implement (documented
// scope limit — topdown remains the reference for multi-solution `some`).
func (c *Compiler) compileSome(s *ast.SomeDecl) error {
	if s.Domain == nil {
		return nil
	}
	domain, err := c.compileTerm(s.Domain)
	if err != nil {
		return err
	}
	keyReg := c.allocReg()
	valReg := c.allocReg()
	if s.Key != nil {
		if v, ok := s.Key.Value.(ast.Var); ok {
			c.vars[v] = keyReg
		}
	}
	if v, ok := s.Value.Value.(ast.Var); ok {
		c.vars[v] = valReg
	}
	pc := c.emitAux(OpSomeIn, keyReg, valReg, domain, -1)
	c.recordFail(pc)
	return nil
}

func (c *Compiler) compileEvery(ev *ast.EveryDecl) error {
	domain, err := c.compileTerm(ev.Domain)
	if err != nil {
		return err
	}
	keyReg := c.allocReg()
	valReg := c.allocReg()
	if ev.Key != nil {
		if v, ok := ev.Key.Value.(ast.Var); ok {
			c.vars[v] = keyReg
		}
	}
	if v, ok := ev.Value.Value.(ast.Var); ok {
		c.vars[v] = valReg
	}
	okReg := c.allocReg()
	c.emit(OpLoadTrue, okReg, 0, 0)
	begin := c.emitLoopBegin(keyReg, valReg, domain, LoopEvery)
	scheduled, err := scheduler.Schedule(ev.Body, ast.VarSet{})
	if err != nil {
		return err
	}
	c.pushFailScope()
	if err := c.compileBody(scheduled); err != nil {
		return err
	}
	scope := c.popFailScope()
	successJump := c.emitAux(OpJump, 0, 0, 0, -1)
	failMarker := c.here()
	c.emit(OpLoopBodyFail, okReg, 0, 0)
	afterFail := c.here()
	c.patch(successJump, afterFail)
	c.patchFailScope(scope, failMarker)
	c.emit(OpLoopNext, keyReg, valReg, domain)
	end := c.emit(OpLoopEnd, 0, 0, 0)
	c.patch(begin, end)
	// An every that failed on any element is false overall; one that never
	// failed (including over an empty domain) asserts true and falls
	// through, matching the vacuous-truth rule for `every` over nothing.
	c.assert(okReg)
	return nil
}

// compileTerm lowers a term to the register holding its value, recursing
// into composite/call/comprehension structure.
func (c *Compiler) compileTerm(t *ast.Term) (Reg, error) {
	switch v := t.Value.(type) {
	case ast.Null:
		r := c.allocReg()
		c.emit(OpLoadNull, r, 0, 0)
		return r, nil
	case ast.Boolean:
		r := c.allocReg()
		if v {
			c.emit(OpLoadTrue, r, 0, 0)
		} else {
			c.emit(OpLoadFalse, r, 0, 0)
		}
		return r, nil
	case ast.Number, ast.String:
		r := c.allocReg()
		c.emitAux(OpLoadConst, r, 0, 0, c.constant(t))
		return r, nil
	case ast.Var:
		return c.varReg(v), nil
	case ast.Ref:
		return c.compileRef(v)
	case ast.Call:
		return c.compileCallTerms([]*ast.Term(v))
	case ast.Array:
		r := c.allocReg()
		c.emit(OpArrayCreate, r, 0, 0)
		for _, elem := range v {
			er, err := c.compileTerm(elem)
			if err != nil {
				return 0, err
			}
			c.emit(OpArrayPush, r, er, 0)
		}
		return r, nil
	case ast.Object:
		r := c.allocReg()
		c.emit(OpObjectCreate, r, 0, 0)
		for _, pair := range v {
			kr, err := c.compileTerm(pair[0])
			if err != nil {
				return 0, err
			}
			vr, err := c.compileTerm(pair[1])
			if err != nil {
				return 0, err
			}
			c.emit(OpObjectInsert, r, kr, vr)
		}
		return r, nil
	case *ast.Set:
		r := c.allocReg()
		c.emit(OpSetCreate, r, 0, 0)
		var err error
		v.Foreach(func(x *ast.Term) {
			if err != nil {
				return
			}
			var er Reg
			er, err = c.compileTerm(x)
			if err == nil {
				c.emit(OpSetInsert, r, er, 0)
			}
		})
		if err != nil {
			return 0, err
		}
		return r, nil
	case *ast.ArrayComprehension:
		return c.compileCompr(OpArrayComprBegin, OpArrayComprPush, OpArrayComprEnd, v.Body, nil, v.Term)
	case *ast.SetComprehension:
		return c.compileCompr(OpSetComprBegin, OpSetComprPush, OpSetComprEnd, v.Body, nil, v.Term)
	case *ast.ObjectComprehension:
		return c.compileCompr(OpObjectComprBegin, OpObjectComprInsert, OpObjectComprEnd, v.Body, v.Key, v.Value)
	default:
		return 0, fmt.Errorf("vm: cannot compile term of type %T", v)
	}
}

// compileCompr lowers any of the three comprehension shapes: begin an
// accumulator, compile the (freshly scheduled) body inline so its bindings
// land in this frame's registers, push/insert once per solution, end.
// keyTerm is non-nil only for object comprehensions.
func (c *Compiler) compileCompr(begin, push, end Opcode, body ast.Body, keyTerm, valTerm *ast.Term) (Reg, error) {
	dest := c.allocReg()
	c.emit(begin, dest, 0, 0)
	declared := ast.VarSet{}
	for v := range c.vars {
		declared.Add(v)
	}
	scheduled, err := scheduler.Schedule(body, declared)
	if err != nil {
		return 0, err
	}
	if err := c.compileBody(scheduled); err != nil {
		return 0, err
	}
	if keyTerm != nil {
		kr, err := c.compileTerm(keyTerm)
		if err != nil {
			return 0, err
		}
		vr, err := c.compileTerm(valTerm)
		if err != nil {
			return 0, err
		}
		c.emit(push, dest, kr, vr)
	} else {
		vr, err := c.compileTerm(valTerm)
		if err != nil {
			return 0, err
		}
		c.emit(push, dest, vr, 0)
	}
	c.emit(end, dest, 0, 0)
	return dest, nil
}

// compileRef lowers a ref term. `input`-rooted refs load the input document
// and walk it with IndexGet; `data`-rooted refs are resolved against
// RulesTable by longest ground prefix (mirroring
// topdown.evalDataRef's greedy-prefix strategy) via
// VirtualDataDocumentLookup, falling back to LoadData+IndexGet for the
// parts of the tree that are not a registered rule document.
func (c *Compiler) compileRef(ref ast.Ref) (Reg, error) {
	root, ok := ref[0].Value.(ast.Var)
	if !ok {
		base, err := c.compileTerm(ref[0])
		if err != nil {
			return 0, err
		}
		return c.compileIndexChain(base, ref[1:])
	}
	switch root {
	case ast.InputRootDocument.Value.(ast.Var):
		base := c.allocReg()
		c.emit(OpLoadInput, base, 0, 0)
		return c.compileIndexChain(base, ref[1:])
	case ast.DefaultRootDocument.Value.(ast.Var):
		for n := len(ref); n >= 1; n-- {
			prefix := ref[:n]
			if !prefix.IsGround() {
				continue
			}
			key := pathKeyOf(prefix)
			dest := c.allocReg()
			c.emitAux(OpVirtualDataDocumentLookup, dest, 0, 0, c.str(key))
			return c.compileIndexChain(dest, ref[n:])
		}
		base := c.allocReg()
		c.emit(OpLoadData, base, 0, 0)
		return c.compileIndexChain(base, ref[1:])
	default:
		return c.compileIndexChain(c.varReg(root), ref[1:])
	}
}

func (c *Compiler) compileIndexChain(base Reg, rest ast.Ref) (Reg, error) {
	cur := base
	for _, t := range rest {
		ir, err := c.compileTerm(t)
		if err != nil {
			return 0, err
		}
		next := c.allocReg()
		c.emit(OpIndexGet, next, cur, ir)
		cur = next
	}
	return cur, nil
}

// compileCallTerms lowers a call (either a statement's Terms slice or a
// nested ast.Call's elements) to the register holding its result. Core
// arithmetic/comparison/logic operators compile to their dedicated opcode;
// everything else goes through CallBuiltin or CallFunction with a
// contiguous argument register window.
func (c *Compiler) compileCallTerms(ts []*ast.Term) (Reg, error) {
	name := callName(ts[0])
	operands := ts[1:]

	if op, ok := coreOps[name]; ok && len(operands) >= 2 {
		lr, err := c.compileTerm(operands[0])
		if err != nil {
			return 0, err
		}
		rr, err := c.compileTerm(operands[1])
		if err != nil {
			return 0, err
		}
		dest := c.allocReg()
		c.emit(op, dest, lr, rr)
		if len(operands) == 3 {
			if v, ok := operands[2].Value.(ast.Var); ok {
				c.vars[v] = dest
			}
		}
		return dest, nil
	}

	regs := make([]Reg, len(operands))
	for i, operand := range operands {
		r, err := c.compileTerm(operand)
		if err != nil {
			return 0, err
		}
		regs[i] = r
	}
	argBase := c.next
	for _, r := range regs {
		cp := c.allocReg()
		c.emit(OpMove, cp, r, 0)
	}
	argc := len(operands)
	dest := c.allocReg()
	if b, ok := ast.BuiltinMap[name]; ok {
		c.emitAux(OpCallBuiltin, dest, argBase, Reg(argc), c.str(string(b.Name)))
	} else {
		c.emitAux(OpCallFunction, dest, argBase, Reg(argc), c.str(string(name)))
	}
	return dest, nil
}

var coreOps = map[ast.Var]Opcode{
	ast.Plus.Name:     OpAdd,
	ast.Minus.Name:    OpSub,
	ast.Multiply.Name: OpMul,
	ast.Divide.Name:   OpDiv,
	ast.Rem.Name:      OpMod,
	ast.Equal.Name:    OpEq,
	ast.NotEqual.Name: OpNe,
	ast.LessThan.Name: OpLt,
	ast.LessThanEq.Name: OpLe,
	ast.GreaterThan.Name: OpGt,
	ast.GreaterThanEq.Name: OpGe,
	ast.And.Name: OpAnd,
	ast.Or.Name:  OpOr,
}

func callName(t *ast.Term) ast.Var {
	switch v := t.Value.(type) {
	case ast.Var:
		return v
	case ast.Ref:
		return ast.Var(pathKeyOf(v))
	}
	return ""
}

func pathKeyOf(ref ast.Ref) string {
	s := ""
	for i, t := range ref {
		if i > 0 {
			s += "."
		}
		if str, ok := t.Value.(ast.String); ok {
			s += string(str)
		} else {
			s += t.String()
		}
	}
	return s
}
