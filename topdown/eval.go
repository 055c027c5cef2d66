// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package topdown evaluates scheduled Rego bodies against a document tree.
// It replaces the recursive eval/next continuation style of a bytecode VM
// with a tree-walking interpreter: statements are walked directly, rule
// documents are resolved and cached on demand, and `with` modifiers push a
// dynamically-scoped override for the duration of one statement.
package topdown

import (
	"strings"

	"github.com/regorus-go/regorus/ast"
	"github.com/regorus-go/regorus/internal/instrumentation"
	"github.com/regorus-go/regorus/logging"
	"github.com/regorus-go/regorus/scheduler"
)

// cont is the success continuation a statement walk invokes once per
// solution found. Returning a non-nil error aborts the whole search (used
// for real errors, not for "no more solutions").
type cont func() error

// ruleGroup is every rule definition (including its own else-chain) sharing
// one document path.
type ruleGroup struct {
	path  ast.Ref
	rules []*ast.Rule
}

// override is one entry of the dynamically-scoped stack a `with` modifier
// pushes for the duration of the statement it qualifies.
type override struct {
	path ast.Ref // nil for a builtin-function override
	name ast.Var // non-empty for a builtin-function override
	term *ast.Term
	fn   BuiltinFunc
}

// Interpreter evaluates queries against a fixed set of modules and an
// in-memory data/input document pair. Unlike the teacher's plugin-backed
// storage layer, data and input here are held directly as *ast.Term values:
// spec.md has no persistence module, so there is nothing for a storage
// abstraction to front.
type Interpreter struct {
	groups map[string]*ruleGroup
	data   *ast.Term
	input  *ast.Term

	cache     *ruleCache
	Tracer    Tracer
	prints    *prints
	budget    *budget
	counters  *instrumentation.Counters
	Strict    bool
	overrides []override
	log       logging.Logger
}

// NewInterpreter builds an Interpreter from a module set and the initial
// data/input documents. Modules should already have passed
// ast.NewAnalyzer(modules, nil).Analyze() with no errors.
func NewInterpreter(modules []*ast.Module, data, input *ast.Term, limits Limits) *Interpreter {
	if data == nil {
		data = &ast.Term{Value: ast.Object{}}
	}
	if input == nil {
		input = &ast.Term{Value: ast.Object{}}
	}
	counters := instrumentation.NewCounters()
	ip := &Interpreter{
		groups:   map[string]*ruleGroup{},
		data:     data,
		input:    input,
		cache:    newRuleCache(),
		prints:   &prints{},
		budget:   newBudget(limits, counters),
		counters: counters,
		log:      logging.NewStandardLogger(),
	}
	for _, mod := range modules {
		for _, rule := range mod.Rules {
			rule.Module = mod
			path := rulePath(mod, rule)
			key := pathKey(path)
			g := ip.groups[key]
			if g == nil {
				g = &ruleGroup{path: path}
				ip.groups[key] = g
			}
			g.rules = append(g.rules, rule)
		}
	}
	return ip
}

// SetData replaces the data document wholesale and clears the rule cache.
// The rego Engine does not call it: its data operations rebuild the
// interpreter instead.
func (ip *Interpreter) SetData(data *ast.Term) {
	ip.data = data
	ip.cache.invalidate()
}

// SetInput replaces the transient input document.
func (ip *Interpreter) SetInput(input *ast.Term) {
	ip.input = input
	ip.cache.invalidate()
}

// TakePrints drains and returns every message captured by print() calls
// since the last call to TakePrints.
func (ip *Interpreter) TakePrints() []string { return ip.prints.take() }

// SetGatherPrints toggles whether print() calls are captured at all.
func (ip *Interpreter) SetGatherPrints(on bool) { ip.prints.gather = on }

// SetPrintHook installs a sink that receives every print() call live, in
// addition to (or instead of) the gathered buffer.
func (ip *Interpreter) SetPrintHook(hook PrintHook) { ip.prints.hook = hook }

func rulePath(mod *ast.Module, rule *ast.Rule) ast.Ref {
	return append(append(ast.Ref{}, mod.Package.Path...), ast.StringTerm(string(rule.Head.Name)))
}

func pathKey(ref ast.Ref) string {
	parts := make([]string, 0, len(ref))
	for _, t := range ref {
		if s, ok := t.Value.(ast.String); ok {
			parts = append(parts, string(s))
		} else {
			parts = append(parts, t.String())
		}
	}
	return strings.Join(parts, ".")
}

// EvalQuery schedules and evaluates a top-level query body, returning the
// bindings of every free variable in body for each solution found.
func (ip *Interpreter) EvalQuery(body ast.Body) ([]map[ast.Var]*ast.Term, error) {
	declared := ast.VarSet{}
	scheduled, err := scheduler.Schedule(body, declared)
	if err != nil {
		return nil, err
	}
	vars := body.Vars()

	var results []map[ast.Var]*ast.Term
	e := newEnv()
	err = ip.evalBody(scheduled, e, func() error {
		soln := make(map[ast.Var]*ast.Term, len(vars))
		for v := range vars {
			if v.IsWildcard() {
				continue
			}
			if bound, ok := e.get(v); ok {
				soln[v] = e.plug(bound)
			}
		}
		results = append(results, soln)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ExpressionResult is the value spec.md §4.8's query output format reports
// for one source expression of a query: {text, value, location}.
type ExpressionResult struct {
	Text     string
	Value    *ast.Term
	Location *ast.Location
}

// QueryResult is one row of spec.md §4.8's "ordered list of bindings",
// pairing the free-variable bindings of one solution with the per-source-
// expression values that produced it.
type QueryResult struct {
	Bindings    map[ast.Var]*ast.Term
	Expressions []ExpressionResult
}

// EvalQueryExpressions is EvalQuery plus, for each solution, the resolved
// value of every top-level expression in source order. rego.Engine's
// eval_query builds its {expression-text, value, location} rows from this
// rather than re-deriving them, since only the interpreter holds the env
// needed to plug a solution's bindings into each expression.
func (ip *Interpreter) EvalQueryExpressions(body ast.Body) ([]QueryResult, error) {
	declared := ast.VarSet{}
	scheduled, err := scheduler.Schedule(body, declared)
	if err != nil {
		return nil, err
	}
	vars := body.Vars()

	var results []QueryResult
	e := newEnv()
	err = ip.evalBody(scheduled, e, func() error {
		bindings := make(map[ast.Var]*ast.Term, len(vars))
		for v := range vars {
			if v.IsWildcard() {
				continue
			}
			if bound, ok := e.get(v); ok {
				bindings[v] = e.plug(bound)
			}
		}
		exprs := make([]ExpressionResult, 0, len(body))
		for _, expr := range body {
			val, err := ip.exprValue(expr, e)
			if err != nil {
				return err
			}
			text := ""
			if expr.Location != nil {
				text = string(expr.Location.Text)
			}
			exprs = append(exprs, ExpressionResult{Text: text, Value: val, Location: expr.Location})
		}
		results = append(results, QueryResult{Bindings: bindings, Expressions: exprs})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// exprValue resolves the value a satisfied expression contributes to a
// query result row: a plain term/ref resolves to its data value, while a
// negated statement or a call/comparison (equality, `>`, a function call)
// only ever conveys that it held, so it reports true the way the teacher's
// rego.ResultSet does for operator expressions.
func (ip *Interpreter) exprValue(expr *ast.Expr, e *env) (*ast.Term, error) {
	if expr.Negated {
		return ast.BooleanTerm(true), nil
	}
	switch ts := expr.Terms.(type) {
	case *ast.Term:
		v, err := ip.resolveTerm(ts, e)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return ast.BooleanTerm(true), nil
		}
		return v, nil
	default:
		return ast.BooleanTerm(true), nil
	}
}

// evalBody walks a scheduled body statement by statement, invoking k once
// per full solution. Each statement is responsible for trying every one of
// its own candidate bindings and recursing into the continuation for each;
// backtracking falls naturally out of returning after k has been tried.
func (ip *Interpreter) evalBody(body ast.Body, e *env, k cont) error {
	if err := ip.budget.step(body.Loc()); err != nil {
		return err
	}
	if len(body) == 0 {
		return k()
	}
	expr, rest := body[0], body[1:]
	ip.trace(EvalOp, expr.Location, expr.String())
	next := func() error { return ip.evalBody(rest, e, k) }
	err := ip.evalExpr(expr, e, next)
	if err != nil {
		ip.trace(FailOp, expr.Location, expr.String())
	}
	return err
}

// trace emits an Event to the installed Tracer, if any. Coverage
// collection (cover.Cover) is the primary consumer: it only needs Op and
// Location, so a nil Tracer costs nothing beyond this check.
func (ip *Interpreter) trace(op Op, loc *ast.Location, msg string) {
	if ip.Tracer == nil {
		return
	}
	ip.Tracer.Trace(&Event{Op: op, Location: loc, Message: msg})
}

func (ip *Interpreter) evalExpr(expr *ast.Expr, e *env, k cont) error {
	if len(expr.With) > 0 {
		return ip.withOverrides(expr, e, k)
	}
	if expr.Negated {
		return ip.evalNegated(expr, e, k)
	}
	switch {
	case expr.Some != nil:
		return ip.evalSome(expr.Some, e, k)
	case expr.Every != nil:
		return ip.evalEvery(expr.Every, e, k)
	default:
		return ip.evalTerms(expr, e, k)
	}
}

func (ip *Interpreter) withOverrides(expr *ast.Expr, e *env, k cont) error {
	pushed := 0
	for _, w := range expr.With {
		ov, err := ip.buildOverride(w, e)
		if err != nil {
			ip.popOverrides(pushed)
			return err
		}
		ip.overrides = append(ip.overrides, ov)
		pushed++
	}
	defer ip.popOverrides(pushed)

	bare := expr.Copy()
	bare.With = nil
	return ip.evalExpr(bare, e, k)
}

func (ip *Interpreter) popOverrides(n int) {
	ip.overrides = ip.overrides[:len(ip.overrides)-n]
}

func (ip *Interpreter) buildOverride(w *ast.With, e *env) (override, error) {
	value, err := ip.resolveTerm(w.Value, e)
	if err != nil {
		return override{}, err
	}
	if ref, ok := w.Target.Value.(ast.Ref); ok {
		key := pathKey(ref)
		if b, ok := ast.BuiltinMap[ast.Var(key)]; ok {
			return override{name: b.Name, fn: func(bctx BuiltinContext, args []*ast.Term) (*ast.Term, error) {
				return value, nil
			}}, nil
		}
		return override{path: ref, term: value}, nil
	}
	if v, ok := w.Target.Value.(ast.Var); ok {
		return override{path: ast.Ref{{Value: v}}, term: value}, nil
	}
	return override{}, newError(InternalErr, w.Location, "with: unsupported target %v", w.Target)
}

func (ip *Interpreter) lookupOverride(ref ast.Ref) (*ast.Term, bool) {
	key := pathKey(ref)
	for i := len(ip.overrides) - 1; i >= 0; i-- {
		ov := ip.overrides[i]
		if ov.path == nil {
			continue
		}
		if pathKey(ov.path) == key {
			return ov.term, true
		}
	}
	return nil, false
}

func (ip *Interpreter) lookupBuiltinOverride(name ast.Var) (BuiltinFunc, bool) {
	for i := len(ip.overrides) - 1; i >= 0; i-- {
		ov := ip.overrides[i]
		if ov.fn != nil && ov.name == name {
			return ov.fn, true
		}
	}
	return nil, false
}

// evalNegated succeeds (without binding anything) iff the complemented
// statement has no solution at all.
func (ip *Interpreter) evalNegated(expr *ast.Expr, e *env, k cont) error {
	mark := e.mark()
	found := false
	stop := &struct{ error }{}
	plain := expr.Complement()
	plain.Negated = false
	err := ip.evalExpr(plain, e, func() error {
		found = true
		return stop
	})
	e.undo(mark)
	if err != nil && err != error(stop) {
		return err
	}
	if found {
		return nil
	}
	return k()
}

// evalSome handles both shapes: bare `some x[, y]` (a declaration only,
// already floated to the front and safe by construction) and `some k, v in
// xs` (which must actually iterate the domain).
func (ip *Interpreter) evalSome(s *ast.SomeDecl, e *env, k cont) error {
	if s.Domain == nil {
		return k()
	}
	domain, err := ip.resolveTerm(s.Domain, e)
	if err != nil {
		return err
	}
	return ip.iterate(domain, func(key, val *ast.Term) error {
		mark := e.mark()
		ok := true
		if s.Key != nil {
			ok = e.unify(s.Key, key)
		}
		if ok {
			ok = e.unify(s.Value, val)
		}
		if ok {
			if err := k(); err != nil {
				e.undo(mark)
				return err
			}
		}
		e.undo(mark)
		return nil
	})
}

// evalEvery succeeds iff body holds for every element of the domain (an
// empty domain is vacuously true, per spec.md).
func (ip *Interpreter) evalEvery(ev *ast.EveryDecl, e *env, k cont) error {
	domain, err := ip.resolveTerm(ev.Domain, e)
	if err != nil {
		return err
	}
	declared := ast.VarSet{}
	if ev.Key != nil {
		declared.Update(ev.Key.Vars())
	}
	declared.Update(ev.Value.Vars())
	scheduled, err := scheduler.Schedule(ev.Body, declared)
	if err != nil {
		return err
	}

	all := true
	err = ip.iterate(domain, func(key, val *ast.Term) error {
		if !all {
			return nil
		}
		mark := e.mark()
		ok := true
		if ev.Key != nil {
			ok = e.unify(ev.Key, key)
		}
		if ok {
			ok = e.unify(ev.Value, val)
		}
		succeeded := false
		if ok {
			stop := &struct{ error }{}
			err := ip.evalBody(scheduled, e, func() error { succeeded = true; return stop })
			e.undo(mark)
			if err != nil && err != error(stop) {
				return err
			}
		} else {
			e.undo(mark)
		}
		if !succeeded {
			all = false
		}
		return nil
	})
	if err != nil {
		return err
	}
	if all {
		return k()
	}
	return nil
}

// iterate calls f once per element of a collection term (array: index/value,
// set: value/value, object: key/value).
func (ip *Interpreter) iterate(t *ast.Term, f func(key, val *ast.Term) error) error {
	switch v := t.Value.(type) {
	case ast.Array:
		for i, elem := range v {
			if err := f(ast.IntNumberTerm(int64(i)), elem); err != nil {
				return err
			}
		}
	case *ast.Set:
		var err error
		v.Foreach(func(elem *ast.Term) {
			if err == nil {
				err = f(elem, elem)
			}
		})
		return err
	case ast.Object:
		for _, pair := range v {
			if err := f(pair[0], pair[1]); err != nil {
				return err
			}
		}
	default:
		return newError(TypeErr, t.Location, "iteration over non-collection value")
	}
	return nil
}

// evalTerms dispatches a plain-term (ref/constant) statement or a
// built-in/function call statement.
func (ip *Interpreter) evalTerms(expr *ast.Expr, e *env, k cont) error {
	switch ts := expr.Terms.(type) {
	case *ast.Term:
		return ip.evalPlainTerm(ts, e, k)
	case []*ast.Term:
		return ip.evalCall(expr, ts, e, k)
	default:
		return newError(InternalErr, expr.Location, "malformed expression")
	}
}

// evalPlainTerm succeeds once per truthy solution of a bare ref/term
// statement used as a condition (e.g. `data.foo.allowed` with no
// comparison). A ref with free variables enumerates every solution; a
// ground term succeeds iff it plugs to something other than false/null/undefined.
func (ip *Interpreter) evalPlainTerm(t *ast.Term, e *env, k cont) error {
	if ref, ok := t.Value.(ast.Ref); ok {
		return ip.evalRef(ref, e, func(v *ast.Term) error {
			if isFalsy(v) {
				return nil
			}
			return k()
		})
	}
	v, err := ip.resolveTerm(t, e)
	if err != nil {
		return err
	}
	if isFalsy(v) {
		return nil
	}
	return k()
}

func isFalsy(t *ast.Term) bool {
	if t == nil {
		return true
	}
	switch v := t.Value.(type) {
	case ast.Boolean:
		return !bool(v)
	case ast.Null:
		return true
	default:
		_ = v
		return false
	}
}

// evalCall handles `=`/`:=` specially (they bind instead of returning a
// value) and otherwise splits a call's operands into inputs/targets per the
// invoked built-in or function's calling convention, then unifies the
// result (or treats it as the pass/fail verdict for target-less built-ins).
func (ip *Interpreter) evalCall(expr *ast.Expr, ts []*ast.Term, e *env, k cont) error {
	if expr.IsEquality() {
		return ip.evalEquality(expr, ts, e, k)
	}

	name := callName(ts[0])
	if b, ok := ast.BuiltinMap[name]; ok {
		return ip.evalBuiltinCall(expr, b, ts[1:], e, k)
	}
	// Not a registered built-in: treat as a call to a function rule.
	return ip.evalFunctionCall(expr, name, ts[1:], e, k)
}

func callName(t *ast.Term) ast.Var {
	switch v := t.Value.(type) {
	case ast.Var:
		return v
	case ast.Ref:
		return ast.Var(pathKey(v))
	}
	return ""
}

func (ip *Interpreter) evalEquality(expr *ast.Expr, ts []*ast.Term, e *env, k cont) error {
	lhs, rhs := ts[1], ts[2]
	assign := expr.IsAssignment()
	mark := e.mark()
	var ok bool
	if assign {
		rv, err := ip.resolveTerm(rhs, e)
		if err != nil {
			return err
		}
		ok = e.unify(lhs, rv)
	} else {
		lv, err := ip.resolveTerm(lhs, e)
		if err != nil {
			return err
		}
		rv, err := ip.resolveTerm(rhs, e)
		if err != nil {
			return err
		}
		ok = e.unify(lv, rv)
	}
	if ok {
		if err := k(); err != nil {
			e.undo(mark)
			return err
		}
	}
	e.undo(mark)
	return nil
}

func (ip *Interpreter) evalBuiltinCall(expr *ast.Expr, b *ast.Builtin, operands []*ast.Term, e *env, k cont) error {
	var inputs []*ast.Term
	var targets []*ast.Term
	for i, t := range operands {
		if b.Unifies(i) {
			targets = append(targets, t)
			continue
		}
		v, err := ip.resolveTerm(t, e)
		if err != nil {
			return err
		}
		inputs = append(inputs, v)
	}

	bctx := BuiltinContext{Location: expr.Location, Strict: ip.Strict}
	if b.Name == ast.Print.Name {
		return ip.evalPrint(bctx, inputs, k)
	}

	fn, ok := ip.lookupBuiltinOverride(b.Name)
	if !ok {
		fn, ok = lookupBuiltinFunc(b.Name)
	}
	if !ok {
		return unsupportedBuiltinErr(expr.Location, b.Name)
	}

	result, err := fn(bctx, inputs)
	if err != nil {
		if terr, ok := err.(*Error); ok && terr.Code == TypeErr && !ip.Strict {
			return nil
		}
		return err
	}
	if result == nil {
		return nil
	}

	if len(targets) == 0 {
		if isFalsy(result) {
			return nil
		}
		return k()
	}

	mark := e.mark()
	ok = true
	if len(targets) == 1 {
		ok = e.unify(targets[0], result)
	} else if arr, isArr := result.Value.(ast.Array); isArr && len(arr) == len(targets) {
		for i := range targets {
			if !e.unify(targets[i], arr[i]) {
				ok = false
				break
			}
		}
	} else {
		ok = false
	}
	if ok {
		if err := k(); err != nil {
			e.undo(mark)
			return err
		}
	}
	e.undo(mark)
	return nil
}

func (ip *Interpreter) evalPrint(bctx BuiltinContext, inputs []*ast.Term, k cont) error {
	parts := make([]string, len(inputs))
	for i, t := range inputs {
		parts[i] = t.String()
	}
	ip.prints.emit(bctx.Location, strings.Join(parts, " "))
	return k()
}

// evalFunctionCall invokes a user-defined function rule: binds Args against
// the caller's (already-resolved) operands and, if the head declares a
// Value, unifies the trailing operand against it.
func (ip *Interpreter) evalFunctionCall(expr *ast.Expr, name ast.Var, operands []*ast.Term, e *env, k cont) error {
	key := strings.ReplaceAll(string(name), "/", ".")
	g := ip.groups[key]
	if g == nil {
		return newError(InternalErr, expr.Location, "undefined function %v", name)
	}

	var inputs []*ast.Term
	for _, t := range operands {
		v, err := ip.resolveTerm(t, e)
		if err != nil {
			return err
		}
		inputs = append(inputs, v)
	}

	hasResult := len(g.rules) > 0 && len(g.rules[0].Head.Args) == len(inputs)-1
	var target *ast.Term
	args := inputs
	if hasResult {
		target = inputs[len(inputs)-1]
		args = inputs[:len(inputs)-1]
	}

	results, err := ip.callFunction(g, args)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}
	for i := 1; i < len(results); i++ {
		if !results[i].Equal(results[0]) {
			return newError(ConflictErr, expr.Location, "functions must not produce multiple outputs for same inputs")
		}
	}
	result := results[0]

	mark := e.mark()
	ok := true
	if target != nil {
		ok = e.unify(target, result)
	} else if isFalsy(result) {
		ok = false
	}
	if ok {
		if err := k(); err != nil {
			e.undo(mark)
			return err
		}
	}
	e.undo(mark)
	return nil
}

// callFunction finds every rule in g whose Args unify with args and returns
// the (deduplication is the caller's job) Value produced by each one that
// succeeds, respecting each rule's own else-chain (only the first body in a
// chain that succeeds contributes).
func (ip *Interpreter) callFunction(g *ruleGroup, args []*ast.Term) ([]*ast.Term, error) {
	var out []*ast.Term
	for _, rule := range g.rules {
		v, ok, err := ip.evalFunctionRuleChain(rule, args)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (ip *Interpreter) evalFunctionRuleChain(rule *ast.Rule, args []*ast.Term) (*ast.Term, bool, error) {
	if err := ip.budget.enter(rule.Location); err != nil {
		return nil, false, err
	}
	defer ip.budget.leave()
	for r := rule; r != nil; r = r.Else {
		if len(r.Head.Args) != len(args) {
			continue
		}
		callEnv := newEnv()
		ok := true
		for i, a := range r.Head.Args {
			if !callEnv.unify(a, args[i]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		declared := ast.VarSet{}
		for _, a := range r.Head.Args {
			declared.Update(a.Vars())
		}
		scheduled, err := scheduler.Schedule(r.Body, declared)
		if err != nil {
			return nil, false, err
		}
		found := false
		var value *ast.Term
		stop := &struct{ error }{}
		err = ip.evalBody(scheduled, callEnv, func() error {
			value = ast.BooleanTerm(true)
			if r.Head.Value != nil {
				v, err := ip.resolveTerm(r.Head.Value, callEnv)
				if err != nil || v == nil {
					return err
				}
				value = v
			}
			found = true
			return stop
		})
		if err != nil && err != error(stop) {
			return nil, false, err
		}
		if found {
			return value, true, nil
		}
	}
	return nil, false, nil
}

// evalRef resolves ref against the document tree (rule groups first, then
// the literal data/input term), enumerating one solution per free variable
// position encountered along the way.
func (ip *Interpreter) evalRef(ref ast.Ref, e *env, k func(*ast.Term) error) error {
	root, ok := ref[0].Value.(ast.Var)
	if !ok {
		v, err := ip.resolveTerm(ref[0], e)
		if err != nil {
			return err
		}
		return ip.walkRef(v, ref[1:], e, k)
	}
	switch root {
	case ast.InputRootDocument.Value.(ast.Var):
		return ip.walkRef(ip.input, ref[1:], e, k)
	case ast.DefaultRootDocument.Value.(ast.Var):
		return ip.evalDataRef(ref, e, k)
	default:
		if bound, ok := e.get(root); ok {
			return ip.walkRef(e.plug(bound), ref[1:], e, k)
		}
		return newError(InternalErr, ref[0].Location, "unbound variable %v in reference", root)
	}
}

// evalDataRef handles a data-rooted ref: it greedily matches the longest
// registered rule-group prefix, evaluates that group's document, then
// continues indexing the remaining suffix into the result. If no prefix
// matches a rule group, it falls through to the literal data tree.
func (ip *Interpreter) evalDataRef(ref ast.Ref, e *env, k func(*ast.Term) error) error {
	for n := len(ref); n >= 1; n-- {
		prefix := ref[:n]
		if !prefix.IsGround() {
			continue
		}
		key := pathKey(prefix)
		if g, ok := ip.groups[key]; ok {
			if override, ok := ip.lookupOverride(prefix); ok {
				return ip.walkRef(override, ref[n:], e, k)
			}
			v, err := ip.evalRuleGroup(g)
			if err != nil {
				return err
			}
			if v == nil {
				return nil
			}
			return ip.walkRef(v, ref[n:], e, k)
		}
	}
	if override, ok := ip.lookupOverride(ref[:1]); ok {
		return ip.walkRef(override, ref[1:], e, k)
	}
	return ip.walkRef(ip.data, ref[1:], e, k)
}

// walkRef indexes base by the remaining ref components, handling bound,
// ground, and free-variable components (the last enumerates every key).
func (ip *Interpreter) walkRef(base *ast.Term, rest ast.Ref, e *env, k func(*ast.Term) error) error {
	if len(rest) == 0 {
		return k(base)
	}
	if base == nil {
		return nil
	}
	head := rest[0]
	if v, isVar := head.Value.(ast.Var); isVar && !v.IsWildcard() {
		if bound, ok := e.get(v); ok {
			idx, err := ip.resolveTerm(bound, e)
			if err != nil {
				return err
			}
			return ip.indexOne(base, idx, rest[1:], e, k)
		}
	}
	if v, isVar := head.Value.(ast.Var); isVar {
		_ = v
		return ip.iterate(base, func(key, val *ast.Term) error {
			mark := e.mark()
			ok := e.unify(head, key)
			if ok {
				if err := ip.walkRef(val, rest[1:], e, k); err != nil {
					e.undo(mark)
					return err
				}
			}
			e.undo(mark)
			return nil
		})
	}
	idx, err := ip.resolveTerm(head, e)
	if err != nil {
		return err
	}
	return ip.indexOne(base, idx, rest[1:], e, k)
}

func (ip *Interpreter) indexOne(base, idx *ast.Term, rest ast.Ref, e *env, k func(*ast.Term) error) error {
	var next *ast.Term
	switch bv := base.Value.(type) {
	case ast.Object:
		next = bv.Get(idx)
	case ast.Array:
		n, ok := asNumber(idx)
		if !ok {
			return nil
		}
		i, _ := n.Int64()
		if i < 0 || int(i) >= len(bv) {
			return nil
		}
		next = bv[i]
	case *ast.Set:
		if bv.Contains(idx) {
			next = idx
		}
	default:
		return nil
	}
	if next == nil {
		return nil
	}
	return ip.walkRef(next, rest, e, k)
}

// evalRuleGroup evaluates every rule sharing one document path according to
// its head shape, caching the result for the life of this data/input epoch.
func (ip *Interpreter) evalRuleGroup(g *ruleGroup) (*ast.Term, error) {
	cacheable := len(ip.overrides) == 0 // results under `with` are not cached
	if cacheable {
		if v, ok := ip.cache.get(g.path); ok {
			return v, nil
		}
	}
	if err := ip.budget.enter(g.rules[0].Location); err != nil {
		return nil, err
	}
	defer ip.budget.leave()
	ip.trace(EnterOp, g.rules[0].Location, pathKey(g.path))
	defer ip.trace(ExitOp, g.rules[0].Location, pathKey(g.path))
	var (
		v   *ast.Term
		err error
	)
	switch g.rules[0].Head.DocKind() {
	case ast.PartialSetDoc:
		v, err = ip.evalPartialSet(g)
	case ast.PartialObjectDoc:
		v, err = ip.evalPartialObject(g)
	case ast.FunctionDoc:
		return nil, nil // functions are resolved via evalFunctionCall, not ref indexing
	default:
		v, err = ip.evalComplete(g)
	}
	if err != nil {
		return nil, err
	}
	if v != nil && cacheable {
		ip.cache.put(g.path, v)
	}
	return v, nil
}

func (ip *Interpreter) evalComplete(g *ruleGroup) (*ast.Term, error) {
	var result *ast.Term
	var defaultResult *ast.Term
	for _, rule := range g.rules {
		if rule.Default {
			defaultResult = rule.Head.Value
			continue
		}
		for r := rule; r != nil; r = r.Else {
			scheduled, err := scheduler.Schedule(r.Body, ast.VarSet{})
			if err != nil {
				return nil, err
			}
			e := newEnv()
			found := false
			var value *ast.Term
			stop := &struct{ error }{}
			err = ip.evalBody(scheduled, e, func() error {
				value = ast.BooleanTerm(true)
				if r.Head.Value != nil {
					v, err := ip.resolveTerm(r.Head.Value, e)
					if err != nil || v == nil {
						return err
					}
					value = v
				}
				found = true
				return stop
			})
			if err != nil && err != error(stop) {
				return nil, err
			}
			if found {
				if result != nil && !result.Equal(value) {
					return nil, completeDocConflictErr(r.Location)
				}
				result = value
				break
			}
		}
	}
	if result == nil {
		return defaultResult, nil
	}
	return result, nil
}

func (ip *Interpreter) evalPartialSet(g *ruleGroup) (*ast.Term, error) {
	set := ast.NewSet()
	for _, rule := range g.rules {
		for r := rule; r != nil; r = r.Else {
			declared := ast.VarSet{}
			scheduled, err := scheduler.Schedule(r.Body, declared)
			if err != nil {
				return nil, err
			}
			e := newEnv()
			err = ip.evalBody(scheduled, e, func() error {
				set.Add(e.plug(r.Head.Key))
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return &ast.Term{Value: set}, nil
}

func (ip *Interpreter) evalPartialObject(g *ruleGroup) (*ast.Term, error) {
	obj := ast.Object{}
	for _, rule := range g.rules {
		for r := rule; r != nil; r = r.Else {
			e := newEnv()
			scheduled, err := scheduler.Schedule(r.Body, ast.VarSet{})
			if err != nil {
				return nil, err
			}
			err = ip.evalBody(scheduled, e, func() error {
				key := e.plug(r.Head.Key)
				val := e.plug(r.Head.Value)
				if existing := obj.Get(key); existing != nil && !existing.Equal(val) {
					return objectDocKeyConflictErr(r.Location, key.String(), existing, val)
				}
				obj = append(obj, [2]*ast.Term{key, val})
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return &ast.Term{Value: obj}, nil
}

// resolveTerm plugs t against e and recursively evaluates any comprehension
// nodes it contains, returning a fully concrete term.
func (ip *Interpreter) resolveTerm(t *ast.Term, e *env) (*ast.Term, error) {
	if ref, ok := t.Value.(ast.Ref); ok {
		var result *ast.Term
		found := false
		stop := &struct{ error }{}
		err := ip.evalRef(ref, e, func(v *ast.Term) error {
			result = v
			found = true
			return stop
		})
		if err != nil && err != error(stop) {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return result, nil
	}

	plugged := e.plug(t)
	switch v := plugged.Value.(type) {
	case *ast.ArrayComprehension:
		arr := ast.Array{}
		if err := ip.evalComprehensionBody(v.Body, e, func(ce *env) error {
			val, err := ip.resolveTerm(v.Term, ce)
			if err != nil {
				return err
			}
			arr = append(arr, val)
			return nil
		}); err != nil {
			return nil, err
		}
		return &ast.Term{Value: arr}, nil
	case *ast.SetComprehension:
		set := ast.NewSet()
		if err := ip.evalComprehensionBody(v.Body, e, func(ce *env) error {
			val, err := ip.resolveTerm(v.Term, ce)
			if err != nil {
				return err
			}
			set.Add(val)
			return nil
		}); err != nil {
			return nil, err
		}
		return &ast.Term{Value: set}, nil
	case *ast.ObjectComprehension:
		obj := ast.Object{}
		if err := ip.evalComprehensionBody(v.Body, e, func(ce *env) error {
			key, err := ip.resolveTerm(v.Key, ce)
			if err != nil {
				return err
			}
			val, err := ip.resolveTerm(v.Value, ce)
			if err != nil {
				return err
			}
			obj = append(obj, [2]*ast.Term{key, val})
			return nil
		}); err != nil {
			return nil, err
		}
		return &ast.Term{Value: obj}, nil
	case ast.Array:
		cpy := make(ast.Array, len(v))
		for i, x := range v {
			rv, err := ip.resolveTerm(x, e)
			if err != nil {
				return nil, err
			}
			cpy[i] = rv
		}
		return &ast.Term{Value: cpy}, nil
	case ast.Object:
		cpy := make(ast.Object, len(v))
		for i, pair := range v {
			kv, err := ip.resolveTerm(pair[0], e)
			if err != nil {
				return nil, err
			}
			vv, err := ip.resolveTerm(pair[1], e)
			if err != nil {
				return nil, err
			}
			cpy[i] = [2]*ast.Term{kv, vv}
		}
		return &ast.Term{Value: cpy}, nil
	case *ast.Set:
		cpy := ast.NewSet()
		var err error
		v.Foreach(func(x *ast.Term) {
			if err != nil {
				return
			}
			var rv *ast.Term
			rv, err = ip.resolveTerm(x, e)
			if err == nil {
				cpy.Add(rv)
			}
		})
		if err != nil {
			return nil, err
		}
		return &ast.Term{Value: cpy}, nil
	case ast.Call:
		return ip.evalCallValue(v, plugged.Location, e)
	default:
		return plugged, nil
	}
}

// evalCallValue evaluates a Call appearing in value position (not at an
// Expr's top level): a builtin or function invoked as a sub-expression, e.g.
// the `g(b)` inside `f(a, g(b))`. Builtins that unify an output argument
// never appear this way (the parser only produces that flattened,
// hidden-output-argument shape at an Expr's top level); here every operand
// is an input and the call contributes its own return value directly.
func (ip *Interpreter) evalCallValue(c ast.Call, loc *ast.Location, e *env) (*ast.Term, error) {
	if len(c) == 0 {
		return nil, newError(InternalErr, loc, "empty call")
	}
	name := callName(c[0])
	inputs := make([]*ast.Term, 0, len(c)-1)
	for _, operand := range c[1:] {
		v, err := ip.resolveTerm(operand, e)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, v)
	}
	bctx := BuiltinContext{Location: loc, Strict: ip.Strict}
	if b, ok := ast.BuiltinMap[name]; ok {
		fn, ok := ip.lookupBuiltinOverride(b.Name)
		if !ok {
			fn, ok = lookupBuiltinFunc(b.Name)
		}
		if !ok {
			return nil, unsupportedBuiltinErr(loc, b.Name)
		}
		return fn(bctx, inputs)
	}
	key := strings.ReplaceAll(string(name), "/", ".")
	g := ip.groups[key]
	if g == nil {
		return nil, newError(InternalErr, loc, "undefined function %v", name)
	}
	results, err := ip.callFunction(g, inputs)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	for i := 1; i < len(results); i++ {
		if !results[i].Equal(results[0]) {
			return nil, newError(ConflictErr, loc, "functions must not produce multiple outputs for same inputs")
		}
	}
	return results[0], nil
}

// evalComprehensionBody evaluates a comprehension's body against a private
// copy of e's bindings (lexical capture of the enclosing scope, but no
// leakage of new bindings back out), invoking emit once per solution.
func (ip *Interpreter) evalComprehensionBody(body ast.Body, e *env, emit func(*env) error) error {
	declared := ast.VarSet{}
	for v := range e.vals {
		declared.Add(v)
	}
	scheduled, err := scheduler.Schedule(body, declared)
	if err != nil {
		return err
	}
	child := &env{vals: make(map[ast.Var]*ast.Term, len(e.vals))}
	for v, t := range e.vals {
		child.vals[v] = t
	}
	return ip.evalBody(scheduled, child, func() error { return emit(child) })
}
