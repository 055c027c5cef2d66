// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package rego implements spec.md §4.8's Engine façade: the single
// long-lived object a host program holds policies, data and input in, and
// drives evaluation through. It replaces the teacher's functional-option
// rego.Rego/PreparedEvalQuery builder with a simpler stateful object,
// because spec.md's façade is explicitly mutable ("add_policy", "clear_data",
// "set_input_json" all mutate engine state in place) rather than rebuilt
// per query.
package rego

import (
	"fmt"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/regorus-go/regorus/ast"
	"github.com/regorus-go/regorus/cover"
	"github.com/regorus-go/regorus/logging"
	"github.com/regorus-go/regorus/topdown"
	"github.com/regorus-go/regorus/util"
	"github.com/regorus-go/regorus/vm"
)

// Config is the Engine's configuration, matching spec.md §4.8's state list:
// strict mode, Rego v0/v1 selection, coverage on/off, gather-prints,
// instruction/recursion/memory budgets. RegoV1 is recorded but does not
// change parsing: every policy goes through the same ast.ParseModule call,
// which accepts rule bodies with or without `if`.
type Config struct {
	Strict       bool
	RegoV1       bool
	Coverage     bool
	GatherPrints bool
	Limits       topdown.Limits
}

// DefaultConfig returns the Config a freshly constructed Engine uses when
// none is supplied: non-strict, RegoV1 set, coverage off, default resource
// limits (topdown.DefaultLimits).
func DefaultConfig() Config {
	return Config{RegoV1: true, Limits: topdown.DefaultLimits()}
}

// policy is one loaded module plus the raw text it was parsed from, so
// GetPolicies can hand the text back verbatim rather than re-printing the
// parsed AST.
type policy struct {
	id   string
	text string
	mod  *ast.Module
}

// Engine is spec.md §4.8's façade: it owns modules, base data, input, a
// compiled-program cache, and configuration, and exposes the operation list
// spec.md §4.8 names. Evaluation is single-threaded and synchronous within
// one Engine (spec.md "Scheduling model"); callers wanting parallelism call
// Clone and evaluate the clones on separate goroutines.
type Engine struct {
	mu sync.Mutex

	cfg Config
	log logging.Logger

	policies map[string]*policy // id -> policy, in load order via order
	order    []string

	data  *ast.Term
	input *ast.Term

	capabilities *ast.Capabilities

	cover *cover.Cover

	// ip is the interpreter built from the current policies/data/input.
	// dirty forces a rebuild on the next eval after any mutation, since
	// rule groups and the rule cache are derived from the module set.
	ip    *topdown.Interpreter
	dirty bool

	programs *lru.Cache[string, *vm.Program] // compile_program cache, keyed by entry-point set
}

// New constructs an Engine with cfg (DefaultConfig() if the zero value).
func New(cfg Config, log logging.Logger) *Engine {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if cfg.Limits == (topdown.Limits{}) {
		cfg.Limits = topdown.DefaultLimits()
	}
	if log == nil {
		log = logging.NewNoOpLogger()
	}
	progCache, _ := lru.New[string, *vm.Program](32)
	e := &Engine{
		cfg:          cfg,
		log:          log,
		policies:     map[string]*policy{},
		data:         &ast.Term{Value: ast.Object{}},
		input:        &ast.Term{Value: ast.Object{}},
		capabilities: ast.CapabilitiesForThisVersion(),
		programs:     progCache,
		dirty:        true,
	}
	if cfg.Coverage {
		e.cover = cover.New()
	}
	return e
}

// AddPolicy parses text as a module under id and, on success, analyzes the
// full module set (ast.NewAnalyzer) before committing it: a bad module must
// never silently corrupt an engine that was working before the call.
func (e *Engine) AddPolicy(id, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mod, err := ast.ParseModule(id, text)
	if err != nil {
		return errors.Wrapf(err, "parse policy %q", id)
	}

	trial := e.modulesLocked()
	replaced := false
	for i := range trial {
		if e.order[i] == id {
			trial[i] = mod
			replaced = true
			break
		}
	}
	if !replaced {
		trial = append(trial, mod)
	}

	if errs := ast.NewAnalyzer(trial, e.capabilities).Analyze(); len(errs) > 0 {
		return errors.Wrap(errs, "analyze policies")
	}

	if _, ok := e.policies[id]; !ok {
		e.order = append(e.order, id)
	}
	e.policies[id] = &policy{id: id, text: text, mod: mod}
	e.dirty = true
	return nil
}

// AddPolicyFromFile reads path and adds it under an id of path itself.
func (e *Engine) AddPolicyFromFile(path string) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read policy file %q", path)
	}
	return e.AddPolicy(path, string(bs))
}

// AddDataJSON decodes text as a JSON document and merges it (object-
// recursive, spec.md §2 "merge (object recursive)") into the base data
// document at the root.
func (e *Engine) AddDataJSON(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var x interface{}
	if err := util.UnmarshalJSON([]byte(text), &x); err != nil {
		return errors.Wrap(err, "parse data json")
	}
	v, err := ast.InterfaceToValue(x)
	if err != nil {
		return errors.Wrap(err, "convert data json")
	}
	incoming, ok := v.(ast.Object)
	if !ok {
		return fmt.Errorf("rego: add_data_json: root document must be a JSON object, got %T", v)
	}

	existing, _ := e.data.Value.(ast.Object)
	merged, ok := existing.Merge(incoming)
	if !ok {
		return fmt.Errorf("rego: add_data_json: conflicts with existing data at an overlapping key")
	}
	e.data = &ast.Term{Value: merged}
	e.dirty = true
	return nil
}

// ClearData discards the base data document, resetting it to an empty object.
func (e *Engine) ClearData() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = &ast.Term{Value: ast.Object{}}
	e.dirty = true
}

// SetInputJSON decodes text as a JSON document and installs it as input.
func (e *Engine) SetInputJSON(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var x interface{}
	if err := util.UnmarshalJSON([]byte(text), &x); err != nil {
		return errors.Wrap(err, "parse input json")
	}
	v, err := ast.InterfaceToValue(x)
	if err != nil {
		return errors.Wrap(err, "convert input json")
	}
	e.input = &ast.Term{Value: v}
	if e.ip != nil {
		e.ip.SetInput(e.input) // SetInput also clears the rule cache
	}
	return nil
}

// Result is one row of eval_query's output: spec.md §4.8 "an ordered list of
// bindings where each binding is a sequence of {expression-text, value,
// location}", plus the free-variable bindings that produced it.
type Result struct {
	Expressions []Expression
	Bindings    map[string]interface{}
}

// Expression is one {value, text, location{row,col}} entry of a Result.
type Expression struct {
	Text     string
	Value    interface{}
	Row, Col int
}

// EvalQuery parses queryText as a transient module-less body, schedules it,
// and evaluates it against the engine's current modules/data/input.
func (e *Engine) EvalQuery(queryText string) ([]Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	body, err := ast.ParseBody(queryText)
	if err != nil {
		return nil, errors.Wrap(err, "parse query")
	}

	ip, err := e.ensureInterpreterLocked()
	if err != nil {
		return nil, err
	}

	rows, err := ip.EvalQueryExpressions(body)
	if err != nil {
		// spec.md §7: "errors in strict mode propagate out of eval_query. In
		// non-strict mode, category 4 errors are suppressed into Undefined
		// at the statement boundary." Category 4 is topdown.TypeErr; every
		// other code (conflict, resource, host-await, internal) still
		// propagates regardless of strict mode.
		if !e.cfg.Strict {
			if terr, ok := err.(*topdown.Error); ok && terr.Code == topdown.TypeErr {
				return nil, nil
			}
		}
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		bindings := make(map[string]interface{}, len(row.Bindings))
		for v, t := range row.Bindings {
			bindings[string(v)] = t.Value
		}
		exprs := make([]Expression, 0, len(row.Expressions))
		for _, ex := range row.Expressions {
			var val interface{}
			if ex.Value != nil {
				val = ex.Value.Value
			}
			exprRow, exprCol := 0, 0
			if ex.Location != nil {
				exprRow, exprCol = ex.Location.Row, ex.Location.Col
			}
			exprs = append(exprs, Expression{Text: ex.Text, Value: val, Row: exprRow, Col: exprCol})
		}
		results = append(results, Result{Expressions: exprs, Bindings: bindings})
	}
	return results, nil
}

// EvalRule evaluates ruleRef (e.g. "data.foo.bar") and returns its single
// Value, or nil if undefined. spec.md §4.8 "eval_rule returns a single
// Value (as JSON)".
func (e *Engine) EvalRule(ruleRef string) (*ast.Term, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	body, err := ast.ParseBody(ruleRef)
	if err != nil {
		return nil, errors.Wrapf(err, "parse rule ref %q", ruleRef)
	}
	ip, err := e.ensureInterpreterLocked()
	if err != nil {
		return nil, err
	}
	rows, err := ip.EvalQuery(body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	vars := body.Vars()
	for v := range vars {
		if bound, ok := rows[0][v]; ok {
			return bound, nil
		}
	}
	return ast.BooleanTerm(true), nil
}

// CompileProgram compiles the current module set into a vm.Program with one
// query entry point per name in entryPoints, caching the result so repeated
// calls with the same entry-point set reuse the compiled program until the
// engine's policies change.
func (e *Engine) CompileProgram(entryPoints []string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := strings.Join(entryPoints, "\x00")
	if !e.dirty {
		if p, ok := e.programs.Get(key); ok {
			return p, nil
		}
	} else {
		e.programs.Purge()
	}

	modules := e.modulesLocked()
	if errs := ast.NewAnalyzer(modules, e.capabilities).Analyze(); len(errs) > 0 {
		return nil, errors.Wrap(errs, "analyze policies")
	}

	// Function rules (Head.Args != nil) get their own FuncTable entry via
	// CompileFunction, which reserves argument registers the way
	// OpCallFunction expects; every other rule shape shares CompileRule's
	// document-path entry (vm/compile.go's RulesTable convention).
	groups := map[string][]*ast.Rule{}
	funcGroups := map[string][]*ast.Rule{}
	var groupOrder, funcOrder []string
	for _, mod := range modules {
		for _, rule := range mod.Rules {
			path := append(append(ast.Ref{}, mod.Package.Path...), ast.StringTerm(string(rule.Head.Name)))
			key := dottedPath(path)
			if rule.Head.Args != nil {
				if _, ok := funcGroups[key]; !ok {
					funcOrder = append(funcOrder, key)
				}
				funcGroups[key] = append(funcGroups[key], rule)
				continue
			}
			if _, ok := groups[key]; !ok {
				groupOrder = append(groupOrder, key)
			}
			groups[key] = append(groups[key], rule)
		}
	}

	c := vm.NewCompiler()
	for _, key := range groupOrder {
		if _, err := c.CompileRule(key, groups[key]); err != nil {
			return nil, errors.Wrapf(err, "compile rule %q", key)
		}
	}
	for _, key := range funcOrder {
		if _, err := c.CompileFunction(key, funcGroups[key]); err != nil {
			return nil, errors.Wrapf(err, "compile function %q", key)
		}
	}
	for _, name := range entryPoints {
		body, err := ast.ParseBody(name)
		if err != nil {
			return nil, errors.Wrapf(err, "parse entry point %q", name)
		}
		if _, err := c.CompileQuery(name, body); err != nil {
			return nil, errors.Wrapf(err, "compile entry point %q", name)
		}
	}
	prog := c.Program()
	prog.EntryPoints = entryPoints

	e.programs.Add(key, prog)
	return prog, nil
}

// GetPolicies returns every loaded policy's raw text keyed by id. The result
// is a map, so it does not carry the order in which policies were loaded.
func (e *Engine) GetPolicies() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.policies))
	for id, p := range e.policies {
		out[id] = p.text
	}
	return out
}

// GetPackages returns the package path of every loaded module, deduplicated.
func (e *Engine) GetPackages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, id := range e.order {
		path := e.policies[id].mod.Package.Path.String()
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	return out
}

// GetCoverageReport returns the structured coverage report accumulated
// since the engine was created or coverage was last reset. Returns an empty
// Report if coverage wasn't enabled in Config.
func (e *Engine) GetCoverageReport() cover.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cover == nil {
		return cover.Report{}
	}
	modules := map[string]*ast.Module{}
	for _, id := range e.order {
		modules[id] = e.policies[id].mod
	}
	return e.cover.Report(modules)
}

// GetCoverageReportPretty renders GetCoverageReport as a human-readable
// summary: one line per file, file-level percentage, then the overall
// total. Detailed range rendering is left to an external formatter (spec.md
// §1 lists "coverage report rendering" as an external collaborator);
// this pretty-printer is just the aggregate spec.md's own report carries.
func (e *Engine) GetCoverageReportPretty() string {
	report := e.GetCoverageReport()
	var b strings.Builder
	for _, f := range e.order {
		fr, ok := report.Files[f]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %.2f%%\n", f, fr.Coverage)
	}
	fmt.Fprintf(&b, "total: %.2f%%\n", report.Coverage)
	return b.String()
}

// SetGatherPrints toggles whether print() calls are captured during eval.
func (e *Engine) SetGatherPrints(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.GatherPrints = on
	if e.ip != nil {
		e.ip.SetGatherPrints(on)
	}
}

// TakePrints drains and returns every print() message captured since the
// last call.
func (e *Engine) TakePrints() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ip == nil {
		return nil
	}
	return e.ip.TakePrints()
}

// Clone returns a new Engine sharing this one's modules and data/input by
// reference (spec.md §4.8 "Engines may be marked shareable... clone the
// engine (O(1) via structural sharing)"): ast.Term/ast.Module values are
// treated as immutable once installed, so sharing the pointers is safe as
// long as the clone's own mutations (AddPolicy, SetInputJSON, ...) always
// replace rather than mutate in place, which every Engine method above
// already does.
func (e *Engine) Clone() *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()

	policies := make(map[string]*policy, len(e.policies))
	for id, p := range e.policies {
		policies[id] = p
	}
	order := append([]string(nil), e.order...)

	progCache, _ := lru.New[string, *vm.Program](32)
	clone := &Engine{
		cfg:          e.cfg,
		log:          e.log,
		policies:     policies,
		order:        order,
		data:         e.data,
		input:        e.input,
		capabilities: e.capabilities,
		programs:     progCache,
		dirty:        true,
	}
	if e.cfg.Coverage {
		clone.cover = cover.New()
	}
	return clone
}

// dottedPath renders ref the same way vm/compile.go's pathKeyOf and
// topdown/eval.go's pathKey do, so a key built here resolves in
// Program.RulesTable/FuncTable at OpCallRule/OpCallFunction/
// OpVirtualDataDocumentLookup time.
func dottedPath(ref ast.Ref) string {
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

// modulesLocked returns every loaded module in load order. Caller must hold e.mu.
func (e *Engine) modulesLocked() []*ast.Module {
	mods := make([]*ast.Module, 0, len(e.order))
	for _, id := range e.order {
		mods = append(mods, e.policies[id].mod)
	}
	return mods
}

// ensureInterpreterLocked (re)builds the interpreter if the module set
// changed since the last build. Caller must hold e.mu.
func (e *Engine) ensureInterpreterLocked() (*topdown.Interpreter, error) {
	if !e.dirty && e.ip != nil {
		return e.ip, nil
	}
	modules := e.modulesLocked()
	if errs := ast.NewAnalyzer(modules, e.capabilities).Analyze(); len(errs) > 0 {
		return nil, errors.Wrap(errs, "analyze policies")
	}
	ip := topdown.NewInterpreter(modules, e.data, e.input, e.cfg.Limits)
	ip.Strict = e.cfg.Strict
	ip.SetGatherPrints(e.cfg.GatherPrints)
	if e.cover != nil {
		ip.Tracer = e.cover
	}
	e.ip = ip
	e.dirty = false
	return ip, nil
}
