// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

// Analyzer resolves imports, validates rule heads and checks variable usage
// across a set of modules prior to scheduling. It runs once per module set
// (e.g. a policy bundle), not once per query.
type Analyzer struct {
	modules      []*Module
	capabilities *Capabilities
}

// NewAnalyzer returns an Analyzer for modules, checked against capabilities
// (nil defaults to CapabilitiesForThisVersion()).
func NewAnalyzer(modules []*Module, capabilities *Capabilities) *Analyzer {
	if capabilities == nil {
		capabilities = CapabilitiesForThisVersion()
	}
	return &Analyzer{modules: modules, capabilities: capabilities}
}

// Analyze runs all checks and returns every error found (empty on success).
func (a *Analyzer) Analyze() Errors {
	var errs Errors

	errs = append(errs, CheckDuplicateImports(a.modules)...)

	for _, mod := range a.modules {
		if err := a.resolveImports(mod); err != nil {
			errs = append(errs, err...)
		}
	}

	for _, mod := range a.modules {
		errs = append(errs, a.checkRuleHeads(mod)...)
	}

	errs = append(errs, CheckRootDocumentOverrides(a.modules)...)
	errs = append(errs, CheckDeprecatedBuiltinsForCurrentVersion(a.modules)...)

	for _, mod := range a.modules {
		errs = append(errs, a.checkUnsafeVars(mod)...)
	}

	return errs
}

// resolveImports rewrites references to imported names (`import data.foo.bar
// as baz` then `baz.qux` in rule bodies) into their canonical `data...`/
// `input...` refs, in place, across every rule in the module.
func (a *Analyzer) resolveImports(mod *Module) Errors {
	if len(mod.Imports) == 0 {
		return nil
	}

	aliases := make(map[Var]Ref, len(mod.Imports))
	for _, imp := range mod.Imports {
		name := imp.Name()
		if name == "" {
			continue
		}
		if ref, ok := imp.Path.Value.(Ref); ok {
			aliases[name] = ref
		}
	}

	var errs Errors
	for _, rule := range mod.Rules {
		_, err := Transform(newImportResolver(aliases), rule)
		if err != nil {
			errs = append(errs, NewError(CompileErr, rule.Location, err.Error()))
		}
	}
	return errs
}

type importResolver struct {
	aliases map[Var]Ref
	skip    bool
}

func newImportResolver(aliases map[Var]Ref) *importResolver {
	return &importResolver{aliases: aliases}
}

func (r *importResolver) Transform(x interface{}) (interface{}, error) {
	if r.skip {
		r.skip = false
		return x, nil
	}
	switch x := x.(type) {
	case *Head:
		r.skip = true
	case Ref:
		if head, ok := x[0].Value.(Var); ok {
			if target, ok := r.aliases[head]; ok {
				rest := make(Ref, len(target)+len(x)-1)
				copy(rest, target)
				copy(rest[len(target):], x[1:])
				r.skip = true
				return rest, nil
			}
		}
		r.skip = true
	case Var:
		if target, ok := r.aliases[x]; ok {
			return target, nil
		}
	}
	return x, nil
}

// checkRuleHeads validates that each rule's head shape is internally
// consistent: function rules only declare Args, partial-set rules only
// declare Key, partial-object rules declare both Key and Value, complete
// rules declare neither (besides Value).
func (a *Analyzer) checkRuleHeads(mod *Module) Errors {
	var errs Errors
	WalkRules(mod, func(rule *Rule) bool {
		h := rule.Head
		switch {
		case len(h.Args) > 0 && h.Key != nil:
			errs = append(errs, NewError(CompileErr, h.Location, "function %v cannot use partial-rule syntax", h.Name))
		case h.Key != nil && h.Value != nil:
			// partial object rule: fine.
		case h.Key != nil:
			// partial set rule: fine.
		case h.Value == nil && len(h.Args) == 0:
			errs = append(errs, NewError(CompileErr, h.Location, "rule %v must have a value", h.Name))
		}
		if rule.Default && h.Key != nil {
			errs = append(errs, NewError(CompileErr, h.Location, "default rules cannot be partial"))
		}
		return false
	})
	return errs
}

// checkUnsafeVars computes, per rule, the set of variables that are never
// bound by any expression in the body (ignoring operator position). This is
// a coarse pre-check; the scheduler performs the precise fixed-point safety
// analysis required to actually order the body.
func (a *Analyzer) checkUnsafeVars(mod *Module) Errors {
	var errs Errors
	WalkRules(mod, func(rule *Rule) bool {
		declared := VarSet{}
		for _, arg := range rule.Head.Args {
			declared.Update(arg.Vars())
		}

		bound := VarSet{}
		WalkExprs(rule.Body, func(expr *Expr) bool {
			if expr.Negated {
				return false
			}
			bound.Update(outputVars(expr))
			return false
		})

		used := rule.Body.Vars()
		unsafe := used.Diff(bound).Diff(declared).Diff(ReservedVars)
		for v := range unsafe {
			if v.IsWildcard() || IsConstant(v) {
				continue
			}
			errs = append(errs, NewError(UnsafeVarErr, rule.Location, "var %v is unsafe", v))
		}
		return false
	})
	return errs
}

// outputVars returns the variables an expression would bind if evaluated:
// both sides of an equality/assignment, unification targets inside calls,
// and some/every declarations.
func outputVars(expr *Expr) VarSet {
	vs := VarSet{}
	if expr.Some != nil {
		for _, s := range expr.Some.Symbols {
			vs.Update(s.Vars())
		}
		if expr.Some.Value != nil {
			vs.Update(expr.Some.Value.Vars())
		}
		if expr.Some.Key != nil {
			vs.Update(expr.Some.Key.Vars())
		}
	}
	if expr.Every != nil {
		if expr.Every.Key != nil {
			vs.Update(expr.Every.Key.Vars())
		}
		vs.Update(expr.Every.Value.Vars())
	}
	switch ts := expr.Terms.(type) {
	case *Term:
		vs.Update(ts.Vars())
	case []*Term:
		if expr.IsEquality() && len(ts) == 3 {
			vs.Update(ts[1].Vars())
			vs.Update(ts[2].Vars())
			return vs
		}
		if b, ok := BuiltinMap[operatorVar(ts[0])]; ok {
			for i, t := range ts[1:] {
				if b.Unifies(i) {
					vs.Update(t.Vars())
				}
			}
		}
	}
	return vs
}

func operatorVar(t *Term) Var {
	switch v := t.Value.(type) {
	case Var:
		return v
	case Ref:
		if len(v) == 1 {
			if s, ok := v[0].Value.(Var); ok {
				return s
			}
		}
	}
	return ""
}

// IsConstant reports whether v names a builtin-declared constant that the
// analyzer should not flag as unsafe (none currently reserved besides
// data/input, handled separately via ReservedVars).
func IsConstant(v Var) bool { return false }
