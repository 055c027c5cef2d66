// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package rego

import (
	"testing"

	"github.com/regorus-go/regorus/ast"
)

func mustEngine(t *testing.T) *Engine {
	t.Helper()
	return New(DefaultConfig(), nil)
}

func TestEngineAddPolicyAndEvalQuery(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("test.rego", `package test

p := 7
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}

	results, err := e.EvalQuery("data.test.p")
	if err != nil {
		t.Fatalf("eval_query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if len(results[0].Expressions) != 1 {
		t.Fatalf("expected one expression, got %d", len(results[0].Expressions))
	}
	n, ok := results[0].Expressions[0].Value.(ast.Number)
	if !ok || string(n) != "7" {
		t.Fatalf("expected 7, got %#v", results[0].Expressions[0].Value)
	}
}

func TestEngineAddPolicyRejectsBadModule(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("bad.rego", `not a module`); err == nil {
		t.Fatalf("expected parse error")
	}
	if len(e.GetPolicies()) != 0 {
		t.Fatalf("a rejected policy must not be committed")
	}
}

func TestEngineAddPolicyReplacesByID(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("p.rego", `package test

p := 1
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	if err := e.AddPolicy("p.rego", `package test

p := 2
`); err != nil {
		t.Fatalf("add_policy (replace): %v", err)
	}
	if len(e.GetPolicies()) != 1 {
		t.Fatalf("expected the second add_policy to replace the first by id")
	}
}

func TestEngineAddDataJSONMerges(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddDataJSON(`{"a": {"x": 1}}`); err != nil {
		t.Fatalf("add_data_json: %v", err)
	}
	if err := e.AddDataJSON(`{"a": {"y": 2}}`); err != nil {
		t.Fatalf("add_data_json (merge): %v", err)
	}
	if err := e.AddPolicy("d.rego", `package test

p := {"x": data.a.x, "y": data.a.y}
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	results, err := e.EvalQuery("data.test.p")
	if err != nil {
		t.Fatalf("eval_query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected merged data to produce one result, got %d", len(results))
	}
}

func TestEngineAddDataJSONConflict(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddDataJSON(`{"a": 1}`); err != nil {
		t.Fatalf("add_data_json: %v", err)
	}
	if err := e.AddDataJSON(`{"a": 2}`); err == nil {
		t.Fatalf("expected an unmergeable conflict at key \"a\"")
	}
}

func TestEngineClearData(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddDataJSON(`{"a": 1}`); err != nil {
		t.Fatalf("add_data_json: %v", err)
	}
	e.ClearData()
	if err := e.AddPolicy("d.rego", `package test

p := data.a
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	results, err := e.EvalQuery("data.test.p")
	if err != nil {
		t.Fatalf("eval_query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected data.a to be undefined after clear_data, got %v", results)
	}
}

func TestEngineSetInputJSON(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("i.rego", `package test

p := input.x
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	if err := e.SetInputJSON(`{"x": 42}`); err != nil {
		t.Fatalf("set_input_json: %v", err)
	}
	results, err := e.EvalQuery("data.test.p")
	if err != nil {
		t.Fatalf("eval_query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
}

func TestEngineEvalRule(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("r.rego", `package test

p := "hello"
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	v, err := e.EvalRule("data.test.p")
	if err != nil {
		t.Fatalf("eval_rule: %v", err)
	}
	if v == nil {
		t.Fatalf("expected a value, got nil")
	}
	if s, ok := v.Value.(ast.String); !ok || string(s) != "hello" {
		t.Fatalf("expected \"hello\", got %#v", v.Value)
	}
}

func TestEngineCompileProgram(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("c.rego", `package test

p := 1
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	prog, err := e.CompileProgram([]string{"data.test.p"})
	if err != nil {
		t.Fatalf("compile_program: %v", err)
	}
	if prog == nil {
		t.Fatalf("expected a compiled program")
	}
	if len(prog.EntryPoints) != 1 || prog.EntryPoints[0] != "data.test.p" {
		t.Fatalf("expected one entry point, got %v", prog.EntryPoints)
	}
}

func TestEngineCompileProgramFunctionRule(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("f.rego", `package test

add(x, y) := x + y
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	if _, err := e.CompileProgram([]string{"data.test.add"}); err != nil {
		t.Fatalf("compile_program with a function rule: %v", err)
	}
}

func TestEngineGetPackages(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("a.rego", `package test.a

p := 1
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	if err := e.AddPolicy("b.rego", `package test.b

p := 1
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	pkgs := e.GetPackages()
	if len(pkgs) != 2 {
		t.Fatalf("expected two distinct packages, got %v", pkgs)
	}
}

func TestEngineClone(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("c.rego", `package test

p := 1
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	clone := e.Clone()

	if err := clone.AddPolicy("c2.rego", `package test2

q := 2
`); err != nil {
		t.Fatalf("clone add_policy: %v", err)
	}
	if len(e.GetPolicies()) != 1 {
		t.Fatalf("mutating a clone must not affect the original engine's policy set")
	}
	if len(clone.GetPolicies()) != 2 {
		t.Fatalf("expected the clone to carry both its own and the original's policies")
	}
}

func TestEngineCoverage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Coverage = true
	e := New(cfg, nil)
	if err := e.AddPolicy("cov.rego", `package test

p := 1
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	if _, err := e.EvalQuery("data.test.p"); err != nil {
		t.Fatalf("eval_query: %v", err)
	}
	report := e.GetCoverageReport()
	if _, ok := report.Files["cov.rego"]; !ok {
		t.Fatalf("expected a coverage entry for cov.rego, got %#v", report.Files)
	}
	if e.GetCoverageReportPretty() == "" {
		t.Fatalf("expected a non-empty pretty coverage report")
	}
}

func TestEngineNonStrictSuppressesTypeErrorOnly(t *testing.T) {
	e := mustEngine(t)
	if err := e.AddPolicy("t.rego", `package test

p := 1 + "a"
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	results, err := e.EvalQuery("data.test.p")
	if err != nil {
		t.Fatalf("non-strict mode must suppress a type error into undefined, got: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for an undefined query, got %v", results)
	}
}

func TestEngineStrictPropagatesTypeError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strict = true
	e := New(cfg, nil)
	if err := e.AddPolicy("t.rego", `package test

p := 1 + "a"
`); err != nil {
		t.Fatalf("add_policy: %v", err)
	}
	if _, err := e.EvalQuery("data.test.p"); err == nil {
		t.Fatalf("expected strict mode to propagate the type error")
	}
}
