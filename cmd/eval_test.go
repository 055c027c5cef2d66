// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempPolicy(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func captureStdout(t *testing.T, fn func(*os.File)) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	fn(w)
	w.Close()
	bs := make([]byte, 64*1024)
	n, _ := r.Read(bs)
	return string(bs[:n])
}

func TestRunEvalLoadsPolicyDirAndEvaluates(t *testing.T) {
	dir := t.TempDir()
	writeTempPolicy(t, dir, "p.rego", "package test\n\np := 3\n")

	out := captureStdout(t, func(w *os.File) {
		code, err := runEval("data.test.p", evalParams{dataPaths: []string{dir}}, w)
		if err != nil {
			t.Fatalf("runEval: %v", err)
		}
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	})
	if !strings.Contains(out, "\"result\"") {
		t.Fatalf("expected JSON result output, got %q", out)
	}
}

func TestRunEvalSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTempPolicy(t, dir, "p.rego", "package test\n\np := 1\n")

	out := captureStdout(t, func(w *os.File) {
		code, err := runEval("data.test.p", evalParams{dataPaths: []string{path}}, w)
		if err != nil {
			t.Fatalf("runEval: %v", err)
		}
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	})
	if out == "" {
		t.Fatalf("expected non-empty output")
	}
}

func TestRunEvalBadQueryReportsErrorExitCode(t *testing.T) {
	out := captureStdout(t, func(w *os.File) {
		code, err := runEval("this is not (valid rego", evalParams{}, w)
		if err != nil {
			t.Fatalf("runEval should report failures via exit code, not error: %v", err)
		}
		if code == 0 {
			t.Fatalf("expected a nonzero exit code for a parse failure")
		}
	})
	if !strings.Contains(out, "error:") {
		t.Fatalf("expected an error message in output, got %q", out)
	}
}

func TestRunEvalWithInput(t *testing.T) {
	dir := t.TempDir()
	writeTempPolicy(t, dir, "p.rego", "package test\n\np := input.x\n")
	inputPath := filepath.Join(dir, "input.json")
	if err := os.WriteFile(inputPath, []byte(`{"x": 5}`), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out := captureStdout(t, func(w *os.File) {
		code, err := runEval("data.test.p", evalParams{dataPaths: []string{dir}, inputPath: inputPath}, w)
		if err != nil {
			t.Fatalf("runEval: %v", err)
		}
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	})
	if !strings.Contains(out, "5") {
		t.Fatalf("expected input.x's value 5 in output, got %q", out)
	}
}
