// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regorus-go/regorus/logging"
	"github.com/regorus-go/regorus/rego"
)

type evalParams struct {
	dataPaths []string
	bundle    string
	inputPath string
	coverage  bool
	strict    bool
	v0        bool
	v1        bool
}

var evalFlags evalParams

var evalCommand = &cobra.Command{
	Use:   "eval <query>",
	Short: "Evaluate a Rego query",
	Long:  "Load policies from -d/-b, input from -i, and evaluate the given query.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := runEval(args[0], evalFlags, os.Stdout)
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	evalCommand.Flags().StringArrayVarP(&evalFlags.dataPaths, "data", "d", nil, "policy file or directory (repeatable)")
	evalCommand.Flags().StringVarP(&evalFlags.bundle, "bundle", "b", "", "policy bundle directory")
	evalCommand.Flags().StringVarP(&evalFlags.inputPath, "input", "i", "", "input JSON file")
	evalCommand.Flags().BoolVar(&evalFlags.coverage, "coverage", false, "report coverage")
	evalCommand.Flags().BoolVar(&evalFlags.strict, "strict", false, "strict evaluation: propagate every error out of eval_query")
	evalCommand.Flags().BoolVar(&evalFlags.v0, "v0", false, "set the engine's RegoV1 option to false (the parser accepts v0 and v1 rule syntax either way)")
	evalCommand.Flags().BoolVar(&evalFlags.v1, "v1", false, "parse policies as Rego v1 (default)")
}

// runEval is the testable core of the eval command: it builds an Engine
// from params, evaluates query against it, and writes JSON output to out.
// Returns the process exit code (0 on success, 1 on load/parse/eval failure).
func runEval(query string, params evalParams, out *os.File) (int, error) {
	cfg := rego.DefaultConfig()
	cfg.Strict = params.strict
	cfg.Coverage = params.coverage
	cfg.RegoV1 = !params.v0

	engine := rego.New(cfg, logging.NewStandardLogger())

	paths := append(append([]string{}, params.dataPaths...), params.bundle)
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := loadPolicyPath(engine, p); err != nil {
			return 1, err
		}
	}

	if params.inputPath != "" {
		bs, err := os.ReadFile(params.inputPath)
		if err != nil {
			return 1, fmt.Errorf("read input: %w", err)
		}
		if err := engine.SetInputJSON(string(bs)); err != nil {
			return 1, fmt.Errorf("set input: %w", err)
		}
	}

	results, err := engine.EvalQuery(query)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1, nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{"result": results}); err != nil {
		return 1, fmt.Errorf("encode result: %w", err)
	}

	if params.coverage {
		fmt.Fprint(out, engine.GetCoverageReportPretty())
	}

	return 0, nil
}

// loadPolicyPath adds every .rego file under path (or path itself, if it is
// a single file) to engine. Bundle signing/manifests are a Non-goal, so -b
// is treated the same as a repeatable -d: a directory of .rego files.
func loadPolicyPath(engine *rego.Engine, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}
	if !info.IsDir() {
		return engine.AddPolicyFromFile(path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".rego") {
			return nil
		}
		return engine.AddPolicyFromFile(p)
	})
}
