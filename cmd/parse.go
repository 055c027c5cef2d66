// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regorus-go/regorus/ast"
)

type parseParams struct {
	jsonOutput bool
}

var parseFlags parseParams

var parseCommand = &cobra.Command{
	Use:   "parse <path>",
	Short: "Parse a Rego module and print its AST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := runParse(args[0], parseFlags, os.Stdout)
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
	parseCommand.Flags().BoolVar(&parseFlags.jsonOutput, "json", false, "print the AST as JSON instead of Rego source")
}

func runParse(path string, params parseParams, out *os.File) (int, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return 1, fmt.Errorf("read %q: %w", path, err)
	}

	mod, err := ast.ParseModule(path, string(bs))
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1, nil
	}

	if params.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(mod); err != nil {
			return 1, fmt.Errorf("marshal module: %w", err)
		}
		return 0, nil
	}

	fmt.Fprintln(out, mod.String())
	return 0, nil
}
