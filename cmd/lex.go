// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regorus-go/regorus/ast"
)

var lexCommand = &cobra.Command{
	Use:   "lex <path>",
	Short: "Tokenize a Rego source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := runLex(args[0], os.Stdout)
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func runLex(path string, out *os.File) (int, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return 1, fmt.Errorf("read %q: %w", path, err)
	}

	tokens, err := ast.Lex(bs)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1, nil
	}

	for _, t := range tokens {
		if t.Kind == ast.TokenNewline {
			fmt.Fprintf(out, "%d:%d\t%s\n", t.Row, t.Col, t.Kind)
			continue
		}
		fmt.Fprintf(out, "%d:%d\t%s\t%q\n", t.Row, t.Col, t.Kind, t.Text)
	}
	return 0, nil
}
