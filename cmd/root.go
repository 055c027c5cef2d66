// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package cmd implements the CLI: spec.md §6's external collaborator,
// trimmed to the three commands it names (eval, lex, parse) over a cobra
// root command, the same shape the teacher's cmd package wires its much
// larger command set through.
package cmd

import (
	"github.com/spf13/cobra"
)

// RootCommand is the entry point main.go executes.
var RootCommand = &cobra.Command{
	Use:   "regorus",
	Short: "Regorus is a Rego policy engine",
	Long:  "Regorus evaluates Rego policies: parse, lex, and eval.",
}

func init() {
	RootCommand.AddCommand(evalCommand)
	RootCommand.AddCommand(lexCommand)
	RootCommand.AddCommand(parseCommand)
}
