// Copyright 2020 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"io"
	"sort"

	"github.com/regorus-go/regorus/util"
)

// Capabilities is a machine-readable manifest of which built-ins and future
// keywords a particular engine build supports. `vm` program deserialization
// (spec.md §4.7 "Serialization") consults it to set the `is_partial` flag
// when a program references a feature this build does not implement.
type Capabilities struct {
	Builtins       []*Builtin `json:"builtins"`
	FutureKeywords []string   `json:"future_keywords"`
}

// CapabilitiesForThisVersion returns the capabilities of this build.
func CapabilitiesForThisVersion() *Capabilities {
	c := &Capabilities{}
	c.Builtins = append(c.Builtins, Builtins[:]...)
	sort.Slice(c.Builtins, func(i, j int) bool {
		return c.Builtins[i].Name < c.Builtins[j].Name
	})
	c.FutureKeywords = append(c.FutureKeywords, FutureKeywords[:]...)
	sort.Strings(c.FutureKeywords)
	return c
}

// LoadCapabilitiesJSON loads a JSON serialized capabilities structure from the reader r.
func LoadCapabilitiesJSON(r io.Reader) (*Capabilities, error) {
	d := util.NewJSONDecoder(r)
	var c Capabilities
	return &c, d.Decode(&c)
}

// SupportsBuiltin returns true if name is in the capability set.
func (c *Capabilities) SupportsBuiltin(name string) bool {
	for _, b := range c.Builtins {
		if string(b.Name) == name {
			return true
		}
	}
	return false
}

// MissingBuiltins returns the subset of names not supported by c.
func (c *Capabilities) MissingBuiltins(names []string) []string {
	var missing []string
	for _, n := range names {
		if !c.SupportsBuiltin(n) {
			missing = append(missing, n)
		}
	}
	return missing
}
