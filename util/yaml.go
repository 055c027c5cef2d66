// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a YAML document into a generic
// map[string]interface{}/[]interface{}/scalar tree, normalizing
// map[interface{}]interface{} nodes yaml.v3 would otherwise produce into
// map[string]interface{} so the result is directly convertible via
// ast.InterfaceToValue. This is the optional YAML data-ingest path spec.md
// §6 names alongside the required JSON path.
func UnmarshalYAML(bs []byte, x interface{}) error {
	var raw interface{}
	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return err
	}
	norm := normalizeYAML(raw)
	bs2, err := json.Marshal(norm)
	if err != nil {
		return err
	}
	return UnmarshalJSON(bs2, x)
}

func normalizeYAML(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			m[k] = normalizeYAML(e)
		}
		return m
	case []interface{}:
		a := make([]interface{}, len(v))
		for i, e := range v {
			a[i] = normalizeYAML(e)
		}
		return a
	default:
		return v
	}
}
