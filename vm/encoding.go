// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package vm

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/regorus-go/regorus/ast"
)

// magic identifies a regorus bytecode container; version guards wire
// compatibility across incompatible opcode-set changes. The teacher's
// ir/encoding round-trip (internal/planner's ir.Policy via plain
// encoding/json, no framing at all: ir/encoding_test.go just calls
// json.MarshalIndent/Unmarshal directly on the plan) never needed a
// container since Wasm/Go codegen never shipped a program over the wire
// standalone. spec.md's "self-describing binary container" asks for one,
// so the magic/version/length frame below is new; the payload underneath
// is still JSON, the teacher's idiom for this kind of tree.
const (
	magic           uint32 = 0x52474f53 // "RGOS"
	encodingVersion uint16 = 1
)

// knownFeatures lists every built-in group / language feature a program's
// FeatureFlags may reference; Decode reports is_partial if the program was
// compiled against a feature this build doesn't have registered.
var knownFeatures = map[string]bool{
	"http.send":         true,
	"jwt":               true,
	"jsonschema":        true,
	"crypto.x509":       false,
	"rego.parse_module": false,
	"render_template":   false,
}

// wireProgram mirrors Program field-for-field except Constants: ast.Term
// only implements json.Marshaler, not json.Unmarshaler (the AST package
// never needed to round-trip a bare Term, only whole modules via the
// parser), so Program itself cannot survive a json.Unmarshal. Constants in
// this VM are always Number or String (compile.go's Compiler.constant is
// only ever called for those two term kinds), so a minimal tagged pair is
// enough to round-trip them without depending on ast.Term's one-way
// MarshalJSON.
type wireProgram struct {
	Instructions []Instr
	Constants    []wireConstant
	Strings      []string

	RulesTable  map[string]int
	FuncTable   map[string]int
	EntryPoints []string

	FrameSize map[int]int
	QueryVars map[string]map[ast.Var]Reg

	FeatureFlags map[string]bool
}

type wireConstant struct {
	Type  string // "number" or "string"
	Value string
}

func toWireConstant(t *ast.Term) (wireConstant, error) {
	switch v := t.Value.(type) {
	case ast.Number:
		return wireConstant{Type: "number", Value: string(v)}, nil
	case ast.String:
		return wireConstant{Type: "string", Value: string(v)}, nil
	default:
		return wireConstant{}, fmt.Errorf("vm: constant pool entries must be number or string, got %T", v)
	}
}

func fromWireConstant(w wireConstant) (*ast.Term, error) {
	switch w.Type {
	case "number":
		return &ast.Term{Value: ast.Number(w.Value)}, nil
	case "string":
		return &ast.Term{Value: ast.String(w.Value)}, nil
	default:
		return nil, fmt.Errorf("vm: unknown constant type %q", w.Type)
	}
}

// Encode serializes prog into regorus's binary container:
// magic(4) | version(2) | payload-length(4) | json(wireProgram).
func Encode(prog *Program) ([]byte, error) {
	w := wireProgram{
		Instructions: prog.Instructions,
		Strings:      prog.Strings,
		RulesTable:   prog.RulesTable,
		FuncTable:    prog.FuncTable,
		EntryPoints:  prog.EntryPoints,
		FrameSize:    prog.FrameSize,
		QueryVars:    prog.QueryVars,
		FeatureFlags: prog.FeatureFlags,
	}
	w.Constants = make([]wireConstant, len(prog.Constants))
	for i, t := range prog.Constants {
		wc, err := toWireConstant(t)
		if err != nil {
			return nil, err
		}
		w.Constants[i] = wc
	}

	payload, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("vm: encode program: %w", err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, magic); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, encodingVersion); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(payload))); err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Decode reads a container produced by Encode. isPartial is true if the
// program references a feature this build's knownFeatures marks disabled;
// the program still decodes (spec.md: deserialization "returns the program
// plus an is_partial flag", not an error).
func Decode(data []byte) (prog *Program, isPartial bool, err error) {
	r := bytes.NewReader(data)

	var gotMagic uint32
	if err := binary.Read(r, binary.BigEndian, &gotMagic); err != nil {
		return nil, false, fmt.Errorf("vm: read magic: %w", err)
	}
	if gotMagic != magic {
		return nil, false, fmt.Errorf("vm: not a regorus bytecode container (bad magic)")
	}

	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, false, fmt.Errorf("vm: read version: %w", err)
	}
	if version != encodingVersion {
		return nil, false, fmt.Errorf("vm: unsupported bytecode version %d (have %d)", version, encodingVersion)
	}

	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, false, fmt.Errorf("vm: read payload length: %w", err)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, false, fmt.Errorf("vm: read payload: %w", err)
	}

	var w wireProgram
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, false, fmt.Errorf("vm: decode program: %w", err)
	}

	p := &Program{
		Instructions: w.Instructions,
		Strings:      w.Strings,
		RulesTable:   w.RulesTable,
		FuncTable:    w.FuncTable,
		EntryPoints:  w.EntryPoints,
		FrameSize:    w.FrameSize,
		QueryVars:    w.QueryVars,
		FeatureFlags: w.FeatureFlags,
	}
	p.Constants = make([]*ast.Term, len(w.Constants))
	for i, wc := range w.Constants {
		t, err := fromWireConstant(wc)
		if err != nil {
			return nil, false, err
		}
		p.Constants[i] = t
	}

	for feature, enabled := range p.FeatureFlags {
		if enabled && !knownFeatures[feature] {
			isPartial = true
		}
	}
	return p, isPartial, nil
}

// MarkFeature records that prog's compilation depended on a named built-in
// group or language feature, for Decode's is_partial computation after a
// round trip through a build that may lack it.
func (p *Program) MarkFeature(name string) {
	if p.FeatureFlags == nil {
		p.FeatureFlags = map[string]bool{}
	}
	p.FeatureFlags[name] = true
}
