// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"encoding/json"
	"io"
	"reflect"
)

// NewJSONDecoder returns a new decoder that reads from r with UseNumber set,
// so that numeric literals decode to json.Number rather than float64 -
// required to build arbitrary-precision ast.Number values without losing
// precision on ingest.
func NewJSONDecoder(r io.Reader) *json.Decoder {
	d := json.NewDecoder(r)
	d.UseNumber()
	return d
}

// UnmarshalJSON parses the JSON encoded data and stores the result in the
// value pointed to by x, preserving numeric precision via json.Number.
func UnmarshalJSON(bs []byte, x interface{}) error {
	return NewJSONDecoder(bytes.NewReader(bs)).Decode(x)
}

// MustUnmarshalJSON parses the JSON encoded data and returns the result.
// Panics on error; test-only convenience.
func MustUnmarshalJSON(bs []byte) interface{} {
	var x interface{}
	if err := UnmarshalJSON(bs, &x); err != nil {
		panic(err)
	}
	return x
}

// MustMarshalJSON returns the JSON encoding of x. Panics on error;
// test-only convenience.
func MustMarshalJSON(x interface{}) []byte {
	bs, err := json.Marshal(x)
	if err != nil {
		panic(err)
	}
	return bs
}

// RoundTrip encodes x to JSON and decodes the result back into *x, the way a
// value crossing the storage/engine boundary is normalized (structs become
// map[string]interface{}, etc).
func RoundTrip(x *interface{}) error {
	bs, err := json.Marshal(*x)
	if err != nil {
		return err
	}
	return UnmarshalJSON(bs, x)
}

// Reference returns a pointer to its argument unless the argument is already
// a pointer, in which case the innermost non-pointer value's address is
// returned.
func Reference(x interface{}) *interface{} {
	var y interface{}
	rv := reflect.ValueOf(x)
	if rv.IsValid() && rv.Kind() == reflect.Ptr {
		return Reference(rv.Elem().Interface())
	}
	if rv.IsValid() {
		y = rv.Interface()
	}
	return &y
}

// Unmarshal decodes a JSON value into v. It accepts JSON only; YAML input
// is decoded by UnmarshalYAML in yaml.go.
func Unmarshal(bs []byte, v interface{}) error {
	return UnmarshalJSON(bs, v)
}
