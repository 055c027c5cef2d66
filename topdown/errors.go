// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package topdown

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/regorus-go/regorus/ast"
)

// Code classifies an evaluation error into one of the error-taxonomy
// categories: parse and compile errors are raised earlier in the pipeline
// (ast.Error, scheduler.Error); Code only covers categories 4-7, the ones
// that can only be detected while walking a scheduled body.
type Code int

const (
	// TypeErr indicates a built-in or operator was applied to a value of
	// the wrong kind. In non-strict mode this collapses to Undefined at
	// the statement boundary instead of propagating.
	TypeErr Code = iota
	// ConflictErr indicates a partial-object key received two different
	// values, or a complete rule's bodies disagreed.
	ConflictErr
	// ResourceErr indicates an instruction, recursion, or memory budget
	// was exceeded.
	ResourceErr
	// HostAwaitErr indicates the VM's host returned an error response (or
	// none at all) to a HostAwait suspension.
	HostAwaitErr
	// InternalErr is a catch-all for conditions that should not occur if
	// the analyzer and scheduler did their job (an unregistered built-in,
	// an un-scheduled variable reference).
	InternalErr
)

func (c Code) String() string {
	switch c {
	case TypeErr:
		return "type_error"
	case ConflictErr:
		return "conflict_error"
	case ResourceErr:
		return "resource_error"
	case HostAwaitErr:
		return "host_await_error"
	default:
		return "internal_error"
	}
}

// Error is the error type returned by the interpreter and VM when
// evaluation cannot continue.
type Error struct {
	Code     Code
	Message  string
	Location *ast.Location
	cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("evaluation error (%v): %v", e.Code, e.Message)
	if e.Location != nil {
		msg = e.Location.String() + ": " + msg
	}
	return msg
}

// Cause implements github.com/pkg/errors's causer interface so that
// errors.Cause(err) unwraps to the original failure.
func (e *Error) Cause() error { return e.cause }

func newError(code Code, loc *ast.Location, format string, a ...interface{}) *Error {
	return &Error{Code: code, Location: loc, Message: fmt.Sprintf(format, a...)}
}

func wrapError(code Code, loc *ast.Location, cause error, format string, a ...interface{}) *Error {
	return &Error{Code: code, Location: loc, Message: fmt.Sprintf(format, a...), cause: errors.WithStack(cause)}
}

func completeDocConflictErr(loc *ast.Location) error {
	return newError(ConflictErr, loc, "complete rules must produce exactly one value")
}

func objectDocKeyConflictErr(loc *ast.Location, key string, a, b *ast.Term) error {
	return newError(ConflictErr, loc, "value for key `%s` generated multiple times: %v and %v", key, a, b)
}

func unsupportedBuiltinErr(loc *ast.Location, name ast.Var) error {
	return newError(InternalErr, loc, "unsupported built-in: %v", name)
}
