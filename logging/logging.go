// Copyright 2021 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package logging provides structured logging for the engine façade,
// interpreter, and VM, matching the teacher's logging.StandardLogger
// naming over a github.com/sirupsen/logrus backend.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Logger is the logging interface the engine façade, interpreter, and VM
// accept at construction.
type Logger interface {
	Debug(fmt string, a ...interface{})
	Info(fmt string, a ...interface{})
	Warn(fmt string, a ...interface{})
	Error(fmt string, a ...interface{})
	WithFields(fields map[string]interface{}) Logger
}

// StandardLogger wraps a *logrus.Logger to satisfy Logger.
type StandardLogger struct {
	entry *logrus.Entry
}

// NewStandardLogger returns a Logger backed by a fresh logrus.Logger with
// default (text, Info-level) settings.
func NewStandardLogger() *StandardLogger {
	l := logrus.New()
	return &StandardLogger{entry: logrus.NewEntry(l)}
}

// WrapLogrus adapts an existing *logrus.Logger.
func WrapLogrus(l *logrus.Logger) *StandardLogger {
	return &StandardLogger{entry: logrus.NewEntry(l)}
}

func (s *StandardLogger) Debug(format string, a ...interface{}) { s.entry.Debugf(format, a...) }
func (s *StandardLogger) Info(format string, a ...interface{})  { s.entry.Infof(format, a...) }
func (s *StandardLogger) Warn(format string, a ...interface{})  { s.entry.Warnf(format, a...) }
func (s *StandardLogger) Error(format string, a ...interface{}) { s.entry.Errorf(format, a...) }

func (s *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	return &StandardLogger{entry: s.entry.WithFields(fields)}
}

// noopLogger discards everything; the zero value of Logger interfaces
// default to this so callers never need a nil check.
type noopLogger struct{}

// NewNoOpLogger returns a Logger that discards all messages.
func NewNoOpLogger() Logger { return noopLogger{} }

func (noopLogger) Debug(string, ...interface{})               {}
func (noopLogger) Info(string, ...interface{})                {}
func (noopLogger) Warn(string, ...interface{})                {}
func (noopLogger) Error(string, ...interface{})               {}
func (noopLogger) WithFields(map[string]interface{}) Logger   { return noopLogger{} }
