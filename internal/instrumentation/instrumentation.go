// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package instrumentation exposes the interpreter/VM's resource counters
// (instruction count, recursion depth, elapsed evaluation time) as
// Prometheus gauges/counters, grounded on the teacher's metrics/prometheus.go
// global registry but scoped per-engine rather than process-wide (spec.md
// §9 "Global state": the built-in table and target registry are per-engine).
package instrumentation

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Counters tracks one evaluation epoch's resource usage and mirrors it into
// a dedicated Prometheus registry so an embedder can scrape per-engine
// metrics without colliding with other engines in the same process.
type Counters struct {
	Registry *prometheus.Registry

	instructions prometheus.Counter
	recursion    prometheus.Gauge
	evalDuration prometheus.Histogram

	instrCount   atomic.Int64
	maxRecursion atomic.Int64
}

// NewCounters creates a fresh, independently-registered Counters.
func NewCounters() *Counters {
	reg := prometheus.NewRegistry()
	c := &Counters{
		Registry: reg,
		instructions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regorus_instructions_total",
			Help: "Number of VM/interpreter steps executed.",
		}),
		recursion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "regorus_recursion_depth",
			Help: "Deepest rule/function call nesting observed in the current epoch.",
		}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "regorus_eval_duration_seconds",
			Help: "Wall-clock duration of eval_query/eval_rule calls.",
		}),
	}
	reg.MustRegister(c.instructions, c.recursion, c.evalDuration)
	return c
}

// Step records one interpreter statement or VM instruction executed.
func (c *Counters) Step() {
	c.instructions.Inc()
	c.instrCount.Add(1)
}

// InstructionCount returns the number of steps recorded this epoch.
func (c *Counters) InstructionCount() int64 { return c.instrCount.Load() }

// EnterFrame records entry into a rule/function/comprehension frame at the
// given depth, raising the recorded maximum depth when depth exceeds it.
func (c *Counters) EnterFrame(depth int) {
	if int64(depth) > c.maxRecursion.Load() {
		c.maxRecursion.Store(int64(depth))
		c.recursion.Set(float64(depth))
	}
}

// Reset clears per-epoch counters (called when data/input/config changes
// invalidate the rule cache).
func (c *Counters) Reset() {
	c.instrCount.Store(0)
	c.maxRecursion.Store(0)
}

// Timer returns a stop function that records elapsed time into the
// eval_duration histogram.
func (c *Counters) Timer() func() {
	start := time.Now()
	return func() { c.evalDuration.Observe(time.Since(start).Seconds()) }
}
