// Package veto decides whether parallel execution is worth attempting
// at all. Parallel execution has fixed per-call overhead (worker handoff,
// result collection); below a minimum item count or estimated speedup,
// sequential execution is both simpler and faster.
//
// Decide is a pure function with no side effects and no internal state.
package veto

import (
	"codeberg.org/mutker/poolctl/metrics"
	"codeberg.org/mutker/poolctl/profiler"
)

// Reason explains why parallelism was rejected.
type Reason string

const (
	ReasonNone                Reason = "NONE"
	ReasonNotEnoughItems      Reason = "NOT_ENOUGH_ITEMS"
	ReasonLowEstimatedSpeedup Reason = "LOW_ESTIMATED_SPEEDUP"
	ReasonCliffDetected       Reason = "CLIFF_DETECTED"
	// ReasonContentionAlreadyLow is reserved for callers that decline
	// parallelism on their own β reading. The default policy never
	// produces it.
	ReasonContentionAlreadyLow Reason = "CONTENTION_ALREADY_LOW"
)

// Decision is the outcome of one veto evaluation. Created fresh per call
// and never mutated; the core does not retain it.
type Decision struct {
	Approved       bool
	Reason         Reason
	ItemCount      int
	BetaAtDecision float64
}

const (
	DefaultMinItems   = 100
	DefaultMinSpeedup = 1.1
)

type options struct {
	minItems        int
	minSpeedup      float64
	cliff           *profiler.CliffAnalysis
	intendedThreads int
}

// Option adjusts the veto policy for a single Decide call.
type Option func(*options)

// WithMinItems overrides the minimum workload size (default 100).
func WithMinItems(n int) Option {
	return func(o *options) { o.minItems = n }
}

// WithMinSpeedup overrides the minimum estimated speedup (default 1.1).
func WithMinSpeedup(s float64) Option {
	return func(o *options) { o.minSpeedup = s }
}

// WithCliffAnalysis supplies a profiling result and the thread count the
// caller intends to use. Parallelism is rejected when the analysis found
// a saturation cliff at or below that thread count.
func WithCliffAnalysis(analysis *profiler.CliffAnalysis, intendedThreads int) Option {
	return func(o *options) {
		o.cliff = analysis
		o.intendedThreads = intendedThreads
	}
}

// Decide evaluates the veto policy. Rules are evaluated in order and the
// first match wins:
//
//  1. itemCount below the minimum → NOT_ENOUGH_ITEMS
//  2. estimatedSpeedup below the minimum → LOW_ESTIMATED_SPEEDUP
//  3. a supplied CliffAnalysis places the cliff at or below the intended
//     thread count → CLIFF_DETECTED
//  4. otherwise approved with reason NONE
func Decide(itemCount int, estimatedSpeedup float64, beta metrics.Estimate, opts ...Option) Decision {
	o := options{
		minItems:   DefaultMinItems,
		minSpeedup: DefaultMinSpeedup,
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := Decision{
		ItemCount:      itemCount,
		BetaAtDecision: beta.Beta,
	}

	switch {
	case itemCount < o.minItems:
		d.Reason = ReasonNotEnoughItems
	case estimatedSpeedup < o.minSpeedup:
		d.Reason = ReasonLowEstimatedSpeedup
	case o.cliff != nil && o.cliff.CliffThreads > 0 && o.cliff.CliffThreads <= o.intendedThreads:
		d.Reason = ReasonCliffDetected
	default:
		d.Approved = true
		d.Reason = ReasonNone
	}

	return d
}
