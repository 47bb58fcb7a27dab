// Package xorprop is a theory propagator for XOR (parity) constraints over
// GF(2), meant to be plugged into a host CDCL answer-set/SAT solver. Given a
// set of constraints of the form x_1 ⊕ x_2 ⊕ ... ⊕ x_k = p, each gated by a
// host literal, it maintains one incremental GF(2) assignment per solver
// thread, detects conflicts, and propagates unit-resulting rows back to the
// host.
//
// The package root re-exports propagator.Adapter's constructor and options
// as the entry point a host actually wires up; propagator, normalize,
// xorsolver, bound, and gf2 are the packages that do the work and can be
// used independently of this convenience layer.
package xorprop

import "github.com/xDarkicex/xorprop/propagator"

// Option configures a Propagator's behavior at construction time.
type Option = propagator.Option

// WithPropagate toggles row-propagation (the sole host-facing `propagate`
// config option). Default true.
func WithPropagate(enabled bool) Option {
	return propagator.WithPropagate(enabled)
}

// WithLogger installs an hclog.Logger for per-pivot and per-thread trace
// diagnostics. A nil logger (the default) discards everything. Re-exported
// from propagator so callers that only import the root package still reach
// it; the signature is expressed there to avoid this package depending on
// hclog merely to re-type it.
var WithLogger = propagator.WithLogger

// ParseOption translates one clingo-style `key=value` configuration entry
// into an Option; only `propagate=yes|no` is accepted.
var ParseOption = propagator.ParseOption

// Propagator is a full theory-propagator instance for one host run: one
// xorsolver.Solver per host thread, sharing a normalized constraint list
// built once during Init.
type Propagator = propagator.Adapter

// New constructs a Propagator with default configuration (row-propagation
// enabled); apply Options to override.
func New(opts ...Option) *Propagator {
	return propagator.New(opts...)
}
