// Package xorsolver implements the per-thread XOR-simplex core: a sparse
// GF(2) tableau with a basic/non-basic variable split, Bland's-rule
// pivoting, incremental bound tracking keyed by host literals, a
// conflict-queue, backtrackable trails, and row-level propagation.
package xorsolver

import (
	"github.com/xDarkicex/xorprop/bound"
	"github.com/xDarkicex/xorprop/gf2"
)

// Assignment lets the solver query the host's current Boolean assignment
// for a literal, both at Prepare time (initial facts) and during Solve /
// row-propagation (to detect already-satisfied implications).
type Assignment interface {
	IsTrue(lit bound.HostLiteral) bool
	IsFalse(lit bound.HostLiteral) bool
}

// ClauseSink lets the solver hand a clause to the host CDCL solver. It
// returns false iff the host rejected the clause (e.g. because it proves the
// program unsatisfiable at the root level), mirroring clingo's
// PropagateInit/PropagateControl add_clause contract.
type ClauseSink interface {
	AddClause(lits []bound.HostLiteral) bool
}

// XORConstraint is a normalized parity constraint: the XOR of the variables
// in LHS must equal RHS whenever Lit is true. All indices in LHS are
// distinct. During Prepare a row with len(LHS) >= 2 introduces exactly one
// basic variable bound to (RHS, Lit); a row with len(LHS) == 1 is a bound on
// its single variable; an empty row introduces no variable.
type XORConstraint struct {
	LHS []bound.VarIndex
	RHS gf2.Value
	Lit bound.HostLiteral
}

// Variable captures everything the solver knows about one GF(2) unknown,
// whether it started out problem-declared (non-basic) or was introduced for
// a multi-term row during Prepare (basic).
type Variable struct {
	// Value is the variable's current GF(2) assignment.
	Value gf2.Value
	// Bound is the active bound, or nil if none. At most one active bound
	// at a time.
	Bound *bound.Bound
	// Bounds lists every bound this variable may ever take, used to derive
	// the implied literal during row propagation.
	Bounds []*bound.Bound
	// Index and ReverseIndex implement the basic/non-basic permutation:
	// the Index stored at position k names the variable record currently
	// occupying partition slot k, and a record's ReverseIndex is the slot it
	// occupies. They are mutual inverses under the permutation of slots and
	// are the only fields a pivot's basis swap touches.
	Index        uint32
	ReverseIndex uint32
	// Level is the host decision level on which Value was last written.
	Level uint32
	// Queued reports membership in the conflict queue.
	Queued bool
	// InPropagateSet reports membership in the row-propagation scheduling
	// set (basic variables only).
	InPropagateSet bool
}

// UpdateBound installs b as the variable's active bound if it has none yet,
// recording the change on the bound trail under self (the variable's
// absolute index in the solver's variable vector), and reports whether the
// currently installed bound agrees with b's value. If a bound is already
// installed, it is never replaced: two bounds on one variable can both hold
// exactly when their values match, so "installed bound agrees with b" is
// the full conflict test.
func (v *Variable) UpdateBound(s *Solver, self uint32, b *bound.Bound) bool {
	if v.Bound == nil {
		s.boundTrail = append(s.boundTrail, self)
		v.Bound = b
		return v.Value == b.Value
	}
	return v.Bound.Value == b.Value
}

// FlipValue flips the variable's value, stamping the value trail with the
// prior (level, value) pair the first time a given level touches it so
// Undo can restore the last satisfying assignment at each prior level. self
// is the variable's absolute index in the solver's variable vector.
func (v *Variable) FlipValue(s *Solver, level uint32, self uint32) {
	if v.Level != level {
		s.valueTrail = append(s.valueTrail, valueTrailEntry{
			prevLevel: v.Level,
			varIndex:  self,
			prevValue: v.Value,
		})
		v.Level = level
	}
	v.Value.Flip()
}

// HasConflict reports whether the variable has an active bound that
// disagrees with its current value.
func (v *Variable) HasConflict() bool {
	return v.Bound != nil && v.Value != v.Bound.Value
}

// Statistics are per-thread solve statistics, published by the propagator
// adapter alongside its own counters. Times are cumulative nanoseconds.
type Statistics struct {
	Pivots          int64
	SatCalls        int64
	UnsatCalls      int64
	TimeTotal       int64
	TimeInPropagate int64

	tableauSizeSum int64
	solveCalls     int64
}

// AverageTableauSize returns the mean number of set tableau cells observed
// across Solve calls, or 0 before the first call.
func (st Statistics) AverageTableauSize() float64 {
	if st.solveCalls == 0 {
		return 0
	}
	return float64(st.tableauSizeSum) / float64(st.solveCalls)
}
