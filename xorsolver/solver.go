package xorsolver

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/xDarkicex/xorprop/bound"
	"github.com/xDarkicex/xorprop/gf2"
	"github.com/xDarkicex/xorprop/xerr"
)

// state is the result of a Bland's-rule selection pass.
type state int

const (
	stateSatisfiable state = iota
	stateUnsatisfiable
	stateUnknown
)

// Solver is a single host thread's XOR-simplex instance: sparse tableau,
// variable trails, bound registry, and conflict queue, following the
// prepare -> (solve|undo)* -> discard lifecycle of one ground program run.
type Solver struct {
	registry *bound.Registry
	tableau  *gf2.Tableau

	variables []Variable
	nNonBasic uint32
	nBasic    uint32

	boundTrail   []uint32
	valueTrail   []valueTrailEntry
	trailOffsets []trailOffset

	queue          *conflictQueue
	conflictClause []bound.HostLiteral

	propagateSet []uint32

	propagateEnabled bool
	statistics       Statistics
	logger           hclog.Logger
}

// NewSolver returns an empty solver. Call Prepare before Solve/Undo. logger
// may be nil, in which case diagnostics are discarded.
func NewSolver(propagateEnabled bool, logger hclog.Logger) *Solver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Solver{
		registry:         bound.NewRegistry(),
		tableau:          gf2.NewTableau(),
		queue:            newConflictQueue(),
		propagateEnabled: propagateEnabled,
		logger:           logger,
	}
}

// Prepare builds the tableau and bound registry from the normalized
// constraint list. nVars is the number of non-basic (problem-declared)
// variables.
func (s *Solver) Prepare(constraints []XORConstraint, nVars uint32, ass Assignment, sink ClauseSink) error {
	s.variables = make([]Variable, nVars, nVars+uint32(len(constraints)))
	for i := uint32(0); i < nVars; i++ {
		s.variables[i].Index = i
		s.variables[i].ReverseIndex = i
	}
	s.nNonBasic = nVars
	s.nBasic = 0

	for _, c := range constraints {
		if ass.IsFalse(c.Lit) {
			continue
		}
		switch {
		case len(c.LHS) == 0:
			if bool(c.RHS) {
				if !sink.AddClause([]bound.HostLiteral{c.Lit.Negate()}) {
					return xerr.WithKind(xerr.KindTriviallyUnsat, "xorsolver", "Prepare",
						"host rejected unit clause for trivially unsatisfiable row")
				}
			}
		case len(c.LHS) == 1:
			varIdx := uint32(c.LHS[0])
			b := s.registry.Emplace(bound.Bound{Value: c.RHS, Variable: bound.VarIndex(varIdx), Lit: c.Lit})
			s.variables[varIdx].Bounds = append(s.variables[varIdx].Bounds, b)
		default:
			rowIdx := s.nBasic
			basicPos := uint32(len(s.variables))
			s.variables = append(s.variables, Variable{Index: basicPos, ReverseIndex: basicPos})
			s.nBasic++
			b := s.registry.Emplace(bound.Bound{Value: c.RHS, Variable: bound.VarIndex(basicPos), Lit: c.Lit})
			s.variables[basicPos].Bounds = append(s.variables[basicPos].Bounds, b)
			for _, j := range c.LHS {
				s.tableau.Set(rowIdx, uint32(j), true)
			}
		}
	}

	for i := uint32(0); i < s.nBasic; i++ {
		s.enqueue(i)
	}

	if err := s.assertInvariants("Prepare"); err != nil {
		return err
	}
	return nil
}

// basicRecordPos returns the absolute variable-record position currently
// occupying basic row i's partition slot.
func (s *Solver) basicRecordPos(i uint32) uint32 {
	return s.variables[i+s.nNonBasic].Index
}

// nonBasicRecordPos returns the absolute variable-record position currently
// occupying non-basic column j's partition slot.
func (s *Solver) nonBasicRecordPos(j uint32) uint32 {
	return s.variables[j].Index
}

func (s *Solver) basic(i uint32) *Variable {
	return &s.variables[s.basicRecordPos(i)]
}

func (s *Solver) nonBasic(j uint32) *Variable {
	return &s.variables[s.nonBasicRecordPos(j)]
}

// enqueue enqueues basic row i's variable if it is now conflicting and not
// already queued.
func (s *Solver) enqueue(i uint32) {
	pos := s.basicRecordPos(i)
	xi := &s.variables[pos]
	if !xi.Queued && xi.HasConflict() {
		s.queue.push(pos)
		xi.Queued = true
	}
}

// scheduleRow adds row i to the row-propagation set, with the membership
// flag kept on the row's current basic variable. pivot moves the flag along
// with the basis swap, so the flag always sits on whichever variable is
// basic in a scheduled row.
func (s *Solver) scheduleRow(i uint32) {
	v := s.basic(i)
	if !v.InPropagateSet {
		v.InPropagateSet = true
		s.propagateSet = append(s.propagateSet, i)
	}
}

// scheduleRowsThroughColumn schedules every row containing non-basic column
// j, since bounding j removes a free variable from each such row.
func (s *Solver) scheduleRowsThroughColumn(j uint32) {
	s.tableau.UpdateCol(j, func(i uint32) bool {
		s.scheduleRow(i)
		return true
	})
}

func (s *Solver) clearScheduled() {
	for _, i := range s.propagateSet {
		s.basic(i).InPropagateSet = false
	}
	s.propagateSet = s.propagateSet[:0]
}

// GetValue returns the current GF(2) assignment of problem variable i.
func (s *Solver) GetValue(i bound.VarIndex) gf2.Value {
	return s.variables[i].Value
}

// Statistics returns the solver's accumulated counters.
func (s *Solver) Statistics() Statistics {
	return s.statistics
}

// Reason returns the clause most recently assembled by conflict detection.
// Bland's-rule selection also rebuilds it while choosing a pivot, so it is
// the conflict clause of the last Solve call only when that call failed.
func (s *Solver) Reason() []bound.HostLiteral {
	return s.conflictClause
}

// Solve processes newly-true literals at the given host decision level,
// installing bounds, pivoting until satisfiable or unsatisfiable, and
// running row propagation on success.
func (s *Solver) Solve(ass Assignment, sink ClauseSink, level uint32, changed []bound.HostLiteral) bool {
	startTime := time.Now()
	ok := false
	defer func() {
		s.statistics.TimeTotal += time.Since(startTime).Nanoseconds()
		s.statistics.tableauSizeSum += int64(s.tableau.Size())
		s.statistics.solveCalls++
		if ok {
			s.statistics.SatCalls++
		} else {
			s.statistics.UnsatCalls++
		}
	}()

	if len(s.trailOffsets) == 0 || s.trailOffsets[len(s.trailOffsets)-1].level < level {
		s.trailOffsets = append(s.trailOffsets, trailOffset{
			level:      level,
			bound:      uint32(len(s.boundTrail)),
			assignment: uint32(len(s.valueTrail)),
		})
	}
	s.clearScheduled()

	for _, lit := range changed {
		for _, b := range s.registry.EqualRange(lit) {
			xPos := uint32(b.Variable)
			x := &s.variables[xPos]
			hadBound := x.Bound != nil
			agrees := x.UpdateBound(s, xPos, b)
			if hadBound && !agrees {
				// A bound was already active and b disagrees with it: a
				// genuine clash between two host literals, not something a
				// pivot can fix.
				installed := x.Bound
				s.conflictClause = append(s.conflictClause[:0], b.Lit.Negate(), installed.Lit.Negate())
				sink.AddClause(s.conflictClause)
				return false
			}
			if x.ReverseIndex < s.nNonBasic {
				if x.HasConflict() {
					s.update(level, x.ReverseIndex)
				} else {
					s.scheduleRowsThroughColumn(x.ReverseIndex)
				}
			} else {
				row := x.ReverseIndex - s.nNonBasic
				s.enqueue(row)
				s.scheduleRow(row)
			}
		}
	}

	for {
		st, i, j := s.selectBland()
		switch st {
		case stateSatisfiable:
			ok = s.propagateRows(ass, sink)
			return ok
		case stateUnsatisfiable:
			sink.AddClause(s.conflictClause)
			return false
		default:
			s.pivot(level, i, j)
		}
	}
}

// update flips non-basic column j to the opposite value, flipping every
// basic row that depends on it along the way.
func (s *Solver) update(level, j uint32) {
	s.tableau.UpdateCol(j, func(i uint32) bool {
		pos := s.basicRecordPos(i)
		s.variables[pos].FlipValue(s, level, pos)
		s.enqueue(i)
		s.scheduleRow(i)
		return true
	})
	jPos := s.nonBasicRecordPos(j)
	s.variables[jPos].FlipValue(s, level, jPos)
}

// pivot exchanges basic row i and non-basic column j.
func (s *Solver) pivot(level, i, j uint32) {
	xiPos := s.basicRecordPos(i)
	xjPos := s.nonBasicRecordPos(j)

	s.variables[xiPos].FlipValue(s, level, xiPos)
	s.variables[xjPos].FlipValue(s, level, xjPos)

	s.tableau.UpdateCol(j, func(k uint32) bool {
		if k != i {
			kPos := s.basicRecordPos(k)
			s.variables[kPos].FlipValue(s, level, kPos)
			s.enqueue(k)
			s.scheduleRow(k)
		}
		return true
	})

	s.variables[xiPos].ReverseIndex, s.variables[xjPos].ReverseIndex =
		s.variables[xjPos].ReverseIndex, s.variables[xiPos].ReverseIndex
	slotI := i + s.nNonBasic
	s.variables[slotI].Index, s.variables[j].Index = s.variables[j].Index, s.variables[slotI].Index

	// Row i changed, so it must (stay) scheduled for propagation. If it
	// already was, its membership flag follows the basis swap.
	if s.variables[xiPos].InPropagateSet {
		s.variables[xiPos].InPropagateSet = false
		s.variables[xjPos].InPropagateSet = true
	} else {
		s.scheduleRow(i)
	}

	s.tableau.Eliminate(i, j)

	s.enqueue(i)
	s.statistics.Pivots++

	if s.logger.IsTrace() {
		s.logger.Trace("pivot", "row", i, "col", j, "pivots", s.statistics.Pivots)
	}
}

// selectBland implements Bland's rule: pop the smallest-index conflicting
// variable, and within its row pick the smallest-index flippable non-basic
// column.
func (s *Solver) selectBland() (state, uint32, uint32) {
	for {
		pos, ok := s.queue.pop()
		if !ok {
			return stateSatisfiable, 0, 0
		}
		xi := &s.variables[pos]
		xi.Queued = false
		if xi.ReverseIndex < s.nNonBasic {
			continue // became non-basic meanwhile
		}
		i := xi.ReverseIndex - s.nNonBasic
		if !xi.HasConflict() {
			continue
		}

		s.conflictClause = append(s.conflictClause[:0], xi.Bound.Lit.Negate())
		var retJ uint32
		found := false
		best := ^uint32(0)
		s.tableau.UpdateRow(i, func(j uint32) bool {
			jj := s.variables[j].Index
			xj := &s.variables[jj]
			flippable := xj.Bound == nil || xj.Value != xj.Bound.Value
			if flippable {
				if jj < best {
					best = jj
					retJ = j
					found = true
				}
			} else {
				s.conflictClause = append(s.conflictClause, xj.Bound.Lit.Negate())
			}
			return true
		})
		if !found {
			return stateUnsatisfiable, 0, 0
		}
		return stateUnknown, i, retJ
	}
}

// propagateRows runs the row-propagation pass over every row scheduled
// during this Solve call.
func (s *Solver) propagateRows(ass Assignment, sink ClauseSink) bool {
	if !s.propagateEnabled {
		return true
	}
	startTime := time.Now()
	defer func() {
		s.statistics.TimeInPropagate += time.Since(startTime).Nanoseconds()
	}()
	for _, i := range s.propagateSet {
		if !s.propagateRow(ass, sink, i) {
			return false
		}
	}
	return true
}

// propagateRow checks whether row i has become unit-resulting and, if so,
// emits the implied literal's clause to the host.
func (s *Solver) propagateRow(ass Assignment, sink ClauseSink, i uint32) bool {
	bv := s.basic(i)
	var clause []bound.HostLiteral
	freeCount := 0
	var free *Variable
	if bv.Bound == nil {
		freeCount++
		free = bv
	} else {
		clause = append(clause, bv.Bound.Lit.Negate())
	}
	s.tableau.UpdateRow(i, func(j uint32) bool {
		xj := s.nonBasic(j)
		if xj.Bound == nil {
			freeCount++
			free = xj
		} else {
			clause = append(clause, xj.Bound.Lit.Negate())
		}
		return true
	})

	if freeCount != 1 {
		return true
	}

	// The tableau invariant holds unconditionally, so free.Value already is
	// the value the row requires of the free variable. The implied literal
	// is taken from the free variable's first bound only: the bound's own
	// literal when it asks for that value, its negation when it asks for the
	// opposite. For a normalizer-minted variable the first bound is one of
	// its opposite-literal pair, so both bounds of the pair give the same
	// literal; further bounds on the variable (from single-term rows) are
	// not propagated here.
	if len(free.Bounds) == 0 {
		return true
	}
	b := free.Bounds[0]
	implied := b.Lit
	if b.Value != free.Value {
		implied = b.Lit.Negate()
	}
	if ass.IsTrue(implied) {
		return true
	}
	clause = append(clause, implied)
	return sink.AddClause(clause)
}

// Undo restores the solver to the state it had when the current decision
// level was entered.
func (s *Solver) Undo() {
	n := len(s.trailOffsets)
	off := s.trailOffsets[n-1]
	s.trailOffsets = s.trailOffsets[:n-1]

	for i := len(s.boundTrail) - 1; i >= int(off.bound); i-- {
		s.variables[s.boundTrail[i]].Bound = nil
	}
	s.boundTrail = s.boundTrail[:off.bound]

	for i := len(s.valueTrail) - 1; i >= int(off.assignment); i-- {
		e := s.valueTrail[i]
		v := &s.variables[e.varIndex]
		v.Level = e.prevLevel
		v.Value = e.prevValue
	}
	s.valueTrail = s.valueTrail[:off.assignment]

	s.queue.drain(func(pos uint32) {
		s.variables[pos].Queued = false
	})
}

// verifyTableau checks the XOR-sum identity of every basic row: the row's
// basic value must equal the sum of its non-basic values.
func (s *Solver) verifyTableau() error {
	for i := uint32(0); i < s.nBasic; i++ {
		sum := s.basic(i).Value
		s.tableau.UpdateRow(i, func(j uint32) bool {
			sum = gf2.Xor(sum, s.nonBasic(j).Value)
			return true
		})
		if bool(sum) {
			return xerr.WithKind(xerr.KindInvariant, "xorsolver", "verifyTableau",
				"row xor-sum does not vanish")
		}
	}
	return nil
}

// CheckSolution validates that every bound is satisfied and the tableau
// invariant holds, for use when the host assignment becomes total. Failure
// indicates a programmer error, not a constraint failure, so it returns an
// error to be surfaced (e.g. panicked on) by the caller rather than handled
// as a conflict clause.
func (s *Solver) CheckSolution() error {
	for idx := range s.variables {
		v := &s.variables[idx]
		if v.Bound != nil && v.Value != v.Bound.Value {
			return xerr.WithKind(xerr.KindInvariant, "xorsolver", "CheckSolution",
				"variable violates its active bound in a total assignment")
		}
	}
	return s.verifyTableau()
}
