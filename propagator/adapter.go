// Package propagator implements the per-host-thread adapter that routes a
// CDCL host's init/propagate/check/undo callbacks to one xorsolver.Solver
// per thread, replays level-0 facts to threads that join late, and exposes
// per-symbol value queries for model extension.
package propagator

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/xDarkicex/xorprop/bound"
	"github.com/xDarkicex/xorprop/gf2"
	"github.com/xDarkicex/xorprop/normalize"
	"github.com/xDarkicex/xorprop/xerr"
	"github.com/xDarkicex/xorprop/xorsolver"
)

// config holds the adapter's functional options. The only host-facing
// option is `propagate`; the logger is wiring for diagnostics only.
type config struct {
	propagate bool
	logger    hclog.Logger
}

// Option configures an Adapter at construction time.
type Option func(*config)

// WithPropagate toggles row-propagation of unit-resulting rows. Default
// true.
func WithPropagate(enabled bool) Option {
	return func(c *config) { c.propagate = enabled }
}

// WithLogger installs a logger for per-pivot and per-thread trace
// diagnostics. A nil logger (the default) discards everything.
func WithLogger(logger hclog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ParseOption translates one clingo-style `key=value` configuration entry
// into an Option. The only recognized key is "propagate" with value yes/no;
// anything else is a config error for the host's option-validation path.
func ParseOption(key, value string) (Option, error) {
	if key != "propagate" {
		return nil, xerr.WithKind(xerr.KindConfig, "propagator", "ParseOption",
			fmt.Sprintf("unknown option %q", key))
	}
	switch value {
	case "yes":
		return WithPropagate(true), nil
	case "no":
		return WithPropagate(false), nil
	}
	return nil, xerr.WithKind(xerr.KindConfig, "propagator", "ParseOption",
		fmt.Sprintf("invalid Boolean %q for option %q (expected yes or no)", value, key))
}

// ConfigSetter lets a host surface the `propagate` option in its own
// CLI/option tree without this module depending on any particular CLI
// framework.
type ConfigSetter interface {
	SetBool(key string, value bool) error
}

// Assignment is the host's current Boolean assignment, queried both at
// Init (initial facts) and during Propagate/Check.
type Assignment = xorsolver.Assignment

// ClauseSink lets the adapter hand a clause to the host.
type ClauseSink = xorsolver.ClauseSink

// Init is the subset of a host's PropagateInit the adapter needs: adding
// watches, reading the initial assignment, learning thread count, the
// always-true literal, and the check-mode switch.
type Init interface {
	Assignment
	NumThreads() int
	AddWatch(lit bound.HostLiteral)
	SetCheckModePartial()
	TrueLiteral() bound.HostLiteral
	NewLiteral() bound.HostLiteral
}

// Control is the subset of a host's PropagateControl the adapter needs
// during Propagate/Check/Undo: the calling thread id, the current
// assignment, the clause sink, and whether the assignment is now total.
type Control interface {
	Assignment
	ClauseSink
	ThreadID() int
	IsTotal() bool
}

// Adapter is one propagator instance for an entire host run: it owns the
// normalized constraint list and one xorsolver.Solver per host thread.
type Adapter struct {
	cfg config

	constraints []xorsolver.XORConstraint
	nVars       uint32
	varOf       map[bound.HostLiteral]bound.VarIndex

	solvers []*xorsolver.Solver

	// facts is the shared append-only level-0 fact buffer, written only by
	// thread 0 during Propagate at level 0. factsOffset tracks, per
	// thread, how much of facts that thread has replayed via Check.
	facts       []bound.HostLiteral
	factsOffset []int

	globalStats GlobalStatistics
}

// GlobalStatistics are the run-wide counters published alongside each
// thread's own Statistics: initial tableau size, basic count,
// non-basic count, bound count.
type GlobalStatistics struct {
	InitialTableauSize int
	BasicCount         int
	NonBasicCount      int
	BoundCount         int
}

// New constructs an Adapter with default configuration (row-propagation
// enabled, logging discarded); apply Options to override.
func New(opts ...Option) *Adapter {
	cfg := config{propagate: true, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Adapter{cfg: cfg}
}

// RegisterOptions lets a host surface the `propagate` boolean in its own
// configuration tree. An error from the host's setter is returned as a
// config error.
func (a *Adapter) RegisterOptions(cs ConfigSetter) error {
	if err := cs.SetBool("propagate", a.cfg.propagate); err != nil {
		return xerr.WithKind(xerr.KindConfig, "propagator", "RegisterOptions", err.Error())
	}
	return nil
}

// Init normalizes the supplied theory atoms, watches every constraint
// literal, and creates one Solver per host thread, replaying the
// constraint list into each via Prepare. If any ground row is trivially
// unsatisfiable and the host rejects the resulting unit clause, Init fails.
func (a *Adapter) Init(init Init, atoms []normalize.Atom) error {
	n := normalize.New(init.TrueLiteral(), init.NewLiteral)

	var allConstraints []normalize.Constraint
	sink := initClauseSink{init: init}
	for _, atom := range atoms {
		cs, err := n.Normalize(atom, sink)
		if err != nil {
			return xerr.Wrap("propagator", "Init", "normalization failed", err)
		}
		allConstraints = append(allConstraints, cs...)
	}

	a.nVars = n.NVars()
	a.varOf = n.Vars()
	a.constraints = make([]xorsolver.XORConstraint, len(allConstraints))
	seen := make(map[bound.HostLiteral]bool)
	for i, c := range allConstraints {
		a.constraints[i] = xorsolver.XORConstraint{LHS: c.LHS, RHS: c.RHS, Lit: c.Lit}
		if !seen[c.Lit] {
			seen[c.Lit] = true
			init.AddWatch(c.Lit)
		}
		if len(c.LHS) >= 2 {
			a.globalStats.BasicCount++
			a.globalStats.InitialTableauSize += len(c.LHS)
		} else if len(c.LHS) == 1 {
			a.globalStats.BoundCount++
		}
	}
	a.globalStats.NonBasicCount = int(a.nVars)

	nThreads := init.NumThreads()
	if nThreads < 1 {
		nThreads = 1
	}
	a.solvers = make([]*xorsolver.Solver, nThreads)
	a.factsOffset = make([]int, nThreads)
	for t := 0; t < nThreads; t++ {
		a.solvers[t] = xorsolver.NewSolver(a.cfg.propagate, a.cfg.logger.Named(threadName(t)))
		if err := a.solvers[t].Prepare(a.constraints, a.nVars, init, initClauseSink{init: init}); err != nil {
			return xerr.Wrap("propagator", "Init", "prepare failed", err)
		}
	}

	if len(a.facts) > 0 {
		init.SetCheckModePartial()
	}
	return nil
}

func threadName(t int) string {
	return fmt.Sprintf("thread-%d", t)
}

// Propagate handles a batch of newly-true literals on the given thread's
// callback. At level 0 on thread 0, changes are additionally appended to
// the shared fact buffer so threads that join later can replay them.
func (a *Adapter) Propagate(ctl Control, level uint32, changes []bound.HostLiteral) bool {
	t := ctl.ThreadID()
	if level == 0 && t == 0 {
		a.facts = append(a.facts, changes...)
	}
	ok := a.solvers[t].Solve(ctl, ctl, level, changes)
	if ok && ctl.IsTotal() {
		if err := a.solvers[t].CheckSolution(); err != nil {
			panic(err)
		}
	}
	return ok
}

// Check replays any level-0 facts this thread hasn't seen yet (a thread
// that joined after level-0 propagation on thread 0), then invokes the same
// checks Propagate would at a decision point.
func (a *Adapter) Check(ctl Control, level uint32) bool {
	t := ctl.ThreadID()
	if level == 0 && a.factsOffset[t] < len(a.facts) {
		missed := a.facts[a.factsOffset[t]:]
		a.factsOffset[t] = len(a.facts)
		if !a.solvers[t].Solve(ctl, ctl, level, missed) {
			return false
		}
	}
	if ctl.IsTotal() {
		if err := a.solvers[t].CheckSolution(); err != nil {
			panic(err)
		}
	}
	return true
}

// Undo restores thread t's solver to the state it had when the current
// decision level was entered. Never fails.
func (a *Adapter) Undo(threadID int) {
	a.solvers[threadID].Undo()
}

// Lookup returns the variable standing for a condition or auxiliary literal,
// for model extension. The second result is false if the literal never
// occurred in any normalized atom.
func (a *Adapter) Lookup(lit bound.HostLiteral) (bound.VarIndex, bool) {
	v, ok := a.varOf[lit]
	return v, ok
}

// NumValues returns the number of problem-declared variables each thread
// holds a value for.
func (a *Adapter) NumValues() int {
	return int(a.nVars)
}

// Value returns problem variable i's current GF(2) assignment on thread t,
// for model extension.
func (a *Adapter) Value(threadID int, i bound.VarIndex) gf2.Value {
	return a.solvers[threadID].GetValue(i)
}

// Statistics returns thread t's per-thread solve counters.
func (a *Adapter) Statistics(threadID int) xorsolver.Statistics {
	return a.solvers[threadID].Statistics()
}

// GlobalStatistics returns the run-wide counters gathered during Init.
func (a *Adapter) GlobalStatistics() GlobalStatistics {
	return a.globalStats
}

// initClauseSink adapts a host Init (which can only add clauses at the
// program level, before any thread exists) to the normalize.ClauseSink /
// xorsolver.ClauseSink interfaces Prepare and Normalize expect.
type initClauseSink struct {
	init Init
}

func (s initClauseSink) AddClause(lits []bound.HostLiteral) bool {
	if adder, ok := s.init.(interface {
		AddClause(lits []bound.HostLiteral) bool
	}); ok {
		return adder.AddClause(lits)
	}
	return true
}
