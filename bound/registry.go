// Package bound implements the bound registry: a multimap from host literal
// to the (variable, required-value) bounds it gates.
package bound

import "github.com/xDarkicex/xorprop/gf2"

// VarIndex indexes a variable (non-basic or basic) in a solver's variable
// vector.
type VarIndex uint32

// HostLiteral is a literal id owned by the host CDCL solver. Its sign
// carries polarity the way DIMACS/clingo literals do; 0 is never a valid
// literal.
type HostLiteral int32

// Negate returns the complementary literal.
func (l HostLiteral) Negate() HostLiteral {
	return -l
}

// Bound is a requirement: when Lit is true in the host, Variable is required
// to equal Value. A variable minted by the normalizer carries a pair of
// bounds (Value=0 and Value=1) gated by opposite literals, plus one further
// bound for every single-term row that constrains it, gated by that row's
// literal.
type Bound struct {
	Value    gf2.Value
	Variable VarIndex
	Lit      HostLiteral
}

// Registry is a multimap HostLiteral -> []*Bound. A single literal may key
// several bounds on distinct variables. There are no removals during a run.
type Registry struct {
	byLit map[HostLiteral][]*Bound
}

// NewRegistry returns an empty bound registry.
func NewRegistry() *Registry {
	return &Registry{byLit: make(map[HostLiteral][]*Bound)}
}

// Emplace records a new bound keyed by b.Lit and returns a stable pointer to
// it.
func (r *Registry) Emplace(b Bound) *Bound {
	stored := &b
	r.byLit[b.Lit] = append(r.byLit[b.Lit], stored)
	return stored
}

// EqualRange returns every bound keyed by lit, in insertion order.
func (r *Registry) EqualRange(lit HostLiteral) []*Bound {
	return r.byLit[lit]
}

// Len returns the number of distinct literals with at least one bound.
func (r *Registry) Len() int {
	return len(r.byLit)
}

// Count returns the total number of bounds registered across all literals.
func (r *Registry) Count() int {
	n := 0
	for _, bs := range r.byLit {
		n += len(bs)
	}
	return n
}
