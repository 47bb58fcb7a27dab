// Package normalize implements the constraint normalizer: it consumes theory
// atoms already evaluated by the host's theory-atom parser (a tuple plus a
// condition-literal list per element — lowering `&even{...}`/`&odd{...}`
// surface syntax is out of scope for the propagator itself) and produces the
// XORConstraint list xorsolver.Prepare expects.
//
// Duplicate tuples are collapsed via parity counting: elements that share a
// tuple are grouped, each element's condition is canonicalized (sorted,
// deduplicated), and the group's contributions are XOR-reduced. A group that
// reduces to nothing cancels entirely; a group that reduces to more than one
// term (or a constant flip alongside a term) is folded into a single fresh
// auxiliary variable via an always-active combination row, so the owning
// atom's own row always gets exactly one LHS entry per surviving tuple.
// Multi-literal element conditions get a Tseitin-style auxiliary equivalence,
// emitted as clauses through the supplied ClauseSink.
package normalize

import (
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-set/v3"

	"github.com/xDarkicex/xorprop/bound"
	"github.com/xDarkicex/xorprop/gf2"
	"github.com/xDarkicex/xorprop/xerr"
)

// TermID is an opaque host symbol id identifying one term of a theory-atom
// tuple (e.g. a clingo Symbol's unique id).
type TermID int64

// Element is one `tuple: condition` entry of a theory atom, already
// evaluated by the host's theory-atom parser.
type Element struct {
	Tuple     []TermID
	Condition []bound.HostLiteral
}

// Atom is one `&even{...}`/`&odd{...}` theory atom: the literal gating the
// whole row, the target parity, and its elements.
type Atom struct {
	Lit    bound.HostLiteral
	Parity gf2.Value // false = even (xor must be 0), true = odd (xor must be 1)
	Elems  []Element
}

// ClauseSink receives the Tseitin equivalence clauses for multi-literal
// element conditions. Combination rows for tuples with more than one
// surviving term are not sent here; Normalize returns them as Constraints.
// Structurally identical to xorsolver.ClauseSink.
type ClauseSink interface {
	AddClause(lits []bound.HostLiteral) bool
}

// LiteralAllocator mints a fresh host literal for an auxiliary variable. The
// host owns the literal namespace, so literal minting is supplied by the
// caller rather than generated internally.
type LiteralAllocator func() bound.HostLiteral

// Constraint is a normalized row, directly consumable by xorsolver.Prepare
// (field-for-field identical to xorsolver.XORConstraint, duplicated here to
// avoid an import cycle between the two leaf packages).
type Constraint struct {
	LHS []bound.VarIndex
	RHS gf2.Value
	Lit bound.HostLiteral
}

// Normalizer allocates one non-basic VarIndex per host literal it sees
// inside element conditions (lazily, on first use) and produces the two
// bound rows (value=0 on the literal's negation, value=1 on the literal)
// that give that variable its pair of opposite-literal bounds. One
// Normalizer should be used for an entire ground program: literal
// allocation is shared across all atoms so the same literal always maps to
// the same variable.
type Normalizer struct {
	litVar  map[bound.HostLiteral]bound.VarIndex
	nextVar uint32
	alloc   LiteralAllocator
	trueLit bound.HostLiteral
}

// New returns an empty Normalizer. trueLit must be a literal the host
// guarantees is always true (clingo's PropagateInit true literal); it gates the
// internal combination rows introduced for tuples with more than one
// surviving term. alloc mints literals for auxiliary equivalence variables;
// it is called only for element conditions with two or more literals, and
// for tuple combination rows.
func New(trueLit bound.HostLiteral, alloc LiteralAllocator) *Normalizer {
	return &Normalizer{
		litVar:  make(map[bound.HostLiteral]bound.VarIndex),
		alloc:   alloc,
		trueLit: trueLit,
	}
}

// NVars returns the number of non-basic variables allocated so far. Use it
// as xorsolver.Prepare's nVars argument once every atom has been normalized.
func (n *Normalizer) NVars() uint32 { return n.nextVar }

// Vars returns a copy of the literal-to-variable map built so far, for
// model-extension lookups after normalization is complete.
func (n *Normalizer) Vars() map[bound.HostLiteral]bound.VarIndex {
	out := make(map[bound.HostLiteral]bound.VarIndex, len(n.litVar))
	for l, v := range n.litVar {
		out[l] = v
	}
	return out
}

// varFor returns the VarIndex standing for literal l, allocating a fresh one
// (and appending its paired bound rows to out) the first time l is seen.
func (n *Normalizer) varFor(l bound.HostLiteral, out *[]Constraint) bound.VarIndex {
	if v, ok := n.litVar[l]; ok {
		return v
	}
	v := bound.VarIndex(n.nextVar)
	n.nextVar++
	n.litVar[l] = v
	*out = append(*out,
		Constraint{LHS: []bound.VarIndex{v}, RHS: gf2.Value(false), Lit: l.Negate()},
		Constraint{LHS: []bound.VarIndex{v}, RHS: gf2.Value(true), Lit: l},
	)
	return v
}

// canonicalCondition sorts and deduplicates a condition's literal list.
func canonicalCondition(c []bound.HostLiteral) []bound.HostLiteral {
	if len(c) == 0 {
		return nil
	}
	sorted := append([]bound.HostLiteral(nil), c...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := sorted[:1]
	for _, l := range sorted[1:] {
		if l != out[len(out)-1] {
			out = append(out, l)
		}
	}
	return out
}

// equivalenceVar introduces a fresh auxiliary literal equivalent to the
// conjunction of cond (len(cond) >= 2), via the Tseitin clauses
// {¬aux, l_1}, ..., {¬aux, l_k}, {aux, ¬l_1, ..., ¬l_k}, and returns the
// VarIndex standing for that literal.
func (n *Normalizer) equivalenceVar(cond []bound.HostLiteral, sink ClauseSink, out *[]Constraint) (bound.VarIndex, error) {
	aux := n.alloc()
	for _, l := range cond {
		if !sink.AddClause([]bound.HostLiteral{aux.Negate(), l}) {
			return 0, xerr.New("normalize", "equivalenceVar", "host rejected Tseitin implication clause")
		}
	}
	wide := make([]bound.HostLiteral, 0, len(cond)+1)
	wide = append(wide, aux)
	for _, l := range cond {
		wide = append(wide, l.Negate())
	}
	if !sink.AddClause(wide) {
		return 0, xerr.New("normalize", "equivalenceVar", "host rejected Tseitin equivalence clause")
	}
	return n.varFor(aux, out), nil
}

// tupleGroup accumulates every element sharing one tuple.
type tupleGroup struct {
	key    string
	tuple  []TermID
	elems  []Element
}

func tupleKey(t []TermID) string {
	b := make([]byte, 0, len(t)*8)
	for _, id := range t {
		b = append(b, byte(id), byte(id>>8), byte(id>>16), byte(id>>24),
			byte(id>>32), byte(id>>40), byte(id>>48), byte(id>>56), ':')
	}
	return string(b)
}

// Normalize lowers one theory atom into zero or more Constraints: bound rows
// for any newly-seen literal, internal combination rows for tuples whose
// occurrence parity needs an auxiliary, and exactly one final row for the
// atom itself. It returns all errors it can detect (e.g. a rejected Tseitin
// clause) bundled via go-multierror rather than aborting at the first.
func (n *Normalizer) Normalize(atom Atom, sink ClauseSink) ([]Constraint, error) {
	var out []Constraint
	var errs *multierror.Error

	order := make([]string, 0, len(atom.Elems))
	groups := make(map[string]*tupleGroup, len(atom.Elems))
	for _, e := range atom.Elems {
		k := tupleKey(e.Tuple)
		g, ok := groups[k]
		if !ok {
			g = &tupleGroup{key: k, tuple: e.Tuple}
			groups[k] = g
			order = append(order, k)
		}
		g.elems = append(g.elems, e)
	}

	lhs := set.New[bound.VarIndex](len(order))
	rhsFlip := false

	for _, k := range order {
		g := groups[k]
		terms := set.New[bound.VarIndex](len(g.elems))
		constFlip := false
		for _, e := range g.elems {
			cond := canonicalCondition(e.Condition)
			switch len(cond) {
			case 0:
				constFlip = !constFlip
			case 1:
				v := n.varFor(cond[0], &out)
				toggle(terms, v)
			default:
				v, err := n.equivalenceVar(cond, sink, &out)
				if err != nil {
					errs = multierror.Append(errs, err)
					continue
				}
				toggle(terms, v)
			}
		}

		reduced := terms.Slice()
		sort.Slice(reduced, func(i, j int) bool { return reduced[i] < reduced[j] })

		switch {
		case len(reduced) == 0 && !constFlip:
			// tuple cancels entirely: even occurrence count, nothing to add.
		case len(reduced) == 0 && constFlip:
			rhsFlip = !rhsFlip
		case len(reduced) == 1 && !constFlip:
			lhs.Insert(reduced[0])
		default:
			aux := n.alloc()
			auxVar := n.varFor(aux, &out)
			combLHS := append([]bound.VarIndex{auxVar}, reduced...)
			out = append(out, Constraint{LHS: combLHS, RHS: gf2.Value(constFlip), Lit: n.trueLit})
			lhs.Insert(auxVar)
		}
	}

	finalLHS := lhs.Slice()
	sort.Slice(finalLHS, func(i, j int) bool { return finalLHS[i] < finalLHS[j] })
	rhs := gf2.Xor(atom.Parity, gf2.Value(rhsFlip))
	out = append(out, Constraint{LHS: finalLHS, RHS: rhs, Lit: atom.Lit})

	return out, errs.ErrorOrNil()
}

func toggle(s *set.Set[bound.VarIndex], v bound.VarIndex) {
	if s.Contains(v) {
		s.Remove(v)
		return
	}
	s.Insert(v)
}
