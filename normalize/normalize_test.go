package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/xDarkicex/xorprop/bound"
	"github.com/xDarkicex/xorprop/gf2"
)

// fakeSink records every clause handed to it and never rejects.
type fakeSink struct {
	clauses [][]bound.HostLiteral
}

func (s *fakeSink) AddClause(lits []bound.HostLiteral) bool {
	s.clauses = append(s.clauses, append([]bound.HostLiteral(nil), lits...))
	return true
}

func litAllocator(next *bound.HostLiteral) LiteralAllocator {
	return func() bound.HostLiteral {
		*next++
		return *next
	}
}

// TestSingleLiteralElementNeedsNoAux checks the common case: a tuple that
// occurs once with a single-literal condition contributes that literal's
// variable directly, with no combination row.
func TestSingleLiteralElementNeedsNoAux(t *testing.T) {
	next := bound.HostLiteral(100)
	n := New(bound.HostLiteral(1), litAllocator(&next))
	sink := &fakeSink{}

	atom := Atom{
		Lit:    10,
		Parity: gf2.Value(false),
		Elems: []Element{
			{Tuple: []TermID{1}, Condition: []bound.HostLiteral{5}},
		},
	}

	cs, err := n.Normalize(atom, sink)
	require.NoError(t, err)

	// Expect: two bound rows for literal 5, then the atom row itself.
	require.Len(t, cs, 3)
	final := cs[len(cs)-1]
	require.Len(t, final.LHS, 1)
	require.Equal(t, gf2.Value(false), final.RHS)
	require.Equal(t, bound.HostLiteral(10), final.Lit)
}

// TestDuplicateTupleSameConditionCancels checks that a tuple occurring twice
// with the identical condition contributes nothing (parity 2 cancellation).
func TestDuplicateTupleSameConditionCancels(t *testing.T) {
	next := bound.HostLiteral(100)
	n := New(bound.HostLiteral(1), litAllocator(&next))
	sink := &fakeSink{}

	atom := Atom{
		Lit:    10,
		Parity: gf2.Value(false),
		Elems: []Element{
			{Tuple: []TermID{1}, Condition: []bound.HostLiteral{5}},
			{Tuple: []TermID{1}, Condition: []bound.HostLiteral{5}},
		},
	}

	cs, err := n.Normalize(atom, sink)
	require.NoError(t, err)

	final := cs[len(cs)-1]
	require.Empty(t, final.LHS)
	require.Equal(t, gf2.Value(false), final.RHS)
}

// TestDuplicateTupleMixedConditionCombinesViaAux:
// &even{x:x; yz:y; yz:z} must produce exactly one auxiliary for yz whose
// parity is y xor z, yielding a 2-term row x xor aux(yz) = 0.
func TestDuplicateTupleMixedConditionCombinesViaAux(t *testing.T) {
	next := bound.HostLiteral(100)
	n := New(bound.HostLiteral(1), litAllocator(&next))
	sink := &fakeSink{}

	atom := Atom{
		Lit:    10,
		Parity: gf2.Value(false),
		Elems: []Element{
			{Tuple: []TermID{1}, Condition: []bound.HostLiteral{50}},    // x
			{Tuple: []TermID{2, 3}, Condition: []bound.HostLiteral{60}}, // yz:y
			{Tuple: []TermID{2, 3}, Condition: []bound.HostLiteral{70}}, // yz:z
		},
	}

	cs, err := n.Normalize(atom, sink)
	require.NoError(t, err)

	final := cs[len(cs)-1]
	require.Len(t, final.LHS, 2)

	// One of the constraints in between must be the combination row with
	// exactly three LHS terms (aux, y-var, z-var), gated by the true literal.
	foundCombo := false
	for _, c := range cs[:len(cs)-1] {
		if len(c.LHS) == 3 && c.Lit == bound.HostLiteral(1) {
			foundCombo = true
		}
	}
	require.True(t, foundCombo, "expected a 3-term combination row gated on the true literal")
}

// TestMultiLiteralConditionEmitsTseitinClauses checks that a condition with
// more than one literal mints a fresh auxiliary and emits its equivalence
// clauses to the sink.
func TestMultiLiteralConditionEmitsTseitinClauses(t *testing.T) {
	next := bound.HostLiteral(100)
	n := New(bound.HostLiteral(1), litAllocator(&next))
	sink := &fakeSink{}

	atom := Atom{
		Lit:    10,
		Parity: gf2.Value(true),
		Elems: []Element{
			{Tuple: []TermID{1}, Condition: []bound.HostLiteral{5, 6}},
		},
	}

	_, err := n.Normalize(atom, sink)
	require.NoError(t, err)

	// {-aux, 5}, {-aux, 6}, {aux, -5, -6}
	require.Len(t, sink.clauses, 3)
	require.Len(t, sink.clauses[2], 3)
}

// TestEmptyConditionFlipsRHS checks that a constant-true element (empty
// condition) flips the owning row's RHS rather than contributing a term.
func TestEmptyConditionFlipsRHS(t *testing.T) {
	next := bound.HostLiteral(100)
	n := New(bound.HostLiteral(1), litAllocator(&next))
	sink := &fakeSink{}

	atom := Atom{
		Lit:    10,
		Parity: gf2.Value(false),
		Elems: []Element{
			{Tuple: []TermID{1}, Condition: nil},
		},
	}

	cs, err := n.Normalize(atom, sink)
	require.NoError(t, err)

	final := cs[len(cs)-1]
	require.Empty(t, final.LHS)
	require.Equal(t, gf2.Value(true), final.RHS)
}

// TestNormalizeEmitsBoundRowsThenAtomRow pins the full constraint layout for
// a freshly-seen literal: its two opposite-literal bound rows followed by the
// atom row itself.
func TestNormalizeEmitsBoundRowsThenAtomRow(t *testing.T) {
	next := bound.HostLiteral(100)
	n := New(bound.HostLiteral(1), litAllocator(&next))
	sink := &fakeSink{}

	atom := Atom{
		Lit:    10,
		Parity: gf2.Value(true),
		Elems: []Element{
			{Tuple: []TermID{1}, Condition: []bound.HostLiteral{5}},
		},
	}

	cs, err := n.Normalize(atom, sink)
	require.NoError(t, err)

	want := []Constraint{
		{LHS: []bound.VarIndex{0}, RHS: gf2.Value(false), Lit: -5},
		{LHS: []bound.VarIndex{0}, RHS: gf2.Value(true), Lit: 5},
		{LHS: []bound.VarIndex{0}, RHS: gf2.Value(true), Lit: 10},
	}
	if diff := cmp.Diff(want, cs); diff != "" {
		t.Fatalf("unexpected constraints (-want +got):\n%s", diff)
	}
}

// TestSameLiteralSharesVariableAcrossAtoms checks that one Normalizer maps a
// literal to the same variable in every atom it appears in, emitting its
// bound rows only once.
func TestSameLiteralSharesVariableAcrossAtoms(t *testing.T) {
	next := bound.HostLiteral(100)
	n := New(bound.HostLiteral(1), litAllocator(&next))
	sink := &fakeSink{}

	mkAtom := func(lit bound.HostLiteral, parity bool) Atom {
		return Atom{
			Lit:    lit,
			Parity: gf2.Value(parity),
			Elems: []Element{
				{Tuple: []TermID{1}, Condition: []bound.HostLiteral{5}},
			},
		}
	}

	cs1, err := n.Normalize(mkAtom(10, true), sink)
	require.NoError(t, err)
	cs2, err := n.Normalize(mkAtom(11, false), sink)
	require.NoError(t, err)

	require.Len(t, cs1, 3)
	// Second atom reuses variable 0: only its own row is emitted.
	want := []Constraint{
		{LHS: []bound.VarIndex{0}, RHS: gf2.Value(false), Lit: 11},
	}
	if diff := cmp.Diff(want, cs2); diff != "" {
		t.Fatalf("unexpected constraints (-want +got):\n%s", diff)
	}
	require.Equal(t, uint32(1), n.NVars())
}
