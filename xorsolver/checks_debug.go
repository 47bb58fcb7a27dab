//go:build xorcrosscheck

package xorsolver

import (
	"github.com/xDarkicex/xorprop/xerr"
)

// assertInvariants runs the full cross-check suite, stamped with the calling
// operation name for diagnostics. Built only with -tags xorcrosscheck.
func (s *Solver) assertInvariants(op string) error {
	if err := s.verifyTableau(); err != nil {
		return xerr.Wrap("xorsolver", op, "tableau invariant violated", err)
	}
	if err := s.checkPartition(); err != nil {
		return xerr.Wrap("xorsolver", op, "partition invariant violated", err)
	}
	return nil
}

// checkPartition verifies that Index and ReverseIndex remain mutual inverses
// for every slot.
func (s *Solver) checkPartition() error {
	n := s.nNonBasic + s.nBasic
	for slot := uint32(0); slot < n; slot++ {
		rec := s.variables[slot].Index
		if s.variables[rec].ReverseIndex != slot {
			return xerr.New("xorsolver", "checkPartition", "index/reverse_index are not mutual inverses")
		}
	}
	return nil
}
