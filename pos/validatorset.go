// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"fmt"
	"slices"
)

// WeightedValidator is a validator's address paired with its bonded stake.
// The bonded stake is compared before the address: the natural ordering of
// this type is the ranking that decides active-set membership.
type WeightedValidator[A Addr[A]] struct {
	BondedStake uint64
	Address     A
}

// Cmp orders weighted validators by bonded stake first, tie-broken by
// address, yielding the deterministic total order the validator sets are
// ranked by.
func (w WeightedValidator[A]) Cmp(rhs WeightedValidator[A]) int {
	switch {
	case w.BondedStake < rhs.BondedStake:
		return -1
	case w.BondedStake > rhs.BondedStake:
		return 1
	default:
		return w.Address.Cmp(rhs.Address)
	}
}

// String implements stringer
func (w WeightedValidator[A]) String() string {
	return fmt.Sprintf("%s with bonded stake %d", w.Address, w.BondedStake)
}

// ValidatorSet partitions the Candidate validators into the active set,
// bounded by the max validator slots parameter, and the unbounded inactive
// remainder. Both halves are kept in descending rank order; the boundary
// is a cut point in the combined ranking, so every active member's stake
// is at least every inactive member's stake.
type ValidatorSet[A Addr[A]] struct {
	Active   []WeightedValidator[A]
	Inactive []WeightedValidator[A]
}

// newValidatorSet ranks candidates and cuts the top maxSlots into the
// active set. The input slice is sorted in place.
func newValidatorSet[A Addr[A]](candidates []WeightedValidator[A], maxSlots uint64) ValidatorSet[A] {
	slices.SortFunc(candidates, func(a, b WeightedValidator[A]) int {
		return b.Cmp(a) // descending
	})
	cut := min(uint64(len(candidates)), maxSlots)
	return ValidatorSet[A]{
		Active:   slices.Clip(candidates[:cut]),
		Inactive: slices.Clip(candidates[cut:]),
	}
}

// IsActive reports whether the address is in the active half.
func (s ValidatorSet[A]) IsActive(addr A) bool {
	return slices.ContainsFunc(s.Active, func(w WeightedValidator[A]) bool {
		return w.Address == addr
	})
}

// Contains reports whether the address is a member of either half.
func (s ValidatorSet[A]) Contains(addr A) bool {
	if s.IsActive(addr) {
		return true
	}
	return slices.ContainsFunc(s.Inactive, func(w WeightedValidator[A]) bool {
		return w.Address == addr
	})
}

// stakeOf returns the bonded stake recorded for the address in either
// half, with ok reporting membership.
func (s ValidatorSet[A]) stakeOf(addr A) (uint64, bool) {
	for _, w := range s.Active {
		if w.Address == addr {
			return w.BondedStake, true
		}
	}
	for _, w := range s.Inactive {
		if w.Address == addr {
			return w.BondedStake, true
		}
	}
	return 0, false
}
