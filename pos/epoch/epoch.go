// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package epoch defines the discrete protocol time unit that the staking
// ledger is indexed by. Epochs are identified by consecutive natural numbers.
package epoch

import (
	"iter"
	"math"
	"strconv"
)

// Epoch identifies a protocol round. State changes become effective and
// slashes become time-barred relative to epoch boundaries.
type Epoch uint64

// Add returns the epoch advanced by offset. The epoch counter is logically
// unbounded, so wrapping the backing 64-bit integer is a programming error
// and panics rather than producing a bogus epoch.
func (e Epoch) Add(offset uint64) Epoch {
	if uint64(e) > math.MaxUint64-offset {
		panic("epoch: overflow on add")
	}
	return e + Epoch(offset)
}

// CheckedSub computes e - rhs, reporting ok == false on underflow.
// Underflow at the epoch-0 boundary is an expected condition, not an error.
func (e Epoch) CheckedSub(rhs Epoch) (Epoch, bool) {
	if rhs > e {
		return 0, false
	}
	return e - rhs, true
}

// SubOrDefault computes e - rhs, clamping to Epoch(0) on underflow.
func (e Epoch) SubOrDefault(rhs Epoch) Epoch {
	diff, ok := e.CheckedSub(rhs)
	if !ok {
		return 0
	}
	return diff
}

// IterRange yields the sequence of length consecutive epochs starting from e.
// The sequence is finite and can be iterated multiple times.
func (e Epoch) IterRange(length uint64) iter.Seq[Epoch] {
	return func(yield func(Epoch) bool) {
		for i := range length {
			if !yield(e.Add(i)) {
				return
			}
		}
	}
}

// Uint64 returns the integer form of the epoch.
func (e Epoch) Uint64() uint64 {
	return uint64(e)
}

// String implements stringer
func (e Epoch) String() string {
	return strconv.FormatUint(uint64(e), 10)
}
