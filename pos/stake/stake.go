// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stake provides the host chain's concrete token quantities: the
// unsigned Amount held by bonds and unbonds, and the signed Change used for
// per-epoch stake deltas.
package stake

import (
	"encoding/binary"
	"math"
	"strconv"
)

// Amount is an unsigned token quantity.
type Amount uint64

// NewAmount creates an Amount from its integer form.
func NewAmount(n uint64) Amount {
	return Amount(n)
}

// Add returns a + rhs. Amounts are protocol-bounded well below the 64-bit
// range, so overflow is a programming error and panics.
func (a Amount) Add(rhs Amount) Amount {
	if uint64(a) > math.MaxUint64-uint64(rhs) {
		panic("stake: amount overflow on add")
	}
	return a + rhs
}

// SafeSub returns a - rhs, reporting ok == false on underflow.
func (a Amount) SafeSub(rhs Amount) (Amount, bool) {
	if rhs > a {
		return 0, false
	}
	return a - rhs, true
}

// Cmp compares two amounts, yielding -1, 0 or 1.
func (a Amount) Cmp(rhs Amount) int {
	switch {
	case a < rhs:
		return -1
	case a > rhs:
		return 1
	default:
		return 0
	}
}

// Uint64 returns the integer form of the amount.
func (a Amount) Uint64() uint64 {
	return uint64(a)
}

// Change returns the amount as a signed stake delta.
func (a Amount) Change() Change {
	if uint64(a) > math.MaxInt64 {
		panic("stake: amount exceeds signed delta range")
	}
	return Change(a)
}

// Bytes returns the stable big-endian encoding of the amount.
func (a Amount) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(a))
}

// String implements stringer
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Change is a signed per-epoch stake delta.
type Change int64

// Add returns c + rhs.
func (c Change) Add(rhs Change) Change {
	sum := c + rhs
	if (rhs > 0 && sum < c) || (rhs < 0 && sum > c) {
		panic("stake: change overflow on add")
	}
	return sum
}

// Neg returns the negated delta.
func (c Change) Neg() Change {
	if c == math.MinInt64 {
		panic("stake: change overflow on neg")
	}
	return -c
}

// Cmp compares two changes, yielding -1, 0 or 1.
func (c Change) Cmp(rhs Change) int {
	switch {
	case c < rhs:
		return -1
	case c > rhs:
		return 1
	default:
		return 0
	}
}

// Int64 returns the integer form of the change.
func (c Change) Int64() int64 {
	return int64(c)
}

// Bytes returns the stable big-endian two's-complement encoding of the change.
func (c Change) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(c))
}

// String implements stringer
func (c Change) String() string {
	return strconv.FormatInt(int64(c), 10)
}
