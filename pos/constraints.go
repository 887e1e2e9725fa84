// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import "fmt"

// Token is the closed capability set a concrete token amount must satisfy
// to be plugged into the accounting types: ordered, summable with overflow
// detection, formattable and carrying a stable binary encoding. The zero
// value must be the additive identity.
type Token[T any] interface {
	// Add returns the sum; overflowing the representation is a fatal
	// programming error, not a recoverable condition.
	Add(rhs T) T
	// SafeSub returns the difference, reporting ok == false on underflow.
	SafeSub(rhs T) (T, bool)
	// Cmp yields -1, 0 or 1.
	Cmp(rhs T) int
	// Bytes is a stable binary encoding; replicas must produce identical
	// bytes for identical values.
	Bytes() []byte
	fmt.Stringer
}

// Addr is the capability set a concrete account address must satisfy:
// total ordering, equality and map-key hashing (via comparable), and a
// stable binary encoding. The contract is checked at compile time, not at
// runtime.
type Addr[A any] interface {
	comparable
	Cmp(rhs A) int
	Bytes() []byte
	fmt.Stringer
}

// PubKey is the capability set a validator consensus key must satisfy.
type PubKey[K any] interface {
	// Bytes is the key's stable binary encoding.
	Bytes() []byte
	// RawHash derives the consensus engine's raw address form of the key.
	RawHash() string
	fmt.Stringer
}
