// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pos implements the staking ledger core of the protocol: bonds,
// unbonds, slashes, the validator state machine and the epoch-indexed
// active/inactive validator sets that block validation derives consensus
// voting power from.
package pos

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/pkg/errors"

	"github.com/lumenchain/lumen/pos/epoch"
	"github.com/lumenchain/lumen/pos/params"
	"github.com/lumenchain/lumen/pos/stake"
)

// ErrNegativeBondSum is returned when a bond's aggregate unbonded amount
// exceeds the sum of its bonded deltas. Correct protocol operation never
// produces this; it is an invariant violation reported to the caller, not
// a representable state.
var ErrNegativeBondSum = errors.New("negative bond sum")

// BondID identifies a bond and/or an unbond: the source is the owner of
// the bonded tokens, which for a self-bond is the validator itself.
type BondID[A Addr[A]] struct {
	Source    A
	Validator A
}

// String implements stringer
func (id BondID[A]) String() string {
	return fmt.Sprintf("{source: %s, validator: %s}", id.Source, id.Validator)
}

// Bond records tokens staked by a source to a validator. Positive deltas
// are keyed by the epoch the tokens became bonded, which unbonding and
// slashing need for epoch range checks. Unbonded amounts accumulate into
// a single aggregate negative delta.
type Bond[T Token[T]] struct {
	PosDeltas map[epoch.Epoch]T
	NegDeltas T
}

// NewBond creates a bond of amount, bonded at the given epoch.
func NewBond[T Token[T]](amount T, at epoch.Epoch) Bond[T] {
	return Bond[T]{PosDeltas: map[epoch.Epoch]T{at: amount}}
}

// NewUnbonded creates a bond carrying only an aggregate unbonded amount.
func NewUnbonded[T Token[T]](amount T) Bond[T] {
	return Bond[T]{NegDeltas: amount}
}

// Sum finds the total of all the bond's amounts: the positive deltas minus
// the aggregate negative delta. An underflow is reported as
// ErrNegativeBondSum, never clamped.
func (b Bond[T]) Sum() (T, error) {
	var sum T
	for _, amount := range b.PosDeltas {
		sum = sum.Add(amount)
	}
	diff, ok := sum.SafeSub(b.NegDeltas)
	if !ok {
		var zero T
		return zero, errors.Wrapf(ErrNegativeBondSum, "unbonded %s exceeds bonded %s", b.NegDeltas, sum)
	}
	return diff, nil
}

// Add merges two bonds. Positive deltas merge key-wise, summing where an
// epoch is present on both sides; the same epoch can receive contributions
// from multiple transactions, so values accumulate and are never replaced.
// Neither operand is mutated.
func (b Bond[T]) Add(rhs Bond[T]) Bond[T] {
	merged := make(map[epoch.Epoch]T, len(b.PosDeltas)+len(rhs.PosDeltas))
	for at, amount := range b.PosDeltas {
		merged[at] = amount
	}
	for at, amount := range rhs.PosDeltas {
		if existing, ok := merged[at]; ok {
			merged[at] = existing.Add(amount)
		} else {
			merged[at] = amount
		}
	}
	return Bond[T]{
		PosDeltas: merged,
		NegDeltas: b.NegDeltas.Add(rhs.NegDeltas),
	}
}

// EpochPair keys an unbond delta: a slash must know both when the tokens
// were bonded and when they were unbonded to decide liability.
type EpochPair struct {
	// BondStart is the epoch the unbonded tokens were originally bonded at.
	BondStart epoch.Epoch
	// UnbondAt is the epoch the unbond takes effect.
	UnbondAt epoch.Epoch
}

// Unbond records tokens withdrawn from a bond, still liable to slashing
// for the unbonding window.
type Unbond[T Token[T]] struct {
	Deltas map[EpochPair]T
}

// NewUnbond creates an unbond with a single delta.
func NewUnbond[T Token[T]](amount T, pair EpochPair) Unbond[T] {
	return Unbond[T]{Deltas: map[EpochPair]T{pair: amount}}
}

// Sum finds the total of all the unbond's amounts. There is no negative
// component; slash liability is decided later, not subtracted here.
func (u Unbond[T]) Sum() T {
	var sum T
	for _, amount := range u.Deltas {
		sum = sum.Add(amount)
	}
	return sum
}

// Add merges two unbonds key-wise, summing where an epoch pair is present
// on both sides. Neither operand is mutated.
func (u Unbond[T]) Add(rhs Unbond[T]) Unbond[T] {
	merged := make(map[EpochPair]T, len(u.Deltas)+len(rhs.Deltas))
	for pair, amount := range u.Deltas {
		merged[pair] = amount
	}
	for pair, amount := range rhs.Deltas {
		if existing, ok := merged[pair]; ok {
			merged[pair] = existing.Add(amount)
		} else {
			merged[pair] = amount
		}
	}
	return Unbond[T]{Deltas: merged}
}

// SlashType is the kind of slashable misbehavior.
type SlashType uint8

const (
	// SlashDuplicateVote is a duplicate block vote.
	SlashDuplicateVote SlashType = iota
	// SlashLightClientAttack is a light client attack.
	SlashLightClientAttack
)

// Rate looks up the minimum slash rate configured for the misbehavior kind.
// Parameters are governance-tunable between epochs, so the lookup re-reads
// them on every call and never memoizes.
func (t SlashType) Rate(p params.Params) sdkmath.LegacyDec {
	switch t {
	case SlashDuplicateVote:
		return p.DuplicateVoteMinSlashRate
	case SlashLightClientAttack:
		return p.LightClientAttackMinSlashRate
	default:
		panic(fmt.Sprintf("pos: unknown slash type %d", t))
	}
}

// String implements stringer
func (t SlashType) String() string {
	switch t {
	case SlashDuplicateVote:
		return "Duplicate vote"
	case SlashLightClientAttack:
		return "Light client attack"
	default:
		return fmt.Sprintf("SlashType(%d)", t)
	}
}

// Slash is a penalty applied to a validator for byzantine behavior,
// removing staked tokens at and before the epoch of the infraction.
type Slash struct {
	// Epoch is the epoch at which the slashable event occurred.
	Epoch epoch.Epoch
	// BlockHeight is the height at which the slashable event occurred.
	BlockHeight uint64
	// Type is the kind of slashable event.
	Type SlashType
	// Rate is the portion of staked tokens that are slashed.
	Rate sdkmath.LegacyDec
}

// AppliesTo reports whether a delta bonded at start and held until end is
// liable for this slash.
func (s Slash) AppliesTo(start, end epoch.Epoch) bool {
	return s.Epoch >= start && s.Epoch <= end
}

// Slashes is the append-ordered log of a validator's slashes. It is an
// audit record: entries are never reordered or deleted.
type Slashes []Slash

// ValidatorState is the lifecycle state of a validator.
type ValidatorState uint8

const (
	// StateInactive validators may not participate in the consensus.
	StateInactive ValidatorState = iota
	// StatePending validators become Candidate in a future epoch.
	StatePending
	// StateCandidate validators may participate in the consensus; the
	// validator set partitions them further into active and inactive.
	StateCandidate
	// A jailed state and a demotion path back to Inactive are not modeled.
)

// String implements stringer
func (s ValidatorState) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StatePending:
		return "pending"
	case StateCandidate:
		return "candidate"
	default:
		return fmt.Sprintf("ValidatorState(%d)", s)
	}
}

// CommissionRates is a validator's commission configuration. The rate may
// be adjusted between epochs, bounded per epoch by the max change, which
// itself is fixed at validator creation.
type CommissionRates struct {
	// Rate is charged on rewards for delegators, bounded in 0-1.
	Rate sdkmath.LegacyDec
	// MaxRateChange bounds the per-epoch change of the rate.
	MaxRateChange sdkmath.LegacyDec
}

// Validate checks the rates for protocol bounds.
func (c CommissionRates) Validate() error {
	if c.Rate.IsNil() || c.Rate.IsNegative() || c.Rate.GT(sdkmath.LegacyOneDec()) {
		return errors.Errorf("commission rate must be between 0 and 1, got %s", c.Rate)
	}
	if c.MaxRateChange.IsNil() || c.MaxRateChange.IsNegative() || c.MaxRateChange.GT(sdkmath.LegacyOneDec()) {
		return errors.Errorf("max commission rate change must be between 0 and 1, got %s", c.MaxRateChange)
	}
	return nil
}

// GenesisValidator is a validator definition at chain genesis. Staked
// tokens are put into a self-bond.
type GenesisValidator[A Addr[A], K PubKey[K]] struct {
	Address      A
	Tokens       stake.Amount
	ConsensusKey K
	Commission   CommissionRates
}

// ValidatorSetUpdate tells the consensus engine a validator's standing in
// the active set after an epoch transition.
type ValidatorSetUpdate[K PubKey[K]] struct {
	ConsensusKey K
	// VotingPower is the validator's consensus weight; it is meaningful
	// only while Deactivated is false.
	VotingPower int64
	// Deactivated marks a validator that was active in the last update and
	// no longer is.
	Deactivated bool
}

// ConsensusAddress returns the consensus engine's raw address form of the
// update's key, the identifier the engine reports misbehavior under.
func (u ValidatorSetUpdate[K]) ConsensusAddress() string {
	return u.ConsensusKey.RawHash()
}
