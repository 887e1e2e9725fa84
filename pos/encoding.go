// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"cmp"
	"io"
	"maps"
	"slices"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/lumenchain/lumen/pos/epoch"
)

// The accounting types cross the storage boundary through RLP. Replicas
// must derive identical serialized state roots, so map-backed types write
// their entries in ascending key order; encoding is a pure function of the
// value, never of insertion history.

type bondDeltaEnc struct {
	Epoch  uint64
	Amount []byte
}

type bondEnc struct {
	PosDeltas []bondDeltaEnc
	NegDeltas []byte
}

// EncodeRLP implements rlp.Encoder.
func (b Bond[T]) EncodeRLP(w io.Writer) error {
	enc := bondEnc{NegDeltas: b.NegDeltas.Bytes()}
	for _, at := range slices.Sorted(maps.Keys(b.PosDeltas)) {
		enc.PosDeltas = append(enc.PosDeltas, bondDeltaEnc{
			Epoch:  at.Uint64(),
			Amount: b.PosDeltas[at].Bytes(),
		})
	}
	return rlp.Encode(w, &enc)
}

type unbondDeltaEnc struct {
	BondStart uint64
	UnbondAt  uint64
	Amount    []byte
}

// EncodeRLP implements rlp.Encoder.
func (u Unbond[T]) EncodeRLP(w io.Writer) error {
	pairs := slices.SortedFunc(maps.Keys(u.Deltas), func(a, b EpochPair) int {
		if c := cmp.Compare(a.BondStart, b.BondStart); c != 0 {
			return c
		}
		return cmp.Compare(a.UnbondAt, b.UnbondAt)
	})

	enc := make([]unbondDeltaEnc, 0, len(pairs))
	for _, pair := range pairs {
		enc = append(enc, unbondDeltaEnc{
			BondStart: pair.BondStart.Uint64(),
			UnbondAt:  pair.UnbondAt.Uint64(),
			Amount:    u.Deltas[pair].Bytes(),
		})
	}
	return rlp.Encode(w, enc)
}

type slashEnc struct {
	Epoch       uint64
	BlockHeight uint64
	Type        uint8
	// Rate travels in its canonical decimal string form, which is stable
	// across implementations of the fixed-point type.
	Rate string
}

// EncodeRLP implements rlp.Encoder.
func (s Slash) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &slashEnc{
		Epoch:       s.Epoch.Uint64(),
		BlockHeight: s.BlockHeight,
		Type:        uint8(s.Type),
		Rate:        s.Rate.String(),
	})
}

// DecodeRLP implements rlp.Decoder.
func (s *Slash) DecodeRLP(stream *rlp.Stream) error {
	var enc slashEnc
	if err := stream.Decode(&enc); err != nil {
		return err
	}
	rate, err := sdkmath.LegacyNewDecFromStr(enc.Rate)
	if err != nil {
		return err
	}
	*s = Slash{
		Epoch:       epoch.Epoch(enc.Epoch),
		BlockHeight: enc.BlockHeight,
		Type:        SlashType(enc.Type),
		Rate:        rate,
	}
	return nil
}

type weightedValidatorEnc struct {
	BondedStake uint64
	Address     []byte
}

// EncodeRLP implements rlp.Encoder.
func (v WeightedValidator[A]) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &weightedValidatorEnc{
		BondedStake: v.BondedStake,
		Address:     v.Address.Bytes(),
	})
}

// EncodeRLP implements rlp.Encoder.
func (s ValidatorSet[A]) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []any{s.Active, s.Inactive})
}
