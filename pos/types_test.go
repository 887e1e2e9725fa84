// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchain/lumen/lumen"
	"github.com/lumenchain/lumen/pos/params"
	"github.com/lumenchain/lumen/pos/stake"
)

func TestBondSum(t *testing.T) {
	b := NewBond(stake.NewAmount(100), 1)
	b = b.Add(NewBond(stake.NewAmount(50), 3))
	b = b.Add(NewUnbonded(stake.NewAmount(30)))

	sum, err := b.Sum()
	require.NoError(t, err)
	assert.Equal(t, stake.NewAmount(120), sum)
}

func TestBondSumNegative(t *testing.T) {
	b := NewBond(stake.NewAmount(10), 1)
	b = b.Add(NewUnbonded(stake.NewAmount(11)))

	_, err := b.Sum()
	require.ErrorIs(t, err, ErrNegativeBondSum)
}

func TestBondAddAdditive(t *testing.T) {
	a := NewBond(stake.NewAmount(100), 1)
	a = a.Add(NewUnbonded(stake.NewAmount(20)))
	b := NewBond(stake.NewAmount(40), 1) // same epoch as a's delta
	b = b.Add(NewBond(stake.NewAmount(5), 7))

	merged := a.Add(b)
	assert.Equal(t, stake.NewAmount(140), merged.PosDeltas[1], "same-epoch deltas accumulate")
	assert.Equal(t, stake.NewAmount(5), merged.PosDeltas[7])

	sumA, err := a.Sum()
	require.NoError(t, err)
	sumB, err := b.Sum()
	require.NoError(t, err)
	sumMerged, err := merged.Sum()
	require.NoError(t, err)
	assert.Equal(t, sumA.Add(sumB), sumMerged, "merge preserves the sum")

	// operands are untouched
	assert.Equal(t, stake.NewAmount(100), a.PosDeltas[1])
}

func TestUnbondAddAdditive(t *testing.T) {
	pair := EpochPair{BondStart: 1, UnbondAt: 5}
	a := NewUnbond(stake.NewAmount(10), pair)
	b := NewUnbond(stake.NewAmount(15), pair)
	b = b.Add(NewUnbond(stake.NewAmount(3), EpochPair{BondStart: 2, UnbondAt: 5}))

	merged := a.Add(b)
	assert.Equal(t, stake.NewAmount(25), merged.Deltas[pair])
	assert.Equal(t, a.Sum().Add(b.Sum()), merged.Sum())
}

func TestSlashAppliesTo(t *testing.T) {
	s := Slash{Epoch: 5, Rate: sdkmath.LegacyNewDecWithPrec(5, 2)}

	assert.True(t, s.AppliesTo(5, 5))
	assert.True(t, s.AppliesTo(2, 8))
	assert.False(t, s.AppliesTo(6, 8), "bonded after the infraction")
	assert.False(t, s.AppliesTo(2, 4), "withdrawn before the infraction")
}

func TestSlashTypeRate(t *testing.T) {
	p := params.DefaultParams()
	assert.Equal(t, p.DuplicateVoteMinSlashRate, SlashDuplicateVote.Rate(p))
	assert.Equal(t, p.LightClientAttackMinSlashRate, SlashLightClientAttack.Rate(p))
	assert.Panics(t, func() { SlashType(99).Rate(p) })
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "Duplicate vote", SlashDuplicateVote.String())
	assert.Equal(t, "Light client attack", SlashLightClientAttack.String())
	assert.Equal(t, "inactive", StateInactive.String())
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "candidate", StateCandidate.String())

	id := BondID[lumen.Address]{
		Source:    lumen.BytesToAddress([]byte{0x01}),
		Validator: lumen.BytesToAddress([]byte{0x02}),
	}
	assert.Equal(t,
		"{source: 0x0000000000000000000000000000000000000001, validator: 0x0000000000000000000000000000000000000002}",
		id.String())
}

func TestCommissionRatesValidate(t *testing.T) {
	valid := CommissionRates{
		Rate:          sdkmath.LegacyNewDecWithPrec(1, 1),
		MaxRateChange: sdkmath.LegacyNewDecWithPrec(1, 2),
	}
	require.NoError(t, valid.Validate())

	tooHigh := valid
	tooHigh.Rate = sdkmath.LegacyNewDec(2)
	require.Error(t, tooHigh.Validate())

	negative := valid
	negative.MaxRateChange = sdkmath.LegacyNewDec(-1)
	require.Error(t, negative.Validate())

	require.Error(t, CommissionRates{}.Validate(), "unset rates are rejected")
}
