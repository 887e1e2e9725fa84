// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"encoding/hex"
	"strings"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchain/lumen/lumen"
	"github.com/lumenchain/lumen/pos/params"
	"github.com/lumenchain/lumen/pos/stake"
)

type testKey string

func (k testKey) Bytes() []byte { return []byte(k) }

func (k testKey) RawHash() string {
	h := lumen.Sha256([]byte(k))
	return strings.ToUpper(hex.EncodeToString(h[:20]))
}

func (k testKey) String() string { return string(k) }

func testParams() params.Params {
	p := params.DefaultParams()
	p.MaxValidatorSlots = 2
	p.PipelineLen = 2
	p.UnbondingLen = 4
	p.VotesPerToken = sdkmath.LegacyOneDec()
	return p
}

func testCommission() CommissionRates {
	return CommissionRates{
		Rate:          sdkmath.LegacyNewDecWithPrec(1, 1),
		MaxRateChange: sdkmath.LegacyNewDecWithPrec(1, 2),
	}
}

func genesisValidator(a lumen.Address, tokens uint64, key testKey) GenesisValidator[lumen.Address, testKey] {
	return GenesisValidator[lumen.Address, testKey]{
		Address:      a,
		Tokens:       stake.NewAmount(tokens),
		ConsensusKey: key,
		Commission:   testCommission(),
	}
}

func newTestLedger(t *testing.T) *Ledger[lumen.Address, testKey] {
	t.Helper()
	l, err := NewLedger(testParams(), 0, []GenesisValidator[lumen.Address, testKey]{
		genesisValidator(addr(0xaa), 100, "key-a"),
	})
	require.NoError(t, err)
	return l
}

func selfBond(a lumen.Address) BondID[lumen.Address] {
	return BondID[lumen.Address]{Source: a, Validator: a}
}

func TestNewLedgerGenesis(t *testing.T) {
	l := newTestLedger(t)
	a := addr(0xaa)

	assert.EqualValues(t, 0, l.CurrentEpoch())

	state, ok := l.ValidatorState(a, 0)
	require.True(t, ok)
	assert.Equal(t, StateCandidate, state, "genesis validators skip the pending stage")

	sum, err := l.BondSum(selfBond(a), 0)
	require.NoError(t, err)
	assert.Equal(t, stake.NewAmount(100), sum)

	bonded, ok := l.BondedStake(a, 0)
	require.True(t, ok)
	assert.Equal(t, stake.NewAmount(100), bonded)
	assert.Equal(t, stake.NewAmount(100), l.TotalBonded(0))

	set, ok := l.ValidatorSetAt(0)
	require.True(t, ok)
	require.Len(t, set.Active, 1)
	assert.Equal(t, a, set.Active[0].Address)

	power, err := l.VotingPower(a, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), power)

	key, ok := l.ConsensusKey(a, 0)
	require.True(t, ok)
	assert.Equal(t, testKey("key-a"), key)

	commission, ok := l.CommissionRate(a, 0)
	require.True(t, ok)
	assert.True(t, commission.Rate.Equal(testCommission().Rate))
}

func TestNewLedgerRejects(t *testing.T) {
	dup := []GenesisValidator[lumen.Address, testKey]{
		genesisValidator(addr(1), 100, "k1"),
		genesisValidator(addr(1), 200, "k2"),
	}
	_, err := NewLedger(testParams(), 0, dup)
	require.ErrorIs(t, err, ErrValidatorExists)

	badParams := testParams()
	badParams.PipelineLen = 0
	_, err = NewLedger[lumen.Address, testKey](badParams, 0, nil)
	require.Error(t, err)

	badCommission := genesisValidator(addr(1), 100, "k1")
	badCommission.Commission.Rate = sdkmath.LegacyNewDec(2)
	_, err = NewLedger(testParams(), 0, []GenesisValidator[lumen.Address, testKey]{badCommission})
	require.Error(t, err)
}

func TestBecomeValidator(t *testing.T) {
	l := newTestLedger(t)
	b := addr(0xbb)

	require.NoError(t, l.BecomeValidator(b, "key-b", testCommission()))
	require.ErrorIs(t, l.BecomeValidator(b, "key-b", testCommission()), ErrValidatorExists)

	state, ok := l.ValidatorState(b, 0)
	require.True(t, ok)
	assert.Equal(t, StatePending, state)

	state, _ = l.ValidatorState(b, 1)
	assert.Equal(t, StatePending, state, "still pending one epoch before the pipeline boundary")

	state, _ = l.ValidatorState(b, 2)
	assert.Equal(t, StateCandidate, state)

	badCommission := testCommission()
	badCommission.Rate = sdkmath.LegacyNewDec(-1)
	require.Error(t, l.BecomeValidator(addr(0xcc), "key-c", badCommission))
}

func TestBondActivation(t *testing.T) {
	l := newTestLedger(t)
	a, b := addr(0xaa), addr(0xbb)

	require.ErrorIs(t, l.Bond(selfBond(b), stake.NewAmount(1)), ErrUnknownValidator)

	require.NoError(t, l.BecomeValidator(b, "key-b", testCommission()))
	require.NoError(t, l.Bond(selfBond(b), stake.NewAmount(500)))

	// the stake is not visible before the pipeline epoch
	set, _ := l.ValidatorSetAt(1)
	assert.False(t, set.Contains(b))
	set, _ = l.ValidatorSetAt(2)
	assert.True(t, set.IsActive(b))

	updates, err := l.AdvanceEpoch()
	require.NoError(t, err)
	assert.Empty(t, updates, "nothing takes effect one epoch in")

	updates, err = l.AdvanceEpoch()
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, testKey("key-b"), updates[0].ConsensusKey)
	assert.Equal(t, int64(500), updates[0].VotingPower)
	assert.False(t, updates[0].Deactivated)

	power, err := l.VotingPower(b, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(500), power)
	power, err = l.VotingPower(a, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(100), power)

	assert.Equal(t, stake.NewAmount(600), l.TotalBonded(2))
}

func TestUnbond(t *testing.T) {
	l := newTestLedger(t)
	a := addr(0xaa)
	id := selfBond(a)

	require.ErrorIs(t, l.Unbond(selfBond(addr(0xbb)), stake.NewAmount(1)), ErrUnknownBond)

	require.NoError(t, l.Bond(id, stake.NewAmount(50)))
	require.ErrorIs(t, l.Unbond(id, stake.NewAmount(151)), ErrInsufficientBond)

	require.NoError(t, l.Unbond(id, stake.NewAmount(120)))

	assert.Equal(t, stake.NewAmount(0), l.UnbondSum(id, 1), "not yet effective")
	assert.Equal(t, stake.NewAmount(120), l.UnbondSum(id, 2))

	sum, err := l.BondSum(id, 1)
	require.NoError(t, err)
	assert.Equal(t, stake.NewAmount(100), sum)
	sum, err = l.BondSum(id, 2)
	require.NoError(t, err)
	assert.Equal(t, stake.NewAmount(30), sum)

	// most recently bonded tokens are withdrawn first: all 50 of the
	// epoch-2 delta, 70 of the genesis delta
	value, ok := l.unbonds[id].SumUntil(2)
	require.True(t, ok)
	assert.Equal(t, stake.NewAmount(50), value.Deltas[EpochPair{BondStart: 2, UnbondAt: 2}])
	assert.Equal(t, stake.NewAmount(70), value.Deltas[EpochPair{BondStart: 0, UnbondAt: 2}])

	// a second unbond replays the consumed amounts before taking more
	require.NoError(t, l.Unbond(id, stake.NewAmount(20)))
	value, _ = l.unbonds[id].SumUntil(2)
	assert.Equal(t, stake.NewAmount(90), value.Deltas[EpochPair{BondStart: 0, UnbondAt: 2}])

	require.ErrorIs(t, l.Unbond(id, stake.NewAmount(11)), ErrInsufficientBond)
}

func TestUnbondKeepsPriorAttribution(t *testing.T) {
	l := newTestLedger(t)
	id := selfBond(addr(0xaa))

	// withdraw from the genesis delta, then bond a newer delta
	require.NoError(t, l.Unbond(id, stake.NewAmount(70)))
	require.NoError(t, l.Bond(id, stake.NewAmount(50)))

	// the new withdrawal comes from the newest delta; the earlier one
	// stays attributed to the genesis bond start
	require.NoError(t, l.Unbond(id, stake.NewAmount(10)))
	value, ok := l.unbonds[id].SumUntil(2)
	require.True(t, ok)
	assert.Equal(t, stake.NewAmount(10), value.Deltas[EpochPair{BondStart: 2, UnbondAt: 2}])
	assert.Equal(t, stake.NewAmount(70), value.Deltas[EpochPair{BondStart: 0, UnbondAt: 2}])
}

func TestValidatorSetHistoryRetention(t *testing.T) {
	p := testParams()
	p.PipelineLen = 1
	p.UnbondingLen = 4
	a := addr(0xaa)
	l, err := NewLedger(p, 0, []GenesisValidator[lumen.Address, testKey]{
		genesisValidator(a, 100, "key-a"),
	})
	require.NoError(t, err)

	for range 3 {
		_, err := l.AdvanceEpoch()
		require.NoError(t, err)
	}

	// epoch 1 is still inside the evidence window, so the set that was
	// effective there must answer slash attribution queries
	require.NoError(t, l.RecordSlash(a, 1, 9, SlashDuplicateVote))
	set, ok := l.ValidatorSetAt(1)
	require.True(t, ok)
	assert.True(t, set.IsActive(a))
}

func TestRecordSlash(t *testing.T) {
	l := newTestLedger(t)
	a := addr(0xaa)

	require.ErrorIs(t, l.RecordSlash(addr(0xbb), 0, 1, SlashDuplicateVote), ErrUnknownValidator)
	require.ErrorIs(t, l.RecordSlash(a, 1, 1, SlashDuplicateVote), ErrSlashOutsideWindow)

	require.NoError(t, l.RecordSlash(a, 0, 42, SlashDuplicateVote))
	slashes := l.SlashesOf(a)
	require.Len(t, slashes, 1)
	assert.Equal(t, SlashDuplicateVote, slashes[0].Type)
	assert.EqualValues(t, 42, slashes[0].BlockHeight)
	assert.True(t, slashes[0].Rate.Equal(testParams().DuplicateVoteMinSlashRate))

	// the evidence window moves with the epoch
	for range 6 {
		_, err := l.AdvanceEpoch()
		require.NoError(t, err)
	}
	require.ErrorIs(t, l.RecordSlash(a, 1, 1, SlashDuplicateVote), ErrSlashOutsideWindow)
	require.NoError(t, l.RecordSlash(a, 2, 1, SlashDuplicateVote))
}

func TestSlashedBondSum(t *testing.T) {
	l := newTestLedger(t)
	a := addr(0xaa)
	id := selfBond(a)

	require.NoError(t, l.Bond(id, stake.NewAmount(50)))
	require.NoError(t, l.RecordSlash(a, 0, 42, SlashDuplicateVote))

	// 5% of the genesis delta bonded at epoch 0; the epoch-2 delta was
	// bonded after the infraction and is untouched
	sum, err := l.SlashedBondSum(id, 2)
	require.NoError(t, err)
	assert.Equal(t, stake.NewAmount(145), sum)

	sum, err = l.SlashedBondSum(id, 0)
	require.NoError(t, err)
	assert.Equal(t, stake.NewAmount(95), sum)

	sum, err = l.SlashedBondSum(selfBond(addr(0xbb)), 0)
	require.NoError(t, err)
	assert.Equal(t, stake.NewAmount(0), sum, "unknown bonds slash to zero")
}

func TestAdvanceEpochDeactivation(t *testing.T) {
	p := testParams()
	p.MaxValidatorSlots = 1
	p.PipelineLen = 1
	l, err := NewLedger(p, 0, []GenesisValidator[lumen.Address, testKey]{
		genesisValidator(addr(0xaa), 100, "key-a"),
	})
	require.NoError(t, err)
	b := addr(0xbb)

	require.NoError(t, l.BecomeValidator(b, "key-b", testCommission()))
	require.NoError(t, l.Bond(selfBond(b), stake.NewAmount(500)))

	updates, err := l.AdvanceEpoch()
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, testKey("key-b"), updates[0].ConsensusKey)
	assert.Equal(t, int64(500), updates[0].VotingPower)
	assert.Equal(t, testKey("key-a"), updates[1].ConsensusKey)
	assert.True(t, updates[1].Deactivated)

	set, _ := l.ValidatorSetAt(1)
	assert.True(t, set.IsActive(b))
	assert.False(t, set.IsActive(addr(0xaa)))
	assert.True(t, set.Contains(addr(0xaa)))
}

func TestValidatorSetUpdateConsensusAddress(t *testing.T) {
	update := ValidatorSetUpdate[testKey]{ConsensusKey: "key-a", VotingPower: 1}
	got := update.ConsensusAddress()
	assert.Equal(t, testKey("key-a").RawHash(), got)
	assert.Len(t, got, 40)
	assert.Equal(t, strings.ToUpper(got), got)
}
