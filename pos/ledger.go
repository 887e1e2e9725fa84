// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/pkg/errors"

	"github.com/lumenchain/lumen/log"
	"github.com/lumenchain/lumen/metrics"
	"github.com/lumenchain/lumen/pos/epoch"
	"github.com/lumenchain/lumen/pos/epoched"
	"github.com/lumenchain/lumen/pos/params"
	"github.com/lumenchain/lumen/pos/stake"
)

var logger = log.WithContext("pkg", "pos")

// SetLogger swaps the package logger, primarily for tests.
func SetLogger(l log.Logger) {
	logger = l
}

var (
	metricEpochTransitions = metrics.LazyLoadCounter("pos_epoch_transitions_count")
	metricSlashesRecorded  = metrics.LazyLoadCounterVec("pos_slashes_recorded_count", []string{"type"})
	metricActiveValidators = metrics.LazyLoadGauge("pos_active_validators_gauge")
	metricTotalBonded      = metrics.LazyLoadGauge("pos_total_bonded_gauge")
)

var (
	// ErrValidatorExists is returned when an address already runs through
	// the validator lifecycle.
	ErrValidatorExists = errors.New("validator already exists")
	// ErrUnknownValidator is returned when an address has never entered
	// the validator lifecycle.
	ErrUnknownValidator = errors.New("unknown validator")
	// ErrNotValidator is returned when bonding to an address that is not
	// and will not become a validator.
	ErrNotValidator = errors.New("not a validator")
	// ErrUnknownBond is returned when unbonding from a bond that does not
	// exist.
	ErrUnknownBond = errors.New("unknown bond")
	// ErrInsufficientBond is returned when unbonding more than is bonded.
	ErrInsufficientBond = errors.New("insufficient bond")
	// ErrSlashOutsideWindow is returned for evidence whose infraction
	// epoch can no longer, or cannot yet, be attributed.
	ErrSlashOutsideWindow = errors.New("slash outside evidence window")
)

// Ledger is the staking state machine. All scheduled changes follow the
// pipeline rule: a transaction processed in the current epoch takes effect
// at current + pipeline length, never sooner, so every replica applies it
// at the same boundary regardless of when it saw the transaction. Bonds,
// unbonds and stake deltas are retained per epoch for the unbonding length
// so late evidence can still be attributed.
//
// Ledger is not safe for concurrent use; the caller serializes access the
// same way it serializes transaction execution.
type Ledger[A Addr[A], K PubKey[K]] struct {
	params  params.Params
	current epoch.Epoch

	states      map[A]*epoched.Epoched[ValidatorState]
	consKeys    map[A]*epoched.Epoched[K]
	commissions map[A]*epoched.Epoched[CommissionRates]
	deltas      map[A]*epoched.EpochedDelta[stake.Change]
	bonds       map[BondID[A]]*epoched.EpochedDelta[Bond[stake.Amount]]
	unbonds     map[BondID[A]]*epoched.EpochedDelta[Unbond[stake.Amount]]
	slashes     map[A]Slashes
	totalDeltas *epoched.EpochedDelta[stake.Change]
	sets        *epoched.Epoched[ValidatorSet[A]]
}

// NewLedger creates a ledger at the given epoch from validated parameters
// and the genesis validator set. Genesis validators are candidates
// immediately, with their tokens in a self-bond; the pipeline delay
// applies only to changes made after genesis.
func NewLedger[A Addr[A], K PubKey[K]](
	p params.Params,
	current epoch.Epoch,
	genesis []GenesisValidator[A, K],
) (*Ledger[A, K], error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid parameters")
	}

	l := &Ledger[A, K]{
		params:      p,
		current:     current,
		states:      make(map[A]*epoched.Epoched[ValidatorState]),
		consKeys:    make(map[A]*epoched.Epoched[K]),
		commissions: make(map[A]*epoched.Epoched[CommissionRates]),
		deltas:      make(map[A]*epoched.EpochedDelta[stake.Change]),
		bonds:       make(map[BondID[A]]*epoched.EpochedDelta[Bond[stake.Amount]]),
		unbonds:     make(map[BondID[A]]*epoched.EpochedDelta[Unbond[stake.Amount]]),
		slashes:     make(map[A]Slashes),
	}

	var total stake.Change
	for _, val := range genesis {
		if _, ok := l.states[val.Address]; ok {
			return nil, errors.Wrapf(ErrValidatorExists, "duplicate genesis validator %s", val.Address)
		}
		if err := val.Commission.Validate(); err != nil {
			return nil, errors.Wrapf(err, "genesis validator %s", val.Address)
		}

		l.states[val.Address] = epoched.NewInit(StateCandidate, current, p.PipelineLen)
		l.consKeys[val.Address] = epoched.NewInit(val.ConsensusKey, current, p.PipelineLen)
		l.commissions[val.Address] = epoched.NewInit(val.Commission, current, p.PipelineLen)
		l.deltas[val.Address] = epoched.NewDeltaInit(val.Tokens.Change(), current, p.UnbondingLen)

		selfBond := BondID[A]{Source: val.Address, Validator: val.Address}
		l.bonds[selfBond] = epoched.NewDeltaInit(NewBond(val.Tokens, current), current, p.UnbondingLen)

		total = total.Add(val.Tokens.Change())
	}
	l.totalDeltas = epoched.NewDeltaInit(total, current, p.UnbondingLen)
	// Set snapshots are scheduled explicitly at the pipeline epoch but must
	// stay queryable for the whole unbonding window, so evidence for a past
	// epoch can still be checked against the set that was effective there.
	l.sets = epoched.NewInit(l.computeSet(current), current, p.UnbondingLen)

	logger.Info("ledger initialized",
		"epoch", current,
		"validators", len(genesis),
		"totalBonded", total,
	)
	metricTotalBonded().Set(total.Int64())
	return l, nil
}

// Params returns the protocol parameters the ledger runs with.
func (l *Ledger[A, K]) Params() params.Params { return l.params }

// CurrentEpoch returns the epoch the ledger is at.
func (l *Ledger[A, K]) CurrentEpoch() epoch.Epoch { return l.current }

// BecomeValidator enters an address into the validator lifecycle: pending
// from the current epoch, candidate once the pipeline delay has passed.
func (l *Ledger[A, K]) BecomeValidator(addr A, consensusKey K, commission CommissionRates) error {
	if _, ok := l.states[addr]; ok {
		return errors.Wrapf(ErrValidatorExists, "%s", addr)
	}
	if err := commission.Validate(); err != nil {
		return err
	}

	state := epoched.New[ValidatorState](l.params.PipelineLen)
	state.SetAt(StatePending, l.current)
	state.Set(StateCandidate, l.current)
	l.states[addr] = state

	l.consKeys[addr] = epoched.NewInit(consensusKey, l.current, l.params.PipelineLen)
	l.commissions[addr] = epoched.NewInit(commission, l.current, l.params.PipelineLen)
	l.deltas[addr] = epoched.NewDelta[stake.Change](l.params.UnbondingLen)

	l.refreshSet(l.current.Add(l.params.PipelineLen))

	logger.Debug("validator queued",
		"validator", addr,
		"candidateAt", l.current.Add(l.params.PipelineLen),
	)
	return nil
}

// Bond stakes tokens from the source to the validator. The stake counts
// toward the validator's weight from the pipeline epoch on.
func (l *Ledger[A, K]) Bond(id BondID[A], amount stake.Amount) error {
	state, ok := l.states[id.Validator]
	if !ok {
		return errors.Wrapf(ErrUnknownValidator, "%s", id.Validator)
	}
	effective := l.current.Add(l.params.PipelineLen)
	if s, known := state.Get(effective); !known || s == StateInactive {
		return errors.Wrapf(ErrNotValidator, "%s", id.Validator)
	}

	bond, ok := l.bonds[id]
	if !ok {
		bond = epoched.NewDelta[Bond[stake.Amount]](l.params.UnbondingLen)
		l.bonds[id] = bond
	}
	bond.AddAt(NewBond(amount, effective), effective)

	change := amount.Change()
	l.deltas[id.Validator].AddAt(change, effective)
	l.totalDeltas.AddAt(change, effective)
	l.refreshSet(effective)

	logger.Debug("bonded",
		"id", id,
		"amount", amount,
		"effective", effective,
	)
	return nil
}

// Unbond withdraws tokens from a bond. The withdrawal takes effect at the
// pipeline epoch; until the unbonding window runs out past that point the
// tokens stay attributable to the epochs they were bonded at, so a late
// slash can still reach them. Tokens bonded most recently are withdrawn
// first.
func (l *Ledger[A, K]) Unbond(id BondID[A], amount stake.Amount) error {
	bond, ok := l.bonds[id]
	if !ok {
		return errors.Wrapf(ErrUnknownBond, "%s", id)
	}
	effective := l.current.Add(l.params.PipelineLen)

	value, ok := bond.SumUntil(effective)
	if !ok {
		return errors.Wrapf(ErrUnknownBond, "%s", id)
	}
	available, err := value.Sum()
	if err != nil {
		return errors.Wrapf(err, "bond %s", id)
	}
	if amount.Cmp(available) > 0 {
		return errors.Wrapf(ErrInsufficientBond, "unbonding %s of %s from %s", amount, available, id)
	}

	unbond, ok := l.unbonds[id]
	if !ok {
		unbond = epoched.NewDelta[Unbond[stake.Amount]](l.params.UnbondingLen)
		l.unbonds[id] = unbond
	}

	// Withdraw from the most recent bond deltas first. Earlier withdrawals
	// keep the bond-start attribution they were recorded with, so a delta
	// bonded after them never absorbs them on replay.
	consumed := make(map[epoch.Epoch]stake.Amount)
	if prior, ok := unbond.SumUntil(effective); ok {
		for pair, taken := range prior.Deltas {
			consumed[pair.BondStart] = consumed[pair.BondStart].Add(taken)
		}
	}

	starts := slices.Sorted(maps.Keys(value.PosDeltas))
	slices.Reverse(starts)
	remaining := amount
	for _, start := range starts {
		delta, ok := value.PosDeltas[start].SafeSub(consumed[start])
		if !ok || delta.Cmp(stake.NewAmount(0)) == 0 {
			continue
		}

		take := delta
		if remaining.Cmp(delta) < 0 {
			take = remaining
		}
		unbond.AddAt(NewUnbond(take, EpochPair{BondStart: start, UnbondAt: effective}), effective)
		remaining, _ = remaining.SafeSub(take)
		if remaining.Cmp(stake.NewAmount(0)) == 0 {
			break
		}
	}

	bond.AddAt(NewUnbonded(amount), effective)
	change := amount.Change().Neg()
	l.deltas[id.Validator].AddAt(change, effective)
	l.totalDeltas.AddAt(change, effective)
	l.refreshSet(effective)

	logger.Debug("unbonded",
		"id", id,
		"amount", amount,
		"effective", effective,
	)
	return nil
}

// RecordSlash appends a slash for the validator's misbehavior. Evidence
// must fall inside the unbonding window ending at the current epoch;
// older infractions can no longer be attributed to retained deltas, and
// future ones are malformed.
func (l *Ledger[A, K]) RecordSlash(validator A, infraction epoch.Epoch, blockHeight uint64, slashType SlashType) error {
	if _, ok := l.states[validator]; !ok {
		return errors.Wrapf(ErrUnknownValidator, "%s", validator)
	}
	if infraction > l.current {
		return errors.Wrapf(ErrSlashOutsideWindow, "infraction at %s, current %s", infraction, l.current)
	}
	if infraction < l.current.SubOrDefault(epoch.Epoch(l.params.UnbondingLen)) {
		return errors.Wrapf(ErrSlashOutsideWindow, "infraction at %s, current %s", infraction, l.current)
	}

	slash := Slash{
		Epoch:       infraction,
		BlockHeight: blockHeight,
		Type:        slashType,
		Rate:        slashType.Rate(l.params),
	}
	l.slashes[validator] = append(l.slashes[validator], slash)

	logger.Warn("slash recorded",
		"validator", validator,
		"type", slashType,
		"infraction", infraction,
		"height", blockHeight,
		"rate", slash.Rate,
	)
	metricSlashesRecorded().AddWithLabel(1, map[string]string{"type": slashType.String()})
	return nil
}

// AdvanceEpoch moves the ledger to the next epoch: retention windows
// rotate, the validator set for the incoming pipeline epoch is derived
// from the stake standing at that epoch, and the consensus engine is told
// how the now-effective active set differs from the previous epoch's.
func (l *Ledger[A, K]) AdvanceEpoch() ([]ValidatorSetUpdate[K], error) {
	previous := l.current
	l.current = l.current.Add(1)

	for _, state := range l.states {
		state.Advance(l.current)
	}
	for _, keys := range l.consKeys {
		keys.Advance(l.current)
	}
	for _, commission := range l.commissions {
		commission.Advance(l.current)
	}
	for _, delta := range l.deltas {
		delta.Advance(l.current)
	}
	for _, bond := range l.bonds {
		bond.Advance(l.current)
	}
	for _, unbond := range l.unbonds {
		unbond.Advance(l.current)
	}
	l.totalDeltas.Advance(l.current)

	l.refreshSet(l.current.Add(l.params.PipelineLen))
	l.sets.Advance(l.current)

	updates, err := l.setUpdates(previous)
	if err != nil {
		return nil, err
	}

	if logger.Enabled(slog.LevelDebug) {
		for _, update := range updates {
			logger.Debug("validator set update",
				"consensusAddr", update.ConsensusAddress(),
				"power", update.VotingPower,
				"deactivated", update.Deactivated,
			)
		}
	}

	total, _ := l.totalDeltas.SumUntil(l.current)
	active, _ := l.sets.Get(l.current)
	logger.Info("epoch advanced",
		"epoch", l.current,
		"active", len(active.Active),
		"inactive", len(active.Inactive),
		"totalBonded", total,
		"updates", len(updates),
	)
	metricEpochTransitions().Add(1)
	metricActiveValidators().Set(int64(len(active.Active)))
	metricTotalBonded().Set(total.Int64())
	return updates, nil
}

// refreshSet rewrites the validator set entry effective at the given
// epoch. Mutations always target the pipeline epoch, the furthest entry
// scheduled, so rewriting it never discards an unrelated update; the
// entries for nearer epochs were fixed when they were the pipeline target
// and stay untouched.
func (l *Ledger[A, K]) refreshSet(at epoch.Epoch) {
	l.sets.SetAt(l.computeSet(at), at)
}

// computeSet ranks the candidates by their stake standing at the given
// epoch.
func (l *Ledger[A, K]) computeSet(at epoch.Epoch) ValidatorSet[A] {
	candidates := make([]WeightedValidator[A], 0, len(l.states))
	for addr, state := range l.states {
		if s, ok := state.Get(at); !ok || s != StateCandidate {
			continue
		}
		var bonded stake.Change
		if delta, ok := l.deltas[addr]; ok {
			bonded, _ = delta.SumUntil(at)
		}
		if bonded.Cmp(stake.Change(0)) < 0 {
			// Deltas only go negative through an accounting bug; rank the
			// validator at zero rather than wrap around.
			logger.Error("negative bonded stake", "validator", addr, "epoch", at, "stake", bonded)
			bonded = 0
		}
		candidates = append(candidates, WeightedValidator[A]{
			BondedStake: uint64(bonded.Int64()),
			Address:     addr,
		})
	}
	return newValidatorSet(candidates, l.params.MaxValidatorSlots)
}

// setUpdates diffs the active set effective now against the one effective
// at the previous epoch.
func (l *Ledger[A, K]) setUpdates(previous epoch.Epoch) ([]ValidatorSetUpdate[K], error) {
	before, _ := l.sets.Get(previous)
	after, ok := l.sets.Get(l.current)
	if !ok {
		return nil, nil
	}

	var updates []ValidatorSetUpdate[K]
	for _, w := range after.Active {
		if prev, wasActive := before.stakeOf(w.Address); wasActive && before.IsActive(w.Address) && prev == w.BondedStake {
			continue
		}
		power, err := IntoConsensusVotingPower(l.params.VotesPerToken, w.BondedStake)
		if err != nil {
			return nil, errors.Wrapf(err, "validator %s", w.Address)
		}
		key, ok := l.consKeys[w.Address].Get(l.current)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownValidator, "no consensus key for %s at %s", w.Address, l.current)
		}
		updates = append(updates, ValidatorSetUpdate[K]{
			ConsensusKey: key,
			VotingPower:  power,
		})
	}
	for _, w := range before.Active {
		if after.IsActive(w.Address) {
			continue
		}
		key, ok := l.consKeys[w.Address].Get(l.current)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownValidator, "no consensus key for %s at %s", w.Address, l.current)
		}
		updates = append(updates, ValidatorSetUpdate[K]{
			ConsensusKey: key,
			Deactivated:  true,
		})
	}
	return updates, nil
}

// ValidatorState returns the validator's lifecycle state effective at the
// given epoch.
func (l *Ledger[A, K]) ValidatorState(addr A, at epoch.Epoch) (ValidatorState, bool) {
	state, ok := l.states[addr]
	if !ok {
		return StateInactive, false
	}
	return state.Get(at)
}

// ConsensusKey returns the validator's consensus key effective at the
// given epoch.
func (l *Ledger[A, K]) ConsensusKey(addr A, at epoch.Epoch) (K, bool) {
	keys, ok := l.consKeys[addr]
	if !ok {
		var zero K
		return zero, false
	}
	return keys.Get(at)
}

// CommissionRate returns the validator's commission configuration
// effective at the given epoch.
func (l *Ledger[A, K]) CommissionRate(addr A, at epoch.Epoch) (CommissionRates, bool) {
	commission, ok := l.commissions[addr]
	if !ok {
		return CommissionRates{}, false
	}
	return commission.Get(at)
}

// BondSum returns the total of a bond's amounts standing at the given
// epoch.
func (l *Ledger[A, K]) BondSum(id BondID[A], at epoch.Epoch) (stake.Amount, error) {
	bond, ok := l.bonds[id]
	if !ok {
		return stake.NewAmount(0), nil
	}
	value, ok := bond.SumUntil(at)
	if !ok {
		return stake.NewAmount(0), nil
	}
	sum, err := value.Sum()
	if err != nil {
		return stake.NewAmount(0), errors.Wrapf(err, "bond %s", id)
	}
	return sum, nil
}

// UnbondSum returns the total of tokens withdrawn from a bond and still
// inside the unbonding window at the given epoch.
func (l *Ledger[A, K]) UnbondSum(id BondID[A], at epoch.Epoch) stake.Amount {
	unbond, ok := l.unbonds[id]
	if !ok {
		return stake.NewAmount(0)
	}
	value, ok := unbond.SumUntil(at)
	if !ok {
		return stake.NewAmount(0)
	}
	return value.Sum()
}

// BondedStake returns the validator's total bonded stake standing at the
// given epoch, across all of its bonds.
func (l *Ledger[A, K]) BondedStake(addr A, at epoch.Epoch) (stake.Amount, bool) {
	delta, ok := l.deltas[addr]
	if !ok {
		return stake.NewAmount(0), false
	}
	sum, ok := delta.SumUntil(at)
	if !ok || sum.Cmp(stake.Change(0)) < 0 {
		return stake.NewAmount(0), ok
	}
	return stake.NewAmount(uint64(sum.Int64())), true
}

// TotalBonded returns the total stake bonded to all validators at the
// given epoch.
func (l *Ledger[A, K]) TotalBonded(at epoch.Epoch) stake.Amount {
	sum, ok := l.totalDeltas.SumUntil(at)
	if !ok || sum.Cmp(stake.Change(0)) < 0 {
		return stake.NewAmount(0)
	}
	return stake.NewAmount(uint64(sum.Int64()))
}

// VotingPower returns the validator's consensus voting power at the given
// epoch, zero if it is not in the active set.
func (l *Ledger[A, K]) VotingPower(addr A, at epoch.Epoch) (int64, error) {
	set, ok := l.sets.Get(at)
	if !ok || !set.IsActive(addr) {
		return 0, nil
	}
	bonded, _ := set.stakeOf(addr)
	return IntoConsensusVotingPower(l.params.VotesPerToken, bonded)
}

// ValidatorSetAt returns the validator set effective at the given epoch.
func (l *Ledger[A, K]) ValidatorSetAt(at epoch.Epoch) (ValidatorSet[A], bool) {
	return l.sets.Get(at)
}

// SlashesOf returns the validator's slashes in the order they were
// recorded. The returned slice is shared; callers must not modify it.
func (l *Ledger[A, K]) SlashesOf(validator A) Slashes {
	return l.slashes[validator]
}

// SlashedBondSum returns a bond's total standing at the given epoch with
// the validator's applicable slashes deducted. Slashes apply to each bond
// delta in recording order, each slashing the amount left by the previous
// one; products truncate toward zero.
func (l *Ledger[A, K]) SlashedBondSum(id BondID[A], at epoch.Epoch) (stake.Amount, error) {
	bond, ok := l.bonds[id]
	if !ok {
		return stake.NewAmount(0), nil
	}
	value, ok := bond.SumUntil(at)
	if !ok {
		return stake.NewAmount(0), nil
	}

	var sum stake.Amount
	for start, delta := range value.PosDeltas {
		remaining := delta
		for _, slash := range l.slashes[id.Validator] {
			if !slash.AppliesTo(start, at) {
				continue
			}
			slashed, err := DecimalMult(slash.Rate, remaining.Uint64())
			if err != nil {
				return stake.NewAmount(0), errors.Wrapf(err, "bond %s", id)
			}
			remaining, _ = remaining.SafeSub(stake.NewAmount(slashed))
		}
		sum = sum.Add(remaining)
	}
	diff, ok := sum.SafeSub(value.NegDeltas)
	if !ok {
		// More was unbonded than the slashed remainder; the withdrawn
		// tokens already carried their share of the loss.
		return stake.NewAmount(0), nil
	}
	return diff, nil
}
