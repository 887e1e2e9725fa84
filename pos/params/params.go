// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package params defines the protocol parameters consumed by the staking
// ledger. Parameters are governance-tunable and can change between epochs,
// so they are threaded explicitly into every operation that needs them and
// never held as ambient process-wide state.
package params

import (
	sdkmath "cosmossdk.io/math"
	"github.com/pkg/errors"
)

// Params are the proof-of-stake protocol parameters.
type Params struct {
	// MaxValidatorSlots is the maximum size of the active validator set.
	MaxValidatorSlots uint64
	// PipelineLen is the number of epochs between scheduling a state change
	// and it taking effect.
	PipelineLen uint64
	// UnbondingLen is the number of epochs a bond or unbond remains
	// individually slashable after being recorded.
	UnbondingLen uint64
	// VotesPerToken scales bonded stake into consensus voting power.
	VotesPerToken sdkmath.LegacyDec
	// DuplicateVoteMinSlashRate is the minimum portion of stake slashed for
	// a duplicate block vote.
	DuplicateVoteMinSlashRate sdkmath.LegacyDec
	// LightClientAttackMinSlashRate is the minimum portion of stake slashed
	// for a light client attack.
	LightClientAttackMinSlashRate sdkmath.LegacyDec
}

// DefaultParams returns the parameter values used at genesis unless
// overridden.
func DefaultParams() Params {
	return Params{
		MaxValidatorSlots:             128,
		PipelineLen:                   2,
		UnbondingLen:                  21,
		VotesPerToken:                 sdkmath.LegacyNewDecWithPrec(1, 4), // 1 vote per 10k tokens
		DuplicateVoteMinSlashRate:     sdkmath.LegacyNewDecWithPrec(5, 2),
		LightClientAttackMinSlashRate: sdkmath.LegacyNewDecWithPrec(5, 2),
	}
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if p.MaxValidatorSlots == 0 {
		return errors.New("max validator slots must be greater than 0")
	}
	if p.PipelineLen == 0 {
		return errors.New("pipeline length must be greater than 0")
	}
	if p.UnbondingLen < p.PipelineLen {
		return errors.Errorf(
			"unbonding length %d must not be shorter than pipeline length %d",
			p.UnbondingLen, p.PipelineLen,
		)
	}
	if err := validateRate(p.VotesPerToken, "votes per token"); err != nil {
		return err
	}
	if err := validateRate(p.DuplicateVoteMinSlashRate, "duplicate vote min slash rate"); err != nil {
		return err
	}
	return validateRate(p.LightClientAttackMinSlashRate, "light client attack min slash rate")
}

func validateRate(rate sdkmath.LegacyDec, name string) error {
	if rate.IsNil() {
		return errors.Errorf("%s is not set", name)
	}
	if rate.IsNegative() || rate.GT(sdkmath.LegacyOneDec()) {
		return errors.Errorf("%s must be between 0 and 1, got %s", name, rate)
	}
	return nil
}
