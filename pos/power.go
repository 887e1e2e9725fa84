// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pos

import (
	sdkmath "cosmossdk.io/math"
	"github.com/pkg/errors"
)

var (
	// ErrProductOutOfBounds is returned when a truncated decimal product
	// does not fit the target integer representation.
	ErrProductOutOfBounds = errors.New("product out of bounds")
	// ErrVotingPowerOverflow is returned when a converted voting power
	// exceeds the consensus engine's signed 64-bit range. The conversion
	// must fail loudly; wrapping silently would fork consensus.
	ErrVotingPowerOverflow = errors.New("voting power out of range")
)

// DecimalMult multiplies a fixed-point rate by an integer amount and
// truncates the product toward zero. The truncation direction is fixed
// protocol-wide; replicas rounding differently would diverge.
func DecimalMult(rate sdkmath.LegacyDec, amount uint64) (uint64, error) {
	prod := rate.MulInt(sdkmath.NewIntFromUint64(amount)).TruncateInt().BigInt()
	if !prod.IsUint64() {
		return 0, errors.Wrapf(ErrProductOutOfBounds, "%s * %d", rate, amount)
	}
	return prod.Uint64(), nil
}

// DecimalMultInt is the signed companion of DecimalMult, used for stake
// deltas. Truncation is toward zero for negative operands as well.
func DecimalMultInt(rate sdkmath.LegacyDec, x int64) (int64, error) {
	prod := rate.MulInt64(x).TruncateInt().BigInt()
	if !prod.IsInt64() {
		return 0, errors.Wrapf(ErrProductOutOfBounds, "%s * %d", rate, x)
	}
	return prod.Int64(), nil
}

// IntoConsensusVotingPower converts a token amount into the signed 64-bit
// voting power unit reported to the consensus engine.
func IntoConsensusVotingPower(votesPerToken sdkmath.LegacyDec, tokens uint64) (int64, error) {
	prod := votesPerToken.MulInt(sdkmath.NewIntFromUint64(tokens)).TruncateInt().BigInt()
	if !prod.IsInt64() {
		return 0, errors.Wrapf(ErrVotingPowerOverflow, "%s votes per token on %d tokens", votesPerToken, tokens)
	}
	return prod.Int64(), nil
}
