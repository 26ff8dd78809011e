package common

import (
	"math/big"

	coreerrors "stakebank/core/errors"
)

// MaxAmount is the largest amount any ledger, supply or claim may hold.
var MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// CheckAmount validates a user supplied amount: it must be positive and fit
// in 128 bits.
func CheckAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return coreerrors.ErrInvalidZeroAmount
	}
	if amount.Sign() < 0 {
		return coreerrors.ErrNegativeAmount
	}
	return CheckBound(amount)
}

// CheckBound rejects values that no longer fit in 128 bits.
func CheckBound(amount *big.Int) error {
	if amount != nil && amount.Cmp(MaxAmount) > 0 {
		return coreerrors.ErrAmountOverflow
	}
	return nil
}

// Zero returns a fresh zero amount.
func Zero() *big.Int { return big.NewInt(0) }

// Copy returns a copy of v, treating nil as zero.
func Copy(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
