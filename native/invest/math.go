package invest

import (
	"math/big"

	"github.com/holiman/uint256"

	coreerrors "stakebank/core/errors"
	"stakebank/native/common"
)

// mulRatio returns floor(amount * num / den). The product is carried in 512
// bits so no precision is lost before the division.
func mulRatio(amount, num, den *big.Int) (*big.Int, error) {
	if den == nil || den.Sign() == 0 {
		return nil, errDivideByZero
	}
	x, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, coreerrors.ErrAmountOverflow
	}
	y, overflow := uint256.FromBig(num)
	if overflow {
		return nil, coreerrors.ErrAmountOverflow
	}
	d, overflow := uint256.FromBig(den)
	if overflow {
		return nil, coreerrors.ErrAmountOverflow
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, coreerrors.ErrAmountOverflow
	}
	out := z.ToBig()
	if err := common.CheckBound(out); err != nil {
		return nil, err
	}
	return out, nil
}

// tokensForBond returns the derivative tokens minted for payment. An empty
// pool or an empty observed position falls back to 1:1.
func tokensForBond(payment, issued, bonded *big.Int) (*big.Int, error) {
	if issued.Sign() == 0 || bonded.Sign() == 0 {
		return new(big.Int).Set(payment), nil
	}
	return mulRatio(payment, issued, bonded)
}

// valueForUnbond converts a token remainder into the native amount it
// redeems, priced against the supply before the unbond is applied.
func valueForUnbond(remainder, bonded, issued *big.Int) (*big.Int, error) {
	if remainder.Sign() == 0 {
		return big.NewInt(0), nil
	}
	return mulRatio(remainder, bonded, issued)
}

// nominalValue returns bonded/issued, or one for an empty pool.
func nominalValue(bonded, issued *big.Int) (Decimal, error) {
	if issued == nil || issued.Sign() == 0 {
		return OneDecimal(), nil
	}
	return DecimalFromRatio(bonded, issued)
}
