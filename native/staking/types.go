package staking

import (
	"math/big"

	"stakebank/core/types"
)

// Params configures the staking keeper.
type Params struct {
	// BondDenom is the only denomination accepted for delegation and paid as
	// rewards.
	BondDenom string
	// UnbondingTime is the delay, in seconds, before undelegated funds are
	// released to the delegator's bank balance.
	UnbondingTime uint64
}

// Delegation is a delegator's position with one validator.
type Delegation struct {
	Delegator [20]byte
	Validator string
	Denom     string
	Amount    *big.Int
}

// Coin renders the delegated amount as a coin.
func (d *Delegation) Coin() types.Coin {
	return types.NewCoin(d.Denom, d.Amount)
}

// UnbondingEntry tracks undelegated funds waiting for release.
type UnbondingEntry struct {
	Delegator      [20]byte
	Validator      string
	Denom          string
	Amount         *big.Int
	CompletionTime uint64
}
