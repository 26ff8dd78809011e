package types

import (
	"fmt"
	"math/big"
	"strings"
)

// Coin is an amount of a bank denomination.
type Coin struct {
	Denom  string   `json:"denom"`
	Amount *big.Int `json:"amount"`
}

// NewCoin copies amount into a coin of the supplied denomination.
func NewCoin(denom string, amount *big.Int) Coin {
	value := big.NewInt(0)
	if amount != nil {
		value.Set(amount)
	}
	return Coin{Denom: denom, Amount: value}
}

// IsZero reports whether the coin carries no value.
func (c Coin) IsZero() bool {
	return c.Amount == nil || c.Amount.Sign() == 0
}

// Copy returns a deep copy of the coin.
func (c Coin) Copy() Coin {
	return NewCoin(c.Denom, c.Amount)
}

func (c Coin) String() string {
	amount := "0"
	if c.Amount != nil {
		amount = c.Amount.String()
	}
	return amount + c.Denom
}

// Coins is an ordered list of attached funds.
type Coins []Coin

// AmountOf returns the total attached for denom.
func (cs Coins) AmountOf(denom string) *big.Int {
	total := big.NewInt(0)
	for _, c := range cs {
		if c.Denom == denom && c.Amount != nil {
			total.Add(total, c.Amount)
		}
	}
	return total
}

// Find returns the first coin with the supplied denomination.
func (cs Coins) Find(denom string) (Coin, bool) {
	for _, c := range cs {
		if c.Denom == denom {
			return c, true
		}
	}
	return Coin{}, false
}

// Validate rejects negative amounts and empty denominations.
func (cs Coins) Validate() error {
	for i, c := range cs {
		if strings.TrimSpace(c.Denom) == "" {
			return fmt.Errorf("coin %d: denom required", i)
		}
		if c.Amount == nil || c.Amount.Sign() < 0 {
			return fmt.Errorf("coin %d: amount must be non-negative", i)
		}
	}
	return nil
}

func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
