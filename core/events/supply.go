package events

import (
	"math/big"

	"stakebank/core/types"
)

const (
	// TypeTokenSupply is emitted whenever the derivative token supply changes.
	TypeTokenSupply = "token.supply"

	SupplyReasonMint = "mint"
	SupplyReasonBurn = "burn"
)

// TokenSupply records a mint or burn against the ledger. Delta is signed.
type TokenSupply struct {
	Symbol  string
	Account [20]byte
	Total   *big.Int
	Delta   *big.Int
	// Cap is nil for uncapped tokens.
	Cap    *big.Int
	Reason string
}

func (TokenSupply) EventType() string { return TypeTokenSupply }

func (e TokenSupply) Event() *types.Event {
	attrs := map[string]string{
		"symbol": e.Symbol,
		"total":  formatAmount(e.Total),
		"delta":  formatAmount(e.Delta),
		"reason": e.Reason,
	}
	if !zeroAddress(e.Account) {
		attrs["account"] = formatAccount(e.Account)
	}
	if e.Cap != nil {
		headroom := new(big.Int).Sub(e.Cap, nonNilAmount(e.Total))
		if headroom.Sign() < 0 {
			headroom.SetInt64(0)
		}
		attrs["capHeadroom"] = headroom.String()
	}
	return &types.Event{Type: TypeTokenSupply, Attributes: attrs}
}

func nonNilAmount(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
