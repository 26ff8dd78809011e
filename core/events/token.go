package events

import (
	"math/big"

	"stakebank/core/types"
)

const (
	// TypeTokenTransfer is emitted for ledger to ledger transfers.
	TypeTokenTransfer = "token.transfer"
	// TypeTokenConverted is emitted when derivative tokens are swapped 1:1
	// against the bank denomination.
	TypeTokenConverted = "token.converted"

	ConvertDirectionToBank   = "to_bank"
	ConvertDirectionFromBank = "from_bank"
)

// TokenTransfer captures a ledger transfer.
type TokenTransfer struct {
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (TokenTransfer) EventType() string { return TypeTokenTransfer }

func (e TokenTransfer) Event() *types.Event {
	attrs := map[string]string{
		"amount": formatAmount(e.Amount),
	}
	if !zeroAddress(e.From) {
		attrs["from"] = formatAccount(e.From)
	}
	if !zeroAddress(e.To) {
		attrs["to"] = formatAccount(e.To)
	}
	return &types.Event{Type: TypeTokenTransfer, Attributes: attrs}
}

// TokenConverted captures a converter swap.
type TokenConverted struct {
	Direction  string
	Account    [20]byte
	Amount     *big.Int
	Denom      string
	Settlement string
}

func (TokenConverted) EventType() string { return TypeTokenConverted }

func (e TokenConverted) Event() *types.Event {
	attrs := map[string]string{
		"direction": e.Direction,
		"from":      formatAccount(e.Account),
		"amount":    formatAmount(e.Amount),
		"denom":     e.Denom,
	}
	if e.Settlement != "" {
		attrs["settlement"] = e.Settlement
	}
	return &types.Event{Type: TypeTokenConverted, Attributes: attrs}
}
