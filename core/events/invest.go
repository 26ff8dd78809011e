package events

import (
	"math/big"

	"stakebank/core/types"
)

const (
	// TypeInvestBonded is emitted when native funds are bonded for derivative tokens.
	TypeInvestBonded = "invest.bonded"
	// TypeInvestUnbonded is emitted when derivative tokens are redeemed into a claim.
	TypeInvestUnbonded = "invest.unbonded"
	// TypeInvestClaimed is emitted when matured claims are paid out.
	TypeInvestClaimed = "invest.claimed"
	// TypeInvestReinvestRequested marks the first phase of a reinvest.
	TypeInvestReinvestRequested = "invest.reinvestRequested"
	// TypeInvestReinvested marks the completion of a reinvest. Skipped is set
	// when the spare balance was too small to bond.
	TypeInvestReinvested = "invest.reinvested"
)

// InvestBonded captures a bond.
type InvestBonded struct {
	Account   [20]byte
	Validator string
	Amount    *big.Int
	Minted    *big.Int
	Bonded    *big.Int
	Issued    *big.Int
}

func (InvestBonded) EventType() string { return TypeInvestBonded }

func (e InvestBonded) Event() *types.Event {
	return &types.Event{Type: TypeInvestBonded, Attributes: map[string]string{
		"from":         formatAccount(e.Account),
		"validator":    e.Validator,
		"bonded":       formatAmount(e.Amount),
		"minted":       formatAmount(e.Minted),
		"supplyBonded": formatAmount(e.Bonded),
		"supplyIssued": formatAmount(e.Issued),
	}}
}

// InvestUnbonded captures an unbond and the claim it created.
type InvestUnbonded struct {
	Account     [20]byte
	Validator   string
	Amount      *big.Int
	Tax         *big.Int
	UnbondValue *big.Int
	ReleaseAt   uint64
}

func (InvestUnbonded) EventType() string { return TypeInvestUnbonded }

func (e InvestUnbonded) Event() *types.Event {
	return &types.Event{Type: TypeInvestUnbonded, Attributes: map[string]string{
		"from":        formatAccount(e.Account),
		"validator":   e.Validator,
		"amount":      formatAmount(e.Amount),
		"tax":         formatAmount(e.Tax),
		"unbondValue": formatAmount(e.UnbondValue),
		"releaseAt":   formatUint(e.ReleaseAt),
	}}
}

// InvestClaimed captures a claim payout.
type InvestClaimed struct {
	Account [20]byte
	Amount  *big.Int
	Denom   string
}

func (InvestClaimed) EventType() string { return TypeInvestClaimed }

func (e InvestClaimed) Event() *types.Event {
	return &types.Event{Type: TypeInvestClaimed, Attributes: map[string]string{
		"from":   formatAccount(e.Account),
		"amount": formatAmount(e.Amount),
		"denom":  e.Denom,
	}}
}

// InvestReinvestRequested captures the marker recorded by a reinvest.
type InvestReinvestRequested struct {
	Caller    [20]byte
	Validator string
	Token     string
}

func (InvestReinvestRequested) EventType() string { return TypeInvestReinvestRequested }

func (e InvestReinvestRequested) Event() *types.Event {
	return &types.Event{Type: TypeInvestReinvestRequested, Attributes: map[string]string{
		"from":      formatAccount(e.Caller),
		"validator": e.Validator,
		"token":     e.Token,
	}}
}

// InvestReinvested captures the outcome of the bonding phase of a reinvest.
type InvestReinvested struct {
	Token   string
	Amount  *big.Int
	Skipped bool
}

func (InvestReinvested) EventType() string { return TypeInvestReinvested }

func (e InvestReinvested) Event() *types.Event {
	attrs := map[string]string{
		"token":  e.Token,
		"amount": formatAmount(e.Amount),
	}
	if e.Skipped {
		attrs["skipped"] = "true"
	}
	return &types.Event{Type: TypeInvestReinvested, Attributes: attrs}
}
