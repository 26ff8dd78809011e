package invest

import (
	"math/big"
	"strings"

	coreerrors "stakebank/core/errors"
)

// InvestmentInfo configures the bonding engine. It is written once at
// instantiation and never changes afterwards.
type InvestmentInfo struct {
	// Owner receives the exit tax.
	Owner     [20]byte
	BondDenom string
	// UnbondingPeriod is the delay, in seconds, between an unbond and the
	// moment its claim matures.
	UnbondingPeriod uint64
	// ExitTax is the share of every unbond minted to Owner.
	ExitTax       Decimal
	Validator     string
	MinWithdrawal *big.Int
}

// Clone returns a deep copy of the investment info.
func (i *InvestmentInfo) Clone() *InvestmentInfo {
	if i == nil {
		return nil
	}
	out := *i
	out.MinWithdrawal = copyAmount(i.MinWithdrawal)
	return &out
}

// Validate rejects configurations the engine cannot operate with.
func (i *InvestmentInfo) Validate() error {
	if i == nil {
		return errMissingInvestment
	}
	if i.ExitTax.Cmp(OneDecimal()) > 0 {
		return coreerrors.ErrInvalidExitTax
	}
	if strings.TrimSpace(i.BondDenom) == "" {
		return errMissingBondDenom
	}
	if strings.TrimSpace(i.Validator) == "" {
		return errMissingValidator
	}
	if i.MinWithdrawal != nil && i.MinWithdrawal.Sign() < 0 {
		return coreerrors.ErrNegativeAmount
	}
	return nil
}

// Supply caches the staking-backed side of the token economy.
type Supply struct {
	// Issued counts derivative tokens backed by the staking position.
	Issued *big.Int
	// Bonded is the amount believed to be delegated to the validator.
	Bonded *big.Int
	// Claims is the amount reserved for pending and matured unbonds.
	Claims *big.Int
}

// NewSupply returns an all-zero supply.
func NewSupply() *Supply {
	return &Supply{Issued: big.NewInt(0), Bonded: big.NewInt(0), Claims: big.NewInt(0)}
}

// Clone returns a deep copy of the supply.
func (s *Supply) Clone() *Supply {
	if s == nil {
		return NewSupply()
	}
	return &Supply{Issued: copyAmount(s.Issued), Bonded: copyAmount(s.Bonded), Claims: copyAmount(s.Claims)}
}

// ClaimEntry is a pending payout owed to an owner once ReleaseTime passes.
type ClaimEntry struct {
	Amount      *big.Int
	ReleaseTime uint64
}

// Matured reports whether the entry can be paid at now.
func (c ClaimEntry) Matured(now uint64) bool {
	return now >= c.ReleaseTime
}

// ClaimView is a claim entry annotated for queries.
type ClaimView struct {
	Amount      *big.Int `json:"amount"`
	ReleaseTime uint64   `json:"release_time"`
	Matured     bool     `json:"matured"`
}

// ReinvestMarker records a reinvest whose bonding phase has not run yet.
type ReinvestMarker struct {
	Token       string
	Caller      [20]byte
	RequestedAt uint64
}

// InvestmentView is the investment query result.
type InvestmentView struct {
	Owner           [20]byte
	BondDenom       string
	UnbondingPeriod uint64
	ExitTax         Decimal
	Validator       string
	MinWithdrawal   *big.Int
	TokenSupply     *big.Int
	StakedTokens    *big.Int
	NominalValue    Decimal
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
