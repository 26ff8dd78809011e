package state

import (
	"errors"
	"math/big"

	"stakebank/native/invest"
)

var errNilRecord = errors.New("state: nil record")

type storedInvestmentInfo struct {
	Owner           [20]byte
	BondDenom       string
	UnbondingPeriod uint64
	ExitTax         *big.Int
	Validator       string
	MinWithdrawal   *big.Int
}

type storedSupply struct {
	Issued *big.Int
	Bonded *big.Int
	Claims *big.Int
}

type storedClaim struct {
	Amount      *big.Int
	ReleaseTime uint64
}

type storedReinvestMarker struct {
	Token       string
	Caller      [20]byte
	RequestedAt uint64
}

// InvestmentInfo loads the bonding configuration.
func (m *Manager) InvestmentInfo() (*invest.InvestmentInfo, bool, error) {
	var stored storedInvestmentInfo
	ok, err := m.KVGet(investInfoKey, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	tax, err := invest.DecimalFromAtomics(stored.ExitTax)
	if err != nil {
		return nil, false, err
	}
	return &invest.InvestmentInfo{
		Owner:           stored.Owner,
		BondDenom:       stored.BondDenom,
		UnbondingPeriod: stored.UnbondingPeriod,
		ExitTax:         tax,
		Validator:       stored.Validator,
		MinWithdrawal:   nonNil(stored.MinWithdrawal),
	}, true, nil
}

// PutInvestmentInfo stores the bonding configuration.
func (m *Manager) PutInvestmentInfo(info *invest.InvestmentInfo) error {
	if info == nil {
		return errNilRecord
	}
	return m.KVPut(investInfoKey, &storedInvestmentInfo{
		Owner:           info.Owner,
		BondDenom:       info.BondDenom,
		UnbondingPeriod: info.UnbondingPeriod,
		ExitTax:         info.ExitTax.Atomics(),
		Validator:       info.Validator,
		MinWithdrawal:   nonNil(info.MinWithdrawal),
	})
}

// InvestSupply loads the supply cache, zero when unset.
func (m *Manager) InvestSupply() (*invest.Supply, error) {
	var stored storedSupply
	ok, err := m.KVGet(investSupplyKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return invest.NewSupply(), nil
	}
	return &invest.Supply{
		Issued: nonNil(stored.Issued),
		Bonded: nonNil(stored.Bonded),
		Claims: nonNil(stored.Claims),
	}, nil
}

// PutInvestSupply stores the supply cache.
func (m *Manager) PutInvestSupply(supply *invest.Supply) error {
	if supply == nil {
		return errNilRecord
	}
	return m.KVPut(investSupplyKey, &storedSupply{
		Issued: nonNil(supply.Issued),
		Bonded: nonNil(supply.Bonded),
		Claims: nonNil(supply.Claims),
	})
}

// InvestClaims loads the claim entries of owner in creation order.
func (m *Manager) InvestClaims(owner [20]byte) ([]invest.ClaimEntry, error) {
	var stored []storedClaim
	if err := m.KVGetList(investClaimsKey(owner), &stored); err != nil {
		return nil, err
	}
	out := make([]invest.ClaimEntry, 0, len(stored))
	for _, entry := range stored {
		out = append(out, invest.ClaimEntry{Amount: nonNil(entry.Amount), ReleaseTime: entry.ReleaseTime})
	}
	return out, nil
}

// PutInvestClaims replaces the claim entries of owner. An empty list removes
// the record.
func (m *Manager) PutInvestClaims(owner [20]byte, entries []invest.ClaimEntry) error {
	if len(entries) == 0 {
		return m.KVDelete(investClaimsKey(owner))
	}
	stored := make([]storedClaim, 0, len(entries))
	for _, entry := range entries {
		stored = append(stored, storedClaim{Amount: nonNil(entry.Amount), ReleaseTime: entry.ReleaseTime})
	}
	return m.KVPut(investClaimsKey(owner), stored)
}

// ReinvestMarker loads the pending reinvest marker.
func (m *Manager) ReinvestMarker() (*invest.ReinvestMarker, bool, error) {
	var stored storedReinvestMarker
	ok, err := m.KVGet(reinvestMarkerKey, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &invest.ReinvestMarker{Token: stored.Token, Caller: stored.Caller, RequestedAt: stored.RequestedAt}, true, nil
}

// PutReinvestMarker stores the pending reinvest marker.
func (m *Manager) PutReinvestMarker(marker *invest.ReinvestMarker) error {
	if marker == nil {
		return errNilRecord
	}
	return m.KVPut(reinvestMarkerKey, &storedReinvestMarker{
		Token:       marker.Token,
		Caller:      marker.Caller,
		RequestedAt: marker.RequestedAt,
	})
}

// DeleteReinvestMarker clears the pending reinvest marker.
func (m *Manager) DeleteReinvestMarker() error {
	return m.KVDelete(reinvestMarkerKey)
}
