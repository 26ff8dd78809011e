package core

import (
	"errors"
	"fmt"

	coreerrors "stakebank/core/errors"
	"stakebank/crypto"
	"stakebank/native/token"
)

// ErrQueryNotSupported indicates the query envelope names no known query.
var ErrQueryNotSupported = errors.New("query: not supported")

// Query answers msg against committed state. Claims are annotated with their
// maturity at block.Time.
func (h *Host) Query(block Block, msg *QueryMsg) (interface{}, error) {
	if h == nil || h.state == nil {
		return nil, errNilHost
	}
	method, err := msg.Method()
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	switch method {
	case "investment":
		return h.queryInvestment()
	case "claims":
		return h.queryClaims(block, msg.Claims.Address)
	case "balance":
		return h.queryBalance(msg.Balance.Address)
	case "token_info":
		return h.queryTokenInfo()
	case "supply":
		return h.querySupply()
	default:
		return nil, fmt.Errorf("%w: %s", ErrQueryNotSupported, method)
	}
}

func (h *Host) queryInvestment() (*InvestmentResponse, error) {
	view, err := h.engine.Investment()
	if err != nil {
		return nil, err
	}
	return &InvestmentResponse{
		Owner:           crypto.AccountString(view.Owner),
		BondDenom:       view.BondDenom,
		UnbondingPeriod: view.UnbondingPeriod,
		ExitTax:         view.ExitTax,
		Validator:       view.Validator,
		MinWithdrawal:   NewUint128(view.MinWithdrawal),
		TokenSupply:     NewUint128(view.TokenSupply),
		StakedTokens:    NewUint128(view.StakedTokens),
		NominalValue:    view.NominalValue,
	}, nil
}

func (h *Host) queryClaims(block Block, address string) (*ClaimsResponse, error) {
	owner, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	views, err := h.engine.Claims(owner, block.Time)
	if err != nil {
		return nil, err
	}
	out := &ClaimsResponse{Claims: make([]ClaimResponse, 0, len(views))}
	for _, view := range views {
		out.Claims = append(out.Claims, ClaimResponse{
			Amount:      NewUint128(view.Amount),
			ReleaseTime: view.ReleaseTime,
			Matured:     view.Matured,
		})
	}
	return out, nil
}

func (h *Host) queryBalance(address string) (*BalanceResponse, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	balance, err := h.ledger.Balance(addr)
	if err != nil {
		return nil, err
	}
	staked, err := h.ledger.Backed(addr, token.BackedByStake)
	if err != nil {
		return nil, err
	}
	bank, err := h.ledger.Backed(addr, token.BackedByBank)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{
		Balance:     NewUint128(balance),
		StakeBacked: NewUint128(staked),
		BankBacked:  NewUint128(bank),
	}, nil
}

func (h *Host) queryTokenInfo() (*TokenInfoResponse, error) {
	info, err := h.ledger.Info()
	if err != nil {
		return nil, err
	}
	out := &TokenInfoResponse{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: NewUint128(info.TotalSupply),
		BankDenom:   info.BankDenom,
		BankBacked:  NewUint128(info.BankBacked),
	}
	if info.HasCap() {
		limit := NewUint128(info.Cap)
		out.Cap = &limit
	}
	return out, nil
}

func (h *Host) querySupply() (*SupplyResponse, error) {
	supply, err := h.engine.Supply()
	if err != nil {
		return nil, err
	}
	if _, ok, err := h.state.InvestmentInfo(); err != nil {
		return nil, err
	} else if !ok {
		return nil, coreerrors.ErrNotInitialized
	}
	return &SupplyResponse{
		Issued: NewUint128(supply.Issued),
		Bonded: NewUint128(supply.Bonded),
		Claims: NewUint128(supply.Claims),
	}, nil
}

// LedgerConsistent reports whether the token balances sum to the recorded
// total supply and each backing sums to the pool that redeems it.
func (h *Host) LedgerConsistent() (bool, error) {
	if h == nil || h.state == nil {
		return false, errNilHost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	info, err := h.ledger.Info()
	if err != nil {
		return false, err
	}
	sum, err := h.ledger.SumBalances()
	if err != nil {
		return false, err
	}
	if sum.Cmp(info.TotalSupply) != 0 {
		return false, nil
	}
	supply, err := h.engine.Supply()
	if err != nil {
		return false, err
	}
	staked, err := h.ledger.SumBacked(token.BackedByStake)
	if err != nil {
		return false, err
	}
	bank, err := h.ledger.SumBacked(token.BackedByBank)
	if err != nil {
		return false, err
	}
	return staked.Cmp(supply.Issued) == 0 && bank.Cmp(info.BankBacked) == 0, nil
}
