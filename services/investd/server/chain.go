package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stakebank/core"
)

type fundRequest struct {
	Address string          `json:"address"`
	Coins   []core.WireCoin `json:"coins"`
}

type rewardsRequest struct {
	Validator string       `json:"validator"`
	Amount    core.Uint128 `json:"amount"`
}

type slashRequest struct {
	Validator string `json:"validator"`
	BPS       uint32 `json:"bps"`
}

type delegationView struct {
	Validator string        `json:"validator"`
	Amount    core.WireCoin `json:"amount"`
}

// Fund credits bank coins to an account.
func (s *Server) Fund(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() { s.metrics.Observe("chain", "fund", status, time.Since(start)) }()

	var req fundRequest
	if err := decodeBody(w, r, &req); err != nil {
		status = s.fail(w, r, err)
		return
	}
	addr, err := core.ParseAddress(req.Address)
	if err != nil {
		status = s.fail(w, r, err)
		return
	}
	if err := s.host.Fund(addr, core.ToCoins(req.Coins)); err != nil {
		status = s.fail(w, r, err)
		return
	}
	writeJSON(w, status, map[string]string{"status": "funded"})
}

// Rewards accrues staking rewards to a validator's delegators.
func (s *Server) Rewards(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() { s.metrics.Observe("chain", "rewards", status, time.Since(start)) }()

	var req rewardsRequest
	if err := decodeBody(w, r, &req); err != nil {
		status = s.fail(w, r, err)
		return
	}
	allocated, err := s.host.AllocateRewards(req.Validator, req.Amount.Big())
	if err != nil {
		status = s.fail(w, r, err)
		return
	}
	writeJSON(w, status, map[string]core.Uint128{"allocated": core.NewUint128(allocated)})
}

// Slash cuts a validator's delegations.
func (s *Server) Slash(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() { s.metrics.Observe("chain", "slash", status, time.Since(start)) }()

	var req slashRequest
	if err := decodeBody(w, r, &req); err != nil {
		status = s.fail(w, r, err)
		return
	}
	slashed, err := s.host.Slash(req.Validator, req.BPS)
	if err != nil {
		status = s.fail(w, r, fmt.Errorf("%w: %v", errInvalidPayload, err))
		return
	}
	writeJSON(w, status, map[string]core.Uint128{"slashed": core.NewUint128(slashed)})
}

// Balance reports a bank balance.
func (s *Server) Balance(w http.ResponseWriter, r *http.Request) {
	addr, err := core.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	denom := chi.URLParam(r, "denom")
	balance, err := s.host.BankBalance(addr, denom)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.WireCoin{Denom: denom, Amount: core.NewUint128(balance)})
}

// Delegations lists an account's staking positions.
func (s *Server) Delegations(w http.ResponseWriter, r *http.Request) {
	addr, err := core.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	delegations, err := s.host.Delegations(addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]delegationView, 0, len(delegations))
	for _, d := range delegations {
		out = append(out, delegationView{
			Validator: d.Validator,
			Amount:    core.WireCoin{Denom: d.Amount.Denom, Amount: core.NewUint128(d.Amount.Amount)},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"delegations": out})
}
