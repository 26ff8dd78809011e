package invest

import (
	"log/slog"
	"math/big"

	coreerrors "stakebank/core/errors"
)

// observeBonded sums the delegations held by the contract. All delegations
// must be denominated in the bond denomination.
func (e *Engine) observeBonded(contract [20]byte, bondDenom string) (*big.Int, error) {
	if e.querier == nil {
		return nil, errNilQuerier
	}
	delegations, err := e.querier.AllDelegations(contract)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, d := range delegations {
		if d.Amount.Denom != bondDenom {
			return nil, &coreerrors.DifferentBondDenomError{Denom1: bondDenom, Denom2: d.Amount.Denom}
		}
		if d.Amount.Amount != nil {
			total.Add(total, d.Amount.Amount)
		}
	}
	return total, nil
}

// reconcile asserts that the cached bonded amount matches the staking
// subsystem and returns the observed value.
func (e *Engine) reconcile(op string, contract [20]byte, info *InvestmentInfo, supply *Supply) (*big.Int, error) {
	observed, err := e.observeBonded(contract, info.BondDenom)
	if err != nil {
		if coreerrors.ClassOf(err) == coreerrors.ClassInvariant {
			e.metrics.RecordInvariantViolation("bond_denom")
			e.logger.Error("invest reconciliation failed", slog.String("op", op), slog.Any("error", err))
		}
		return nil, err
	}
	if observed.Cmp(supply.Bonded) != 0 {
		e.metrics.RecordInvariantViolation("bonded_mismatch")
		e.logger.Error("invest bonded mismatch",
			slog.String("op", op),
			slog.String("cached", supply.Bonded.String()),
			slog.String("observed", observed.String()))
		return nil, &coreerrors.BondedMismatchError{Cached: new(big.Int).Set(supply.Bonded), Observed: observed}
	}
	return observed, nil
}
