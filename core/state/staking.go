package state

import (
	"math/big"

	"stakebank/native/staking"
)

type storedDelegation struct {
	Delegator [20]byte
	Validator string
	Denom     string
	Amount    *big.Int
}

type storedUnbonding struct {
	Delegator      [20]byte
	Validator      string
	Denom          string
	Amount         *big.Int
	CompletionTime uint64
}

// StakingDelegation loads the delegation of delegator to validator.
func (m *Manager) StakingDelegation(delegator [20]byte, validator string) (*staking.Delegation, bool, error) {
	var stored storedDelegation
	ok, err := m.KVGet(delegationKey(delegator, validator), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &staking.Delegation{
		Delegator: stored.Delegator,
		Validator: stored.Validator,
		Denom:     stored.Denom,
		Amount:    nonNil(stored.Amount),
	}, true, nil
}

// PutStakingDelegation stores a delegation and indexes it by delegator and
// validator.
func (m *Manager) PutStakingDelegation(d *staking.Delegation) error {
	if d == nil {
		return errNilRecord
	}
	stored := &storedDelegation{
		Delegator: d.Delegator,
		Validator: d.Validator,
		Denom:     d.Denom,
		Amount:    nonNil(d.Amount),
	}
	if err := m.KVPut(delegationKey(d.Delegator, d.Validator), stored); err != nil {
		return err
	}
	if err := m.KVAppend(delegatorValidatorsKey(d.Delegator), []byte(d.Validator)); err != nil {
		return err
	}
	return m.KVAppend(validatorDelegatorsKey(d.Validator), d.Delegator[:])
}

// StakingDelegatorValidators lists the validators delegator has delegated to.
func (m *Manager) StakingDelegatorValidators(delegator [20]byte) ([]string, error) {
	var raw [][]byte
	if err := m.KVGetList(delegatorValidatorsKey(delegator), &raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		out = append(out, string(entry))
	}
	return out, nil
}

// StakingValidatorDelegators lists the delegators of validator.
func (m *Manager) StakingValidatorDelegators(validator string) ([][20]byte, error) {
	var raw [][]byte
	if err := m.KVGetList(validatorDelegatorsKey(validator), &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		var addr [20]byte
		copy(addr[:], entry)
		out = append(out, addr)
	}
	return out, nil
}

// StakingUnbondings loads the global unbonding queue.
func (m *Manager) StakingUnbondings() ([]staking.UnbondingEntry, error) {
	var stored []storedUnbonding
	if err := m.KVGetList(stakingUnbondKey, &stored); err != nil {
		return nil, err
	}
	out := make([]staking.UnbondingEntry, 0, len(stored))
	for _, entry := range stored {
		out = append(out, staking.UnbondingEntry{
			Delegator:      entry.Delegator,
			Validator:      entry.Validator,
			Denom:          entry.Denom,
			Amount:         nonNil(entry.Amount),
			CompletionTime: entry.CompletionTime,
		})
	}
	return out, nil
}

// PutStakingUnbondings replaces the global unbonding queue.
func (m *Manager) PutStakingUnbondings(entries []staking.UnbondingEntry) error {
	if len(entries) == 0 {
		return m.KVDelete(stakingUnbondKey)
	}
	stored := make([]storedUnbonding, 0, len(entries))
	for _, entry := range entries {
		stored = append(stored, storedUnbonding{
			Delegator:      entry.Delegator,
			Validator:      entry.Validator,
			Denom:          entry.Denom,
			Amount:         nonNil(entry.Amount),
			CompletionTime: entry.CompletionTime,
		})
	}
	return m.KVPut(stakingUnbondKey, stored)
}

// StakingRewards returns the pending rewards of delegator with validator.
func (m *Manager) StakingRewards(delegator [20]byte, validator string) (*big.Int, error) {
	return m.loadAmount(rewardsKey(delegator, validator))
}

// PutStakingRewards stores the pending rewards of delegator with validator.
func (m *Manager) PutStakingRewards(delegator [20]byte, validator string, amount *big.Int) error {
	return m.KVPut(rewardsKey(delegator, validator), nonNil(amount))
}
