package state

import (
	"math/big"

	"stakebank/native/bank"
)

// SettlementMode loads the converter settlement mode, custody when unset.
func (m *Manager) SettlementMode() (bank.SettlementMode, error) {
	var stored string
	ok, err := m.KVGet(settlementModeKey, &stored)
	if err != nil {
		return "", err
	}
	if !ok {
		return bank.SettlementCustody, nil
	}
	return bank.ParseSettlementMode(stored)
}

// PutSettlementMode stores the converter settlement mode.
func (m *Manager) PutSettlementMode(mode bank.SettlementMode) error {
	return m.KVPut(settlementModeKey, string(mode))
}

// BankBalance returns the bank balance of addr in denom.
func (m *Manager) BankBalance(addr [20]byte, denom string) (*big.Int, error) {
	return m.loadAmount(bankBalanceKey(addr, denom))
}

// PutBankBalance stores the bank balance of addr in denom.
func (m *Manager) PutBankBalance(addr [20]byte, denom string, amount *big.Int) error {
	return m.KVPut(bankBalanceKey(addr, denom), nonNil(amount))
}

// BankSupply returns the total bank supply of denom.
func (m *Manager) BankSupply(denom string) (*big.Int, error) {
	return m.loadAmount(bankSupplyKey(denom))
}

// PutBankSupply stores the total bank supply of denom.
func (m *Manager) PutBankSupply(denom string, amount *big.Int) error {
	return m.KVPut(bankSupplyKey(denom), nonNil(amount))
}
