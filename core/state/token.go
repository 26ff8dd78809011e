package state

import (
	"math/big"

	"stakebank/native/token"
)

type storedTokenInfo struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
	Minter      [20]byte
	HasCap      bool
	Cap         *big.Int
	BankDenom   string
	BankBacked  *big.Int
}

func newStoredTokenInfo(info *token.TokenInfo) *storedTokenInfo {
	stored := &storedTokenInfo{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: nonNil(info.TotalSupply),
		Minter:      info.Minter,
		Cap:         big.NewInt(0),
		BankDenom:   info.BankDenom,
		BankBacked:  nonNil(info.BankBacked),
	}
	if info.Cap != nil {
		stored.HasCap = true
		stored.Cap = new(big.Int).Set(info.Cap)
	}
	return stored
}

func (s *storedTokenInfo) toTokenInfo() *token.TokenInfo {
	info := &token.TokenInfo{
		Name:        s.Name,
		Symbol:      s.Symbol,
		Decimals:    s.Decimals,
		TotalSupply: nonNil(s.TotalSupply),
		Minter:      s.Minter,
		BankDenom:   s.BankDenom,
		BankBacked:  nonNil(s.BankBacked),
	}
	if s.HasCap {
		info.Cap = nonNil(s.Cap)
	}
	return info
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// TokenInfo loads the derivative token record.
func (m *Manager) TokenInfo() (*token.TokenInfo, bool, error) {
	var stored storedTokenInfo
	ok, err := m.KVGet(tokenInfoKey, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toTokenInfo(), true, nil
}

// PutTokenInfo stores the derivative token record.
func (m *Manager) PutTokenInfo(info *token.TokenInfo) error {
	if info == nil {
		return errNilRecord
	}
	return m.KVPut(tokenInfoKey, newStoredTokenInfo(info))
}

// TokenBalance returns the token balance of addr, zero when unset.
func (m *Manager) TokenBalance(addr [20]byte) (*big.Int, error) {
	return m.loadAmount(tokenBalanceKey(addr))
}

// PutTokenBalance stores the token balance of addr and records addr as a
// holder.
func (m *Manager) PutTokenBalance(addr [20]byte, amount *big.Int) error {
	if err := m.KVPut(tokenBalanceKey(addr), nonNil(amount)); err != nil {
		return err
	}
	return m.KVAppend(tokenHoldersKey, addr[:])
}

// TokenBacking returns how much of addr's balance is held under kind.
func (m *Manager) TokenBacking(addr [20]byte, kind token.Backing) (*big.Int, error) {
	return m.loadAmount(tokenBackingKey(addr, uint8(kind)))
}

// PutTokenBacking stores the backed part of addr's balance. Zero clears the
// record.
func (m *Manager) PutTokenBacking(addr [20]byte, kind token.Backing, amount *big.Int) error {
	key := tokenBackingKey(addr, uint8(kind))
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, amount)
}

// TokenHolders lists every address that has ever held a token balance.
func (m *Manager) TokenHolders() ([][20]byte, error) {
	var raw [][]byte
	if err := m.KVGetList(tokenHoldersKey, &raw); err != nil {
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

func (m *Manager) loadAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}
