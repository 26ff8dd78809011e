package token

import (
	"math/big"
	"strings"
)

// TokenInfo describes the derivative token. Name, Symbol and Decimals are
// stored for display only.
type TokenInfo struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
	// Minter is the only identity allowed to mint or burn. It is always the
	// contract itself.
	Minter [20]byte
	// Cap bounds TotalSupply when set.
	Cap *big.Int
	// BankDenom enables the bank converter when non-empty.
	BankDenom string
	// BankBacked counts outstanding tokens issued through the converter.
	BankBacked *big.Int
}

// InitialBalance seeds the ledger at instantiation.
type InitialBalance struct {
	Address [20]byte
	Amount  *big.Int
}

// Clone returns a deep copy of the token info.
func (t *TokenInfo) Clone() *TokenInfo {
	if t == nil {
		return nil
	}
	out := *t
	out.TotalSupply = copyAmount(t.TotalSupply)
	out.BankBacked = copyAmount(t.BankBacked)
	if t.Cap != nil {
		out.Cap = new(big.Int).Set(t.Cap)
	}
	return &out
}

// HasCap reports whether a mint cap is configured.
func (t *TokenInfo) HasCap() bool {
	return t != nil && t.Cap != nil
}

// ConverterEnabled reports whether a bank denomination is configured.
func (t *TokenInfo) ConverterEnabled() bool {
	return t != nil && strings.TrimSpace(t.BankDenom) != ""
}

func (t *TokenInfo) normalize() {
	if t.TotalSupply == nil {
		t.TotalSupply = big.NewInt(0)
	}
	if t.BankBacked == nil {
		t.BankBacked = big.NewInt(0)
	}
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Backing names the reserve that redeems a token. Each account's balance is
// split into stake-backed, bank-backed and unbacked parts; the unbacked part
// is whatever the two backed parts do not cover.
type Backing uint8

const (
	// Unbacked tokens were seeded at instantiation. Neither unbond nor the
	// converter redeems them.
	Unbacked Backing = iota
	// BackedByStake tokens were minted by bonding or as exit tax. Only
	// unbond redeems them.
	BackedByStake
	// BackedByBank tokens were minted by the converter. Only convert to bank
	// redeems them.
	BackedByBank
)

// backedKinds lists the tracked backings in the order a transfer draws on
// them once the sender's unbacked tokens are spent.
var backedKinds = []Backing{BackedByBank, BackedByStake}

func (b Backing) String() string {
	switch b {
	case Unbacked:
		return "unbacked"
	case BackedByStake:
		return "stake"
	case BackedByBank:
		return "bank"
	default:
		return "unknown"
	}
}

func (b Backing) valid() bool {
	return b <= BackedByBank
}
