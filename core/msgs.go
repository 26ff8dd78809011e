package core

import (
	"fmt"
	"math/big"
	"strings"

	coreerrors "stakebank/core/errors"
	"stakebank/core/types"
	"stakebank/crypto"
	"stakebank/native/common"
	"stakebank/native/invest"
)

// Uint128 is an unsigned amount carried as a decimal string on the wire.
type Uint128 struct {
	v *big.Int
}

// NewUint128 wraps v.
func NewUint128(v *big.Int) Uint128 {
	return Uint128{v: common.Copy(v)}
}

// Uint128From wraps a small constant.
func Uint128From(v uint64) Uint128 {
	return Uint128{v: new(big.Int).SetUint64(v)}
}

// Big returns a copy of the amount, zero when unset.
func (u Uint128) Big() *big.Int {
	return common.Copy(u.v)
}

func (u Uint128) String() string {
	if u.v == nil {
		return "0"
	}
	return u.v.String()
}

func (u Uint128) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Uint128) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return fmt.Errorf("%w: amount %q", coreerrors.ErrInvalidMessage, raw)
	}
	if v.Sign() < 0 {
		return coreerrors.ErrNegativeAmount
	}
	if err := common.CheckBound(v); err != nil {
		return err
	}
	u.v = v
	return nil
}

// WireCoin is a coin in its wire form.
type WireCoin struct {
	Denom  string  `json:"denom" yaml:"denom"`
	Amount Uint128 `json:"amount" yaml:"amount"`
}

// ToCoins converts wire coins into bank coins.
func ToCoins(wire []WireCoin) types.Coins {
	coins := make(types.Coins, 0, len(wire))
	for _, c := range wire {
		coins = append(coins, types.NewCoin(strings.TrimSpace(c.Denom), c.Amount.Big()))
	}
	return coins
}

// FromCoins converts bank coins into their wire form.
func FromCoins(coins types.Coins) []WireCoin {
	out := make([]WireCoin, 0, len(coins))
	for _, c := range coins {
		out = append(out, WireCoin{Denom: c.Denom, Amount: NewUint128(c.Amount)})
	}
	return out
}

// ParseAddress decodes a bech32 account address.
func ParseAddress(addr string) ([20]byte, error) {
	raw, err := crypto.ParseAccount(strings.TrimSpace(addr))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s", coreerrors.ErrInvalidAddress, err)
	}
	return raw, nil
}

type EmptyMsg struct{}

type AmountMsg struct {
	Amount Uint128 `json:"amount"`
}

type BondAllTokensMsg struct {
	Token string `json:"token"`
}

type TransferMsg struct {
	Recipient string  `json:"recipient"`
	Amount    Uint128 `json:"amount"`
}

// ExecuteMsg is the execute envelope. Exactly one field must be set.
type ExecuteMsg struct {
	ConvertToBank   *AmountMsg        `json:"convert_to_bank,omitempty"`
	ConvertFromBank *EmptyMsg         `json:"convert_from_bank,omitempty"`
	Bond            *EmptyMsg         `json:"bond,omitempty"`
	Unbond          *AmountMsg        `json:"unbond,omitempty"`
	Claim           *EmptyMsg         `json:"claim,omitempty"`
	Reinvest        *EmptyMsg         `json:"reinvest,omitempty"`
	BondAllTokens   *BondAllTokensMsg `json:"bond_all_tokens,omitempty"`
	Transfer        *TransferMsg      `json:"transfer,omitempty"`
}

// Method names the single operation carried by the envelope.
func (m *ExecuteMsg) Method() (string, error) {
	if m == nil {
		return "", fmt.Errorf("%w: empty execute message", coreerrors.ErrInvalidMessage)
	}
	set := make([]string, 0, 1)
	if m.ConvertToBank != nil {
		set = append(set, "convert_to_bank")
	}
	if m.ConvertFromBank != nil {
		set = append(set, "convert_from_bank")
	}
	if m.Bond != nil {
		set = append(set, "bond")
	}
	if m.Unbond != nil {
		set = append(set, "unbond")
	}
	if m.Claim != nil {
		set = append(set, "claim")
	}
	if m.Reinvest != nil {
		set = append(set, "reinvest")
	}
	if m.BondAllTokens != nil {
		set = append(set, invest.MethodBondAllTokens)
	}
	if m.Transfer != nil {
		set = append(set, "transfer")
	}
	return single(set)
}

// QueryMsg is the query envelope. Exactly one field must be set.
type QueryMsg struct {
	Investment *EmptyMsg   `json:"investment,omitempty"`
	Claims     *AddressMsg `json:"claims,omitempty"`
	Balance    *AddressMsg `json:"balance,omitempty"`
	TokenInfo  *EmptyMsg   `json:"token_info,omitempty"`
	Supply     *EmptyMsg   `json:"supply,omitempty"`
}

type AddressMsg struct {
	Address string `json:"address"`
}

// Method names the single query carried by the envelope.
func (m *QueryMsg) Method() (string, error) {
	if m == nil {
		return "", fmt.Errorf("%w: empty query message", coreerrors.ErrInvalidMessage)
	}
	set := make([]string, 0, 1)
	if m.Investment != nil {
		set = append(set, "investment")
	}
	if m.Claims != nil {
		set = append(set, "claims")
	}
	if m.Balance != nil {
		set = append(set, "balance")
	}
	if m.TokenInfo != nil {
		set = append(set, "token_info")
	}
	if m.Supply != nil {
		set = append(set, "supply")
	}
	return single(set)
}

func single(set []string) (string, error) {
	switch len(set) {
	case 0:
		return "", fmt.Errorf("%w: no operation set", coreerrors.ErrInvalidMessage)
	case 1:
		return set[0], nil
	default:
		return "", fmt.Errorf("%w: multiple operations set: %s", coreerrors.ErrInvalidMessage, strings.Join(set, ", "))
	}
}

// InitialBalanceMsg seeds one ledger balance at instantiation.
type InitialBalanceMsg struct {
	Address string  `json:"address" yaml:"address"`
	Amount  Uint128 `json:"amount" yaml:"amount"`
}

// InvestmentMsg configures the bonding engine.
type InvestmentMsg struct {
	Owner           string         `json:"owner" yaml:"owner"`
	BondDenom       string         `json:"bond_denom" yaml:"bond_denom"`
	UnbondingPeriod uint64         `json:"unbonding_period" yaml:"unbonding_period"`
	ExitTax         invest.Decimal `json:"exit_tax" yaml:"exit_tax"`
	Validator       string         `json:"validator" yaml:"validator"`
	MinWithdrawal   Uint128        `json:"min_withdrawal" yaml:"min_withdrawal"`
}

// InstantiateMsg creates the token, the converter and the bonding engine.
type InstantiateMsg struct {
	Name            string              `json:"name" yaml:"name"`
	Symbol          string              `json:"symbol" yaml:"symbol"`
	Decimals        uint8               `json:"decimals" yaml:"decimals"`
	InitialBalances []InitialBalanceMsg `json:"initial_balances" yaml:"initial_balances"`
	Cap             *Uint128            `json:"cap,omitempty" yaml:"cap,omitempty"`
	BankDenom       string              `json:"bank_denom,omitempty" yaml:"bank_denom,omitempty"`
	SettlementMode  string              `json:"settlement_mode,omitempty" yaml:"settlement_mode,omitempty"`
	Investment      InvestmentMsg       `json:"investment" yaml:"investment"`
}

// ExecuteResult reports a committed invocation and the outcome of the
// effects dispatched after it.
type ExecuteResult struct {
	Method        string           `json:"method"`
	Response      *types.Response  `json:"response"`
	Calls         []*ExecuteResult `json:"calls,omitempty"`
	DispatchError string           `json:"dispatch_error,omitempty"`
}

// Failed reports whether any effect in the chain failed to dispatch.
func (r *ExecuteResult) Failed() bool {
	return r != nil && r.DispatchError != ""
}

type InvestmentResponse struct {
	Owner           string         `json:"owner"`
	BondDenom       string         `json:"bond_denom"`
	UnbondingPeriod uint64         `json:"unbonding_period"`
	ExitTax         invest.Decimal `json:"exit_tax"`
	Validator       string         `json:"validator"`
	MinWithdrawal   Uint128        `json:"min_withdrawal"`
	TokenSupply     Uint128        `json:"token_supply"`
	StakedTokens    Uint128        `json:"staked_tokens"`
	NominalValue    invest.Decimal `json:"nominal_value"`
}

type ClaimResponse struct {
	Amount      Uint128 `json:"amount"`
	ReleaseTime uint64  `json:"release_time"`
	Matured     bool    `json:"matured"`
}

type ClaimsResponse struct {
	Claims []ClaimResponse `json:"claims"`
}

// BalanceResponse splits the balance by what redeems it. Unbacked tokens
// are the remainder.
type BalanceResponse struct {
	Balance     Uint128 `json:"balance"`
	StakeBacked Uint128 `json:"stake_backed"`
	BankBacked  Uint128 `json:"bank_backed"`
}

type TokenInfoResponse struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Decimals    uint8    `json:"decimals"`
	TotalSupply Uint128  `json:"total_supply"`
	Cap         *Uint128 `json:"cap,omitempty"`
	BankDenom   string   `json:"bank_denom,omitempty"`
	BankBacked  Uint128  `json:"bank_backed"`
}

type SupplyResponse struct {
	Issued Uint128 `json:"issued"`
	Bonded Uint128 `json:"bonded"`
	Claims Uint128 `json:"claims"`
}
