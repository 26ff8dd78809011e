package bank

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "stakebank/core/errors"
	"stakebank/core/events"
	"stakebank/core/types"
	"stakebank/native/common"
	"stakebank/native/token"
)

type mockState struct {
	info     *token.TokenInfo
	balances map[[20]byte]*big.Int
	holders  [][20]byte
	backing  map[token.Backing]map[[20]byte]*big.Int
}

func (m *mockState) TokenInfo() (*token.TokenInfo, bool, error) {
	if m.info == nil {
		return nil, false, nil
	}
	return m.info.Clone(), true, nil
}

func (m *mockState) PutTokenInfo(info *token.TokenInfo) error {
	m.info = info.Clone()
	return nil
}

func (m *mockState) TokenBalance(addr [20]byte) (*big.Int, error) {
	if bal, ok := m.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) PutTokenBalance(addr [20]byte, amount *big.Int) error {
	if _, ok := m.balances[addr]; !ok {
		m.holders = append(m.holders, addr)
	}
	m.balances[addr] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) TokenHolders() ([][20]byte, error) {
	return append([][20]byte(nil), m.holders...), nil
}

func (m *mockState) TokenBacking(addr [20]byte, kind token.Backing) (*big.Int, error) {
	if held, ok := m.backing[kind][addr]; ok {
		return new(big.Int).Set(held), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) PutTokenBacking(addr [20]byte, kind token.Backing, amount *big.Int) error {
	if m.backing == nil {
		m.backing = make(map[token.Backing]map[[20]byte]*big.Int)
	}
	if m.backing[kind] == nil {
		m.backing[kind] = make(map[[20]byte]*big.Int)
	}
	m.backing[kind][addr] = new(big.Int).Set(amount)
	return nil
}

const bankDenom = "ubank"

var (
	contractAddr = [20]byte{0xc0}
	alice        = [20]byte{0x0a}
	bob          = [20]byte{0x0b}
)

func newTestConverter(t *testing.T, denom string, limit *big.Int, mode SettlementMode) (*Converter, *token.Ledger, *events.Buffer) {
	t.Helper()
	st := &mockState{balances: make(map[[20]byte]*big.Int)}
	ledger := token.NewLedger()
	ledger.SetState(st)
	err := ledger.Initialize(&token.TokenInfo{Symbol: "sbk", Minter: contractAddr, Cap: limit, BankDenom: denom},
		[]token.InitialBalance{{Address: alice, Amount: big.NewInt(1_000)}})
	if err != nil {
		t.Fatalf("init ledger: %v", err)
	}
	buf := &events.Buffer{}
	conv := NewConverter()
	conv.SetLedger(ledger)
	conv.SetEmitter(buf)
	conv.SetMode(mode)
	return conv, ledger, buf
}

func env() types.Env {
	return types.Env{Height: 1, Time: 100, Contract: contractAddr}
}

func bankFunds(amount int64) types.Coins {
	return types.Coins{types.NewCoin(bankDenom, big.NewInt(amount))}
}

func TestRoundTripCustody(t *testing.T) {
	conv, ledger, buf := newTestConverter(t, bankDenom, nil, SettlementCustody)

	resp, err := conv.ConvertFromBank(env(), alice, bankFunds(250))
	if err != nil {
		t.Fatalf("convert from bank: %v", err)
	}
	reserve := ReserveAddress(contractAddr)
	if len(resp.Effects) != 1 {
		t.Fatalf("expected one effect, got %d", len(resp.Effects))
	}
	eff := resp.Effects[0]
	if eff.Kind != types.EffectBankSend || eff.From != contractAddr || eff.To != reserve || eff.Coin.Amount.Int64() != 250 {
		t.Fatalf("unexpected from-bank effect %+v", eff)
	}
	bal, _ := ledger.Balance(alice)
	if bal.Int64() != 1_250 {
		t.Fatalf("unexpected balance after from-bank %s", bal)
	}

	resp, err = conv.ConvertToBank(env(), alice, big.NewInt(250))
	if err != nil {
		t.Fatalf("convert to bank: %v", err)
	}
	eff = resp.Effects[0]
	if eff.Kind != types.EffectBankSend || eff.From != reserve || eff.To != alice || eff.Coin.Denom != bankDenom {
		t.Fatalf("unexpected to-bank effect %+v", eff)
	}
	info, _ := ledger.Info()
	if info.TotalSupply.Int64() != 1_000 || info.BankBacked.Sign() != 0 {
		t.Fatalf("round trip must restore supply, got total=%s backed=%s", info.TotalSupply, info.BankBacked)
	}
	if v, _ := resp.Attribute("action"); v != "convert_to_bank" {
		t.Fatalf("unexpected action attribute %q", v)
	}
	sum, _ := ledger.SumBalances()
	if sum.Cmp(info.TotalSupply) != 0 {
		t.Fatalf("sum of balances %s != total %s", sum, info.TotalSupply)
	}

	var converted int
	for _, evt := range buf.Events() {
		if evt.EventType() == events.TypeTokenConverted {
			converted++
		}
	}
	if converted != 2 {
		t.Fatalf("expected two conversion events, got %d", converted)
	}
}

func TestTokenFactorySettlement(t *testing.T) {
	conv, _, _ := newTestConverter(t, bankDenom, nil, SettlementTokenFactory)
	resp, err := conv.ConvertFromBank(env(), alice, bankFunds(10))
	if err != nil {
		t.Fatalf("convert from bank: %v", err)
	}
	if resp.Effects[0].Kind != types.EffectBankBurn || resp.Effects[0].From != contractAddr {
		t.Fatalf("expected burn of received funds, got %+v", resp.Effects[0])
	}
	resp, err = conv.ConvertToBank(env(), alice, big.NewInt(10))
	if err != nil {
		t.Fatalf("convert to bank: %v", err)
	}
	if resp.Effects[0].Kind != types.EffectBankMint || resp.Effects[0].To != alice {
		t.Fatalf("expected mint to caller, got %+v", resp.Effects[0])
	}
}

func TestConvertToBankValidation(t *testing.T) {
	conv, ledger, _ := newTestConverter(t, bankDenom, nil, SettlementCustody)
	if _, err := conv.ConvertToBank(env(), alice, big.NewInt(0)); !errors.Is(err, coreerrors.ErrInvalidZeroAmount) {
		t.Fatalf("expected zero amount error, got %v", err)
	}
	if _, err := conv.ConvertToBank(env(), alice, big.NewInt(1_001)); !errors.Is(err, coreerrors.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	// Genesis tokens were never converted in, so the reserve holds nothing.
	if _, err := conv.ConvertToBank(env(), alice, big.NewInt(10)); !errors.Is(err, coreerrors.ErrInsufficientBacking) {
		t.Fatalf("expected insufficient backing, got %v", err)
	}
	bal, _ := ledger.Balance(alice)
	if bal.Int64() != 1_000 {
		t.Fatalf("failed conversions must not debit, got %s", bal)
	}

	disabled, _, _ := newTestConverter(t, "", nil, SettlementCustody)
	if _, err := disabled.ConvertToBank(env(), alice, big.NewInt(1)); !errors.Is(err, coreerrors.ErrBankDenomNotSet) {
		t.Fatalf("expected bank denom not set, got %v", err)
	}
}

func TestConvertToBankOnlyRedeemsOwnDeposits(t *testing.T) {
	conv, ledger, _ := newTestConverter(t, bankDenom, nil, SettlementCustody)
	if _, err := conv.ConvertFromBank(env(), bob, bankFunds(100)); err != nil {
		t.Fatalf("convert from bank: %v", err)
	}
	// The reserve holds 100 but none of it backs alice's genesis tokens.
	if _, err := conv.ConvertToBank(env(), alice, big.NewInt(50)); !errors.Is(err, coreerrors.ErrInsufficientBacking) {
		t.Fatalf("expected insufficient backing, got %v", err)
	}
	if _, err := conv.ConvertToBank(env(), bob, big.NewInt(100)); err != nil {
		t.Fatalf("depositor must redeem in full: %v", err)
	}
	info, _ := ledger.Info()
	if info.BankBacked.Sign() != 0 {
		t.Fatalf("expected empty reserve, got %s", info.BankBacked)
	}
	held, err := ledger.Backed(bob, token.BackedByBank)
	if err != nil || held.Sign() != 0 {
		t.Fatalf("expected bob's bank backing cleared, got %v %v", held, err)
	}
}

func TestConvertFromBankValidation(t *testing.T) {
	conv, ledger, _ := newTestConverter(t, bankDenom, big.NewInt(1_100), SettlementCustody)
	cases := []struct {
		name  string
		funds types.Coins
		want  error
	}{
		{"no funds", nil, coreerrors.ErrInvalidZeroAmount},
		{"wrong denom", types.Coins{types.NewCoin("uother", big.NewInt(5))}, coreerrors.ErrInvalidBankDenom},
		{"wrong first denom", types.Coins{types.NewCoin("uother", big.NewInt(5)), types.NewCoin(bankDenom, big.NewInt(5))}, coreerrors.ErrInvalidBankDenom},
		{"zero amount", bankFunds(0), coreerrors.ErrInvalidZeroAmount},
		{"over cap", bankFunds(101), coreerrors.ErrCannotExceedCap},
	}
	for _, tc := range cases {
		if _, err := conv.ConvertFromBank(env(), alice, tc.funds); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	info, _ := ledger.Info()
	if info.TotalSupply.Int64() != 1_000 || info.BankBacked.Sign() != 0 {
		t.Fatalf("rejected conversions must not change supply")
	}
	if _, err := conv.ConvertFromBank(env(), alice, bankFunds(100)); err != nil {
		t.Fatalf("conversion up to cap: %v", err)
	}

	disabled, _, _ := newTestConverter(t, "", nil, SettlementCustody)
	if _, err := disabled.ConvertFromBank(env(), alice, bankFunds(1)); !errors.Is(err, coreerrors.ErrBankDenomNotSet) {
		t.Fatalf("expected bank denom not set, got %v", err)
	}
}

func TestConverterPaused(t *testing.T) {
	conv, _, _ := newTestConverter(t, bankDenom, nil, SettlementCustody)
	conv.SetPauses(common.NewPauses([]string{common.ModuleBank}))
	if _, err := conv.ConvertFromBank(env(), alice, bankFunds(1)); !errors.Is(err, coreerrors.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
}

func TestParseSettlementMode(t *testing.T) {
	mode, err := ParseSettlementMode("")
	if err != nil || mode != SettlementCustody {
		t.Fatalf("empty mode must default to custody: %v %v", mode, err)
	}
	mode, err = ParseSettlementMode(" TokenFactory ")
	if err != nil || mode != SettlementTokenFactory {
		t.Fatalf("unexpected mode %v %v", mode, err)
	}
	if _, err := ParseSettlementMode("escrow"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
