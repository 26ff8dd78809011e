package core

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "stakebank/core/errors"
	"stakebank/core/events"
	"stakebank/core/types"
	"stakebank/crypto"
	"stakebank/native/invest"
	"stakebank/native/staking"
	"stakebank/storage"
)

const (
	testBondDenom = "ustake"
	testBankDenom = "ubank"
	testValidator = "stakebank-val-1"
	testPeriod    = 100
)

type hostFixture struct {
	t     *testing.T
	host  *Host
	block Block
	sink  *events.Buffer
	owner [20]byte
	alice [20]byte
	bob   [20]byte
	carol [20]byte
}

func testInstantiateMsg(owner, carol [20]byte) *InstantiateMsg {
	return &InstantiateMsg{
		Name:     "Staked Token",
		Symbol:   "STK",
		Decimals: 6,
		InitialBalances: []InitialBalanceMsg{
			{Address: crypto.AccountString(carol), Amount: Uint128From(50)},
		},
		BankDenom: testBankDenom,
		Investment: InvestmentMsg{
			Owner:           crypto.AccountString(owner),
			BondDenom:       testBondDenom,
			UnbondingPeriod: testPeriod,
			ExitTax:         invest.MustParseDecimal("0.05"),
			Validator:       testValidator,
			MinWithdrawal:   Uint128From(10),
		},
	}
}

func newHost(t *testing.T, db storage.Database) *Host {
	t.Helper()
	host, err := NewHost(db, HostConfig{
		Label:   "stakebank-test",
		Staking: staking.Params{BondDenom: testBondDenom, UnbondingTime: testPeriod},
	})
	require.NoError(t, err)
	host.SetTokenFunc(func() string { return "reinvest-token" })
	return host
}

func newHostFixture(t *testing.T, mutate func(*InstantiateMsg)) *hostFixture {
	t.Helper()
	f := &hostFixture{
		t:     t,
		host:  newHost(t, storage.NewMemDB()),
		block: Block{Height: 1, Time: 1_000},
		sink:  &events.Buffer{},
		owner: crypto.ContractAddress("owner"),
		alice: crypto.ContractAddress("alice"),
		bob:   crypto.ContractAddress("bob"),
		carol: crypto.ContractAddress("carol"),
	}
	f.host.SetEmitter(f.sink)
	msg := testInstantiateMsg(f.owner, f.carol)
	if mutate != nil {
		mutate(msg)
	}
	_, err := f.host.Instantiate(f.block, types.MessageInfo{Sender: f.owner}, msg)
	require.NoError(t, err)
	require.NoError(t, f.host.Fund(f.alice, types.Coins{
		types.NewCoin(testBondDenom, big.NewInt(1_000)),
		types.NewCoin(testBankDenom, big.NewInt(500)),
	}))
	return f
}

func coins(denom string, amount int64) types.Coins {
	return types.Coins{types.NewCoin(denom, big.NewInt(amount))}
}

func (f *hostFixture) exec(sender [20]byte, funds types.Coins, msg *ExecuteMsg) (*ExecuteResult, error) {
	return f.host.Execute(f.block, types.MessageInfo{Sender: sender, Funds: funds}, msg)
}

func (f *hostFixture) mustExec(sender [20]byte, funds types.Coins, msg *ExecuteMsg) *ExecuteResult {
	f.t.Helper()
	result, err := f.exec(sender, funds, msg)
	require.NoError(f.t, err)
	require.False(f.t, result.Failed(), result.DispatchError)
	f.requireConsistent()
	return result
}

func (f *hostFixture) advance(seconds uint64) {
	f.block.Height++
	f.block.Time += seconds
}

func (f *hostFixture) supply() *SupplyResponse {
	f.t.Helper()
	out, err := f.host.Query(f.block, &QueryMsg{Supply: &EmptyMsg{}})
	require.NoError(f.t, err)
	return out.(*SupplyResponse)
}

func (f *hostFixture) requireSupply(issued, bonded, claims int64) {
	f.t.Helper()
	supply := f.supply()
	require.Equal(f.t, big.NewInt(issued).String(), supply.Issued.String(), "issued")
	require.Equal(f.t, big.NewInt(bonded).String(), supply.Bonded.String(), "bonded")
	require.Equal(f.t, big.NewInt(claims).String(), supply.Claims.String(), "claims")
}

func (f *hostFixture) tokenBalance(addr [20]byte) string {
	f.t.Helper()
	out, err := f.host.Query(f.block, &QueryMsg{Balance: &AddressMsg{Address: crypto.AccountString(addr)}})
	require.NoError(f.t, err)
	return out.(*BalanceResponse).Balance.String()
}

func (f *hostFixture) bankBalance(addr [20]byte, denom string) string {
	f.t.Helper()
	balance, err := f.host.BankBalance(addr, denom)
	require.NoError(f.t, err)
	return balance.String()
}

func (f *hostFixture) delegated() string {
	f.t.Helper()
	delegations, err := f.host.Delegations(f.host.Contract())
	require.NoError(f.t, err)
	total := big.NewInt(0)
	for _, d := range delegations {
		total.Add(total, d.Amount.Amount)
	}
	return total.String()
}

func (f *hostFixture) requireConsistent() {
	f.t.Helper()
	ok, err := f.host.LedgerConsistent()
	require.NoError(f.t, err)
	require.True(f.t, ok, "ledger balances must sum to total supply")
}

func TestHostBondDelegatesAttachedFunds(t *testing.T) {
	f := newHostFixture(t, nil)

	result := f.mustExec(f.alice, coins(testBondDenom, 100), &ExecuteMsg{Bond: &EmptyMsg{}})
	require.Equal(t, "bond", result.Method)
	require.Len(t, result.Response.Effects, 1)
	require.Equal(t, types.EffectDelegate, result.Response.Effects[0].Kind)

	require.Equal(t, "100", f.tokenBalance(f.alice))
	require.Equal(t, "900", f.bankBalance(f.alice, testBondDenom))
	require.Equal(t, "0", f.bankBalance(f.host.Contract(), testBondDenom))
	require.Equal(t, "100", f.delegated())
	f.requireSupply(100, 100, 0)
}

func TestHostUnbondAndClaimAfterMaturity(t *testing.T) {
	f := newHostFixture(t, nil)
	f.mustExec(f.alice, coins(testBondDenom, 1_000), &ExecuteMsg{Bond: &EmptyMsg{}})

	result := f.mustExec(f.alice, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(100)}})
	require.Len(t, result.Response.Effects, 1)
	require.Equal(t, types.EffectUndelegate, result.Response.Effects[0].Kind)
	require.Equal(t, "900", f.tokenBalance(f.alice))
	require.Equal(t, "5", f.tokenBalance(f.owner))
	require.Equal(t, "905", f.delegated())
	f.requireSupply(905, 905, 95)

	f.advance(testPeriod - 1)
	_, err := f.exec(f.alice, nil, &ExecuteMsg{Claim: &EmptyMsg{}})
	require.ErrorIs(t, err, coreerrors.ErrBalanceTooSmall)
	require.Equal(t, coreerrors.ClassInsufficient, coreerrors.ClassOf(err))

	claims, err := f.host.Query(f.block, &QueryMsg{Claims: &AddressMsg{Address: crypto.AccountString(f.alice)}})
	require.NoError(t, err)
	require.Len(t, claims.(*ClaimsResponse).Claims, 1)
	require.False(t, claims.(*ClaimsResponse).Claims[0].Matured)

	f.advance(1)
	f.mustExec(f.alice, nil, &ExecuteMsg{Claim: &EmptyMsg{}})
	require.Equal(t, "95", f.bankBalance(f.alice, testBondDenom))
	require.Equal(t, "0", f.bankBalance(f.host.Contract(), testBondDenom))
	f.requireSupply(905, 905, 0)

	_, err = f.exec(f.alice, nil, &ExecuteMsg{Claim: &EmptyMsg{}})
	require.Error(t, err)
}

func TestHostReinvestRoutesSelfCall(t *testing.T) {
	f := newHostFixture(t, nil)
	f.mustExec(f.alice, coins(testBondDenom, 100), &ExecuteMsg{Bond: &EmptyMsg{}})

	allocated, err := f.host.AllocateRewards(testValidator, big.NewInt(20))
	require.NoError(t, err)
	require.Equal(t, "20", allocated.String())

	result := f.mustExec(f.bob, nil, &ExecuteMsg{Reinvest: &EmptyMsg{}})
	require.Len(t, result.Response.Effects, 2)
	require.Equal(t, types.EffectWithdrawRewards, result.Response.Effects[0].Kind)
	require.Equal(t, types.EffectSelfCall, result.Response.Effects[1].Kind)
	require.Len(t, result.Calls, 1)
	require.Equal(t, invest.MethodBondAllTokens, result.Calls[0].Method)

	require.Equal(t, "120", f.delegated())
	require.Equal(t, "0", f.bankBalance(f.host.Contract(), testBondDenom))
	f.requireSupply(100, 120, 0)

	investment, err := f.host.Query(f.block, &QueryMsg{Investment: &EmptyMsg{}})
	require.NoError(t, err)
	require.Equal(t, "1.2", investment.(*InvestmentResponse).NominalValue.String())
}

func TestHostReinvestBelowMinimumSkips(t *testing.T) {
	f := newHostFixture(t, nil)
	f.mustExec(f.alice, coins(testBondDenom, 100), &ExecuteMsg{Bond: &EmptyMsg{}})
	_, err := f.host.AllocateRewards(testValidator, big.NewInt(10))
	require.NoError(t, err)

	result := f.mustExec(f.bob, nil, &ExecuteMsg{Reinvest: &EmptyMsg{}})
	require.Len(t, result.Calls, 1)
	skipped, ok := result.Calls[0].Response.Attribute("skipped")
	require.True(t, ok)
	require.Equal(t, "true", skipped)
	require.Equal(t, "10", f.bankBalance(f.host.Contract(), testBondDenom))
	f.requireSupply(100, 100, 0)
}

func TestHostBondAllTokensRejectsExternalCaller(t *testing.T) {
	f := newHostFixture(t, nil)
	_, err := f.exec(f.alice, nil, &ExecuteMsg{BondAllTokens: &BondAllTokensMsg{Token: "reinvest-token"}})
	require.ErrorIs(t, err, coreerrors.ErrUnauthorized)
	require.Equal(t, coreerrors.ClassAuthorization, coreerrors.ClassOf(err))
}

func TestHostFailedInvocationLeavesNoTrace(t *testing.T) {
	f := newHostFixture(t, nil)
	emitted := len(f.sink.Events())

	_, err := f.exec(f.alice, coins(testBondDenom, 2_000), &ExecuteMsg{Bond: &EmptyMsg{}})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientFunds)

	_, err = f.exec(f.alice, coins(testBankDenom, 10), &ExecuteMsg{Bond: &EmptyMsg{}})
	require.ErrorIs(t, err, coreerrors.ErrEmptyBalance)
	require.Equal(t, "500", f.bankBalance(f.alice, testBankDenom))
	require.Equal(t, "0", f.bankBalance(f.host.Contract(), testBankDenom))
	require.Equal(t, emitted, len(f.sink.Events()))
	f.requireSupply(0, 0, 0)
	f.requireConsistent()
}

func TestHostSlashTriggersBondedMismatch(t *testing.T) {
	f := newHostFixture(t, nil)
	f.mustExec(f.alice, coins(testBondDenom, 500), &ExecuteMsg{Bond: &EmptyMsg{}})

	slashed, err := f.host.Slash(testValidator, 100)
	require.NoError(t, err)
	require.Equal(t, "5", slashed.String())

	_, err = f.exec(f.alice, coins(testBondDenom, 100), &ExecuteMsg{Bond: &EmptyMsg{}})
	var mismatch *coreerrors.BondedMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, "500", mismatch.Cached.String())
	require.Equal(t, "495", mismatch.Observed.String())
	require.ErrorIs(t, err, coreerrors.ErrInvariant)
	require.Equal(t, "500", f.bankBalance(f.alice, testBondDenom))

	_, err = f.exec(f.alice, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(100)}})
	require.ErrorIs(t, err, coreerrors.ErrInvariant)
}

func TestHostConverterCustodyRoundTrip(t *testing.T) {
	f := newHostFixture(t, nil)
	reserve := f.host.Reserve()

	f.mustExec(f.alice, coins(testBankDenom, 200), &ExecuteMsg{ConvertFromBank: &EmptyMsg{}})
	require.Equal(t, "200", f.tokenBalance(f.alice))
	require.Equal(t, "300", f.bankBalance(f.alice, testBankDenom))
	require.Equal(t, "200", f.bankBalance(reserve, testBankDenom))
	require.Equal(t, "0", f.bankBalance(f.host.Contract(), testBankDenom))

	f.mustExec(f.alice, nil, &ExecuteMsg{ConvertToBank: &AmountMsg{Amount: Uint128From(150)}})
	require.Equal(t, "50", f.tokenBalance(f.alice))
	require.Equal(t, "450", f.bankBalance(f.alice, testBankDenom))
	require.Equal(t, "50", f.bankBalance(reserve, testBankDenom))

	info, err := f.host.Query(f.block, &QueryMsg{TokenInfo: &EmptyMsg{}})
	require.NoError(t, err)
	require.Equal(t, "50", info.(*TokenInfoResponse).BankBacked.String())
	require.Equal(t, "100", info.(*TokenInfoResponse).TotalSupply.String())

	_, err = f.exec(f.alice, nil, &ExecuteMsg{ConvertToBank: &AmountMsg{Amount: Uint128From(60)}})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientBalance)

	_, err = f.exec(f.alice, coins(testBondDenom, 5), &ExecuteMsg{ConvertFromBank: &EmptyMsg{}})
	require.ErrorIs(t, err, coreerrors.ErrInvalidBankDenom)
}

func TestHostUnbackedTokensCannotRedeemStake(t *testing.T) {
	f := newHostFixture(t, nil)
	require.NoError(t, f.host.Fund(f.bob, coins(testBankDenom, 80)))
	f.mustExec(f.bob, coins(testBankDenom, 80), &ExecuteMsg{ConvertFromBank: &EmptyMsg{}})
	f.mustExec(f.alice, coins(testBondDenom, 100), &ExecuteMsg{Bond: &EmptyMsg{}})
	f.requireSupply(100, 100, 0)

	// carol holds only genesis tokens, bob only converter tokens.
	_, err := f.exec(f.carol, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(50)}})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientBacking)
	_, err = f.exec(f.bob, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(50)}})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientBacking)
	_, err = f.exec(f.carol, nil, &ExecuteMsg{ConvertToBank: &AmountMsg{Amount: Uint128From(20)}})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientBacking)
	_, err = f.exec(f.alice, nil, &ExecuteMsg{ConvertToBank: &AmountMsg{Amount: Uint128From(20)}})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientBacking)
	f.requireSupply(100, 100, 0)
	f.requireConsistent()

	f.mustExec(f.alice, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(100)}})
	require.Equal(t, "0", f.tokenBalance(f.alice))
	require.Equal(t, "5", f.tokenBalance(f.owner))
	f.requireSupply(5, 5, 95)

	f.mustExec(f.bob, nil, &ExecuteMsg{ConvertToBank: &AmountMsg{Amount: Uint128From(80)}})
	require.Equal(t, "80", f.bankBalance(f.bob, testBankDenom))
	require.Equal(t, "50", f.tokenBalance(f.carol))
}

func TestHostTransferCarriesStakeBacking(t *testing.T) {
	f := newHostFixture(t, nil)
	f.mustExec(f.alice, coins(testBondDenom, 100), &ExecuteMsg{Bond: &EmptyMsg{}})
	f.mustExec(f.alice, nil, &ExecuteMsg{Transfer: &TransferMsg{Recipient: crypto.AccountString(f.bob), Amount: Uint128From(40)}})

	f.mustExec(f.bob, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(40)}})
	_, err := f.exec(f.alice, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(61)}})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientFunds)
	f.mustExec(f.alice, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(60)}})
	f.requireSupply(5, 5, 95)
}

func TestHostRejectsBlockTimeRegression(t *testing.T) {
	f := newHostFixture(t, nil)
	f.mustExec(f.alice, coins(testBondDenom, 10), &ExecuteMsg{Bond: &EmptyMsg{}})

	stale := Block{Height: 2, Time: f.block.Time - 1}
	_, err := f.host.Execute(stale, types.MessageInfo{Sender: f.alice, Funds: coins(testBondDenom, 10)}, &ExecuteMsg{Bond: &EmptyMsg{}})
	require.ErrorIs(t, err, coreerrors.ErrBlockTimeRegressed)
	require.Equal(t, coreerrors.ClassValidation, coreerrors.ClassOf(err))
	f.requireSupply(10, 10, 0)

	last, ok, err := f.host.LastBlock()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, f.block, last)

	block, result, err := f.host.ExecuteNext(func() Block {
		return Block{Height: 5, Time: f.block.Time + 1}
	}, types.MessageInfo{Sender: f.alice, Funds: coins(testBondDenom, 10)}, &ExecuteMsg{Bond: &EmptyMsg{}})
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.Equal(t, uint64(5), block.Height)
	f.requireSupply(20, 20, 0)

	last, _, err = f.host.LastBlock()
	require.NoError(t, err)
	require.Equal(t, block, last)
}

func TestHostConverterTokenFactoryMode(t *testing.T) {
	f := newHostFixture(t, func(msg *InstantiateMsg) {
		msg.SettlementMode = "tokenfactory"
	})

	f.mustExec(f.alice, coins(testBankDenom, 100), &ExecuteMsg{ConvertFromBank: &EmptyMsg{}})
	require.Equal(t, "100", f.tokenBalance(f.alice))
	require.Equal(t, "0", f.bankBalance(f.host.Contract(), testBankDenom))
	require.Equal(t, "0", f.bankBalance(f.host.Reserve(), testBankDenom))

	f.mustExec(f.alice, nil, &ExecuteMsg{ConvertToBank: &AmountMsg{Amount: Uint128From(40)}})
	require.Equal(t, "440", f.bankBalance(f.alice, testBankDenom))
	require.Equal(t, "60", f.tokenBalance(f.alice))
}

func TestHostTransfer(t *testing.T) {
	f := newHostFixture(t, nil)
	result := f.mustExec(f.carol, nil, &ExecuteMsg{Transfer: &TransferMsg{Recipient: crypto.AccountString(f.bob), Amount: Uint128From(30)}})
	action, ok := result.Response.Attribute("action")
	require.True(t, ok)
	require.Equal(t, "transfer", action)
	require.Equal(t, "20", f.tokenBalance(f.carol))
	require.Equal(t, "30", f.tokenBalance(f.bob))

	_, err := f.exec(f.carol, nil, &ExecuteMsg{Transfer: &TransferMsg{Recipient: crypto.AccountString(f.bob), Amount: Uint128From(0)}})
	require.ErrorIs(t, err, coreerrors.ErrInvalidZeroAmount)

	_, err = f.exec(f.carol, nil, &ExecuteMsg{Transfer: &TransferMsg{Recipient: "nope", Amount: Uint128From(1)}})
	require.ErrorIs(t, err, coreerrors.ErrInvalidAddress)
}

func TestHostRejectsAmbiguousMessages(t *testing.T) {
	f := newHostFixture(t, nil)
	_, err := f.exec(f.alice, nil, &ExecuteMsg{})
	require.ErrorIs(t, err, coreerrors.ErrInvalidMessage)

	_, err = f.exec(f.alice, nil, &ExecuteMsg{Bond: &EmptyMsg{}, Claim: &EmptyMsg{}})
	require.ErrorIs(t, err, coreerrors.ErrInvalidMessage)
	require.Equal(t, coreerrors.ClassValidation, coreerrors.ClassOf(err))
}

func TestHostInstantiateOnce(t *testing.T) {
	host := newHost(t, storage.NewMemDB())
	owner := crypto.ContractAddress("owner")
	carol := crypto.ContractAddress("carol")
	block := Block{Height: 1, Time: 10}

	_, err := host.Execute(block, types.MessageInfo{Sender: owner}, &ExecuteMsg{Bond: &EmptyMsg{}})
	require.ErrorIs(t, err, coreerrors.ErrNotInitialized)

	dup := testInstantiateMsg(owner, carol)
	dup.InitialBalances = append(dup.InitialBalances, dup.InitialBalances[0])
	_, err = host.Instantiate(block, types.MessageInfo{Sender: owner}, dup)
	require.ErrorIs(t, err, coreerrors.ErrDuplicateInitialBalanceAddress)

	over := testInstantiateMsg(owner, carol)
	limit := Uint128From(10)
	over.Cap = &limit
	_, err = host.Instantiate(block, types.MessageInfo{Sender: owner}, over)
	require.ErrorIs(t, err, coreerrors.ErrCannotExceedCap)

	badTax := testInstantiateMsg(owner, carol)
	badTax.Investment.ExitTax = invest.MustParseDecimal("1.5")
	_, err = host.Instantiate(block, types.MessageInfo{Sender: owner}, badTax)
	require.ErrorIs(t, err, coreerrors.ErrInvalidExitTax)

	_, err = host.Instantiate(block, types.MessageInfo{Sender: owner}, testInstantiateMsg(owner, carol))
	require.NoError(t, err)
	_, err = host.Instantiate(block, types.MessageInfo{Sender: owner}, testInstantiateMsg(owner, carol))
	require.ErrorIs(t, err, coreerrors.ErrAlreadyInitialized)
}

func TestHostStatePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	owner := crypto.ContractAddress("owner")
	alice := crypto.ContractAddress("alice")
	block := Block{Height: 1, Time: 10}
	msg := testInstantiateMsg(owner, crypto.ContractAddress("carol"))
	msg.SettlementMode = "tokenfactory"

	host := newHost(t, db)
	_, err = host.Instantiate(block, types.MessageInfo{Sender: owner}, msg)
	require.NoError(t, err)
	require.NoError(t, host.Fund(alice, coins(testBondDenom, 300)))
	_, err = host.Execute(block, types.MessageInfo{Sender: alice, Funds: coins(testBondDenom, 300)}, &ExecuteMsg{Bond: &EmptyMsg{}})
	require.NoError(t, err)
	db.Close()

	reopened, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()
	restarted := newHost(t, reopened)

	supply, err := restarted.Query(block, &QueryMsg{Supply: &EmptyMsg{}})
	require.NoError(t, err)
	require.Equal(t, "300", supply.(*SupplyResponse).Bonded.String())

	_, err = restarted.Instantiate(block, types.MessageInfo{Sender: owner}, msg)
	require.ErrorIs(t, err, coreerrors.ErrAlreadyInitialized)
}

func TestExecuteMsgJSON(t *testing.T) {
	var msg ExecuteMsg
	require.NoError(t, json.Unmarshal([]byte(`{"unbond":{"amount":"42"}}`), &msg))
	method, err := msg.Method()
	require.NoError(t, err)
	require.Equal(t, "unbond", method)
	require.Equal(t, "42", msg.Unbond.Amount.String())

	require.Error(t, json.Unmarshal([]byte(`{"unbond":{"amount":"-1"}}`), &msg))
	require.Error(t, json.Unmarshal([]byte(`{"unbond":{"amount":"340282366920938463463374607431768211456"}}`), &msg))

	encoded, err := json.Marshal(SupplyResponse{Issued: Uint128From(1), Bonded: Uint128From(2), Claims: Uint128From(3)})
	require.NoError(t, err)
	require.JSONEq(t, `{"issued":"1","bonded":"2","claims":"3"}`, string(encoded))
}

type supplyGauges struct {
	issued []int64
}

func (g *supplyGauges) ObserveOperation(string, error)  {}
func (g *supplyGauges) RecordInvariantViolation(string) {}
func (g *supplyGauges) SetSupply(issued, _, _ *big.Int) {
	g.issued = append(g.issued, issued.Int64())
}

func TestHostPublishesSupplyAfterCommit(t *testing.T) {
	f := newHostFixture(t, nil)
	gauges := &supplyGauges{}
	f.host.SetMetrics(gauges)

	f.mustExec(f.alice, coins(testBondDenom, 100), &ExecuteMsg{Bond: &EmptyMsg{}})
	require.Equal(t, int64(100), gauges.issued[len(gauges.issued)-1])

	_, err := f.exec(f.carol, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(50)}})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientBacking)
	_, err = f.exec(f.alice, nil, &ExecuteMsg{Unbond: &AmountMsg{Amount: Uint128From(101)}})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientFunds)
	for _, issued := range gauges.issued {
		require.Contains(t, []int64{0, 100}, issued)
	}
	require.Equal(t, int64(100), gauges.issued[len(gauges.issued)-1])
}
