package staking

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "stakebank/core/errors"
	"stakebank/core/types"
)

type delegationKey struct {
	delegator [20]byte
	validator string
}

type mockState struct {
	balances   map[string]*big.Int
	supply     map[string]*big.Int
	delegs     map[delegationKey]*Delegation
	byDeleg    map[[20]byte][]string
	byVal      map[string][][20]byte
	unbondings []UnbondingEntry
	rewards    map[delegationKey]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		balances: make(map[string]*big.Int),
		supply:   make(map[string]*big.Int),
		delegs:   make(map[delegationKey]*Delegation),
		byDeleg:  make(map[[20]byte][]string),
		byVal:    make(map[string][][20]byte),
		rewards:  make(map[delegationKey]*big.Int),
	}
}

func balanceKey(addr [20]byte, denom string) string {
	return string(addr[:]) + "/" + denom
}

func (m *mockState) BankBalance(addr [20]byte, denom string) (*big.Int, error) {
	if bal, ok := m.balances[balanceKey(addr, denom)]; ok {
		return new(big.Int).Set(bal), nil
	}
	return nil, nil
}

func (m *mockState) PutBankBalance(addr [20]byte, denom string, amount *big.Int) error {
	m.balances[balanceKey(addr, denom)] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) BankSupply(denom string) (*big.Int, error) {
	if s, ok := m.supply[denom]; ok {
		return new(big.Int).Set(s), nil
	}
	return nil, nil
}

func (m *mockState) PutBankSupply(denom string, amount *big.Int) error {
	m.supply[denom] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) StakingDelegation(delegator [20]byte, validator string) (*Delegation, bool, error) {
	d, ok := m.delegs[delegationKey{delegator, validator}]
	if !ok {
		return nil, false, nil
	}
	clone := *d
	clone.Amount = new(big.Int).Set(d.Amount)
	return &clone, true, nil
}

func (m *mockState) PutStakingDelegation(d *Delegation) error {
	key := delegationKey{d.Delegator, d.Validator}
	if _, ok := m.delegs[key]; !ok {
		m.byDeleg[d.Delegator] = append(m.byDeleg[d.Delegator], d.Validator)
		m.byVal[d.Validator] = append(m.byVal[d.Validator], d.Delegator)
	}
	clone := *d
	clone.Amount = new(big.Int).Set(d.Amount)
	m.delegs[key] = &clone
	return nil
}

func (m *mockState) StakingDelegatorValidators(delegator [20]byte) ([]string, error) {
	return append([]string(nil), m.byDeleg[delegator]...), nil
}

func (m *mockState) StakingValidatorDelegators(validator string) ([][20]byte, error) {
	return append([][20]byte(nil), m.byVal[validator]...), nil
}

func (m *mockState) StakingUnbondings() ([]UnbondingEntry, error) {
	return append([]UnbondingEntry(nil), m.unbondings...), nil
}

func (m *mockState) PutStakingUnbondings(entries []UnbondingEntry) error {
	m.unbondings = append([]UnbondingEntry(nil), entries...)
	return nil
}

func (m *mockState) StakingRewards(delegator [20]byte, validator string) (*big.Int, error) {
	if r, ok := m.rewards[delegationKey{delegator, validator}]; ok {
		return new(big.Int).Set(r), nil
	}
	return nil, nil
}

func (m *mockState) PutStakingRewards(delegator [20]byte, validator string, amount *big.Int) error {
	m.rewards[delegationKey{delegator, validator}] = new(big.Int).Set(amount)
	return nil
}

const (
	testDenom     = "ustake"
	testValidator = "val-1"
)

var (
	alice = [20]byte{0xa1}
	bob   = [20]byte{0xb0}
)

func newTestKeeper(t *testing.T) *Keeper {
	t.Helper()
	k := NewKeeper(Params{BondDenom: testDenom, UnbondingTime: 100})
	k.SetState(newMockState())
	return k
}

func coin(amount int64) types.Coin {
	return types.NewCoin(testDenom, big.NewInt(amount))
}

func requireBalance(t *testing.T, k *Keeper, addr [20]byte, want int64) {
	t.Helper()
	got, err := k.Balance(addr, testDenom)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("expected balance %d, got %s", want, got)
	}
}

func TestSendMintBurn(t *testing.T) {
	k := newTestKeeper(t)
	if err := k.Mint(alice, coin(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := k.Send(alice, bob, coin(40)); err != nil {
		t.Fatalf("send: %v", err)
	}
	requireBalance(t, k, alice, 60)
	requireBalance(t, k, bob, 40)

	if err := k.Send(bob, alice, coin(41)); !errors.Is(err, coreerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := k.Burn(alice, coin(10)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	supply, err := k.Supply(testDenom)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("expected supply 90, got %s", supply)
	}
	if err := k.Send(alice, bob, types.NewCoin(testDenom, big.NewInt(0))); err != nil {
		t.Fatalf("zero send should be a no-op: %v", err)
	}
}

func TestDelegateAndUndelegate(t *testing.T) {
	k := newTestKeeper(t)
	if err := k.Mint(alice, coin(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := k.Delegate(alice, testValidator, coin(300)); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	requireBalance(t, k, alice, 200)

	delegations, err := k.AllDelegations(alice)
	if err != nil {
		t.Fatalf("all delegations: %v", err)
	}
	if len(delegations) != 1 || delegations[0].Amount.Amount.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected delegations %+v", delegations)
	}

	if err := k.Undelegate(alice, testValidator, coin(301), 10); !errors.Is(err, errInsufficientDelegation) {
		t.Fatalf("expected insufficient delegation, got %v", err)
	}
	if err := k.Undelegate(alice, testValidator, coin(100), 10); err != nil {
		t.Fatalf("undelegate: %v", err)
	}
	pending, err := k.Unbondings(alice)
	if err != nil {
		t.Fatalf("unbondings: %v", err)
	}
	if len(pending) != 1 || pending[0].CompletionTime != 110 {
		t.Fatalf("unexpected unbondings %+v", pending)
	}

	released, err := k.ProcessMatured(109)
	if err != nil || released != 0 {
		t.Fatalf("expected nothing released, got %d (%v)", released, err)
	}
	requireBalance(t, k, alice, 200)

	released, err = k.ProcessMatured(110)
	if err != nil || released != 1 {
		t.Fatalf("expected one release, got %d (%v)", released, err)
	}
	requireBalance(t, k, alice, 300)
}

func TestDelegateRejectsForeignDenom(t *testing.T) {
	k := newTestKeeper(t)
	other := types.NewCoin("uother", big.NewInt(5))
	if err := k.Mint(alice, other); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := k.Delegate(alice, testValidator, other); err == nil {
		t.Fatalf("expected denom rejection")
	}
	if err := k.Delegate(alice, "", coin(1)); !errors.Is(err, errValidatorRequired) {
		t.Fatalf("expected validator required, got %v", err)
	}
}

func TestAllDelegationsSkipsEmpty(t *testing.T) {
	k := newTestKeeper(t)
	if err := k.Mint(alice, coin(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := k.Delegate(alice, testValidator, coin(10)); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if err := k.Undelegate(alice, testValidator, coin(10), 0); err != nil {
		t.Fatalf("undelegate: %v", err)
	}
	delegations, err := k.AllDelegations(alice)
	if err != nil {
		t.Fatalf("all delegations: %v", err)
	}
	if len(delegations) != 0 {
		t.Fatalf("expected no delegations, got %+v", delegations)
	}
}

func TestRewardsProRata(t *testing.T) {
	k := newTestKeeper(t)
	for addr, amount := range map[[20]byte]int64{alice: 300, bob: 100} {
		if err := k.Mint(addr, coin(amount)); err != nil {
			t.Fatalf("mint: %v", err)
		}
		if err := k.Delegate(addr, testValidator, coin(amount)); err != nil {
			t.Fatalf("delegate: %v", err)
		}
	}
	allocated, err := k.AllocateRewards(testValidator, big.NewInt(41))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	// 41*300/400 = 30, 41*100/400 = 10
	if allocated.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("expected 40 allocated, got %s", allocated)
	}
	paid, err := k.WithdrawRewards(alice, testValidator)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if paid.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected 30 paid, got %s", paid)
	}
	requireBalance(t, k, alice, 30)

	paid, err = k.WithdrawRewards(alice, testValidator)
	if err != nil || paid.Sign() != 0 {
		t.Fatalf("expected nothing on second withdraw, got %v (%v)", paid, err)
	}
}

func TestSlash(t *testing.T) {
	k := newTestKeeper(t)
	if err := k.Mint(alice, coin(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := k.Delegate(alice, testValidator, coin(1000)); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if _, err := k.Slash(testValidator, 10_001); !errors.Is(err, errSlashFraction) {
		t.Fatalf("expected fraction error, got %v", err)
	}
	slashed, err := k.Slash(testValidator, 500)
	if err != nil {
		t.Fatalf("slash: %v", err)
	}
	if slashed.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected 50 slashed, got %s", slashed)
	}
	delegations, err := k.AllDelegations(alice)
	if err != nil {
		t.Fatalf("all delegations: %v", err)
	}
	if delegations[0].Amount.Amount.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("expected 950 delegated, got %s", delegations[0].Amount.Amount)
	}
	supply, err := k.Supply(testDenom)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("expected supply 950, got %s", supply)
	}
}

func TestKeeperRequiresState(t *testing.T) {
	var k *Keeper
	if _, err := k.Balance(alice, testDenom); !errors.Is(err, errNilState) {
		t.Fatalf("expected nil state error, got %v", err)
	}
}
