package staking

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	coreerrors "stakebank/core/errors"
	"stakebank/core/types"
	"stakebank/crypto"
)

var (
	errNilState               = errors.New("staking keeper: state not configured")
	errInvalidAmount          = errors.New("staking keeper: amount must be positive")
	errValidatorRequired      = errors.New("staking keeper: validator required")
	errInsufficientDelegation = errors.New("staking keeper: insufficient delegation")
	errSlashFraction          = errors.New("staking keeper: slash fraction must be within 0-10000 bps")
)

type keeperState interface {
	BankBalance(addr [20]byte, denom string) (*big.Int, error)
	PutBankBalance(addr [20]byte, denom string, amount *big.Int) error
	BankSupply(denom string) (*big.Int, error)
	PutBankSupply(denom string, amount *big.Int) error
	StakingDelegation(delegator [20]byte, validator string) (*Delegation, bool, error)
	PutStakingDelegation(d *Delegation) error
	StakingDelegatorValidators(delegator [20]byte) ([]string, error)
	StakingValidatorDelegators(validator string) ([][20]byte, error)
	StakingUnbondings() ([]UnbondingEntry, error)
	PutStakingUnbondings(entries []UnbondingEntry) error
	StakingRewards(delegator [20]byte, validator string) (*big.Int, error)
	PutStakingRewards(delegator [20]byte, validator string, amount *big.Int) error
}

// Keeper models the bank and staking modules the contract settles against:
// bank balances, delegations, time-delayed unbonding, reward accrual and
// slashing.
type Keeper struct {
	state  keeperState
	params Params
	logger *slog.Logger
}

// NewKeeper constructs a keeper with the supplied parameters.
func NewKeeper(params Params) *Keeper {
	return &Keeper{params: params, logger: slog.Default()}
}

// SetState configures the state backend used by the keeper.
func (k *Keeper) SetState(state keeperState) { k.state = state }

// SetLogger configures the structured logger.
func (k *Keeper) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	k.logger = logger
}

// Params returns the keeper parameters.
func (k *Keeper) Params() Params { return k.params }

func (k *Keeper) ready() error {
	if k == nil || k.state == nil {
		return errNilState
	}
	return nil
}

func positive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	return nil
}

// Balance returns the bank balance of addr in denom.
func (k *Keeper) Balance(addr [20]byte, denom string) (*big.Int, error) {
	if err := k.ready(); err != nil {
		return nil, err
	}
	bal, err := k.state.BankBalance(addr, denom)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return big.NewInt(0), nil
	}
	return bal, nil
}

func (k *Keeper) addBalance(addr [20]byte, denom string, delta *big.Int) error {
	bal, err := k.Balance(addr, denom)
	if err != nil {
		return err
	}
	bal.Add(bal, delta)
	if bal.Sign() < 0 {
		return coreerrors.ErrInsufficientFunds
	}
	return k.state.PutBankBalance(addr, denom, bal)
}

func (k *Keeper) addSupply(denom string, delta *big.Int) error {
	supply, err := k.state.BankSupply(denom)
	if err != nil {
		return err
	}
	if supply == nil {
		supply = big.NewInt(0)
	}
	supply = new(big.Int).Add(supply, delta)
	if supply.Sign() < 0 {
		return fmt.Errorf("staking keeper: %s supply underflow", denom)
	}
	return k.state.PutBankSupply(denom, supply)
}

// Send moves coin between bank accounts.
func (k *Keeper) Send(from, to [20]byte, coin types.Coin) error {
	if err := k.ready(); err != nil {
		return err
	}
	if coin.IsZero() {
		return nil
	}
	if err := positive(coin.Amount); err != nil {
		return err
	}
	if err := k.addBalance(from, coin.Denom, new(big.Int).Neg(coin.Amount)); err != nil {
		return err
	}
	return k.addBalance(to, coin.Denom, coin.Amount)
}

// SendCoins moves every coin from one account to another.
func (k *Keeper) SendCoins(from, to [20]byte, coins types.Coins) error {
	for _, coin := range coins {
		if err := k.Send(from, to, coin); err != nil {
			return fmt.Errorf("send %s: %w", coin, err)
		}
	}
	return nil
}

// Mint creates coin in to's account.
func (k *Keeper) Mint(to [20]byte, coin types.Coin) error {
	if err := k.ready(); err != nil {
		return err
	}
	if err := positive(coin.Amount); err != nil {
		return err
	}
	if err := k.addBalance(to, coin.Denom, coin.Amount); err != nil {
		return err
	}
	return k.addSupply(coin.Denom, coin.Amount)
}

// Burn destroys coin held by from.
func (k *Keeper) Burn(from [20]byte, coin types.Coin) error {
	if err := k.ready(); err != nil {
		return err
	}
	if err := positive(coin.Amount); err != nil {
		return err
	}
	if err := k.addBalance(from, coin.Denom, new(big.Int).Neg(coin.Amount)); err != nil {
		return err
	}
	return k.addSupply(coin.Denom, new(big.Int).Neg(coin.Amount))
}

// Supply returns the bank supply of denom.
func (k *Keeper) Supply(denom string) (*big.Int, error) {
	if err := k.ready(); err != nil {
		return nil, err
	}
	supply, err := k.state.BankSupply(denom)
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return big.NewInt(0), nil
	}
	return supply, nil
}

func (k *Keeper) checkDelegationCoin(validator string, coin types.Coin) error {
	if strings.TrimSpace(validator) == "" {
		return errValidatorRequired
	}
	if err := positive(coin.Amount); err != nil {
		return err
	}
	if coin.Denom != k.params.BondDenom {
		return fmt.Errorf("staking keeper: cannot delegate %s, bond denom is %s", coin.Denom, k.params.BondDenom)
	}
	return nil
}

func (k *Keeper) delegation(delegator [20]byte, validator string) (*Delegation, error) {
	d, ok, err := k.state.StakingDelegation(delegator, validator)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Delegation{Delegator: delegator, Validator: validator, Denom: k.params.BondDenom, Amount: big.NewInt(0)}, nil
	}
	return d, nil
}

// Delegate moves coin from the delegator's bank balance into a delegation.
func (k *Keeper) Delegate(delegator [20]byte, validator string, coin types.Coin) error {
	if err := k.ready(); err != nil {
		return err
	}
	if err := k.checkDelegationCoin(validator, coin); err != nil {
		return err
	}
	if err := k.addBalance(delegator, coin.Denom, new(big.Int).Neg(coin.Amount)); err != nil {
		return err
	}
	d, err := k.delegation(delegator, validator)
	if err != nil {
		return err
	}
	d.Amount = new(big.Int).Add(d.Amount, coin.Amount)
	if err := k.state.PutStakingDelegation(d); err != nil {
		return err
	}
	k.logger.Debug("staking delegate",
		slog.String("delegator", crypto.AccountString(delegator)),
		slog.String("validator", validator),
		slog.String("amount", coin.Amount.String()))
	return nil
}

// Undelegate reduces a delegation and queues the funds for release after
// the unbonding time.
func (k *Keeper) Undelegate(delegator [20]byte, validator string, coin types.Coin, now uint64) error {
	if err := k.ready(); err != nil {
		return err
	}
	if err := k.checkDelegationCoin(validator, coin); err != nil {
		return err
	}
	d, err := k.delegation(delegator, validator)
	if err != nil {
		return err
	}
	if d.Amount.Cmp(coin.Amount) < 0 {
		return errInsufficientDelegation
	}
	d.Amount = new(big.Int).Sub(d.Amount, coin.Amount)
	if err := k.state.PutStakingDelegation(d); err != nil {
		return err
	}
	entries, err := k.state.StakingUnbondings()
	if err != nil {
		return err
	}
	entries = append(entries, UnbondingEntry{
		Delegator:      delegator,
		Validator:      validator,
		Denom:          coin.Denom,
		Amount:         new(big.Int).Set(coin.Amount),
		CompletionTime: now + k.params.UnbondingTime,
	})
	return k.state.PutStakingUnbondings(entries)
}

// ProcessMatured releases every unbonding entry completed at now and returns
// the number of entries released.
func (k *Keeper) ProcessMatured(now uint64) (int, error) {
	if err := k.ready(); err != nil {
		return 0, err
	}
	entries, err := k.state.StakingUnbondings()
	if err != nil {
		return 0, err
	}
	pending := make([]UnbondingEntry, 0, len(entries))
	released := 0
	for _, entry := range entries {
		if entry.CompletionTime > now {
			pending = append(pending, entry)
			continue
		}
		if err := k.addBalance(entry.Delegator, entry.Denom, entry.Amount); err != nil {
			return 0, err
		}
		released++
	}
	if released == 0 {
		return 0, nil
	}
	if err := k.state.PutStakingUnbondings(pending); err != nil {
		return 0, err
	}
	return released, nil
}

// Unbondings returns the entries still waiting for release for delegator.
func (k *Keeper) Unbondings(delegator [20]byte) ([]UnbondingEntry, error) {
	if err := k.ready(); err != nil {
		return nil, err
	}
	entries, err := k.state.StakingUnbondings()
	if err != nil {
		return nil, err
	}
	out := make([]UnbondingEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Delegator == delegator {
			out = append(out, entry)
		}
	}
	return out, nil
}

// AllDelegations lists every non-empty delegation of delegator.
func (k *Keeper) AllDelegations(delegator [20]byte) ([]types.Delegation, error) {
	if err := k.ready(); err != nil {
		return nil, err
	}
	validators, err := k.state.StakingDelegatorValidators(delegator)
	if err != nil {
		return nil, err
	}
	out := make([]types.Delegation, 0, len(validators))
	for _, validator := range validators {
		d, ok, err := k.state.StakingDelegation(delegator, validator)
		if err != nil {
			return nil, err
		}
		if !ok || d.Amount == nil || d.Amount.Sign() == 0 {
			continue
		}
		out = append(out, types.Delegation{Delegator: delegator, Validator: validator, Amount: d.Coin()})
	}
	return out, nil
}

// AllocateRewards distributes amount pro rata across the delegations of
// validator. Rounding dust is not distributed. It returns the amount
// actually allocated.
func (k *Keeper) AllocateRewards(validator string, amount *big.Int) (*big.Int, error) {
	if err := k.ready(); err != nil {
		return nil, err
	}
	if err := positive(amount); err != nil {
		return nil, err
	}
	delegators, err := k.state.StakingValidatorDelegators(validator)
	if err != nil {
		return nil, err
	}
	positions := make([]*Delegation, 0, len(delegators))
	total := big.NewInt(0)
	for _, delegator := range delegators {
		d, ok, err := k.state.StakingDelegation(delegator, validator)
		if err != nil {
			return nil, err
		}
		if !ok || d.Amount.Sign() == 0 {
			continue
		}
		positions = append(positions, d)
		total.Add(total, d.Amount)
	}
	allocated := big.NewInt(0)
	if total.Sign() == 0 {
		return allocated, nil
	}
	for _, d := range positions {
		share := new(big.Int).Mul(amount, d.Amount)
		share.Quo(share, total)
		if share.Sign() == 0 {
			continue
		}
		pending, err := k.state.StakingRewards(d.Delegator, validator)
		if err != nil {
			return nil, err
		}
		if pending == nil {
			pending = big.NewInt(0)
		}
		if err := k.state.PutStakingRewards(d.Delegator, validator, new(big.Int).Add(pending, share)); err != nil {
			return nil, err
		}
		allocated.Add(allocated, share)
	}
	return allocated, nil
}

// PendingRewards returns the rewards accrued by delegator with validator.
func (k *Keeper) PendingRewards(delegator [20]byte, validator string) (*big.Int, error) {
	if err := k.ready(); err != nil {
		return nil, err
	}
	pending, err := k.state.StakingRewards(delegator, validator)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return big.NewInt(0), nil
	}
	return pending, nil
}

// WithdrawRewards mints the pending rewards into the delegator's bank
// balance and returns the amount paid.
func (k *Keeper) WithdrawRewards(delegator [20]byte, validator string) (*big.Int, error) {
	pending, err := k.PendingRewards(delegator, validator)
	if err != nil {
		return nil, err
	}
	if pending.Sign() == 0 {
		return pending, nil
	}
	if err := k.state.PutStakingRewards(delegator, validator, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := k.Mint(delegator, types.NewCoin(k.params.BondDenom, pending)); err != nil {
		return nil, err
	}
	k.logger.Debug("staking rewards withdrawn",
		slog.String("delegator", crypto.AccountString(delegator)),
		slog.String("validator", validator),
		slog.String("amount", pending.String()))
	return pending, nil
}

// Slash burns bps/10000 of every delegation to validator.
func (k *Keeper) Slash(validator string, bps uint32) (*big.Int, error) {
	if err := k.ready(); err != nil {
		return nil, err
	}
	if bps > 10_000 {
		return nil, errSlashFraction
	}
	delegators, err := k.state.StakingValidatorDelegators(validator)
	if err != nil {
		return nil, err
	}
	slashed := big.NewInt(0)
	for _, delegator := range delegators {
		d, ok, err := k.state.StakingDelegation(delegator, validator)
		if err != nil {
			return nil, err
		}
		if !ok || d.Amount.Sign() == 0 {
			continue
		}
		cut := new(big.Int).Mul(d.Amount, big.NewInt(int64(bps)))
		cut.Quo(cut, big.NewInt(10_000))
		if cut.Sign() == 0 {
			continue
		}
		d.Amount = new(big.Int).Sub(d.Amount, cut)
		if err := k.state.PutStakingDelegation(d); err != nil {
			return nil, err
		}
		if err := k.addSupply(d.Denom, new(big.Int).Neg(cut)); err != nil {
			return nil, err
		}
		slashed.Add(slashed, cut)
	}
	if slashed.Sign() > 0 {
		k.logger.Warn("validator slashed", slog.String("validator", validator), slog.String("amount", slashed.String()))
	}
	return slashed, nil
}
