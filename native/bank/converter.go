package bank

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	coreerrors "stakebank/core/errors"
	"stakebank/core/events"
	"stakebank/core/types"
	"stakebank/crypto"
	"stakebank/native/common"
	"stakebank/native/token"
)

// SettlementMode selects how converted bank funds are settled.
type SettlementMode string

const (
	// SettlementCustody keeps received bank funds in the converter reserve
	// and pays redemptions out of it.
	SettlementCustody SettlementMode = "custody"
	// SettlementTokenFactory burns received bank funds and mints
	// redemptions. The contract must administer the bank denomination.
	SettlementTokenFactory SettlementMode = "tokenfactory"
)

const reservePurpose = "converter-reserve"

var (
	errNilLedger   = errors.New("bank converter: ledger not configured")
	errUnknownMode = errors.New("bank converter: unknown settlement mode")
)

// ParseSettlementMode validates a configured settlement mode. The empty
// string selects custody.
func ParseSettlementMode(raw string) (SettlementMode, error) {
	switch mode := SettlementMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return SettlementCustody, nil
	case SettlementCustody, SettlementTokenFactory:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownMode, raw)
	}
}

// ReserveAddress returns the account holding converter custody for contract.
// It is distinct from the contract's own account so converter funds are never
// mistaken for staking custody.
func ReserveAddress(contract [20]byte) [20]byte {
	return crypto.DeriveAddress(contract, reservePurpose)
}

// Ledger is the token surface the converter operates on.
type Ledger interface {
	Info() (*token.TokenInfo, error)
	PutInfo(info *token.TokenInfo) error
	Balance(addr [20]byte) (*big.Int, error)
	Mint(minter, to [20]byte, amount *big.Int, backing token.Backing) error
	Burn(minter, from [20]byte, amount *big.Int, backing token.Backing) error
}

// Converter swaps derivative tokens and the bank denomination 1:1.
type Converter struct {
	ledger  Ledger
	mode    SettlementMode
	emitter events.Emitter
	logger  *slog.Logger
	pauses  common.PauseView
}

// NewConverter constructs a converter settling through custody.
func NewConverter() *Converter {
	return &Converter{
		mode:    SettlementCustody,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
	}
}

// SetLedger configures the token ledger.
func (c *Converter) SetLedger(ledger Ledger) { c.ledger = ledger }

// SetMode configures the settlement mode.
func (c *Converter) SetMode(mode SettlementMode) {
	if mode == "" {
		mode = SettlementCustody
	}
	c.mode = mode
}

// Mode returns the configured settlement mode.
func (c *Converter) Mode() SettlementMode { return c.mode }

// SetEmitter configures the event emitter used by the converter.
func (c *Converter) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

// SetLogger configures the structured logger.
func (c *Converter) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	c.logger = logger
}

// SetPauses wires the pause view.
func (c *Converter) SetPauses(p common.PauseView) { c.pauses = p }

func (c *Converter) emit(evt events.Event) {
	if c == nil || c.emitter == nil {
		return
	}
	c.emitter.Emit(evt)
}

// ConvertToBank burns amount bank-backed derivative tokens from caller and
// pays the same amount of the bank denomination.
func (c *Converter) ConvertToBank(env types.Env, caller [20]byte, amount *big.Int) (*types.Response, error) {
	if c == nil || c.ledger == nil {
		return nil, errNilLedger
	}
	if err := common.Guard(c.pauses, common.ModuleBank); err != nil {
		return nil, err
	}
	if err := common.CheckAmount(amount); err != nil {
		return nil, err
	}
	info, err := c.ledger.Info()
	if err != nil {
		return nil, err
	}
	if !info.ConverterEnabled() {
		return nil, coreerrors.ErrBankDenomNotSet
	}
	balance, err := c.ledger.Balance(caller)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, coreerrors.ErrInsufficientBalance
	}
	if info.BankBacked.Cmp(amount) < 0 {
		return nil, coreerrors.ErrInsufficientBacking
	}
	if err := c.ledger.Burn(env.Contract, caller, amount, token.BackedByBank); err != nil {
		return nil, err
	}
	if err := c.adjustBacked(new(big.Int).Neg(amount)); err != nil {
		return nil, err
	}

	coin := types.NewCoin(info.BankDenom, amount)
	resp := &types.Response{}
	switch c.mode {
	case SettlementTokenFactory:
		resp.AddEffect(types.BankMintEffect(caller, coin))
	default:
		resp.AddEffect(types.BankSendEffect(ReserveAddress(env.Contract), caller, coin))
	}
	resp.AddAttribute("action", "convert_to_bank").
		AddAttribute("from", crypto.AccountString(caller)).
		AddAttribute("amount", amount.String()).
		AddAttribute("denom", info.BankDenom)
	c.emit(events.TokenConverted{
		Direction:  events.ConvertDirectionToBank,
		Account:    caller,
		Amount:     new(big.Int).Set(amount),
		Denom:      info.BankDenom,
		Settlement: string(c.mode),
	})
	c.logger.Debug("convert to bank", slog.String("from", crypto.AccountString(caller)), slog.String("amount", amount.String()))
	return resp, nil
}

// ConvertFromBank credits caller with derivative tokens for the bank funds
// attached to the invocation. Only the first attached coin is considered.
func (c *Converter) ConvertFromBank(env types.Env, caller [20]byte, funds types.Coins) (*types.Response, error) {
	if c == nil || c.ledger == nil {
		return nil, errNilLedger
	}
	if err := common.Guard(c.pauses, common.ModuleBank); err != nil {
		return nil, err
	}
	info, err := c.ledger.Info()
	if err != nil {
		return nil, err
	}
	if !info.ConverterEnabled() {
		return nil, coreerrors.ErrBankDenomNotSet
	}
	if len(funds) == 0 {
		return nil, coreerrors.ErrInvalidZeroAmount
	}
	received := funds[0]
	if received.Denom != info.BankDenom {
		return nil, coreerrors.ErrInvalidBankDenom
	}
	if err := common.CheckAmount(received.Amount); err != nil {
		return nil, err
	}
	amount := new(big.Int).Set(received.Amount)
	if err := c.ledger.Mint(env.Contract, caller, amount, token.BackedByBank); err != nil {
		return nil, err
	}
	if err := c.adjustBacked(amount); err != nil {
		return nil, err
	}

	coin := types.NewCoin(info.BankDenom, amount)
	resp := &types.Response{}
	switch c.mode {
	case SettlementTokenFactory:
		resp.AddEffect(types.BankBurnEffect(env.Contract, coin))
	default:
		resp.AddEffect(types.BankSendEffect(env.Contract, ReserveAddress(env.Contract), coin))
	}
	resp.AddAttribute("action", "convert_from_bank").
		AddAttribute("from", crypto.AccountString(caller)).
		AddAttribute("amount", amount.String()).
		AddAttribute("denom", info.BankDenom)
	c.emit(events.TokenConverted{
		Direction:  events.ConvertDirectionFromBank,
		Account:    caller,
		Amount:     new(big.Int).Set(amount),
		Denom:      info.BankDenom,
		Settlement: string(c.mode),
	})
	c.logger.Debug("convert from bank", slog.String("from", crypto.AccountString(caller)), slog.String("amount", amount.String()))
	return resp, nil
}

func (c *Converter) adjustBacked(delta *big.Int) error {
	info, err := c.ledger.Info()
	if err != nil {
		return err
	}
	backed := new(big.Int).Add(info.BankBacked, delta)
	if backed.Sign() < 0 {
		return coreerrors.ErrInsufficientBacking
	}
	info.BankBacked = backed
	return c.ledger.PutInfo(info)
}
