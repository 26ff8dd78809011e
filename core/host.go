package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	coreerrors "stakebank/core/errors"
	"stakebank/core/events"
	corestate "stakebank/core/state"
	"stakebank/core/types"
	"stakebank/crypto"
	"stakebank/native/bank"
	"stakebank/native/common"
	"stakebank/native/invest"
	"stakebank/native/staking"
	"stakebank/native/token"
	"stakebank/storage"
)

const (
	ContractName    = "stakebank"
	ContractVersion = "0.1.0"

	defaultMaxCallDepth = 4
)

var (
	errNilHost       = errors.New("host: not configured")
	errCallDepth     = errors.New("host: self call depth exceeded")
	errUnknownEffect = errors.New("host: unknown effect")
)

// Block is the chain context an invocation executes in.
type Block struct {
	Height uint64
	// Time is the block time in unix seconds.
	Time uint64
}

// HostConfig configures a contract host.
type HostConfig struct {
	// Label derives the contract's account identity.
	Label   string
	Staking staking.Params
	// MaxCallDepth bounds nested self calls. Zero selects the default.
	MaxCallDepth int
}

// Host runs the contract against a database. Every invocation is serialised,
// committed as a unit, and followed by the ordered dispatch of the effects it
// queued.
type Host struct {
	mu        sync.Mutex
	db        storage.Database
	state     *corestate.Manager
	keeper    *staking.Keeper
	ledger    *token.Ledger
	converter *bank.Converter
	engine    *invest.Engine
	buffer    *events.Buffer
	emitter   events.Emitter
	logger    *slog.Logger
	contract  [20]byte
	maxDepth  int
}

// NewHost binds a contract instance to db.
func NewHost(db storage.Database, cfg HostConfig) (*Host, error) {
	if db == nil {
		return nil, fmt.Errorf("host: database required")
	}
	label := strings.TrimSpace(cfg.Label)
	if label == "" {
		label = ContractName
	}
	if strings.TrimSpace(cfg.Staking.BondDenom) == "" {
		return nil, fmt.Errorf("host: staking bond denom required")
	}
	if err := corestate.EnsureStateVersion(db, false); err != nil {
		return nil, err
	}
	h := &Host{
		db:        db,
		state:     corestate.NewManager(db),
		keeper:    staking.NewKeeper(cfg.Staking),
		ledger:    token.NewLedger(),
		converter: bank.NewConverter(),
		engine:    invest.NewEngine(),
		buffer:    &events.Buffer{},
		emitter:   events.NoopEmitter{},
		logger:    slog.Default(),
		contract:  crypto.ContractAddress(label),
		maxDepth:  cfg.MaxCallDepth,
	}
	if h.maxDepth <= 0 {
		h.maxDepth = defaultMaxCallDepth
	}
	h.keeper.SetState(h.state)
	h.ledger.SetState(h.state)
	h.ledger.SetEmitter(h.buffer)
	h.converter.SetLedger(h.ledger)
	h.converter.SetEmitter(h.buffer)
	h.engine.SetState(h.state)
	h.engine.SetLedger(h.ledger)
	h.engine.SetQuerier(h.keeper)
	h.engine.SetEmitter(h.buffer)
	mode, err := h.state.SettlementMode()
	if err != nil {
		return nil, err
	}
	h.converter.SetMode(mode)
	return h, nil
}

// SetEmitter configures where committed events are delivered.
func (h *Host) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	h.emitter = emitter
}

// SetLogger configures the logger of the host and every module it runs.
func (h *Host) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h.logger = logger
	h.keeper.SetLogger(logger)
	h.converter.SetLogger(logger)
	h.engine.SetLogger(logger)
}

// SetMetrics configures the bonding engine metrics sink.
func (h *Host) SetMetrics(m invest.Metrics) { h.engine.SetMetrics(m) }

// SetPauses configures the module pause view.
func (h *Host) SetPauses(p common.PauseView) {
	h.ledger.SetPauses(p)
	h.converter.SetPauses(p)
	h.engine.SetPauses(p)
}

// SetTokenFunc overrides the reinvest sequencing token generator.
func (h *Host) SetTokenFunc(fn func() string) { h.engine.SetTokenFunc(fn) }

// Contract returns the contract's account identity.
func (h *Host) Contract() [20]byte { return h.contract }

// Reserve returns the converter reserve account.
func (h *Host) Reserve() [20]byte { return bank.ReserveAddress(h.contract) }

func (h *Host) env(block Block) types.Env {
	return types.Env{Height: block.Height, Time: block.Time, Contract: h.contract}
}

func (h *Host) abort() {
	h.state.Discard()
	h.buffer.Reset()
}

func (h *Host) commit() error {
	if err := h.state.Commit(); err != nil {
		h.abort()
		return err
	}
	h.buffer.FlushTo(h.emitter)
	if err := h.engine.PublishSupply(); err != nil {
		h.logger.Warn("publish supply gauges", "error", err)
	}
	return nil
}

// beginBlock releases matured unbonding entries before any invocation sees
// the bank balances. Block time may repeat but never go back.
func (h *Host) beginBlock(block Block) error {
	_, lastTime, _, err := h.state.LastBlock()
	if err != nil {
		return err
	}
	if block.Time < lastTime {
		return fmt.Errorf("%w: %d < %d", coreerrors.ErrBlockTimeRegressed, block.Time, lastTime)
	}
	if err := h.state.PutLastBlock(block.Height, block.Time); err != nil {
		h.abort()
		return err
	}
	released, err := h.keeper.ProcessMatured(block.Time)
	if err != nil {
		h.abort()
		return fmt.Errorf("host: process matured: %w", err)
	}
	if released > 0 {
		h.logger.Debug("unbonding entries released", slog.Int("count", released), slog.Uint64("time", block.Time))
	}
	return h.commit()
}

// Instantiate creates the token, the converter configuration and the bonding
// engine. It can run once per database.
func (h *Host) Instantiate(block Block, info types.MessageInfo, msg *InstantiateMsg) (*types.Response, error) {
	if h == nil || h.state == nil {
		return nil, errNilHost
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: instantiate message required", coreerrors.ErrInvalidMessage)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok, err := h.state.ContractVersion(); err != nil {
		return nil, err
	} else if ok {
		return nil, coreerrors.ErrAlreadyInitialized
	}
	resp, err := h.instantiate(info, msg)
	if err != nil {
		h.abort()
		return nil, err
	}
	if err := h.commit(); err != nil {
		return nil, err
	}
	h.logger.Info("contract instantiated",
		slog.String("contract", crypto.AccountString(h.contract)),
		slog.String("symbol", msg.Symbol),
		slog.Uint64("height", block.Height))
	return resp, nil
}

func (h *Host) instantiate(info types.MessageInfo, msg *InstantiateMsg) (*types.Response, error) {
	balances := make([]token.InitialBalance, 0, len(msg.InitialBalances))
	for _, bal := range msg.InitialBalances {
		addr, err := ParseAddress(bal.Address)
		if err != nil {
			return nil, err
		}
		balances = append(balances, token.InitialBalance{Address: addr, Amount: bal.Amount.Big()})
	}
	tokenInfo := &token.TokenInfo{
		Name:      msg.Name,
		Symbol:    msg.Symbol,
		Decimals:  msg.Decimals,
		Minter:    h.contract,
		BankDenom: msg.BankDenom,
	}
	if msg.Cap != nil {
		tokenInfo.Cap = msg.Cap.Big()
	}
	if err := h.ledger.Initialize(tokenInfo, balances); err != nil {
		return nil, err
	}
	mode, err := bank.ParseSettlementMode(msg.SettlementMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrInvalidMessage, err)
	}
	if err := h.state.PutSettlementMode(mode); err != nil {
		return nil, err
	}
	owner, err := ParseAddress(msg.Investment.Owner)
	if err != nil {
		return nil, err
	}
	err = h.engine.Instantiate(&invest.InvestmentInfo{
		Owner:           owner,
		BondDenom:       strings.TrimSpace(msg.Investment.BondDenom),
		UnbondingPeriod: msg.Investment.UnbondingPeriod,
		ExitTax:         msg.Investment.ExitTax,
		Validator:       strings.TrimSpace(msg.Investment.Validator),
		MinWithdrawal:   msg.Investment.MinWithdrawal.Big(),
	})
	if err != nil {
		return nil, err
	}
	if err := h.state.SetContractVersion(corestate.ContractVersion{Contract: ContractName, Version: ContractVersion}); err != nil {
		return nil, err
	}
	if err := h.state.SetStateVersion(corestate.StateVersion); err != nil {
		return nil, err
	}
	h.converter.SetMode(mode)
	resp := &types.Response{}
	resp.AddAttribute("action", "instantiate").
		AddAttribute("sender", crypto.AccountString(info.Sender)).
		AddAttribute("contract", crypto.AccountString(h.contract))
	return resp, nil
}

// Execute runs msg on behalf of info.Sender. Attached funds move into the
// contract's custody before the operation runs. A failed operation leaves no
// trace in state. Once the operation commits, its effects are dispatched in
// order; a failing effect stops the chain and is reported in the result
// without undoing the committed operation.
func (h *Host) Execute(block Block, info types.MessageInfo, msg *ExecuteMsg) (*ExecuteResult, error) {
	if h == nil || h.state == nil {
		return nil, errNilHost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.executeBlock(block, info, msg)
}

// ExecuteNext is Execute with the block produced by next while the host is
// held. Blocks allocated this way reach the contract in allocation order.
func (h *Host) ExecuteNext(next func() Block, info types.MessageInfo, msg *ExecuteMsg) (Block, *ExecuteResult, error) {
	if h == nil || h.state == nil {
		return Block{}, nil, errNilHost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	block := next()
	result, err := h.executeBlock(block, info, msg)
	return block, result, err
}

// LastBlock returns the latest block an invocation ran in. ok is false
// before the first execute.
func (h *Host) LastBlock() (Block, bool, error) {
	if h == nil || h.state == nil {
		return Block{}, false, errNilHost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	height, ts, ok, err := h.state.LastBlock()
	return Block{Height: height, Time: ts}, ok, err
}

func (h *Host) executeBlock(block Block, info types.MessageInfo, msg *ExecuteMsg) (*ExecuteResult, error) {
	if err := h.beginBlock(block); err != nil {
		return nil, err
	}
	return h.execute(block, info, msg, 0)
}

func (h *Host) execute(block Block, info types.MessageInfo, msg *ExecuteMsg, depth int) (*ExecuteResult, error) {
	method, err := msg.Method()
	if err != nil {
		return nil, err
	}
	resp, err := h.apply(h.env(block), info, msg)
	if err != nil {
		h.abort()
		h.logger.Debug("execute rejected",
			slog.String("method", method),
			slog.String("sender", crypto.AccountString(info.Sender)),
			slog.String("class", coreerrors.ClassOf(err).String()),
			slog.Any("error", err))
		return nil, err
	}
	if resp == nil {
		resp = &types.Response{}
	}
	if err := h.commit(); err != nil {
		return nil, err
	}
	result := &ExecuteResult{Method: method, Response: resp}
	h.dispatch(block, result, depth)
	return result, nil
}

func (h *Host) apply(env types.Env, info types.MessageInfo, msg *ExecuteMsg) (*types.Response, error) {
	if err := info.Funds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrInvalidMessage, err)
	}
	if len(info.Funds) > 0 {
		if err := h.keeper.SendCoins(info.Sender, env.Contract, info.Funds); err != nil {
			return nil, err
		}
	}
	switch {
	case msg.ConvertToBank != nil:
		return h.converter.ConvertToBank(env, info.Sender, msg.ConvertToBank.Amount.Big())
	case msg.ConvertFromBank != nil:
		return h.converter.ConvertFromBank(env, info.Sender, info.Funds)
	case msg.Bond != nil:
		return h.engine.Bond(env, info.Sender, info.Funds)
	case msg.Unbond != nil:
		return h.engine.Unbond(env, info.Sender, msg.Unbond.Amount.Big())
	case msg.Claim != nil:
		return h.engine.Claim(env, info.Sender)
	case msg.Reinvest != nil:
		return h.engine.Reinvest(env, info.Sender)
	case msg.BondAllTokens != nil:
		return h.engine.BondAllTokens(env, info.Sender, msg.BondAllTokens.Token)
	case msg.Transfer != nil:
		return h.transfer(info.Sender, msg.Transfer)
	default:
		return nil, coreerrors.ErrInvalidMessage
	}
}

func (h *Host) transfer(sender [20]byte, msg *TransferMsg) (*types.Response, error) {
	recipient, err := ParseAddress(msg.Recipient)
	if err != nil {
		return nil, err
	}
	amount := msg.Amount.Big()
	if err := h.ledger.Transfer(sender, recipient, amount); err != nil {
		return nil, err
	}
	resp := &types.Response{}
	resp.AddAttribute("action", "transfer").
		AddAttribute("from", crypto.AccountString(sender)).
		AddAttribute("to", crypto.AccountString(recipient)).
		AddAttribute("amount", amount.String())
	return resp, nil
}

func (h *Host) dispatch(block Block, result *ExecuteResult, depth int) {
	for _, effect := range result.Response.Effects {
		if effect.Kind == types.EffectSelfCall {
			call, err := h.selfCall(block, effect, depth)
			if call != nil {
				result.Calls = append(result.Calls, call)
			}
			if err != nil {
				h.dispatchFailed(result, effect, err)
				return
			}
			if call.Failed() {
				result.DispatchError = call.DispatchError
				return
			}
			continue
		}
		if err := h.applyEffect(block, effect); err != nil {
			h.abort()
			h.dispatchFailed(result, effect, err)
			return
		}
		if err := h.commit(); err != nil {
			h.dispatchFailed(result, effect, err)
			return
		}
	}
}

func (h *Host) dispatchFailed(result *ExecuteResult, effect types.Effect, err error) {
	result.DispatchError = fmt.Sprintf("%s: %v", effect, err)
	h.logger.Error("effect dispatch failed",
		slog.String("method", result.Method),
		slog.String("effect", effect.String()),
		slog.Any("error", err))
}

func (h *Host) selfCall(block Block, effect types.Effect, depth int) (*ExecuteResult, error) {
	if depth+1 > h.maxDepth {
		return nil, errCallDepth
	}
	if effect.Call == nil {
		return nil, errUnknownEffect
	}
	var msg ExecuteMsg
	switch effect.Call.Method {
	case invest.MethodBondAllTokens:
		msg.BondAllTokens = &BondAllTokensMsg{Token: effect.Call.Token}
	default:
		return nil, fmt.Errorf("%w: self call %q", errUnknownEffect, effect.Call.Method)
	}
	return h.execute(block, types.MessageInfo{Sender: h.contract}, &msg, depth+1)
}

func (h *Host) applyEffect(block Block, effect types.Effect) error {
	switch effect.Kind {
	case types.EffectDelegate:
		return h.keeper.Delegate(h.contract, effect.Validator, effect.Coin)
	case types.EffectUndelegate:
		return h.keeper.Undelegate(h.contract, effect.Validator, effect.Coin, block.Time)
	case types.EffectWithdrawRewards:
		_, err := h.keeper.WithdrawRewards(h.contract, effect.Validator)
		return err
	case types.EffectBankSend:
		return h.keeper.Send(effect.From, effect.To, effect.Coin)
	case types.EffectBankMint:
		return h.keeper.Mint(effect.To, effect.Coin)
	case types.EffectBankBurn:
		return h.keeper.Burn(effect.From, effect.Coin)
	default:
		return fmt.Errorf("%w: %s", errUnknownEffect, effect.Kind)
	}
}

// Fund mints bank coins to addr. It stands in for genesis allocations and
// faucets of the settlement chain.
func (h *Host) Fund(addr [20]byte, coins types.Coins) error {
	if h == nil || h.state == nil {
		return errNilHost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, coin := range coins {
		if err := h.keeper.Mint(addr, coin); err != nil {
			h.abort()
			return fmt.Errorf("fund %s: %w", coin, err)
		}
	}
	return h.commit()
}

// AllocateRewards accrues staking rewards to the delegators of validator.
func (h *Host) AllocateRewards(validator string, amount *big.Int) (*big.Int, error) {
	if h == nil || h.state == nil {
		return nil, errNilHost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	allocated, err := h.keeper.AllocateRewards(validator, amount)
	if err != nil {
		h.abort()
		return nil, err
	}
	return allocated, h.commit()
}

// Slash cuts the delegations to validator by bps basis points.
func (h *Host) Slash(validator string, bps uint32) (*big.Int, error) {
	if h == nil || h.state == nil {
		return nil, errNilHost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	slashed, err := h.keeper.Slash(validator, bps)
	if err != nil {
		h.abort()
		return nil, err
	}
	return slashed, h.commit()
}

// BankBalance returns the settlement-chain balance of addr.
func (h *Host) BankBalance(addr [20]byte, denom string) (*big.Int, error) {
	if h == nil || h.state == nil {
		return nil, errNilHost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keeper.Balance(addr, denom)
}

// Delegations lists the staking positions held by addr.
func (h *Host) Delegations(addr [20]byte) ([]types.Delegation, error) {
	if h == nil || h.state == nil {
		return nil, errNilHost
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keeper.AllDelegations(addr)
}
