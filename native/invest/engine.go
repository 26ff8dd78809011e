package invest

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"

	coreerrors "stakebank/core/errors"
	"stakebank/core/events"
	"stakebank/core/types"
	"stakebank/crypto"
	"stakebank/native/common"
	"stakebank/native/token"
)

// MethodBondAllTokens names the privileged second phase of a reinvest.
const MethodBondAllTokens = "bond_all_tokens"

var (
	errNilState          = errors.New("invest engine: state not configured")
	errNilLedger         = errors.New("invest engine: ledger not configured")
	errNilQuerier        = errors.New("invest engine: staking querier not configured")
	errDivideByZero      = errors.New("invest engine: division by zero")
	errClaimsUnderflow   = errors.New("invest engine: reserved claims underflow")
	errMissingInvestment = coreerrors.New(coreerrors.ClassValidation, "invest engine: investment info required")
	errMissingBondDenom  = coreerrors.New(coreerrors.ClassValidation, "invest engine: bond denom required")
	errMissingValidator  = coreerrors.New(coreerrors.ClassValidation, "invest engine: validator required")
	errBondMintsNothing  = fmt.Errorf("invest engine: bond too small to mint: %w", coreerrors.ErrInvalidZeroAmount)
)

// Class reports the error class of err.
func Class(err error) coreerrors.Class {
	return coreerrors.ClassOf(err)
}

type engineState interface {
	claimsStore
	InvestmentInfo() (*InvestmentInfo, bool, error)
	PutInvestmentInfo(info *InvestmentInfo) error
	InvestSupply() (*Supply, error)
	PutInvestSupply(supply *Supply) error
	ReinvestMarker() (*ReinvestMarker, bool, error)
	PutReinvestMarker(marker *ReinvestMarker) error
	DeleteReinvestMarker() error
}

// Ledger is the privileged mint/burn surface of the derivative token.
type Ledger interface {
	Mint(minter, to [20]byte, amount *big.Int, backing token.Backing) error
	Burn(minter, from [20]byte, amount *big.Int, backing token.Backing) error
}

// Querier exposes the staking and bank views the engine reconciles against.
type Querier interface {
	AllDelegations(delegator [20]byte) ([]types.Delegation, error)
	Balance(addr [20]byte, denom string) (*big.Int, error)
}

// Metrics receives engine outcomes.
type Metrics interface {
	ObserveOperation(op string, err error)
	SetSupply(issued, bonded, claims *big.Int)
	RecordInvariantViolation(kind string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, error)  {}
func (noopMetrics) SetSupply(_, _, _ *big.Int)      {}
func (noopMetrics) RecordInvariantViolation(string) {}

// Engine implements the bond, unbond, claim and reinvest state machine over
// the Supply cache and the claims queue.
type Engine struct {
	state   engineState
	ledger  Ledger
	querier Querier
	emitter events.Emitter
	logger  *slog.Logger
	metrics Metrics
	pauses  common.PauseView
	tokenFn func() string
}

// NewEngine constructs an invest engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		metrics: noopMetrics{},
		tokenFn: uuid.NewString,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the derivative token ledger.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetQuerier configures the staking subsystem view.
func (e *Engine) SetQuerier(q Querier) { e.querier = q }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger configures the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetMetrics configures the metrics sink.
func (e *Engine) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	e.metrics = m
}

// SetPauses wires the pause view consulted by user entry points.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetTokenFunc overrides the reinvest sequencing token generator.
func (e *Engine) SetTokenFunc(fn func() string) {
	if fn == nil {
		fn = uuid.NewString
	}
	e.tokenFn = fn
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) claims() *ClaimsQueue {
	return NewClaimsQueue(e.state)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if e.querier == nil {
		return errNilQuerier
	}
	return nil
}

func (e *Engine) investment() (*InvestmentInfo, error) {
	info, ok, err := e.state.InvestmentInfo()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, coreerrors.ErrNotInitialized
	}
	if info.MinWithdrawal == nil {
		info.MinWithdrawal = big.NewInt(0)
	}
	return info, nil
}

func (e *Engine) supply() (*Supply, error) {
	supply, err := e.state.InvestSupply()
	if err != nil {
		return nil, err
	}
	return supply.Clone(), nil
}

func (e *Engine) putSupply(supply *Supply) error {
	for _, v := range []*big.Int{supply.Issued, supply.Bonded, supply.Claims} {
		if err := common.CheckBound(v); err != nil {
			return err
		}
	}
	return e.state.PutInvestSupply(supply)
}

// PublishSupply reports the stored supply to the metrics sink. The host
// calls it once an invocation has committed.
func (e *Engine) PublishSupply() error {
	if e == nil || e.state == nil || e.metrics == nil {
		return nil
	}
	supply, err := e.state.InvestSupply()
	if err != nil {
		return err
	}
	e.metrics.SetSupply(supply.Issued, supply.Bonded, supply.Claims)
	return nil
}

func (e *Engine) finish(op string, err error) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.ObserveOperation(op, err)
	// Invariant failures are logged at Error by reconcile.
	if err != nil && Class(err) != coreerrors.ClassInvariant {
		e.logger.Debug("invest operation rejected", slog.String("op", op), slog.Any("error", err))
	}
}

// Instantiate stores the investment configuration and an empty supply. It
// may only run once.
func (e *Engine) Instantiate(info *InvestmentInfo) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := info.Validate(); err != nil {
		return err
	}
	if _, ok, err := e.state.InvestmentInfo(); err != nil {
		return err
	} else if ok {
		return coreerrors.ErrAlreadyInitialized
	}
	stored := info.Clone()
	if err := e.state.PutInvestmentInfo(stored); err != nil {
		return err
	}
	return e.putSupply(NewSupply())
}

// Bond exchanges attached bond-denom funds for derivative tokens at the
// current rate and delegates the funds to the validator.
func (e *Engine) Bond(env types.Env, caller [20]byte, funds types.Coins) (resp *types.Response, err error) {
	defer func() { e.finish("bond", err) }()
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleInvest); err != nil {
		return nil, err
	}
	info, err := e.investment()
	if err != nil {
		return nil, err
	}
	coin, ok := funds.Find(info.BondDenom)
	if !ok || coin.IsZero() {
		return nil, coreerrors.ErrEmptyBalance
	}
	payment := new(big.Int).Set(coin.Amount)
	if err := common.CheckAmount(payment); err != nil {
		return nil, err
	}
	supply, err := e.supply()
	if err != nil {
		return nil, err
	}
	observed, err := e.reconcile("bond", env.Contract, info, supply)
	if err != nil {
		return nil, err
	}
	minted, err := tokensForBond(payment, supply.Issued, observed)
	if err != nil {
		return nil, err
	}
	if minted.Sign() == 0 {
		return nil, errBondMintsNothing
	}
	supply.Bonded.Add(supply.Bonded, payment)
	supply.Issued.Add(supply.Issued, minted)
	if err := common.CheckBound(supply.Bonded); err != nil {
		return nil, err
	}
	if err := common.CheckBound(supply.Issued); err != nil {
		return nil, err
	}
	if err := e.ledger.Mint(env.Contract, caller, minted, token.BackedByStake); err != nil {
		return nil, err
	}
	if err := e.putSupply(supply); err != nil {
		return nil, err
	}

	resp = &types.Response{}
	resp.AddEffect(types.DelegateEffect(info.Validator, types.NewCoin(info.BondDenom, payment)))
	resp.AddAttribute("action", "bond").
		AddAttribute("from", crypto.AccountString(caller)).
		AddAttribute("bonded", payment.String()).
		AddAttribute("minted", minted.String())
	e.emit(events.InvestBonded{
		Account:   caller,
		Validator: info.Validator,
		Amount:    payment,
		Minted:    minted,
		Bonded:    new(big.Int).Set(supply.Bonded),
		Issued:    new(big.Int).Set(supply.Issued),
	})
	e.logger.Debug("invest bond",
		slog.String("from", crypto.AccountString(caller)),
		slog.String("payment", payment.String()),
		slog.String("minted", minted.String()))
	return resp, nil
}

// Unbond burns amount stake-backed derivative tokens from caller, mints the
// exit tax to the owner and queues a claim for the native value of the
// remainder. Tokens caller holds under another backing cannot be unbonded.
func (e *Engine) Unbond(env types.Env, caller [20]byte, amount *big.Int) (resp *types.Response, err error) {
	defer func() { e.finish("unbond", err) }()
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleInvest); err != nil {
		return nil, err
	}
	info, err := e.investment()
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Cmp(info.MinWithdrawal) < 0 {
		return nil, coreerrors.ErrUnbondTooSmall
	}
	if err := common.CheckAmount(amount); err != nil {
		return nil, err
	}
	supply, err := e.supply()
	if err != nil {
		return nil, err
	}
	if _, err := e.reconcile("unbond", env.Contract, info, supply); err != nil {
		return nil, err
	}
	tax, err := info.ExitTax.MulFloor(amount)
	if err != nil {
		return nil, err
	}
	remainder := new(big.Int).Sub(amount, tax)
	if remainder.Cmp(supply.Issued) > 0 {
		return nil, coreerrors.ErrInsufficientBacking
	}
	unbondValue, err := valueForUnbond(remainder, supply.Bonded, supply.Issued)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Burn(env.Contract, caller, amount, token.BackedByStake); err != nil {
		return nil, err
	}
	if tax.Sign() > 0 {
		if err := e.ledger.Mint(env.Contract, info.Owner, tax, token.BackedByStake); err != nil {
			return nil, err
		}
	}
	supply.Bonded.Sub(supply.Bonded, unbondValue)
	supply.Issued.Sub(supply.Issued, remainder)
	supply.Claims.Add(supply.Claims, unbondValue)
	if err := e.putSupply(supply); err != nil {
		return nil, err
	}
	release := env.Time + info.UnbondingPeriod
	resp = &types.Response{}
	if unbondValue.Sign() > 0 {
		if err := e.claims().Create(caller, unbondValue, release); err != nil {
			return nil, err
		}
		resp.AddEffect(types.UndelegateEffect(info.Validator, types.NewCoin(info.BondDenom, unbondValue)))
	}
	resp.AddAttribute("action", "unbond").
		AddAttribute("to", crypto.AccountString(caller)).
		AddAttribute("unbonded", unbondValue.String()).
		AddAttribute("burnt", amount.String())
	e.emit(events.InvestUnbonded{
		Account:     caller,
		Validator:   info.Validator,
		Amount:      new(big.Int).Set(amount),
		Tax:         tax,
		UnbondValue: new(big.Int).Set(unbondValue),
		ReleaseAt:   release,
	})
	e.logger.Debug("invest unbond",
		slog.String("to", crypto.AccountString(caller)),
		slog.String("amount", amount.String()),
		slog.String("tax", tax.String()),
		slog.String("value", unbondValue.String()),
		slog.Uint64("release", release))
	return resp, nil
}

// Claim pays caller's matured claims out of the contract's custody balance.
// When custody cannot cover every matured claim the available amount is paid
// and the rest stays queued.
func (e *Engine) Claim(env types.Env, caller [20]byte) (resp *types.Response, err error) {
	defer func() { e.finish("claim", err) }()
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleInvest); err != nil {
		return nil, err
	}
	info, err := e.investment()
	if err != nil {
		return nil, err
	}
	custody, err := e.querier.Balance(env.Contract, info.BondDenom)
	if err != nil {
		return nil, err
	}
	if custody.Cmp(info.MinWithdrawal) < 0 {
		return nil, coreerrors.ErrBalanceTooSmall
	}
	supply, err := e.supply()
	if err != nil {
		return nil, err
	}
	paid, err := e.claims().Drain(caller, env.Time, custody)
	if err != nil {
		return nil, err
	}
	if paid.Sign() == 0 {
		return nil, coreerrors.ErrNothingToClaim
	}
	if supply.Claims.Cmp(paid) < 0 {
		return nil, errClaimsUnderflow
	}
	supply.Claims.Sub(supply.Claims, paid)
	if err := e.putSupply(supply); err != nil {
		return nil, err
	}
	resp = &types.Response{}
	resp.AddEffect(types.BankSendEffect(env.Contract, caller, types.NewCoin(info.BondDenom, paid)))
	resp.AddAttribute("action", "claim").
		AddAttribute("from", crypto.AccountString(caller)).
		AddAttribute("amount", paid.String())
	e.emit(events.InvestClaimed{Account: caller, Amount: new(big.Int).Set(paid), Denom: info.BondDenom})
	e.logger.Debug("invest claim",
		slog.String("from", crypto.AccountString(caller)),
		slog.String("paid", paid.String()))
	return resp, nil
}

// Reinvest withdraws the validator rewards and schedules the bonding phase
// through a self call guarded by a one-shot marker.
func (e *Engine) Reinvest(env types.Env, caller [20]byte) (resp *types.Response, err error) {
	defer func() { e.finish("reinvest", err) }()
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, common.ModuleInvest); err != nil {
		return nil, err
	}
	info, err := e.investment()
	if err != nil {
		return nil, err
	}
	if stale, ok, err := e.state.ReinvestMarker(); err != nil {
		return nil, err
	} else if ok {
		e.logger.Warn("replacing stale reinvest marker",
			slog.String("token", stale.Token),
			slog.Uint64("requested_at", stale.RequestedAt))
	}
	marker := &ReinvestMarker{Token: e.tokenFn(), Caller: caller, RequestedAt: env.Time}
	if err := e.state.PutReinvestMarker(marker); err != nil {
		return nil, err
	}
	resp = &types.Response{}
	resp.AddEffect(types.WithdrawRewardsEffect(info.Validator))
	resp.AddEffect(types.SelfCallEffect(MethodBondAllTokens, marker.Token))
	resp.AddAttribute("action", "reinvest").
		AddAttribute("from", crypto.AccountString(caller)).
		AddAttribute("token", marker.Token)
	e.emit(events.InvestReinvestRequested{Caller: caller, Validator: info.Validator, Token: marker.Token})
	return resp, nil
}

// BondAllTokens is the second phase of a reinvest. Only the contract itself
// may call it, presenting the token recorded by Reinvest. Spare custody at or
// below the minimum withdrawal is left alone without failing.
func (e *Engine) BondAllTokens(env types.Env, caller [20]byte, token string) (resp *types.Response, err error) {
	defer func() { e.finish(MethodBondAllTokens, err) }()
	if err := e.ready(); err != nil {
		return nil, err
	}
	if caller != env.Contract {
		return nil, coreerrors.ErrUnauthorized
	}
	marker, ok, err := e.state.ReinvestMarker()
	if err != nil {
		return nil, err
	}
	if !ok || token == "" || marker.Token != token {
		return nil, coreerrors.ErrUnauthorized
	}
	info, err := e.investment()
	if err != nil {
		return nil, err
	}
	if err := e.state.DeleteReinvestMarker(); err != nil {
		return nil, err
	}
	supply, err := e.supply()
	if err != nil {
		return nil, err
	}
	if _, err := e.reconcile(MethodBondAllTokens, env.Contract, info, supply); err != nil {
		return nil, err
	}
	custody, err := e.querier.Balance(env.Contract, info.BondDenom)
	if err != nil {
		return nil, err
	}
	spare := new(big.Int).Sub(custody, supply.Claims)
	if spare.Sign() < 0 {
		spare.SetInt64(0)
	}
	resp = &types.Response{}
	resp.AddAttribute("action", MethodBondAllTokens).AddAttribute("token", token)
	if spare.Cmp(info.MinWithdrawal) <= 0 {
		resp.AddAttribute("skipped", "true")
		e.emit(events.InvestReinvested{Token: token, Amount: spare, Skipped: true})
		e.logger.Warn("reinvest skipped: spare balance below minimum",
			slog.String("spare", spare.String()),
			slog.String("min_withdrawal", info.MinWithdrawal.String()))
		return resp, nil
	}
	supply.Bonded.Add(supply.Bonded, spare)
	if err := e.putSupply(supply); err != nil {
		return nil, err
	}
	resp.AddEffect(types.DelegateEffect(info.Validator, types.NewCoin(info.BondDenom, spare)))
	resp.AddAttribute("bonded", spare.String())
	e.emit(events.InvestReinvested{Token: token, Amount: new(big.Int).Set(spare)})
	e.logger.Debug("invest reinvest bonded", slog.String("amount", spare.String()))
	return resp, nil
}

// Investment returns the configuration together with the derived supply
// figures.
func (e *Engine) Investment() (*InvestmentView, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	info, err := e.investment()
	if err != nil {
		return nil, err
	}
	supply, err := e.supply()
	if err != nil {
		return nil, err
	}
	nominal, err := nominalValue(supply.Bonded, supply.Issued)
	if err != nil {
		return nil, err
	}
	return &InvestmentView{
		Owner:           info.Owner,
		BondDenom:       info.BondDenom,
		UnbondingPeriod: info.UnbondingPeriod,
		ExitTax:         info.ExitTax,
		Validator:       info.Validator,
		MinWithdrawal:   copyAmount(info.MinWithdrawal),
		TokenSupply:     supply.Issued,
		StakedTokens:    supply.Bonded,
		NominalValue:    nominal,
	}, nil
}

// Claims lists owner's claims annotated with their maturity at now.
func (e *Engine) Claims(owner [20]byte, now uint64) ([]ClaimView, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.claims().List(owner, now)
}

// Supply returns the cached supply.
func (e *Engine) Supply() (*Supply, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.supply()
}
