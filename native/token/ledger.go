package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	coreerrors "stakebank/core/errors"
	"stakebank/core/events"
	"stakebank/native/common"
)

var (
	errNilState         = errors.New("token ledger: state not configured")
	errSupplyUnderflow  = errors.New("token ledger: supply underflow")
	errUnknownBacking   = coreerrors.New(coreerrors.ClassValidation, "token ledger: unknown backing")
	errBackingOverflows = coreerrors.New(coreerrors.ClassInvariant, "token ledger: backed tokens exceed balance")
)

type ledgerState interface {
	TokenInfo() (*TokenInfo, bool, error)
	PutTokenInfo(info *TokenInfo) error
	TokenBalance(addr [20]byte) (*big.Int, error)
	PutTokenBalance(addr [20]byte, amount *big.Int) error
	TokenHolders() ([][20]byte, error)
	TokenBacking(addr [20]byte, kind Backing) (*big.Int, error)
	PutTokenBacking(addr [20]byte, kind Backing, amount *big.Int) error
}

// Ledger maintains derivative token balances together with the total supply
// record. Every balance change that creates or destroys tokens updates
// TotalSupply in the same call.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
	pauses  common.PauseView
}

// NewLedger constructs a ledger with default dependencies.
func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetPauses wires the pause view consulted by Transfer.
func (l *Ledger) SetPauses(p common.PauseView) { l.pauses = p }

func (l *Ledger) emit(evt events.Event) {
	if l == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(evt)
}

// Initialize stores the token info and seeds the initial balances. It fails
// when the token already exists, when an address appears twice, or when the
// initial supply exceeds the cap.
func (l *Ledger) Initialize(info *TokenInfo, balances []InitialBalance) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if info == nil {
		return fmt.Errorf("token ledger: token info required")
	}
	if _, ok, err := l.state.TokenInfo(); err != nil {
		return err
	} else if ok {
		return coreerrors.ErrAlreadyInitialized
	}
	seen := make(map[[20]byte]struct{}, len(balances))
	total := big.NewInt(0)
	for _, bal := range balances {
		if _, dup := seen[bal.Address]; dup {
			return coreerrors.ErrDuplicateInitialBalanceAddress
		}
		seen[bal.Address] = struct{}{}
		if bal.Amount == nil || bal.Amount.Sign() < 0 {
			return coreerrors.ErrNegativeAmount
		}
		total.Add(total, bal.Amount)
	}
	if err := common.CheckBound(total); err != nil {
		return err
	}
	stored := info.Clone()
	stored.Symbol = strings.TrimSpace(stored.Symbol)
	stored.BankDenom = strings.TrimSpace(stored.BankDenom)
	stored.TotalSupply = total
	stored.BankBacked = big.NewInt(0)
	if stored.HasCap() && total.Cmp(stored.Cap) > 0 {
		return fmt.Errorf("initial supply greater than cap: %w", coreerrors.ErrCannotExceedCap)
	}
	for _, bal := range balances {
		if bal.Amount.Sign() == 0 {
			continue
		}
		if err := l.state.PutTokenBalance(bal.Address, bal.Amount); err != nil {
			return err
		}
	}
	return l.state.PutTokenInfo(stored)
}

// Info returns the stored token info.
func (l *Ledger) Info() (*TokenInfo, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	info, ok, err := l.state.TokenInfo()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, coreerrors.ErrNotInitialized
	}
	info.normalize()
	return info, nil
}

// PutInfo overwrites the token info.
func (l *Ledger) PutInfo(info *TokenInfo) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.state.PutTokenInfo(info)
}

// Balance returns the ledger balance of addr. Unknown addresses hold zero.
func (l *Ledger) Balance(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	bal, err := l.state.TokenBalance(addr)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return big.NewInt(0), nil
	}
	return bal, nil
}

// credit adds amount to addr without touching the total supply.
func (l *Ledger) credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	bal, err := l.Balance(addr)
	if err != nil {
		return err
	}
	bal.Add(bal, amount)
	if err := common.CheckBound(bal); err != nil {
		return err
	}
	return l.state.PutTokenBalance(addr, bal)
}

// debit removes amount from addr without touching the total supply.
func (l *Ledger) debit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	bal, err := l.Balance(addr)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientFunds
	}
	bal.Sub(bal, amount)
	return l.state.PutTokenBalance(addr, bal)
}

// Mint creates amount tokens for to and records them under backing. Only the
// configured minter may mint.
func (l *Ledger) Mint(minter, to [20]byte, amount *big.Int, backing Backing) error {
	if err := common.CheckAmount(amount); err != nil {
		return err
	}
	if !backing.valid() {
		return errUnknownBacking
	}
	info, err := l.Info()
	if err != nil {
		return err
	}
	if minter != info.Minter {
		return coreerrors.ErrUnauthorized
	}
	total := new(big.Int).Add(info.TotalSupply, amount)
	if info.HasCap() && total.Cmp(info.Cap) > 0 {
		return coreerrors.ErrCannotExceedCap
	}
	if err := common.CheckBound(total); err != nil {
		return err
	}
	if err := l.credit(to, amount); err != nil {
		return err
	}
	if err := l.addBacked(to, backing, amount); err != nil {
		return err
	}
	info.TotalSupply = total
	if err := l.state.PutTokenInfo(info); err != nil {
		return err
	}
	l.emit(events.TokenTransfer{To: to, Amount: new(big.Int).Set(amount)})
	l.emit(events.TokenSupply{
		Symbol:  info.Symbol,
		Account: to,
		Total:   new(big.Int).Set(total),
		Delta:   new(big.Int).Set(amount),
		Cap:     capOf(info),
		Reason:  events.SupplyReasonMint,
	})
	return nil
}

// Burn destroys amount of from's tokens held under backing. It fails with
// ErrInsufficientFunds when the balance is short and ErrInsufficientBacking
// when the balance is there but not under that backing. Only the configured
// minter may burn.
func (l *Ledger) Burn(minter, from [20]byte, amount *big.Int, backing Backing) error {
	if err := common.CheckAmount(amount); err != nil {
		return err
	}
	info, err := l.Info()
	if err != nil {
		return err
	}
	if minter != info.Minter {
		return coreerrors.ErrUnauthorized
	}
	if info.TotalSupply.Cmp(amount) < 0 {
		return errSupplyUnderflow
	}
	bal, err := l.Balance(from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientFunds
	}
	held, err := l.Backed(from, backing)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientBacking
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	if err := l.addBacked(from, backing, new(big.Int).Neg(amount)); err != nil {
		return err
	}
	info.TotalSupply = new(big.Int).Sub(info.TotalSupply, amount)
	if err := l.state.PutTokenInfo(info); err != nil {
		return err
	}
	l.emit(events.TokenTransfer{From: from, Amount: new(big.Int).Set(amount)})
	l.emit(events.TokenSupply{
		Symbol:  info.Symbol,
		Account: from,
		Total:   new(big.Int).Set(info.TotalSupply),
		Delta:   new(big.Int).Neg(amount),
		Cap:     capOf(info),
		Reason:  events.SupplyReasonBurn,
	})
	return nil
}

// Transfer moves amount from one holder to another. Backing travels with the
// tokens: the sender's unbacked tokens leave first, then bank-backed, then
// stake-backed.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if err := common.Guard(l.pauses, common.ModuleToken); err != nil {
		return err
	}
	if err := common.CheckAmount(amount); err != nil {
		return err
	}
	if _, err := l.Info(); err != nil {
		return err
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	if err := l.credit(to, amount); err != nil {
		return err
	}
	if err := l.carryBacking(from, to); err != nil {
		return err
	}
	l.emit(events.TokenTransfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Holders returns every address that ever held a balance.
func (l *Ledger) Holders() ([][20]byte, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.TokenHolders()
}

// SumBalances adds up the balance of every holder.
func (l *Ledger) SumBalances() (*big.Int, error) {
	holders, err := l.Holders()
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, addr := range holders {
		bal, err := l.Balance(addr)
		if err != nil {
			return nil, err
		}
		total.Add(total, bal)
	}
	return total, nil
}

func capOf(info *TokenInfo) *big.Int {
	if !info.HasCap() {
		return nil
	}
	return new(big.Int).Set(info.Cap)
}

// Backed returns the part of addr's balance held under backing. For
// Unbacked that is the balance minus every tracked backing.
func (l *Ledger) Backed(addr [20]byte, backing Backing) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	if !backing.valid() {
		return nil, errUnknownBacking
	}
	if backing != Unbacked {
		return l.state.TokenBacking(addr, backing)
	}
	free, err := l.Balance(addr)
	if err != nil {
		return nil, err
	}
	for _, kind := range backedKinds {
		held, err := l.state.TokenBacking(addr, kind)
		if err != nil {
			return nil, err
		}
		free.Sub(free, held)
	}
	if free.Sign() < 0 {
		return nil, errBackingOverflows
	}
	return free, nil
}

func (l *Ledger) addBacked(addr [20]byte, backing Backing, delta *big.Int) error {
	if backing == Unbacked || delta.Sign() == 0 {
		return nil
	}
	held, err := l.state.TokenBacking(addr, backing)
	if err != nil {
		return err
	}
	held.Add(held, delta)
	if held.Sign() < 0 {
		return coreerrors.ErrInsufficientBacking
	}
	return l.state.PutTokenBacking(addr, backing, held)
}

// carryBacking moves just enough backing from sender to recipient that the
// sender's backed tokens fit in its remaining balance.
func (l *Ledger) carryBacking(from, to [20]byte) error {
	remaining, err := l.Balance(from)
	if err != nil {
		return err
	}
	excess := new(big.Int).Neg(remaining)
	for _, kind := range backedKinds {
		held, err := l.state.TokenBacking(from, kind)
		if err != nil {
			return err
		}
		excess.Add(excess, held)
	}
	for _, kind := range backedKinds {
		if excess.Sign() <= 0 {
			return nil
		}
		held, err := l.state.TokenBacking(from, kind)
		if err != nil {
			return err
		}
		moved := held
		if moved.Cmp(excess) > 0 {
			moved = new(big.Int).Set(excess)
		}
		if moved.Sign() == 0 {
			continue
		}
		if err := l.addBacked(from, kind, new(big.Int).Neg(moved)); err != nil {
			return err
		}
		if err := l.addBacked(to, kind, moved); err != nil {
			return err
		}
		excess.Sub(excess, moved)
	}
	return nil
}

// SumBacked adds up every holder's tokens under backing.
func (l *Ledger) SumBacked(backing Backing) (*big.Int, error) {
	holders, err := l.Holders()
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, addr := range holders {
		held, err := l.Backed(addr, backing)
		if err != nil {
			return nil, err
		}
		total.Add(total, held)
	}
	return total, nil
}
