// Package errors defines the error taxonomy shared by the stakebank engines.
// Every engine error carries a Class so callers can tell a retryable
// condition from one that requires operator intervention.
package errors

import (
	stderrors "errors"
	"fmt"
	"math/big"
)

// Class partitions engine failures by the reaction they require.
type Class uint8

const (
	ClassNone Class = iota
	// ClassValidation covers malformed input and missing configuration.
	ClassValidation
	// ClassInvariant covers cached state diverging from observed state. Fatal.
	ClassInvariant
	// ClassInsufficient covers conditions the caller may retry after they change.
	ClassInsufficient
	// ClassAuthorization covers privileged entry points reached by the wrong caller.
	ClassAuthorization
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassInvariant:
		return "invariant"
	case ClassInsufficient:
		return "insufficient"
	case ClassAuthorization:
		return "authorization"
	default:
		return "none"
	}
}

// Retryable reports whether the caller may succeed later without operator
// involvement.
func (c Class) Retryable() bool {
	return c == ClassInsufficient
}

type classSentinel Class

func (c classSentinel) Error() string { return Class(c).String() + " error" }

// Class sentinels match any error of the corresponding class under errors.Is.
var (
	ErrValidation    error = classSentinel(ClassValidation)
	ErrInvariant     error = classSentinel(ClassInvariant)
	ErrInsufficient  error = classSentinel(ClassInsufficient)
	ErrAuthorization error = classSentinel(ClassAuthorization)
)

type classifier interface {
	Class() Class
}

// Error is a classified sentinel.
type Error struct {
	class Class
	msg   string
}

// New returns a classified error.
func New(class Class, msg string) *Error {
	return &Error{class: class, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Class returns the error class.
func (e *Error) Class() Class { return e.class }

// Is matches the class sentinel of the error's class.
func (e *Error) Is(target error) bool {
	c, ok := target.(classSentinel)
	return ok && Class(c) == e.class
}

// ClassOf returns the class of the first classified error in err's chain.
func ClassOf(err error) Class {
	if err == nil {
		return ClassNone
	}
	var c classifier
	if stderrors.As(err, &c) {
		return c.Class()
	}
	return ClassNone
}

var (
	ErrUnauthorized                   = New(ClassAuthorization, "unauthorized")
	ErrInvalidZeroAmount              = New(ClassValidation, "invalid zero amount")
	ErrAmountOverflow                 = New(ClassValidation, "amount exceeds 128 bits")
	ErrNegativeAmount                 = New(ClassValidation, "amount must not be negative")
	ErrEmptyBalance                   = New(ClassValidation, "no bond denom coins attached")
	ErrUnbondTooSmall                 = New(ClassValidation, "unbond amount below minimum withdrawal")
	ErrBankDenomNotSet                = New(ClassValidation, "bank denom not set")
	ErrInvalidBankDenom               = New(ClassValidation, "invalid bank denom")
	ErrCannotExceedCap                = New(ClassValidation, "minting cannot exceed the cap")
	ErrDuplicateInitialBalanceAddress = New(ClassValidation, "duplicate initial balance addresses")
	ErrInvalidExitTax                 = New(ClassValidation, "exit tax must be between 0 and 1")
	ErrNotInitialized                 = New(ClassValidation, "contract not initialized")
	ErrAlreadyInitialized             = New(ClassValidation, "contract already initialized")
	ErrModulePaused                   = New(ClassValidation, "module paused")
	ErrInvalidAddress                 = New(ClassValidation, "invalid address")
	ErrInvalidMessage                 = New(ClassValidation, "invalid message")
	ErrBlockTimeRegressed             = New(ClassValidation, "block time earlier than last block")
	ErrInsufficientBalance            = New(ClassInsufficient, "insufficient balance")
	ErrInsufficientFunds              = New(ClassInsufficient, "insufficient funds")
	ErrBalanceTooSmall                = New(ClassInsufficient, "custody balance below minimum withdrawal")
	ErrNothingToClaim                 = New(ClassInsufficient, "no matured claims")
	ErrInsufficientBacking            = New(ClassInsufficient, "redemption exceeds backing")
)

// BondedMismatchError signals that the cached bonded amount diverged from the
// amount observed in the staking subsystem.
type BondedMismatchError struct {
	Cached   *big.Int
	Observed *big.Int
}

func (e *BondedMismatchError) Error() string {
	return fmt.Sprintf("bonded mismatch: cached %s, observed %s", amountString(e.Cached), amountString(e.Observed))
}

func (e *BondedMismatchError) Class() Class { return ClassInvariant }

func (e *BondedMismatchError) Is(target error) bool { return target == ErrInvariant }

// DifferentBondDenomError signals delegations held in more than one
// denomination.
type DifferentBondDenomError struct {
	Denom1 string
	Denom2 string
}

func (e *DifferentBondDenomError) Error() string {
	return fmt.Sprintf("different bond denominations in delegations: %s and %s", e.Denom1, e.Denom2)
}

func (e *DifferentBondDenomError) Class() Class { return ClassInvariant }

func (e *DifferentBondDenomError) Is(target error) bool { return target == ErrInvariant }

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
