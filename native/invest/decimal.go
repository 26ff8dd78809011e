package invest

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// DecimalPlaces is the fixed precision of Decimal.
const DecimalPlaces = 18

var (
	decimalOne = uint256.NewInt(1_000_000_000_000_000_000)

	errInvalidDecimal = errors.New("invest decimal: invalid value")
	errDecimalRange   = errors.New("invest decimal: value out of range")
)

// Decimal is an unsigned fixed-point number with 18 fractional digits.
type Decimal struct {
	atomics uint256.Int
}

// OneDecimal returns 1.0.
func OneDecimal() Decimal {
	var d Decimal
	d.atomics.Set(decimalOne)
	return d
}

// DecimalFromAtomics interprets v as a count of 10^-18 units.
func DecimalFromAtomics(v *big.Int) (Decimal, error) {
	var d Decimal
	if v == nil {
		return d, nil
	}
	if v.Sign() < 0 {
		return d, errDecimalRange
	}
	if d.atomics.SetFromBig(v) {
		return Decimal{}, errDecimalRange
	}
	return d, nil
}

// ParseDecimal parses a non-negative decimal string such as "0.05" or "1".
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Decimal{}, fmt.Errorf("%w: empty", errInvalidDecimal)
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && frac == "") {
		return Decimal{}, fmt.Errorf("%w: %q", errInvalidDecimal, s)
	}
	if len(frac) > DecimalPlaces {
		return Decimal{}, fmt.Errorf("%w: more than %d fractional digits", errInvalidDecimal, DecimalPlaces)
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return Decimal{}, fmt.Errorf("%w: %q", errInvalidDecimal, s)
		}
	}
	digits := whole + frac + strings.Repeat("0", DecimalPlaces-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return Decimal{}, nil
	}
	atomics, err := uint256.FromDecimal(digits)
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %v", errDecimalRange, err)
	}
	var d Decimal
	d.atomics.Set(atomics)
	return d, nil
}

// MustParseDecimal is ParseDecimal that panics on malformed input.
func MustParseDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromRatio returns num/den rounded down.
func DecimalFromRatio(num, den *big.Int) (Decimal, error) {
	if den == nil || den.Sign() == 0 {
		return Decimal{}, fmt.Errorf("%w: zero denominator", errInvalidDecimal)
	}
	x, overflow := uint256.FromBig(num)
	if overflow || num.Sign() < 0 {
		return Decimal{}, errDecimalRange
	}
	y, overflow := uint256.FromBig(den)
	if overflow || den.Sign() < 0 {
		return Decimal{}, errDecimalRange
	}
	var d Decimal
	if _, overflow := d.atomics.MulDivOverflow(x, decimalOne, y); overflow {
		return Decimal{}, errDecimalRange
	}
	return d, nil
}

// Atomics returns the value scaled by 10^18.
func (d Decimal) Atomics() *big.Int {
	return d.atomics.ToBig()
}

// IsZero reports whether d is zero.
func (d Decimal) IsZero() bool {
	return d.atomics.IsZero()
}

// Cmp compares d and o.
func (d Decimal) Cmp(o Decimal) int {
	return d.atomics.Cmp(&o.atomics)
}

// MulFloor returns floor(v * d).
func (d Decimal) MulFloor(v *big.Int) (*big.Int, error) {
	if v == nil || v.Sign() == 0 || d.IsZero() {
		return big.NewInt(0), nil
	}
	x, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		return nil, errDecimalRange
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, &d.atomics, decimalOne)
	if overflow {
		return nil, errDecimalRange
	}
	return z.ToBig(), nil
}

func (d Decimal) String() string {
	var whole, frac uint256.Int
	whole.DivMod(&d.atomics, decimalOne, &frac)
	if frac.IsZero() {
		return whole.Dec()
	}
	fracDigits := frac.Dec()
	fracDigits = strings.Repeat("0", DecimalPlaces-len(fracDigits)) + fracDigits
	return whole.Dec() + "." + strings.TrimRight(fracDigits, "0")
}

// MarshalText implements encoding.TextMarshaler.
func (d Decimal) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Decimal) UnmarshalText(text []byte) error {
	parsed, err := ParseDecimal(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
