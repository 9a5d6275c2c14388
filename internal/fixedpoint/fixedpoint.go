package fixedpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals is the number of decimal places carried by ONE.
const Decimals = 18

var (
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrUnderflow          = errors.New("arithmetic underflow")
	ErrDivisionByZero     = errors.New("division by zero")
)

// ONE is the fixed-point unit shared by prices, percents and fee rates.
var ONE = uint256.NewInt(1_000_000_000_000_000_000)

// Rounding selects the direction MulDiv rounds a non-exact quotient.
type Rounding uint8

const (
	RoundDown Rounding = iota
	RoundUp
)

// MulDiv returns a*b/denom computed over a 512-bit intermediate.
func MulDiv(a, b, denom *uint256.Int, rounding Rounding) (*uint256.Int, error) {
	if denom.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, denom)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	if rounding == RoundUp && !new(uint256.Int).MulMod(a, b, denom).IsZero() {
		if _, overflow := z.AddOverflow(z, uint256.NewInt(1)); overflow {
			return nil, ErrArithmeticOverflow
		}
	}
	return z, nil
}

func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Lt(b) {
		return nil, ErrUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return z, nil
}

// Sum adds every value, failing on the first overflow.
func Sum(values ...*uint256.Int) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, v := range values {
		if _, overflow := total.AddOverflow(total, v); overflow {
			return nil, ErrArithmeticOverflow
		}
	}
	return total, nil
}

// AbsDiff returns |a-b|.
func AbsDiff(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Sub(b, a)
	}
	return new(uint256.Int).Sub(a, b)
}

// Min returns a copy of the smaller value.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

// Scaled returns n * 10^exp.
func Scaled(n uint64, exp uint8) *uint256.Int {
	ten := uint256.NewInt(10)
	pow := new(uint256.Int).Exp(ten, uint256.NewInt(uint64(exp)))
	return new(uint256.Int).Mul(uint256.NewInt(n), pow)
}

// Units returns n whole fixed-point units.
func Units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), ONE)
}

// ParseDecimal parses a base-10 integer string. Empty input parses as zero.
func ParseDecimal(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", input, err)
	}
	return v, nil
}

// MustDecimal is ParseDecimal for constants; it panics on bad input.
func MustDecimal(input string) *uint256.Int {
	v, err := ParseDecimal(input)
	if err != nil {
		panic(err)
	}
	return v
}
