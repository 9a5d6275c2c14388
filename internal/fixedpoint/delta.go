package fixedpoint

import (
	"github.com/holiman/uint256"
)

// Sign is the direction of a Delta.
type Sign int8

const (
	Increase Sign = 1
	Decrease Sign = -1
)

func (s Sign) String() string {
	if s == Decrease {
		return "-"
	}
	return "+"
}

// Delta is a quantity change stored as magnitude plus sign.
type Delta struct {
	Magnitude uint256.Int
	Sign      Sign
}

func Up(v *uint256.Int) Delta {
	return Delta{Magnitude: *v, Sign: Increase}
}

func Down(v *uint256.Int) Delta {
	return Delta{Magnitude: *v, Sign: Decrease}
}

// Between returns the Delta that moves from to to.
func Between(from, to *uint256.Int) Delta {
	if to.Lt(from) {
		return Down(new(uint256.Int).Sub(from, to))
	}
	return Up(new(uint256.Int).Sub(to, from))
}

func (d Delta) IsZero() bool {
	return d.Magnitude.IsZero()
}

func (d Delta) Neg() Delta {
	return Delta{Magnitude: d.Magnitude, Sign: -d.Sign}
}

// Apply returns x moved by d.
func (d Delta) Apply(x *uint256.Int) (*uint256.Int, error) {
	if d.Sign == Decrease {
		return Sub(x, &d.Magnitude)
	}
	return Add(x, &d.Magnitude)
}

func (d Delta) String() string {
	return d.Sign.String() + d.Magnitude.Dec()
}
