package poolmath

import (
	"fmt"

	"github.com/holiman/uint256"

	"multipool/internal/fixedpoint"
	"multipool/internal/model"
)

// Params are the global fee and deviation settings, all in fixed point.
type Params struct {
	HalfDeviationFeeRatio uint256.Int
	DeviationPercentLimit uint256.Int
	BaseMintFee           uint256.Int
	BaseBurnFee           uint256.Int
	BaseTradeFee          uint256.Int
}

// Validate checks the deviation limit lies in (0, ONE]. Base fees are unbounded.
func (p Params) Validate() error {
	if p.DeviationPercentLimit.IsZero() || p.DeviationPercentLimit.Gt(fixedpoint.ONE) {
		return fmt.Errorf("%w: deviation percent limit %s out of range", ErrInvalidParams, p.DeviationPercentLimit.Dec())
	}
	return nil
}

func (p Params) State() model.ParamsState {
	return model.ParamsState{
		HalfDeviationFeeRatio: p.HalfDeviationFeeRatio.Dec(),
		DeviationPercentLimit: p.DeviationPercentLimit.Dec(),
		BaseMintFee:           p.BaseMintFee.Dec(),
		BaseBurnFee:           p.BaseBurnFee.Dec(),
		BaseTradeFee:          p.BaseTradeFee.Dec(),
	}
}

// ParamsFromState parses and validates serialized params.
func ParamsFromState(st model.ParamsState) (Params, error) {
	var p Params
	fields := []struct {
		name string
		raw  string
		dst  *uint256.Int
	}{
		{"half_deviation_fee_ratio", st.HalfDeviationFeeRatio, &p.HalfDeviationFeeRatio},
		{"deviation_percent_limit", st.DeviationPercentLimit, &p.DeviationPercentLimit},
		{"base_mint_fee", st.BaseMintFee, &p.BaseMintFee},
		{"base_burn_fee", st.BaseBurnFee, &p.BaseBurnFee},
		{"base_trade_fee", st.BaseTradeFee, &p.BaseTradeFee},
	}
	for _, f := range fields {
		v, err := fixedpoint.ParseDecimal(f.raw)
		if err != nil {
			return Params{}, fmt.Errorf("%s: %w", f.name, err)
		}
		f.dst.Set(v)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// FeeRatio composes two successive fee rates: (ONE+a)(ONE+b)/ONE - ONE.
func FeeRatio(a, b *uint256.Int) (*uint256.Int, error) {
	left, err := fixedpoint.Add(fixedpoint.ONE, a)
	if err != nil {
		return nil, err
	}
	right, err := fixedpoint.Add(fixedpoint.ONE, b)
	if err != nil {
		return nil, err
	}
	combined, err := fixedpoint.MulDiv(left, right, fixedpoint.ONE, fixedpoint.RoundDown)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Sub(combined, fixedpoint.ONE)
}
