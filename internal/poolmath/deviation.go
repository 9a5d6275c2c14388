package poolmath

import (
	"fmt"

	"github.com/holiman/uint256"

	"multipool/internal/fixedpoint"
	"multipool/internal/model"
)

// Region is the branch of the fee curve an operation falls on.
type Region uint8

const (
	// RegionCashback: deviation magnitude does not grow.
	RegionCashback Region = iota
	// RegionFee: deviation grows on the same side of target.
	RegionFee
	// RegionCrossing: the share passes through target and ends further away.
	RegionCrossing
)

func (r Region) String() string {
	switch r {
	case RegionCashback:
		return "cashback"
	case RegionFee:
		return "fee"
	case RegionCrossing:
		return "crossing"
	default:
		return "unknown"
	}
}

type deviationStep struct {
	ideal    uint256.Int
	devOld   uint256.Int
	devNew   uint256.Int
	quantity uint256.Int
	total    uint256.Int
	region   Region
	// crossing is the moved quantity that brings the share exactly to target.
	crossing uint256.Int
}

// IdealShare returns the asset's normalized target share.
func (c *Context) IdealShare(asset *model.Asset) (*uint256.Int, error) {
	return fixedpoint.MulDiv(&asset.Percent, fixedpoint.ONE, &c.TotalAssetPercents, fixedpoint.RoundDown)
}

// Share returns quantity*price/total, the asset's fraction of pool value.
func Share(quantity, price, total *uint256.Int) (*uint256.Int, error) {
	return fixedpoint.MulDiv(quantity, price, total, fixedpoint.RoundDown)
}

// Deviation returns |share - ideal| for the asset at the context total.
func (c *Context) Deviation(asset *model.Asset) (*uint256.Int, error) {
	ideal, err := c.IdealShare(asset)
	if err != nil {
		return nil, err
	}
	share, err := Share(&asset.Quantity, &asset.Price, &c.TotalCurrentUsdAmount)
	if err != nil {
		return nil, err
	}
	return fixedpoint.AbsDiff(share, ideal), nil
}

func (c *Context) step(asset *model.Asset, moved, usd fixedpoint.Delta) (deviationStep, error) {
	var st deviationStep

	ideal, err := c.IdealShare(asset)
	if err != nil {
		return st, fmt.Errorf("ideal share: %w", err)
	}
	shareOld, err := Share(&asset.Quantity, &asset.Price, &c.TotalCurrentUsdAmount)
	if err != nil {
		return st, fmt.Errorf("share before: %w", err)
	}
	quantity, err := moved.Apply(&asset.Quantity)
	if err != nil {
		return st, fmt.Errorf("quantity: %w", err)
	}
	total, err := usd.Apply(&c.TotalCurrentUsdAmount)
	if err != nil {
		return st, fmt.Errorf("total usd: %w", err)
	}
	shareNew := new(uint256.Int)
	if !total.IsZero() {
		if shareNew, err = Share(quantity, &asset.Price, total); err != nil {
			return st, fmt.Errorf("share after: %w", err)
		}
	}

	st.ideal.Set(ideal)
	st.devOld.Set(fixedpoint.AbsDiff(shareOld, ideal))
	st.devNew.Set(fixedpoint.AbsDiff(shareNew, ideal))
	st.quantity.Set(quantity)
	st.total.Set(total)

	crossed := !shareOld.Eq(ideal) && !shareNew.Eq(ideal) && shareOld.Lt(ideal) != shareNew.Lt(ideal)
	switch {
	case !st.devNew.Gt(&st.devOld):
		st.region = RegionCashback
		return st, nil
	case crossed:
		st.region = RegionCrossing
		x, err := c.crossingQuantity(asset, moved, ideal)
		if err != nil {
			return st, fmt.Errorf("crossing quantity: %w", err)
		}
		st.crossing.Set(x)
	default:
		st.region = RegionFee
	}

	// d == limit is rejected too: the curve divides by (limit - d).
	if !st.devNew.Lt(&c.DeviationPercentLimit) {
		return st, fmt.Errorf("%w: asset %s deviation %s, limit %s",
			ErrDeviationOverflow, asset.Address.Hex(), st.devNew.Dec(), c.DeviationPercentLimit.Dec())
	}
	return st, nil
}

// crossingQuantity solves quantity*price against ideal*total for the move x
// that lands exactly on target:
//
//	inflow:  x = (ideal*T - q*p) * ONE / (p * (ONE - ideal))
//	outflow: x = (q*p - ideal*T) * ONE / (p * (ONE - ideal))
//
// The result is clamped to the moved amount.
func (c *Context) crossingQuantity(asset *model.Asset, moved fixedpoint.Delta, ideal *uint256.Int) (*uint256.Int, error) {
	if !ideal.Lt(fixedpoint.ONE) {
		return new(uint256.Int), nil
	}
	value, err := fixedpoint.Mul(&asset.Quantity, &asset.Price)
	if err != nil {
		return nil, err
	}
	target, err := fixedpoint.Mul(ideal, &c.TotalCurrentUsdAmount)
	if err != nil {
		return nil, err
	}
	gap := fixedpoint.AbsDiff(target, value)
	denom, err := fixedpoint.Mul(&asset.Price, new(uint256.Int).Sub(fixedpoint.ONE, ideal))
	if err != nil {
		return nil, err
	}
	x, err := fixedpoint.MulDiv(gap, fixedpoint.ONE, denom, fixedpoint.RoundDown)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Min(x, &moved.Magnitude), nil
}

// releaseCashback pays out the reserve in proportion to the deviation removed.
func releaseCashback(reserve, devOld, devNew *uint256.Int) (*uint256.Int, error) {
	if devOld.IsZero() || reserve.IsZero() {
		return new(uint256.Int), nil
	}
	return fixedpoint.MulDiv(reserve, new(uint256.Int).Sub(devOld, devNew), devOld, fixedpoint.RoundDown)
}

// curveDenominator returns (limit - d) * limit; the caller guarantees d < limit.
func (c *Context) curveDenominator(d *uint256.Int) (*uint256.Int, error) {
	return fixedpoint.Mul(new(uint256.Int).Sub(&c.DeviationPercentLimit, d), &c.DeviationPercentLimit)
}

// inflowDeviationFee is q * d * hd / ((limit - d) * limit).
func (c *Context) inflowDeviationFee(q, d *uint256.Int) (*uint256.Int, error) {
	num, err := fixedpoint.Mul(d, &c.HalfDeviationFeeRatio)
	if err != nil {
		return nil, err
	}
	den, err := c.curveDenominator(d)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(q, num, den, fixedpoint.RoundDown)
}

// outflowFeeRate is d * hd * ONE / ((limit - d) * limit).
func (c *Context) outflowFeeRate(d *uint256.Int) (*uint256.Int, error) {
	num, err := fixedpoint.Mul(d, &c.HalfDeviationFeeRatio)
	if err != nil {
		return nil, err
	}
	den, err := c.curveDenominator(d)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(num, fixedpoint.ONE, den, fixedpoint.RoundDown)
}
