package poolmath

import (
	"fmt"

	"github.com/holiman/uint256"

	"multipool/internal/fixedpoint"
	"multipool/internal/model"
)

// Inflow is one asset's side of a mint or the paying side of a swap.
type Inflow struct {
	Asset        model.Asset
	Quantity     uint256.Int
	Usd          uint256.Int
	Supplied     uint256.Int
	BaseFee      uint256.Int
	DeviationFee uint256.Int
	Cashback     uint256.Int
	Region       Region
}

// Fee is the base plus deviation fee.
func (in Inflow) Fee() *uint256.Int {
	return new(uint256.Int).Add(&in.BaseFee, &in.DeviationFee)
}

// Outflow is one asset's side of a burn or the receiving side of a swap.
type Outflow struct {
	Asset        model.Asset
	Quantity     uint256.Int
	Usd          uint256.Int
	AmountOut    uint256.Int
	BaseFee      uint256.Int
	DeviationFee uint256.Int
	Cashback     uint256.Int
	Region       Region
}

func (out Outflow) Fee() *uint256.Int {
	return new(uint256.Int).Add(&out.BaseFee, &out.DeviationFee)
}

// Paid is what leaves the pool: the output plus any released cashback.
func (out Outflow) Paid() *uint256.Int {
	return new(uint256.Int).Add(&out.AmountOut, &out.Cashback)
}

// EvalInflow credits quantity worth usd to asset and advances the context
// total. The returned asset record carries the updated accumulators. An
// asset with a zero target percent takes no inflow.
func (c *Context) EvalInflow(asset model.Asset, quantity, usd *uint256.Int) (Inflow, error) {
	res := Inflow{Quantity: *quantity, Usd: *usd}
	if asset.Percent.IsZero() {
		return res, fmt.Errorf("%w: %s", ErrZeroPercentAsset, asset.Address.Hex())
	}

	st, err := c.step(&asset, fixedpoint.Up(quantity), fixedpoint.Up(usd))
	if err != nil {
		return res, err
	}

	baseFee, err := fixedpoint.MulDiv(quantity, &c.OperationBaseFee, fixedpoint.ONE, fixedpoint.RoundDown)
	if err != nil {
		return res, fmt.Errorf("base fee: %w", err)
	}

	cashback := new(uint256.Int)
	devFee := new(uint256.Int)
	switch st.region {
	case RegionCashback:
		if cashback, err = releaseCashback(&asset.CollectedCashbacks, &st.devOld, &st.devNew); err != nil {
			return res, fmt.Errorf("cashback: %w", err)
		}
	case RegionFee:
		if devFee, err = c.inflowDeviationFee(quantity, &st.devNew); err != nil {
			return res, fmt.Errorf("deviation fee: %w", err)
		}
	case RegionCrossing:
		cashback.Set(&asset.CollectedCashbacks)
		rest := new(uint256.Int).Sub(quantity, &st.crossing)
		if devFee, err = c.inflowDeviationFee(rest, &st.devNew); err != nil {
			return res, fmt.Errorf("deviation fee: %w", err)
		}
	}

	supplied, err := fixedpoint.Sum(quantity, baseFee, devFee)
	if err != nil {
		return res, fmt.Errorf("supplied: %w", err)
	}
	if err := book(&asset, &st.quantity, baseFee, devFee, cashback); err != nil {
		return res, err
	}

	c.TotalCurrentUsdAmount.Set(&st.total)

	res.Asset = asset
	res.Supplied.Set(supplied)
	res.BaseFee.Set(baseFee)
	res.DeviationFee.Set(devFee)
	res.Cashback.Set(cashback)
	res.Region = st.region
	return res, nil
}

// EvalOutflow debits quantity worth usd from asset. Fees are taken out of
// the quantity so the recipient gets AmountOut plus Cashback.
func (c *Context) EvalOutflow(asset model.Asset, quantity, usd *uint256.Int) (Outflow, error) {
	res := Outflow{Quantity: *quantity, Usd: *usd}

	if quantity.Gt(&asset.Quantity) {
		return res, fmt.Errorf("%w: asset %s quantity %s, requested %s",
			ErrBurnAmountExceedsBalance, asset.Address.Hex(), asset.Quantity.Dec(), quantity.Dec())
	}

	st, err := c.step(&asset, fixedpoint.Down(quantity), fixedpoint.Down(usd))
	if err != nil {
		return res, err
	}

	flat, err := fixedpoint.Add(fixedpoint.ONE, &c.OperationBaseFee)
	if err != nil {
		return res, fmt.Errorf("fee divisor: %w", err)
	}

	cashback := new(uint256.Int)
	amountOut := new(uint256.Int)
	switch st.region {
	case RegionCashback:
		if cashback, err = releaseCashback(&asset.CollectedCashbacks, &st.devOld, &st.devNew); err != nil {
			return res, fmt.Errorf("cashback: %w", err)
		}
		if amountOut, err = fixedpoint.MulDiv(quantity, fixedpoint.ONE, flat, fixedpoint.RoundDown); err != nil {
			return res, fmt.Errorf("amount out: %w", err)
		}
	case RegionFee, RegionCrossing:
		steep, err := c.steepDivisor(flat, &st.devNew)
		if err != nil {
			return res, err
		}
		charged := quantity
		if st.region == RegionCrossing {
			cashback.Set(&asset.CollectedCashbacks)
			charged = new(uint256.Int).Sub(quantity, &st.crossing)
			before, err := fixedpoint.MulDiv(&st.crossing, fixedpoint.ONE, flat, fixedpoint.RoundDown)
			if err != nil {
				return res, fmt.Errorf("amount out: %w", err)
			}
			amountOut.Set(before)
		}
		after, err := fixedpoint.MulDiv(charged, fixedpoint.ONE, steep, fixedpoint.RoundDown)
		if err != nil {
			return res, fmt.Errorf("amount out: %w", err)
		}
		amountOut.Add(amountOut, after)
	}

	baseFee, err := fixedpoint.MulDiv(amountOut, &c.OperationBaseFee, fixedpoint.ONE, fixedpoint.RoundDown)
	if err != nil {
		return res, fmt.Errorf("base fee: %w", err)
	}

	// On the cashback branch the rounding remainder stays unbooked in the
	// held balance until the next deposit sweeps it.
	devFee := new(uint256.Int)
	if st.region != RegionCashback {
		taken, err := fixedpoint.Add(amountOut, baseFee)
		if err != nil {
			return res, fmt.Errorf("deviation fee: %w", err)
		}
		if devFee, err = fixedpoint.Sub(quantity, taken); err != nil {
			return res, fmt.Errorf("deviation fee: %w", err)
		}
	}

	if err := book(&asset, &st.quantity, baseFee, devFee, cashback); err != nil {
		return res, err
	}

	c.TotalCurrentUsdAmount.Set(&st.total)

	res.Asset = asset
	res.AmountOut.Set(amountOut)
	res.BaseFee.Set(baseFee)
	res.DeviationFee.Set(devFee)
	res.Cashback.Set(cashback)
	res.Region = st.region
	return res, nil
}

// steepDivisor returns ONE + base + deviation fee rate at d.
func (c *Context) steepDivisor(flat, d *uint256.Int) (*uint256.Int, error) {
	rate, err := c.outflowFeeRate(d)
	if err != nil {
		return nil, fmt.Errorf("deviation fee rate: %w", err)
	}
	steep, err := fixedpoint.Add(flat, rate)
	if err != nil {
		return nil, fmt.Errorf("fee divisor: %w", err)
	}
	return steep, nil
}

// book writes a leg's effect into the asset record: the new quantity, the
// base fee into CollectedFees, and deviation fee less cashback into the reserve.
func book(asset *model.Asset, quantity, baseFee, devFee, cashback *uint256.Int) error {
	fees, err := fixedpoint.Add(&asset.CollectedFees, baseFee)
	if err != nil {
		return fmt.Errorf("collected fees: %w", err)
	}
	reserve, err := fixedpoint.Sub(&asset.CollectedCashbacks, cashback)
	if err != nil {
		return fmt.Errorf("collected cashbacks: %w", err)
	}
	if reserve, err = fixedpoint.Add(reserve, devFee); err != nil {
		return fmt.Errorf("collected cashbacks: %w", err)
	}
	asset.Quantity.Set(quantity)
	asset.CollectedFees.Set(fees)
	asset.CollectedCashbacks.Set(reserve)
	return nil
}
