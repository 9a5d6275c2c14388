package poolmath

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"multipool/internal/fixedpoint"
	"multipool/internal/model"
)

// Context is the per-operation view of pool-wide aggregates. It is built
// fresh for every quote and its running total moves as legs are evaluated.
type Context struct {
	TotalCurrentUsdAmount uint256.Int
	TotalAssetPercents    uint256.Int
	HalfDeviationFeeRatio uint256.Int
	DeviationPercentLimit uint256.Int
	OperationBaseFee      uint256.Int
}

// NewContext sums usd value and target percents over assets.
func NewContext(assets map[common.Address]model.Asset, params Params, baseFee *uint256.Int) (*Context, error) {
	ctx := &Context{
		HalfDeviationFeeRatio: params.HalfDeviationFeeRatio,
		DeviationPercentLimit: params.DeviationPercentLimit,
		OperationBaseFee:      *baseFee,
	}
	for addr, asset := range assets {
		usd, err := asset.UsdValue()
		if err != nil {
			return nil, fmt.Errorf("usd value of %s: %w", addr.Hex(), err)
		}
		if _, overflow := ctx.TotalCurrentUsdAmount.AddOverflow(&ctx.TotalCurrentUsdAmount, usd); overflow {
			return nil, fmt.Errorf("total usd: %w", fixedpoint.ErrArithmeticOverflow)
		}
		if _, overflow := ctx.TotalAssetPercents.AddOverflow(&ctx.TotalAssetPercents, &asset.Percent); overflow {
			return nil, fmt.Errorf("total percents: %w", fixedpoint.ErrArithmeticOverflow)
		}
	}
	return ctx, nil
}

// SharesToUsd converts a share amount into its usd notional.
func (c *Context) SharesToUsd(shares, totalSupply *uint256.Int) (*uint256.Int, error) {
	if totalSupply.IsZero() {
		return nil, ErrNoSharesExist
	}
	return fixedpoint.MulDiv(shares, &c.TotalCurrentUsdAmount, totalSupply, fixedpoint.RoundDown)
}

// UsdToQuantity converts a usd notional into units of an asset.
func UsdToQuantity(usd, price *uint256.Int) (*uint256.Int, error) {
	return fixedpoint.MulDiv(usd, fixedpoint.ONE, price, fixedpoint.RoundDown)
}
