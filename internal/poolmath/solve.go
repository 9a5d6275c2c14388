package poolmath

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"multipool/internal/fixedpoint"
	"multipool/internal/model"
)

// searchMax returns the largest s in [0, hi] with ok(s), given ok(0) and
// ok monotone non-increasing.
func searchMax(hi *uint256.Int, ok func(*uint256.Int) bool) *uint256.Int {
	lo := new(uint256.Int)
	hi = hi.Clone()
	one := uint256.NewInt(1)
	for lo.Lt(hi) {
		mid := new(uint256.Int).Sub(hi, lo)
		mid.Add(mid, one).Rsh(mid, 1).Add(mid, lo)
		if ok(mid) {
			lo = mid
		} else {
			hi = mid.Sub(mid, one)
		}
	}
	return lo
}

// searchMin returns the smallest s in [1, hi] with ok(s), given ok(hi) and
// ok monotone non-decreasing.
func searchMin(hi *uint256.Int, ok func(*uint256.Int) bool) *uint256.Int {
	lo := uint256.NewInt(1)
	hi = hi.Clone()
	for lo.Lt(hi) {
		mid := new(uint256.Int).Sub(hi, lo)
		mid.Rsh(mid, 1).Add(mid, lo)
		if ok(mid) {
			hi = mid
		} else {
			lo = mid.AddUint64(mid, 1)
		}
	}
	return lo
}

// sharesUpperBound converts an asset amount into shares, rounded up with
// one share of headroom.
func (p *Pool) sharesUpperBound(amount, price *uint256.Int, baseFee *uint256.Int) (*uint256.Int, error) {
	ctx, err := NewContext(p.Assets, p.Params, baseFee)
	if err != nil {
		return nil, err
	}
	if ctx.TotalCurrentUsdAmount.IsZero() {
		return nil, fmt.Errorf("total usd: %w", fixedpoint.ErrDivisionByZero)
	}
	usd, err := fixedpoint.MulDiv(amount, price, fixedpoint.ONE, fixedpoint.RoundUp)
	if err != nil {
		return nil, err
	}
	shares, err := fixedpoint.MulDiv(usd, &p.TotalSupply, &ctx.TotalCurrentUsdAmount, fixedpoint.RoundUp)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(shares, uint256.NewInt(1))
}

// QuoteMintExactIn finds the most shares amountIn of asset can mint. An empty
// pool mints at one share per usd of deposit.
func QuoteMintExactIn(p *Pool, asset common.Address, amountIn *uint256.Int) (MintQuote, error) {
	a, err := p.asset(asset)
	if err != nil {
		return MintQuote{}, err
	}
	noop := p.mintNoop(a, amountIn)
	if amountIn.IsZero() {
		return noop, nil
	}

	if p.TotalSupply.IsZero() {
		shares, err := fixedpoint.MulDiv(amountIn, &a.Price, fixedpoint.ONE, fixedpoint.RoundDown)
		if err != nil {
			return noop, fmt.Errorf("initial shares: %w", err)
		}
		if shares.IsZero() {
			return noop, nil
		}
		return p.initialMint(a, amountIn, shares)
	}

	hi, err := p.sharesUpperBound(amountIn, &a.Price, &p.Params.BaseMintFee)
	if err != nil {
		return noop, err
	}
	best := searchMax(hi, func(s *uint256.Int) bool {
		q, err := p.mintCost(a, s)
		return err == nil && !q.Supplied.Gt(amountIn)
	})
	if best.IsZero() {
		if _, err := p.mintCost(a, uint256.NewInt(1)); err != nil {
			return noop, err
		}
		return noop, nil
	}
	return p.mint(a, amountIn, best)
}

// QuoteMintAmountIn returns the deposit needed to mint shares of asset.
func QuoteMintAmountIn(p *Pool, asset common.Address, shares *uint256.Int) (MintQuote, error) {
	a, err := p.asset(asset)
	if err != nil {
		return MintQuote{}, err
	}
	if p.TotalSupply.IsZero() {
		return MintQuote{Asset: a}, ErrNoSharesExist
	}
	if shares.IsZero() {
		return MintQuote{Asset: a, TotalSupply: p.TotalSupply}, nil
	}
	q, err := p.mintCost(a, shares)
	if err != nil {
		return q, err
	}
	q.AmountIn.Set(&q.Supplied)
	q.Refund.Set(&q.Cashback)
	return q, nil
}

// QuoteBurnExactOut finds the fewest shares whose burn pays at least
// amountOut of asset.
func QuoteBurnExactOut(p *Pool, asset common.Address, amountOut *uint256.Int) (BurnQuote, error) {
	a, err := p.asset(asset)
	if err != nil {
		return BurnQuote{}, err
	}
	if p.TotalSupply.IsZero() {
		return BurnQuote{Asset: a}, ErrNoSharesExist
	}
	if amountOut.IsZero() {
		return BurnQuote{Asset: a, TotalSupply: p.TotalSupply}, nil
	}

	hi, err := p.sharesUpperBound(&a.Quantity, &a.Price, &p.Params.BaseBurnFee)
	if err != nil {
		return BurnQuote{Asset: a}, err
	}
	if hi.Gt(&p.TotalSupply) {
		hi.Set(&p.TotalSupply)
	}
	reached := func(s *uint256.Int) bool {
		q, err := QuoteBurn(p, asset, s)
		return err != nil || !q.AmountOut.Lt(amountOut)
	}
	if !reached(hi) {
		return BurnQuote{Asset: a}, fmt.Errorf("%w: %s of %s not reachable",
			ErrBurnAmountExceedsBalance, amountOut.Dec(), asset.Hex())
	}
	return QuoteBurn(p, asset, searchMin(hi, reached))
}

// QuoteSwapExactIn finds the largest trade amountIn of assetIn can pay for.
func QuoteSwapExactIn(p *Pool, assetIn, assetOut common.Address, amountIn *uint256.Int) (SwapQuote, error) {
	in, out, err := p.swapPair(assetIn, assetOut)
	if err != nil {
		return SwapQuote{}, err
	}
	noop := swapNoop(in, out, amountIn)
	if amountIn.IsZero() {
		return noop, nil
	}

	hi, err := p.sharesUpperBound(amountIn, &in.Price, &p.Params.BaseTradeFee)
	if err != nil {
		return noop, err
	}
	best := searchMax(hi, func(s *uint256.Int) bool {
		q, err := p.swapCost(in, out, s)
		return err == nil && !q.Supplied.Gt(amountIn)
	})
	if best.IsZero() {
		if _, err := p.swapCost(in, out, uint256.NewInt(1)); err != nil {
			return noop, err
		}
		return noop, nil
	}
	return p.swap(in, out, amountIn, best)
}

// QuoteSwapExactOut finds the smallest trade that pays at least amountOut of
// assetOut. AmountIn of the result is the deposit it needs.
func QuoteSwapExactOut(p *Pool, assetIn, assetOut common.Address, amountOut *uint256.Int) (SwapQuote, error) {
	in, out, err := p.swapPair(assetIn, assetOut)
	if err != nil {
		return SwapQuote{}, err
	}
	if amountOut.IsZero() {
		return SwapQuote{AssetIn: in, AssetOut: out}, nil
	}

	hi, err := p.sharesUpperBound(&out.Quantity, &out.Price, &p.Params.BaseTradeFee)
	if err != nil {
		return SwapQuote{AssetIn: in, AssetOut: out}, err
	}
	reached := func(s *uint256.Int) bool {
		q, err := p.swapCost(in, out, s)
		return err != nil || !q.AmountOut.Lt(amountOut)
	}
	if !reached(hi) {
		return SwapQuote{AssetIn: in, AssetOut: out}, fmt.Errorf("%w: %s of %s not reachable",
			ErrBurnAmountExceedsBalance, amountOut.Dec(), assetOut.Hex())
	}
	q, err := p.swapCost(in, out, searchMin(hi, reached))
	if err != nil {
		return q, err
	}
	q.AmountIn.Set(&q.Supplied)
	q.Refund.Set(&q.CashbackIn)
	return q, nil
}

// Touched returns the post-operation records a quote changes.
func (q MintQuote) Touched() []model.Asset { return []model.Asset{q.Asset} }

func (q BurnQuote) Touched() []model.Asset { return []model.Asset{q.Asset} }

func (q SwapQuote) Touched() []model.Asset { return []model.Asset{q.AssetIn, q.AssetOut} }
