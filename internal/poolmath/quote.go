package poolmath

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"multipool/internal/fixedpoint"
	"multipool/internal/model"
)

// Pool is the read-only state quotes are priced against. Quote functions
// never modify it; they return post-operation records instead.
type Pool struct {
	Assets      map[common.Address]model.Asset
	TotalSupply uint256.Int
	Params      Params
}

func (p *Pool) asset(addr common.Address) (model.Asset, error) {
	asset, ok := p.Assets[addr]
	if !ok {
		return model.Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, addr.Hex())
	}
	return asset, nil
}

// MintQuote is the outcome of minting Shares against an AmountIn deposit.
type MintQuote struct {
	Asset       model.Asset
	TotalSupply uint256.Int
	Shares      uint256.Int
	AmountIn    uint256.Int
	Supplied    uint256.Int
	Fee         uint256.Int
	Cashback    uint256.Int
	Refund      uint256.Int
	Region      Region
}

func (q MintQuote) Response() model.MintResponse {
	return model.MintResponse{
		SharesMinted: q.Shares,
		AmountIn:     q.AmountIn,
		FeeCharged:   q.Fee,
		Cashback:     q.Cashback,
		RefundAmount: q.Refund,
	}
}

// BurnQuote is the outcome of burning Shares for one asset.
type BurnQuote struct {
	Asset       model.Asset
	TotalSupply uint256.Int
	Shares      uint256.Int
	Quantity    uint256.Int
	AmountOut   uint256.Int
	Fee         uint256.Int
	Cashback    uint256.Int
	Region      Region
}

func (q BurnQuote) Response() model.BurnResponse {
	return model.BurnResponse{
		AmountOut:    q.AmountOut,
		FeeCharged:   q.Fee,
		CashbackPaid: q.Cashback,
	}
}

// SwapQuote is the outcome of trading AssetIn for AssetOut sized by Shares.
type SwapQuote struct {
	AssetIn     model.Asset
	AssetOut    model.Asset
	Shares      uint256.Int
	AmountIn    uint256.Int
	Supplied    uint256.Int
	AmountOut   uint256.Int
	Refund      uint256.Int
	FeeIn       uint256.Int
	FeeOut      uint256.Int
	CashbackIn  uint256.Int
	CashbackOut uint256.Int
	RegionIn    Region
	RegionOut   Region
}

func (q SwapQuote) Response() model.SwapResponse {
	return model.SwapResponse{
		SharesEquivalent: q.Shares,
		AmountIn:         q.AmountIn,
		AmountOut:        q.AmountOut,
		RefundAmount:     q.Refund,
		FeeIn:            q.FeeIn,
		FeeOut:           q.FeeOut,
		CashbackIn:       q.CashbackIn,
		CashbackOut:      q.CashbackOut,
	}
}

// QuoteMint prices minting shares of asset with amountIn already deposited.
// Zero shares mints nothing and refunds the whole deposit.
func QuoteMint(p *Pool, asset common.Address, amountIn, shares *uint256.Int) (MintQuote, error) {
	a, err := p.asset(asset)
	if err != nil {
		return MintQuote{}, err
	}
	if shares.IsZero() {
		return p.mintNoop(a, amountIn), nil
	}
	return p.mint(a, amountIn, shares)
}

func (p *Pool) mintNoop(a model.Asset, amountIn *uint256.Int) MintQuote {
	return MintQuote{Asset: a, TotalSupply: p.TotalSupply, AmountIn: *amountIn, Refund: *amountIn}
}

func (p *Pool) mint(a model.Asset, amountIn, shares *uint256.Int) (MintQuote, error) {
	if p.TotalSupply.IsZero() {
		return p.initialMint(a, amountIn, shares)
	}

	q, err := p.mintCost(a, shares)
	if err != nil {
		return q, err
	}
	if q.Supplied.Gt(amountIn) {
		return q, fmt.Errorf("%w: need %s, have %s", ErrMintAmountExceeded, q.Supplied.Dec(), amountIn.Dec())
	}
	q.AmountIn.Set(amountIn)
	q.Refund.Sub(amountIn, &q.Supplied)
	if _, overflow := q.Refund.AddOverflow(&q.Refund, &q.Cashback); overflow {
		return q, fmt.Errorf("refund: %w", fixedpoint.ErrArithmeticOverflow)
	}
	return q, nil
}

// initialMint seeds an empty pool: the whole deposit becomes quantity and
// the requested shares are granted without fee.
func (p *Pool) initialMint(a model.Asset, amountIn, shares *uint256.Int) (MintQuote, error) {
	q := MintQuote{Asset: a, TotalSupply: p.TotalSupply}
	if a.Percent.IsZero() {
		return q, fmt.Errorf("%w: %s", ErrZeroPercentAsset, a.Address.Hex())
	}
	if amountIn.IsZero() {
		return q, fmt.Errorf("%w: empty deposit on first mint", ErrMintAmountExceeded)
	}
	quantity, err := fixedpoint.Add(&a.Quantity, amountIn)
	if err != nil {
		return q, fmt.Errorf("quantity: %w", err)
	}
	q.Asset.Quantity.Set(quantity)
	q.TotalSupply.Set(shares)
	q.Shares.Set(shares)
	q.AmountIn.Set(amountIn)
	q.Supplied.Set(amountIn)
	return q, nil
}

// mintCost evaluates the inflow for shares without a deposit bound.
func (p *Pool) mintCost(a model.Asset, shares *uint256.Int) (MintQuote, error) {
	q := MintQuote{Asset: a, TotalSupply: p.TotalSupply}
	if p.TotalSupply.IsZero() {
		return q, ErrNoSharesExist
	}
	ctx, err := NewContext(p.Assets, p.Params, &p.Params.BaseMintFee)
	if err != nil {
		return q, err
	}
	usd, err := ctx.SharesToUsd(shares, &p.TotalSupply)
	if err != nil {
		return q, err
	}
	quantity, err := UsdToQuantity(usd, &a.Price)
	if err != nil {
		return q, fmt.Errorf("mint quantity: %w", err)
	}
	in, err := ctx.EvalInflow(a, quantity, usd)
	if err != nil {
		return q, err
	}
	supply, err := fixedpoint.Add(&p.TotalSupply, shares)
	if err != nil {
		return q, fmt.Errorf("total supply: %w", err)
	}

	q.Asset = in.Asset
	q.TotalSupply.Set(supply)
	q.Shares.Set(shares)
	q.Supplied.Set(&in.Supplied)
	q.Fee.Set(in.Fee())
	q.Cashback.Set(&in.Cashback)
	q.Region = in.Region
	return q, nil
}

// QuoteBurn prices burning shares for asset.
func QuoteBurn(p *Pool, asset common.Address, shares *uint256.Int) (BurnQuote, error) {
	a, err := p.asset(asset)
	if err != nil {
		return BurnQuote{}, err
	}
	q := BurnQuote{Asset: a, TotalSupply: p.TotalSupply}
	if p.TotalSupply.IsZero() {
		return q, ErrNoSharesExist
	}
	if shares.IsZero() {
		return q, nil
	}
	if shares.Gt(&p.TotalSupply) {
		return q, fmt.Errorf("%w: shares %s exceed supply %s", ErrBurnAmountExceedsBalance, shares.Dec(), p.TotalSupply.Dec())
	}

	ctx, err := NewContext(p.Assets, p.Params, &p.Params.BaseBurnFee)
	if err != nil {
		return q, err
	}
	usd, err := ctx.SharesToUsd(shares, &p.TotalSupply)
	if err != nil {
		return q, err
	}
	quantity, err := UsdToQuantity(usd, &a.Price)
	if err != nil {
		return q, fmt.Errorf("burn quantity: %w", err)
	}
	out, err := ctx.EvalOutflow(a, quantity, usd)
	if err != nil {
		return q, err
	}

	q.Asset = out.Asset
	q.TotalSupply.Sub(&p.TotalSupply, shares)
	q.Shares.Set(shares)
	q.Quantity.Set(quantity)
	q.AmountOut.Set(out.Paid())
	q.Fee.Set(out.Fee())
	q.Cashback.Set(&out.Cashback)
	q.Region = out.Region
	return q, nil
}

// QuoteSwap prices trading assetIn for assetOut with amountIn deposited.
// Zero shares trades nothing and refunds the whole deposit.
func QuoteSwap(p *Pool, assetIn, assetOut common.Address, amountIn, shares *uint256.Int) (SwapQuote, error) {
	in, out, err := p.swapPair(assetIn, assetOut)
	if err != nil {
		return SwapQuote{}, err
	}
	if shares.IsZero() {
		return swapNoop(in, out, amountIn), nil
	}
	return p.swap(in, out, amountIn, shares)
}

func swapNoop(in, out model.Asset, amountIn *uint256.Int) SwapQuote {
	return SwapQuote{AssetIn: in, AssetOut: out, AmountIn: *amountIn, Refund: *amountIn}
}

func (p *Pool) swapPair(assetIn, assetOut common.Address) (model.Asset, model.Asset, error) {
	if assetIn == assetOut {
		return model.Asset{}, model.Asset{}, fmt.Errorf("%w: %s", ErrSameAssetSwap, assetIn.Hex())
	}
	in, err := p.asset(assetIn)
	if err != nil {
		return model.Asset{}, model.Asset{}, err
	}
	out, err := p.asset(assetOut)
	if err != nil {
		return model.Asset{}, model.Asset{}, err
	}
	if p.TotalSupply.IsZero() {
		return model.Asset{}, model.Asset{}, ErrNoSharesExist
	}
	return in, out, nil
}

func (p *Pool) swap(in, out model.Asset, amountIn, shares *uint256.Int) (SwapQuote, error) {
	q, err := p.swapCost(in, out, shares)
	if err != nil {
		return q, err
	}
	if q.Supplied.Gt(amountIn) {
		return q, fmt.Errorf("%w: need %s, have %s", ErrMintAmountExceeded, q.Supplied.Dec(), amountIn.Dec())
	}
	q.AmountIn.Set(amountIn)
	q.Refund.Sub(amountIn, &q.Supplied)
	if _, overflow := q.Refund.AddOverflow(&q.Refund, &q.CashbackIn); overflow {
		return q, fmt.Errorf("refund: %w", fixedpoint.ErrArithmeticOverflow)
	}
	return q, nil
}

// swapCost runs a mint leg for in followed by a burn leg for out on one
// running context, both at the trade fee.
func (p *Pool) swapCost(in, out model.Asset, shares *uint256.Int) (SwapQuote, error) {
	q := SwapQuote{AssetIn: in, AssetOut: out}
	ctx, err := NewContext(p.Assets, p.Params, &p.Params.BaseTradeFee)
	if err != nil {
		return q, err
	}
	usd, err := ctx.SharesToUsd(shares, &p.TotalSupply)
	if err != nil {
		return q, err
	}
	quantityIn, err := UsdToQuantity(usd, &in.Price)
	if err != nil {
		return q, fmt.Errorf("swap quantity in: %w", err)
	}
	quantityOut, err := UsdToQuantity(usd, &out.Price)
	if err != nil {
		return q, fmt.Errorf("swap quantity out: %w", err)
	}

	inLeg, err := ctx.EvalInflow(in, quantityIn, usd)
	if err != nil {
		return q, err
	}
	outLeg, err := ctx.EvalOutflow(out, quantityOut, usd)
	if err != nil {
		return q, err
	}

	q.AssetIn = inLeg.Asset
	q.AssetOut = outLeg.Asset
	q.Shares.Set(shares)
	q.Supplied.Set(&inLeg.Supplied)
	q.AmountOut.Set(outLeg.Paid())
	q.FeeIn.Set(inLeg.Fee())
	q.FeeOut.Set(outLeg.Fee())
	q.CashbackIn.Set(&inLeg.Cashback)
	q.CashbackOut.Set(&outLeg.Cashback)
	q.RegionIn = inLeg.Region
	q.RegionOut = outLeg.Region
	return q, nil
}
