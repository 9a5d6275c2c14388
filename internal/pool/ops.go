package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"multipool/internal/fixedpoint"
	"multipool/internal/model"
	"multipool/internal/poolmath"
)

// Mint prices req against the unbooked deposit of req.AssetIn. Whatever the
// mint does not use is refunded, so zero shares returns the whole deposit.
func (p *Pool) Mint(req model.MintRequest) (model.MintResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	amountIn, err := p.excessLocked(req.AssetIn)
	if err != nil {
		return model.MintResponse{}, err
	}
	q, err := poolmath.QuoteMint(p.view(), req.AssetIn, amountIn, &req.SharesOut)
	if err != nil {
		return model.MintResponse{}, err
	}
	if err := p.commit(q.Touched(), &q.TotalSupply, payout{req.AssetIn, &q.Refund}); err != nil {
		return model.MintResponse{}, err
	}

	p.logger.Debug("mint",
		zap.Stringer("asset", req.AssetIn),
		zap.Stringer("recipient", req.Recipient),
		zap.String("shares", q.Shares.Dec()),
		zap.String("amount_in", q.AmountIn.Dec()),
		zap.String("fee", q.Fee.Dec()),
		zap.String("cashback", q.Cashback.Dec()),
		zap.String("refund", q.Refund.Dec()),
		zap.Stringer("region", q.Region),
	)
	return q.Response(), nil
}

// Burn redeems req.SharesIn for req.AssetOut.
func (p *Pool) Burn(req model.BurnRequest) (model.BurnResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q, err := poolmath.QuoteBurn(p.view(), req.AssetOut, &req.SharesIn)
	if err != nil {
		return model.BurnResponse{}, err
	}
	if err := p.commit(q.Touched(), &q.TotalSupply, payout{req.AssetOut, &q.AmountOut}); err != nil {
		return model.BurnResponse{}, err
	}

	p.logger.Debug("burn",
		zap.Stringer("asset", req.AssetOut),
		zap.Stringer("recipient", req.Recipient),
		zap.String("shares", q.Shares.Dec()),
		zap.String("amount_out", q.AmountOut.Dec()),
		zap.String("fee", q.Fee.Dec()),
		zap.String("cashback", q.Cashback.Dec()),
		zap.Stringer("region", q.Region),
	)
	return q.Response(), nil
}

// Swap trades the unbooked deposit of req.AssetIn for req.AssetOut; the
// unused part of the deposit is refunded.
func (p *Pool) Swap(req model.SwapRequest) (model.SwapResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.AssetIn == req.AssetOut {
		return model.SwapResponse{}, fmt.Errorf("%w: %s", poolmath.ErrSameAssetSwap, req.AssetIn.Hex())
	}
	amountIn, err := p.excessLocked(req.AssetIn)
	if err != nil {
		return model.SwapResponse{}, err
	}
	q, err := poolmath.QuoteSwap(p.view(), req.AssetIn, req.AssetOut, amountIn, &req.SharesEquivalent)
	if err != nil {
		return model.SwapResponse{}, err
	}
	err = p.commit(q.Touched(), &p.totalSupply,
		payout{req.AssetIn, &q.Refund},
		payout{req.AssetOut, &q.AmountOut},
	)
	if err != nil {
		return model.SwapResponse{}, err
	}

	p.logger.Debug("swap",
		zap.Stringer("asset_in", req.AssetIn),
		zap.Stringer("asset_out", req.AssetOut),
		zap.Stringer("recipient", req.Recipient),
		zap.String("shares", q.Shares.Dec()),
		zap.String("amount_in", q.AmountIn.Dec()),
		zap.String("amount_out", q.AmountOut.Dec()),
		zap.String("fee_in", q.FeeIn.Dec()),
		zap.String("fee_out", q.FeeOut.Dec()),
		zap.Stringer("region_in", q.RegionIn),
		zap.Stringer("region_out", q.RegionOut),
	)
	return q.Response(), nil
}

// EstimateMint prices req as if amountIn were deposited, without mutation.
func (p *Pool) EstimateMint(req model.MintRequest, amountIn *uint256.Int) (model.MintResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := poolmath.QuoteMint(p.view(), req.AssetIn, amountIn, &req.SharesOut)
	if err != nil {
		return model.MintResponse{}, err
	}
	return q.Response(), nil
}

// EstimateMintExactIn returns the largest mint amountIn of asset pays for.
func (p *Pool) EstimateMintExactIn(asset common.Address, amountIn *uint256.Int) (model.MintResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := poolmath.QuoteMintExactIn(p.view(), asset, amountIn)
	if err != nil {
		return model.MintResponse{}, err
	}
	return q.Response(), nil
}

// EstimateMintAmountIn returns the deposit needed for shares of asset.
func (p *Pool) EstimateMintAmountIn(asset common.Address, shares *uint256.Int) (model.MintResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := poolmath.QuoteMintAmountIn(p.view(), asset, shares)
	if err != nil {
		return model.MintResponse{}, err
	}
	return q.Response(), nil
}

func (p *Pool) EstimateBurn(req model.BurnRequest) (model.BurnResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := poolmath.QuoteBurn(p.view(), req.AssetOut, &req.SharesIn)
	if err != nil {
		return model.BurnResponse{}, err
	}
	return q.Response(), nil
}

// EstimateBurnExactOut returns the shares needed to receive amountOut.
func (p *Pool) EstimateBurnExactOut(asset common.Address, amountOut *uint256.Int) (uint256.Int, model.BurnResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := poolmath.QuoteBurnExactOut(p.view(), asset, amountOut)
	if err != nil {
		return uint256.Int{}, model.BurnResponse{}, err
	}
	return q.Shares, q.Response(), nil
}

// EstimateSwap prices req as if amountIn of AssetIn were deposited.
func (p *Pool) EstimateSwap(req model.SwapRequest, amountIn *uint256.Int) (model.SwapResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := poolmath.QuoteSwap(p.view(), req.AssetIn, req.AssetOut, amountIn, &req.SharesEquivalent)
	if err != nil {
		return model.SwapResponse{}, err
	}
	return q.Response(), nil
}

func (p *Pool) EstimateSwapExactIn(assetIn, assetOut common.Address, amountIn *uint256.Int) (model.SwapResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := poolmath.QuoteSwapExactIn(p.view(), assetIn, assetOut, amountIn)
	if err != nil {
		return model.SwapResponse{}, err
	}
	return q.Response(), nil
}

// EstimateSwapExactOut returns the trade paying at least amountOut; AmountIn
// is the deposit it requires.
func (p *Pool) EstimateSwapExactOut(assetIn, assetOut common.Address, amountOut *uint256.Int) (model.SwapResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, err := poolmath.QuoteSwapExactOut(p.view(), assetIn, assetOut, amountOut)
	if err != nil {
		return model.SwapResponse{}, err
	}
	return q.Response(), nil
}

type payout struct {
	asset  common.Address
	amount *uint256.Int
}

// commit applies quoted records, supply and payouts. Every held balance is
// computed before anything is written so a failure leaves state untouched.
func (p *Pool) commit(assets []model.Asset, supply *uint256.Int, payouts ...payout) error {
	held := make(map[common.Address]uint256.Int, len(payouts))
	for _, po := range payouts {
		cur, ok := held[po.asset]
		if !ok {
			cur = p.held[po.asset]
		}
		next, err := fixedpoint.Sub(&cur, po.amount)
		if err != nil {
			return fmt.Errorf("pay %s of %s: %w", po.amount.Dec(), po.asset.Hex(), err)
		}
		held[po.asset] = *next
	}

	for _, asset := range assets {
		p.assets[asset.Address] = asset
	}
	for addr, v := range held {
		p.held[addr] = v
	}
	p.totalSupply.Set(supply)
	return nil
}
