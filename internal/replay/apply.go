package replay

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"multipool/internal/model"
	"multipool/internal/pool"
)

// Param names accepted by set_param.
const (
	ParamHalfDeviationFeeRatio = "half_deviation_fee_ratio"
	ParamDeviationPercentLimit = "deviation_percent_limit"
	ParamBaseMintFee           = "base_mint_fee"
	ParamBaseBurnFee           = "base_burn_fee"
	ParamBaseTradeFee          = "base_trade_fee"
)

// Apply executes one journal operation against p and returns its outputs as
// decimal strings. A failed operation leaves p unchanged.
func Apply(p *pool.Pool, op model.Operation) (map[string]string, error) {
	switch op.Op {
	case model.OpDeposit:
		return applyDeposit(p, op)
	case model.OpMint:
		return applyMint(p, op)
	case model.OpBurn:
		return applyBurn(p, op)
	case model.OpSwap:
		return applySwap(p, op)
	case model.OpUpdatePrice:
		asset, err := ParseAddress(op.Asset)
		if err != nil {
			return nil, err
		}
		price, err := requireAmount("price", op.Price)
		if err != nil {
			return nil, err
		}
		p.UpdatePrice(asset, price)
		return map[string]string{"price": price.Dec()}, nil
	case model.OpUpdatePercent:
		asset, err := ParseAddress(op.Asset)
		if err != nil {
			return nil, err
		}
		percent, err := requireAmount("percent", op.Percent)
		if err != nil {
			return nil, err
		}
		p.UpdateAssetPercents(asset, percent)
		return map[string]string{"percent": percent.Dec()}, nil
	case model.OpSetParam:
		return applySetParam(p, op)
	case model.OpWithdrawFees:
		return applyWithdraw(p, op, p.WithdrawCollectedFees)
	case model.OpWithdrawCashbacks:
		return applyWithdraw(p, op, p.WithdrawCollectedCashbacks)
	default:
		return nil, fmt.Errorf("unsupported op %q", op.Op)
	}
}

func applyDeposit(p *pool.Pool, op model.Operation) (map[string]string, error) {
	asset, err := ParseAddress(op.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := requireAmount("amount", op.Amount)
	if err != nil {
		return nil, err
	}
	if err := p.Deposit(asset, amount); err != nil {
		return nil, err
	}
	held := p.Held(asset)
	return map[string]string{"held": held.Dec()}, nil
}

func applyMint(p *pool.Pool, op model.Operation) (map[string]string, error) {
	asset, err := ParseAddress(op.Asset)
	if err != nil {
		return nil, err
	}
	shares, err := parseAmount("shares", op.Shares)
	if err != nil {
		return nil, err
	}
	recipient, err := optionalAddress(op.Recipient)
	if err != nil {
		return nil, err
	}
	resp, err := p.Mint(model.MintRequest{AssetIn: asset, SharesOut: *shares, Recipient: recipient})
	if err != nil {
		return nil, err
	}
	return MintOutputs(resp), nil
}

func applyBurn(p *pool.Pool, op model.Operation) (map[string]string, error) {
	asset, err := ParseAddress(op.Asset)
	if err != nil {
		return nil, err
	}
	shares, err := requireAmount("shares", op.Shares)
	if err != nil {
		return nil, err
	}
	recipient, err := optionalAddress(op.Recipient)
	if err != nil {
		return nil, err
	}
	resp, err := p.Burn(model.BurnRequest{AssetOut: asset, SharesIn: *shares, Recipient: recipient})
	if err != nil {
		return nil, err
	}
	return BurnOutputs(resp), nil
}

func applySwap(p *pool.Pool, op model.Operation) (map[string]string, error) {
	assetIn, err := ParseAddress(op.AssetIn)
	if err != nil {
		return nil, fmt.Errorf("asset_in: %w", err)
	}
	assetOut, err := ParseAddress(op.AssetOut)
	if err != nil {
		return nil, fmt.Errorf("asset_out: %w", err)
	}
	shares, err := parseAmount("shares", op.Shares)
	if err != nil {
		return nil, err
	}
	recipient, err := optionalAddress(op.Recipient)
	if err != nil {
		return nil, err
	}
	resp, err := p.Swap(model.SwapRequest{
		AssetIn:          assetIn,
		AssetOut:         assetOut,
		SharesEquivalent: *shares,
		Recipient:        recipient,
	})
	if err != nil {
		return nil, err
	}
	return SwapOutputs(resp), nil
}

func applySetParam(p *pool.Pool, op model.Operation) (map[string]string, error) {
	value, err := requireAmount("value", op.Value)
	if err != nil {
		return nil, err
	}
	var set func(*uint256.Int) error
	switch op.Param {
	case ParamHalfDeviationFeeRatio:
		set = p.SetHalfDeviationFeeRatio
	case ParamDeviationPercentLimit:
		set = p.SetDeviationPercentLimit
	case ParamBaseMintFee:
		set = p.SetBaseMintFee
	case ParamBaseBurnFee:
		set = p.SetBaseBurnFee
	case ParamBaseTradeFee:
		set = p.SetBaseTradeFee
	default:
		return nil, fmt.Errorf("unknown param %q", op.Param)
	}
	if err := set(value); err != nil {
		return nil, err
	}
	return map[string]string{op.Param: value.Dec()}, nil
}

type withdrawFunc func(asset, to common.Address) (model.Withdrawal, error)

func applyWithdraw(p *pool.Pool, op model.Operation, withdraw withdrawFunc) (map[string]string, error) {
	asset, err := ParseAddress(op.Asset)
	if err != nil {
		return nil, err
	}
	to, err := ParseAddress(op.To)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	w, err := withdraw(asset, to)
	if err != nil {
		return nil, err
	}
	return map[string]string{"amount": w.Amount.Dec(), "to": w.To.Hex()}, nil
}

func MintOutputs(resp model.MintResponse) map[string]string {
	return map[string]string{
		"shares_minted": resp.SharesMinted.Dec(),
		"amount_in":     resp.AmountIn.Dec(),
		"fee":           resp.FeeCharged.Dec(),
		"cashback":      resp.Cashback.Dec(),
		"refund":        resp.RefundAmount.Dec(),
	}
}

func BurnOutputs(resp model.BurnResponse) map[string]string {
	return map[string]string{
		"amount_out": resp.AmountOut.Dec(),
		"fee":        resp.FeeCharged.Dec(),
		"cashback":   resp.CashbackPaid.Dec(),
	}
}

func SwapOutputs(resp model.SwapResponse) map[string]string {
	return map[string]string{
		"shares":       resp.SharesEquivalent.Dec(),
		"amount_in":    resp.AmountIn.Dec(),
		"amount_out":   resp.AmountOut.Dec(),
		"refund":       resp.RefundAmount.Dec(),
		"fee_in":       resp.FeeIn.Dec(),
		"fee_out":      resp.FeeOut.Dec(),
		"cashback_in":  resp.CashbackIn.Dec(),
		"cashback_out": resp.CashbackOut.Dec(),
	}
}
