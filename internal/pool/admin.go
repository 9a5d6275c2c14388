package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"multipool/internal/model"
	"multipool/internal/poolmath"
)

// UpdatePrice sets the usd price of addr, registering it if new.
func (p *Pool) UpdatePrice(addr common.Address, price *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	asset := p.register(addr)
	asset.Price.Set(price)
	p.assets[addr] = asset
	p.logger.Debug("price updated", zap.Stringer("asset", addr), zap.String("price", price.Dec()))
}

// UpdateAssetPercents sets the target percent of addr, registering it if new.
func (p *Pool) UpdateAssetPercents(addr common.Address, percent *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	asset := p.register(addr)
	asset.Percent.Set(percent)
	p.assets[addr] = asset
	p.logger.Debug("percent updated", zap.Stringer("asset", addr), zap.String("percent", percent.Dec()))
}

func (p *Pool) SetHalfDeviationFeeRatio(v *uint256.Int) error {
	return p.setParam("half_deviation_fee_ratio", v, func(params *poolmath.Params) { params.HalfDeviationFeeRatio.Set(v) })
}

func (p *Pool) SetDeviationPercentLimit(v *uint256.Int) error {
	return p.setParam("deviation_percent_limit", v, func(params *poolmath.Params) { params.DeviationPercentLimit.Set(v) })
}

func (p *Pool) SetBaseMintFee(v *uint256.Int) error {
	return p.setParam("base_mint_fee", v, func(params *poolmath.Params) { params.BaseMintFee.Set(v) })
}

func (p *Pool) SetBaseBurnFee(v *uint256.Int) error {
	return p.setParam("base_burn_fee", v, func(params *poolmath.Params) { params.BaseBurnFee.Set(v) })
}

func (p *Pool) SetBaseTradeFee(v *uint256.Int) error {
	return p.setParam("base_trade_fee", v, func(params *poolmath.Params) { params.BaseTradeFee.Set(v) })
}

func (p *Pool) setParam(name string, v *uint256.Int, apply func(*poolmath.Params)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.params
	apply(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	p.params = next
	p.logger.Debug("param updated", zap.String("param", name), zap.String("value", v.Dec()))
	return nil
}

// WithdrawCollectedFees zeroes the fee accumulator of addr and returns the
// transfer the caller must perform.
func (p *Pool) WithdrawCollectedFees(addr, to common.Address) (model.Withdrawal, error) {
	return p.withdraw(addr, to, "fees", func(asset *model.Asset) *uint256.Int { return &asset.CollectedFees })
}

// WithdrawCollectedCashbacks zeroes the cashback reserve of addr.
func (p *Pool) WithdrawCollectedCashbacks(addr, to common.Address) (model.Withdrawal, error) {
	return p.withdraw(addr, to, "cashbacks", func(asset *model.Asset) *uint256.Int { return &asset.CollectedCashbacks })
}

func (p *Pool) withdraw(addr, to common.Address, kind string, field func(*model.Asset) *uint256.Int) (model.Withdrawal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	asset, ok := p.assets[addr]
	if !ok {
		return model.Withdrawal{}, unknownAsset(addr)
	}
	acc := field(&asset)
	w := model.Withdrawal{Asset: addr, To: to, Amount: *acc}
	if err := p.release(addr, acc); err != nil {
		return model.Withdrawal{}, err
	}
	acc.Clear()
	p.assets[addr] = asset

	p.logger.Info("withdraw "+kind,
		zap.Stringer("asset", addr),
		zap.Stringer("to", to),
		zap.String("amount", w.Amount.Dec()),
	)
	return w, nil
}
