package pool

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"multipool/internal/fixedpoint"
	"multipool/internal/model"
	"multipool/internal/poolmath"
)

// Pool is the asset registry. All mutation goes through quote-then-commit
// under a single lock.
type Pool struct {
	mu          sync.Mutex
	logger      *zap.Logger
	params      poolmath.Params
	assets      map[common.Address]model.Asset
	held        map[common.Address]uint256.Int
	order       []common.Address
	totalSupply uint256.Int
}

// New returns an empty pool with the given parameters.
func New(params poolmath.Params, logger *zap.Logger) (*Pool, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		logger: logger,
		params: params,
		assets: make(map[common.Address]model.Asset),
		held:   make(map[common.Address]uint256.Int),
	}, nil
}

// Restore rebuilds a pool from a snapshot.
func Restore(snap model.Snapshot, logger *zap.Logger) (*Pool, error) {
	params, err := poolmath.ParamsFromState(snap.Params)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	p, err := New(params, logger)
	if err != nil {
		return nil, err
	}
	supply, err := fixedpoint.ParseDecimal(snap.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}
	p.totalSupply.Set(supply)

	for _, st := range snap.Assets {
		asset, held, err := st.Asset()
		if err != nil {
			return nil, err
		}
		if _, dup := p.assets[asset.Address]; dup {
			return nil, fmt.Errorf("duplicate asset %s", asset.Address.Hex())
		}
		accounted, err := asset.Accounted()
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.Address.Hex(), err)
		}
		if held.Lt(accounted) {
			return nil, fmt.Errorf("asset %s: held %s below accounted %s", asset.Address.Hex(), held.Dec(), accounted.Dec())
		}
		p.assets[asset.Address] = asset
		p.held[asset.Address] = *held
		p.order = append(p.order, asset.Address)
	}
	return p, nil
}

// Snapshot returns the full state in registration order.
func (p *Pool) Snapshot() model.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := model.Snapshot{
		Params:      p.params.State(),
		TotalSupply: p.totalSupply.Dec(),
		Assets:      make([]model.AssetState, 0, len(p.order)),
	}
	for _, addr := range p.order {
		held := p.held[addr]
		snap.Assets = append(snap.Assets, p.assets[addr].State(&held))
	}
	return snap
}

func (p *Pool) Params() poolmath.Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

func (p *Pool) TotalSupply() uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalSupply
}

// Asset returns a copy of the record for addr.
func (p *Pool) Asset(addr common.Address) (model.Asset, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	asset, ok := p.assets[addr]
	return asset, ok
}

// Assets returns copies of all records in registration order.
func (p *Pool) Assets() []model.Asset {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Asset, 0, len(p.order))
	for _, addr := range p.order {
		out = append(out, p.assets[addr])
	}
	return out
}

// Held returns the token balance the pool holds for addr.
func (p *Pool) Held(addr common.Address) uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held[addr]
}

// Excess returns the held balance not yet booked to the asset.
func (p *Pool) Excess(addr common.Address) (uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	excess, err := p.excessLocked(addr)
	if err != nil {
		return uint256.Int{}, err
	}
	return *excess, nil
}

// TotalUsd returns the current pool value.
func (p *Pool) TotalUsd() (uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, err := poolmath.NewContext(p.assets, p.params, &p.params.BaseMintFee)
	if err != nil {
		return uint256.Int{}, err
	}
	return ctx.TotalCurrentUsdAmount, nil
}

// Deposit records tokens transferred into the pool ahead of an operation.
func (p *Pool) Deposit(addr common.Address, amount *uint256.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.assets[addr]; !ok {
		return unknownAsset(addr)
	}
	held := p.held[addr]
	next, err := fixedpoint.Add(&held, amount)
	if err != nil {
		return fmt.Errorf("deposit %s: %w", addr.Hex(), err)
	}
	p.held[addr] = *next
	p.logger.Debug("deposit", zap.Stringer("asset", addr), zap.String("amount", amount.Dec()))
	return nil
}

func (p *Pool) excessLocked(addr common.Address) (*uint256.Int, error) {
	asset, ok := p.assets[addr]
	if !ok {
		return nil, unknownAsset(addr)
	}
	accounted, err := asset.Accounted()
	if err != nil {
		return nil, err
	}
	held := p.held[addr]
	return fixedpoint.Sub(&held, accounted)
}

// view copies the registry into the engine's read-only form.
func (p *Pool) view() *poolmath.Pool {
	assets := make(map[common.Address]model.Asset, len(p.assets))
	for addr, asset := range p.assets {
		assets[addr] = asset
	}
	return &poolmath.Pool{Assets: assets, TotalSupply: p.totalSupply, Params: p.params}
}

// register creates an empty record for addr if needed.
func (p *Pool) register(addr common.Address) model.Asset {
	asset, ok := p.assets[addr]
	if !ok {
		asset = model.NewAsset(addr)
		p.assets[addr] = asset
		p.held[addr] = uint256.Int{}
		p.order = append(p.order, addr)
		p.logger.Info("asset registered", zap.Stringer("asset", addr))
	}
	return asset
}

// release moves amount out of the held balance of addr.
func (p *Pool) release(addr common.Address, amount *uint256.Int) error {
	held := p.held[addr]
	next, err := fixedpoint.Sub(&held, amount)
	if err != nil {
		return fmt.Errorf("release %s of %s: %w", amount.Dec(), addr.Hex(), err)
	}
	p.held[addr] = *next
	return nil
}

func unknownAsset(addr common.Address) error {
	return fmt.Errorf("%w: %s", poolmath.ErrUnknownAsset, addr.Hex())
}
