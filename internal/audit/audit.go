package audit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"multipool/internal/chain"
	"multipool/internal/model"
	"multipool/internal/retry"
)

// ErrDeficit reports that the chain holds less than the snapshot expects.
var ErrDeficit = errors.New("pool balance deficit")

// Status classifies one asset of the report.
type Status string

const (
	StatusOK        Status = "ok"
	StatusSurplus   Status = "surplus"
	StatusDeficit   Status = "deficit"
	StatusInsolvent Status = "insolvent"
)

// BalanceReader reads ERC20 balances. *chain.Client satisfies it.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, owner common.Address, block *big.Int) (*uint256.Int, error)
}

// MetaReader labels report rows with token metadata.
type MetaReader interface {
	TokenMeta(ctx context.Context, token common.Address) (chain.TokenMeta, error)
}

type Options struct {
	Block        *big.Int
	Assets       []common.Address
	Meta         MetaReader
	MaxRetries   int
	RetryBackoff time.Duration
}

// Row compares one asset's books with its on-chain balance.
type Row struct {
	Asset     string `json:"asset"`
	Symbol    string `json:"symbol,omitempty"`
	Decimals  uint8  `json:"decimals,omitempty"`
	Accounted string `json:"accounted"`
	Held      string `json:"held"`
	OnChain   string `json:"on_chain"`
	Surplus   string `json:"surplus"`
	Deficit   string `json:"deficit"`
	Status    Status `json:"status"`
}

type Report struct {
	Pool     string `json:"pool"`
	Block    string `json:"block,omitempty"`
	Rows     []Row  `json:"rows"`
	Deficits int    `json:"deficits"`
}

// Err returns ErrDeficit when any row is short or insolvent.
func (r Report) Err() error {
	if r.Deficits == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d assets", ErrDeficit, r.Deficits, len(r.Rows))
}

// Audit reads poolAddr's balance of every snapshot asset, or of opts.Assets
// when set, and compares it with the held and accounted amounts.
func Audit(ctx context.Context, reader BalanceReader, snap model.Snapshot, poolAddr common.Address, opts Options, logger *zap.Logger) (Report, error) {
	if reader == nil {
		return Report{}, fmt.Errorf("balance reader is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	report := Report{Pool: poolAddr.Hex()}
	if opts.Block != nil {
		report.Block = opts.Block.String()
	}

	wanted := make(map[common.Address]bool, len(opts.Assets))
	for _, addr := range opts.Assets {
		wanted[addr] = true
	}
	found := make(map[common.Address]bool, len(snap.Assets))

	for _, st := range snap.Assets {
		asset, held, err := st.Asset()
		if err != nil {
			return Report{}, err
		}
		found[asset.Address] = true
		if len(wanted) > 0 && !wanted[asset.Address] {
			continue
		}

		row, err := auditAsset(ctx, reader, asset, held, poolAddr, opts, logger)
		if err != nil {
			return Report{}, err
		}
		if row.Status == StatusDeficit || row.Status == StatusInsolvent {
			report.Deficits++
			logger.Warn("asset deficit",
				zap.String("asset", row.Asset),
				zap.String("held", row.Held),
				zap.String("on_chain", row.OnChain),
				zap.String("status", string(row.Status)),
			)
		}
		report.Rows = append(report.Rows, row)
	}

	for addr := range wanted {
		if !found[addr] {
			return Report{}, fmt.Errorf("asset %s not in snapshot", addr.Hex())
		}
	}
	return report, nil
}

func auditAsset(ctx context.Context, reader BalanceReader, asset model.Asset, held *uint256.Int, poolAddr common.Address, opts Options, logger *zap.Logger) (Row, error) {
	accounted, err := asset.Accounted()
	if err != nil {
		return Row{}, fmt.Errorf("asset %s accounted: %w", asset.Address.Hex(), err)
	}

	var onChain *uint256.Int
	policy := retry.Policy{
		MaxRetries: opts.MaxRetries,
		Backoff:    opts.RetryBackoff,
		Op:         "balanceOf " + asset.Address.Hex(),
		Logger:     logger,
	}
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		var err error
		onChain, err = reader.BalanceOf(ctx, asset.Address, poolAddr, opts.Block)
		return err
	})
	if err != nil {
		return Row{}, fmt.Errorf("balance of %s: %w", asset.Address.Hex(), err)
	}

	row := Row{
		Asset:     asset.Address.Hex(),
		Accounted: accounted.Dec(),
		Held:      held.Dec(),
		OnChain:   onChain.Dec(),
		Surplus:   "0",
		Deficit:   "0",
		Status:    StatusOK,
	}
	switch onChain.Cmp(held) {
	case 1:
		row.Surplus = new(uint256.Int).Sub(onChain, held).Dec()
		row.Status = StatusSurplus
	case -1:
		row.Deficit = new(uint256.Int).Sub(held, onChain).Dec()
		row.Status = StatusDeficit
	}
	if held.Lt(accounted) {
		row.Status = StatusInsolvent
	}

	if opts.Meta != nil {
		if meta, err := opts.Meta.TokenMeta(ctx, asset.Address); err == nil {
			row.Symbol = meta.Symbol
			row.Decimals = meta.Decimals
		}
	}
	return row, nil
}
