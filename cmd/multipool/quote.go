package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"multipool/internal/config"
	"multipool/internal/fixedpoint"
	"multipool/internal/model"
	"multipool/internal/pool"
	"multipool/internal/replay"
)

// Quote operations.
const (
	quoteMint         = "mint"
	quoteMintExactIn  = "mint-exact-in"
	quoteMintAmountIn = "mint-amount-in"
	quoteBurn         = "burn"
	quoteBurnExactOut = "burn-exact-out"
	quoteSwap         = "swap"
	quoteSwapExactIn  = "swap-exact-in"
	quoteSwapExactOut = "swap-exact-out"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checkpoints, _, closeStore, err := openCheckpoints(ctx, cfg.PGDSN, cfg.StateName, cfg.Checkpoint, true)
	if err != nil {
		return err
	}
	defer closeStore()

	cp, err := loadSnapshot(ctx, checkpoints)
	if err != nil {
		return err
	}
	p, err := pool.Restore(cp.Snapshot, logger)
	if err != nil {
		return err
	}

	outputs, err := quote(p, cfg)
	if err != nil {
		return err
	}
	outputs["op"] = cfg.Op
	outputs["last_seq"] = fmt.Sprintf("%d", cp.LastSeq)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outputs)
}

// quote runs one estimate against p; p is never modified.
func quote(p *pool.Pool, cfg config.QuoteConfig) (map[string]string, error) {
	asset, err := replay.ParseAddress(cfg.Asset)
	if err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}
	shares, err := fixedpoint.ParseDecimal(cfg.Shares)
	if err != nil {
		return nil, fmt.Errorf("shares: %w", err)
	}
	amount, err := fixedpoint.ParseDecimal(cfg.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}

	switch cfg.Op {
	case quoteMint:
		resp, err := p.EstimateMint(model.MintRequest{AssetIn: asset, SharesOut: *shares}, amount)
		if err != nil {
			return nil, err
		}
		return replay.MintOutputs(resp), nil
	case quoteMintExactIn:
		resp, err := p.EstimateMintExactIn(asset, amount)
		if err != nil {
			return nil, err
		}
		return replay.MintOutputs(resp), nil
	case quoteMintAmountIn:
		resp, err := p.EstimateMintAmountIn(asset, shares)
		if err != nil {
			return nil, err
		}
		return replay.MintOutputs(resp), nil
	case quoteBurn:
		resp, err := p.EstimateBurn(model.BurnRequest{AssetOut: asset, SharesIn: *shares})
		if err != nil {
			return nil, err
		}
		return replay.BurnOutputs(resp), nil
	case quoteBurnExactOut:
		sharesIn, resp, err := p.EstimateBurnExactOut(asset, amount)
		if err != nil {
			return nil, err
		}
		outputs := replay.BurnOutputs(resp)
		outputs["shares"] = sharesIn.Dec()
		return outputs, nil
	}

	assetOut, err := replay.ParseAddress(cfg.AssetOut)
	if err != nil {
		return nil, fmt.Errorf("asset-out: %w", err)
	}
	var resp model.SwapResponse
	switch cfg.Op {
	case quoteSwap:
		resp, err = p.EstimateSwap(model.SwapRequest{AssetIn: asset, AssetOut: assetOut, SharesEquivalent: *shares}, amount)
	case quoteSwapExactIn:
		resp, err = p.EstimateSwapExactIn(asset, assetOut, amount)
	case quoteSwapExactOut:
		resp, err = p.EstimateSwapExactOut(asset, assetOut, amount)
	default:
		return nil, fmt.Errorf("unsupported quote op %q", cfg.Op)
	}
	if err != nil {
		return nil, err
	}
	return replay.SwapOutputs(resp), nil
}
