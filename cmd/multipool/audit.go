package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"multipool/internal/audit"
	"multipool/internal/chain"
	"multipool/internal/config"
	"multipool/internal/replay"
)

func runAudit(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAudit(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	poolAddr, err := replay.ParseAddress(cfg.PoolAddress)
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	var assets []common.Address
	if len(cfg.Assets) > 0 {
		if assets, err = replay.ParseAddresses(cfg.Assets); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkpoints, _, closeStore, err := openCheckpoints(ctx, cfg.PGDSN, cfg.StateName, cfg.Checkpoint, true)
	if err != nil {
		return err
	}
	defer closeStore()

	cp, err := loadSnapshot(ctx, checkpoints)
	if err != nil {
		return err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	var block *big.Int
	if cfg.Block > 0 {
		block = new(big.Int).SetUint64(cfg.Block)
	} else {
		latest, err := client.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("latest block: %w", err)
		}
		block = new(big.Int).SetUint64(latest)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	logger.Info("audit start",
		zap.String("chain_id", chainID.String()),
		zap.String("pool", poolAddr.Hex()),
		zap.String("block", block.String()),
		zap.Uint64("last_seq", cp.LastSeq),
	)

	report, err := audit.Audit(ctx, client, cp.Snapshot, poolAddr, audit.Options{
		Block:        block,
		Assets:       assets,
		Meta:         client,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return report.Err()
}
