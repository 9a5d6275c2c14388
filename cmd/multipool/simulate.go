package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"multipool/internal/config"
	"multipool/internal/replay"
	"multipool/internal/storage"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input journal is required")
	}

	ops, err := replay.ReadJournalFile(cfg.Input)
	if err != nil {
		return err
	}

	p, err := buildPool(cfg.Pool, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkpoints, pg, closeStore, err := openCheckpoints(ctx, cfg.PGDSN, cfg.StateName, cfg.Checkpoint, cfg.CheckpointEnabled)
	if err != nil {
		return err
	}
	defer closeStore()

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	if pg != nil {
		sinks = append(sinks, pg.Results(cfg.StateName))
	}

	runner := replay.NewRunner(replay.RunConfig{
		BatchSize:         cfg.BatchSize,
		StopOnError:       cfg.StopOnError,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, p, sinks, checkpoints, logger)

	logger.Info("simulate start",
		zap.String("in", cfg.Input),
		zap.Int("ops", len(ops)),
		zap.Int("assets", len(cfg.Pool.Assets)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", pg != nil),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	summary, err := runner.Run(ctx, ops)
	logger.Info("simulate done",
		zap.Int("applied", summary.Applied),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Uint64("last_seq", summary.LastSeq),
	)
	return err
}
