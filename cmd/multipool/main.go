package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "multipool",
		Short:        "Multi-asset pool pricing and accounting engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay an operation journal against the pool",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "", "input operation journal JSONL")
	simulateCmd.Flags().String("out", "./data/results.jsonl", "output results JSONL")
	simulateCmd.Flags().Int("batch-size", 500, "operations per batch")
	simulateCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	simulateCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN for results and checkpoints")
	simulateCmd.Flags().String("state-name", "default", "checkpoint name in Postgres")
	simulateCmd.Flags().Bool("stop-on-error", false, "stop at the first failed operation")
	simulateCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	simulateCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Estimate one operation against a checkpoint without changing it",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	quoteCmd.Flags().String("pg-dsn", "", "Postgres DSN to read the checkpoint from")
	quoteCmd.Flags().String("state-name", "default", "checkpoint name in Postgres")
	quoteCmd.Flags().String("op", "mint", "mint, mint-exact-in, mint-amount-in, burn, burn-exact-out, swap, swap-exact-in or swap-exact-out")
	quoteCmd.Flags().String("asset", "", "asset in (mint, swap) or out (burn)")
	quoteCmd.Flags().String("asset-out", "", "asset out for swaps")
	quoteCmd.Flags().String("shares", "", "shares or shares-equivalent")
	quoteCmd.Flags().String("amount", "", "deposit for mint/swap, amount for exact-in/out")
	quoteCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare checkpoint balances with on-chain ERC20 balances",
		RunE:  runAudit,
	}

	auditCmd.Flags().String("rpc", "", "RPC URL")
	auditCmd.Flags().String("pool", "", "pool contract address holding the assets")
	auditCmd.Flags().Uint64("block", 0, "block number, 0 means latest")
	auditCmd.Flags().StringSlice("asset", nil, "assets to audit (comma-separated), default all")
	auditCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	auditCmd.Flags().String("pg-dsn", "", "Postgres DSN to read the checkpoint from")
	auditCmd.Flags().String("state-name", "default", "checkpoint name in Postgres")
	auditCmd.Flags().Int("max-retries", 3, "maximum retry attempts")
	auditCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	auditCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(auditCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
