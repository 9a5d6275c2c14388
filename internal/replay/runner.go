package replay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"multipool/internal/model"
	"multipool/internal/pool"
	"multipool/internal/retry"
	"multipool/internal/storage"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	BatchSize         int
	StopOnError       bool
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Summary counts what a replay did.
type Summary struct {
	Applied int
	Failed  int
	Skipped int
	LastSeq uint64
}

// Runner applies a journal to a pool and records every outcome.
type Runner struct {
	cfg         RunConfig
	pool        *pool.Pool
	storage     storage.Storage
	checkpoints storage.CheckpointStore
	logger      *zap.Logger
	now         func() time.Time
}

// NewRunner builds a Runner with its dependencies. checkpoints may be nil.
func NewRunner(cfg RunConfig, p *pool.Pool, sink storage.Storage, checkpoints storage.CheckpointStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:         cfg,
		pool:        p,
		storage:     sink,
		checkpoints: checkpoints,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Pool returns the pool the runner applies to. After a resume this is the
// pool restored from the checkpoint.
func (r *Runner) Pool() *pool.Pool {
	return r.pool
}

// Run replays ops in order, skipping those already covered by the checkpoint.
func (r *Runner) Run(ctx context.Context, ops []model.Operation) (Summary, error) {
	var summary Summary
	if r.pool == nil {
		return summary, fmt.Errorf("pool is nil")
	}
	if r.storage == nil {
		return summary, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize <= 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}

	if err := r.resume(ctx, &summary); err != nil {
		return summary, err
	}

	start := 0
	for start < len(ops) && ops[start].Seq <= summary.LastSeq {
		start++
	}
	summary.Skipped = start
	if start == len(ops) {
		r.logger.Info("nothing to replay", zap.Uint64("last_seq", summary.LastSeq), zap.Int("ops", len(ops)))
		return summary, nil
	}

	spans, err := SplitSpans(start, len(ops)-1, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, span := range spans {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		results := make([]model.OperationResult, 0, span.To-span.From+1)
		var stopErr error
		for _, op := range ops[span.From : span.To+1] {
			result, err := r.apply(op)
			results = append(results, result)
			if err != nil {
				summary.Failed++
				r.logger.Warn("operation failed", zap.Uint64("seq", op.Seq), zap.String("op", op.Op), zap.Error(err))
				if r.cfg.StopOnError {
					stopErr = fmt.Errorf("seq %d (%s): %w", op.Seq, op.Op, err)
					break
				}
			} else {
				summary.Applied++
			}
			summary.LastSeq = op.Seq
		}

		if err := r.flush(ctx, results, summary.LastSeq); err != nil {
			return summary, err
		}
		if stopErr != nil {
			return summary, stopErr
		}

		r.logger.Info("batch complete",
			zap.Int("ops", len(results)),
			zap.Uint64("from_seq", ops[span.From].Seq),
			zap.Uint64("to_seq", ops[span.To].Seq),
		)
	}

	return summary, nil
}

func (r *Runner) resume(ctx context.Context, summary *Summary) error {
	if r.checkpoints == nil || !r.cfg.CheckpointEnabled {
		return nil
	}

	var (
		cp model.Checkpoint
		ok bool
	)
	err := retry.Do(ctx, r.retryPolicy("load checkpoint"), func(ctx context.Context) error {
		var err error
		cp, ok, err = r.checkpoints.Load(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return nil
	}

	restored, err := pool.Restore(cp.Snapshot, r.logger)
	if err != nil {
		return fmt.Errorf("restore checkpoint: %w", err)
	}
	r.pool = restored
	summary.LastSeq = cp.LastSeq
	r.logger.Info("resume from checkpoint", zap.Uint64("last_seq", cp.LastSeq), zap.String("updated_at", cp.UpdatedAt))
	return nil
}

func (r *Runner) retryPolicy(op string) retry.Policy {
	return retry.Policy{
		MaxRetries: r.cfg.MaxRetries,
		Backoff:    r.cfg.RetryBackoff,
		Op:         op,
		Logger:     r.logger,
	}
}

func (r *Runner) apply(op model.Operation) (model.OperationResult, error) {
	outputs, err := Apply(r.pool, op)

	result := model.OperationResult{
		Seq:       op.Seq,
		Op:        op.Op,
		Status:    model.StatusOK,
		Outputs:   outputs,
		AppliedAt: r.now().Format(time.RFC3339Nano),
	}
	if err != nil {
		result.Status = model.StatusFailed
		result.Error = err.Error()
		result.Outputs = nil
	}

	supply := r.pool.TotalSupply()
	result.TotalSupply = supply.Dec()
	if total, totalErr := r.pool.TotalUsd(); totalErr == nil {
		result.TotalUsd = total.Dec()
	}
	return result, err
}

func (r *Runner) flush(ctx context.Context, results []model.OperationResult, lastSeq uint64) error {
	err := retry.Do(ctx, r.retryPolicy("store results"), func(ctx context.Context) error {
		return r.storage.PutResultBatch(ctx, results)
	})
	if err != nil {
		return fmt.Errorf("store results: %w", err)
	}

	if r.checkpoints == nil || !r.cfg.CheckpointEnabled {
		return nil
	}
	cp := model.Checkpoint{
		LastSeq:   lastSeq,
		Snapshot:  r.pool.Snapshot(),
		UpdatedAt: r.now().Format(time.RFC3339Nano),
	}
	err = retry.Do(ctx, r.retryPolicy("save checkpoint"), func(ctx context.Context) error {
		return r.checkpoints.Save(ctx, cp)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
