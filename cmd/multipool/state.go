package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"multipool/internal/config"
	"multipool/internal/fixedpoint"
	"multipool/internal/model"
	"multipool/internal/pool"
	"multipool/internal/poolmath"
	"multipool/internal/replay"
	"multipool/internal/storage"
	"multipool/internal/storage/postgres"
)

// buildPool creates the starting pool from configured params and assets.
func buildPool(cfg config.PoolConfig, logger *zap.Logger) (*pool.Pool, error) {
	params, err := poolmath.ParamsFromState(cfg.ParamsState())
	if err != nil {
		return nil, fmt.Errorf("pool params: %w", err)
	}
	p, err := pool.New(params, logger)
	if err != nil {
		return nil, err
	}

	for _, a := range cfg.Assets {
		addr, err := replay.ParseAddress(a.Address)
		if err != nil {
			return nil, err
		}
		price, err := fixedpoint.ParseDecimal(a.Price)
		if err != nil {
			return nil, fmt.Errorf("asset %s price: %w", a.Address, err)
		}
		percent, err := fixedpoint.ParseDecimal(a.Percent)
		if err != nil {
			return nil, fmt.Errorf("asset %s percent: %w", a.Address, err)
		}
		p.UpdatePrice(addr, price)
		p.UpdateAssetPercents(addr, percent)
	}
	return p, nil
}

// openCheckpoints returns the Postgres checkpoint store when dsn is set,
// otherwise the file store. The returned close func is never nil.
func openCheckpoints(ctx context.Context, dsn, stateName, path string, enabled bool) (storage.CheckpointStore, *postgres.Store, func(), error) {
	if dsn == "" {
		return storage.NewFileCheckpointStore(path, enabled), nil, func() {}, nil
	}
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store.Checkpoints(stateName), store, store.Close, nil
}

// loadSnapshot reads the latest checkpoint; a missing one is an error.
func loadSnapshot(ctx context.Context, checkpoints storage.CheckpointStore) (model.Checkpoint, error) {
	cp, ok, err := checkpoints.Load(ctx)
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return model.Checkpoint{}, fmt.Errorf("no checkpoint found; run simulate first")
	}
	return cp, nil
}
