package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"multipool/internal/model"
)

// Schema creates the tables the store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS operation_results (
	run_name     TEXT        NOT NULL,
	seq          BIGINT      NOT NULL,
	op           TEXT        NOT NULL,
	status       TEXT        NOT NULL,
	error        TEXT,
	outputs      JSONB,
	total_supply NUMERIC(78, 0) NOT NULL,
	total_usd    NUMERIC(78, 0),
	applied_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_name, seq)
);

CREATE TABLE IF NOT EXISTS multipool_state (
	name         TEXT PRIMARY KEY,
	last_seq     BIGINT      NOT NULL,
	params       JSONB       NOT NULL,
	total_supply NUMERIC(78, 0) NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS multipool_assets (
	name                TEXT    NOT NULL REFERENCES multipool_state (name) ON DELETE CASCADE,
	position            INTEGER NOT NULL,
	address             TEXT    NOT NULL,
	quantity            NUMERIC(78, 0) NOT NULL,
	price               NUMERIC(78, 0) NOT NULL,
	percent             NUMERIC(78, 0) NOT NULL,
	collected_fees      NUMERIC(78, 0) NOT NULL,
	collected_cashbacks NUMERIC(78, 0) NOT NULL,
	held                NUMERIC(78, 0) NOT NULL,
	PRIMARY KEY (name, address)
);
`

// Store provides Postgres persistence for replay results and checkpoints.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// UpsertResults inserts or replaces results for a run.
func (s *Store) UpsertResults(ctx context.Context, runName string, results []model.OperationResult) error {
	if runName == "" {
		return fmt.Errorf("run name required")
	}
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		var outputs []byte
		if len(r.Outputs) > 0 {
			data, err := json.Marshal(r.Outputs)
			if err != nil {
				return fmt.Errorf("marshal outputs %d: %w", r.Seq, err)
			}
			outputs = data
		}
		batch.Queue(`
			INSERT INTO operation_results (
				run_name, seq, op, status, error, outputs, total_supply, total_usd, applied_at
			) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7::numeric, NULLIF($8, '')::numeric, $9::timestamptz)
			ON CONFLICT (run_name, seq)
			DO UPDATE SET
				op = EXCLUDED.op,
				status = EXCLUDED.status,
				error = EXCLUDED.error,
				outputs = EXCLUDED.outputs,
				total_supply = EXCLUDED.total_supply,
				total_usd = EXCLUDED.total_usd,
				applied_at = EXCLUDED.applied_at
		`,
			runName,
			int64(r.Seq),
			r.Op,
			r.Status,
			r.Error,
			outputs,
			r.TotalSupply,
			r.TotalUsd,
			r.AppliedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadCheckpoint returns the checkpoint stored under name.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (model.Checkpoint, bool, error) {
	if name == "" {
		return model.Checkpoint{}, false, fmt.Errorf("state name required")
	}

	var (
		cp       model.Checkpoint
		lastSeq  int64
		params   []byte
		supply   string
		updateAt string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT last_seq, params, total_supply::text, to_char(updated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"')
		FROM multipool_state WHERE name=$1
	`, name)
	if err := row.Scan(&lastSeq, &params, &supply, &updateAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Checkpoint{}, false, nil
		}
		return model.Checkpoint{}, false, err
	}
	if err := json.Unmarshal(params, &cp.Snapshot.Params); err != nil {
		return model.Checkpoint{}, false, fmt.Errorf("decode params: %w", err)
	}
	cp.LastSeq = uint64(lastSeq)
	cp.Snapshot.TotalSupply = supply
	cp.UpdatedAt = updateAt

	rows, err := s.pool.Query(ctx, `
		SELECT address, quantity::text, price::text, percent::text,
			collected_fees::text, collected_cashbacks::text, held::text
		FROM multipool_assets WHERE name=$1 ORDER BY position
	`, name)
	if err != nil {
		return model.Checkpoint{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.AssetState
		if err := rows.Scan(&a.Address, &a.Quantity, &a.Price, &a.Percent, &a.CollectedFees, &a.CollectedCashbacks, &a.Held); err != nil {
			return model.Checkpoint{}, false, err
		}
		cp.Snapshot.Assets = append(cp.Snapshot.Assets, a)
	}
	if err := rows.Err(); err != nil {
		return model.Checkpoint{}, false, err
	}
	return cp, true, nil
}

// SaveCheckpoint replaces the checkpoint stored under name in one transaction.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, cp model.Checkpoint) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	params, err := json.Marshal(cp.Snapshot.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO multipool_state (name, last_seq, params, total_supply, updated_at)
		VALUES ($1, $2, $3, $4::numeric, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq,
			params = EXCLUDED.params,
			total_supply = EXCLUDED.total_supply,
			updated_at = now()
	`, name, int64(cp.LastSeq), params, cp.Snapshot.TotalSupply)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM multipool_assets WHERE name=$1`, name); err != nil {
		return fmt.Errorf("clear assets: %w", err)
	}

	if len(cp.Snapshot.Assets) > 0 {
		batch := &pgx.Batch{}
		for i, a := range cp.Snapshot.Assets {
			batch.Queue(`
				INSERT INTO multipool_assets (
					name, position, address, quantity, price, percent, collected_fees, collected_cashbacks, held
				) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric)
			`,
				name,
				i,
				a.Address,
				a.Quantity,
				a.Price,
				a.Percent,
				a.CollectedFees,
				a.CollectedCashbacks,
				a.Held,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range cp.Snapshot.Assets {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert asset: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Results binds the store to one run for use as a result sink.
func (s *Store) Results(runName string) *ResultSink {
	return &ResultSink{store: s, runName: runName}
}

// Checkpoints binds the store to one state name for use as a checkpoint store.
func (s *Store) Checkpoints(name string) *CheckpointStore {
	return &CheckpointStore{store: s, name: name}
}

type ResultSink struct {
	store   *Store
	runName string
}

func (r *ResultSink) PutResultBatch(ctx context.Context, results []model.OperationResult) error {
	return r.store.UpsertResults(ctx, r.runName, results)
}

type CheckpointStore struct {
	store *Store
	name  string
}

func (c *CheckpointStore) Load(ctx context.Context) (model.Checkpoint, bool, error) {
	return c.store.LoadCheckpoint(ctx, c.name)
}

func (c *CheckpointStore) Save(ctx context.Context, cp model.Checkpoint) error {
	return c.store.SaveCheckpoint(ctx, c.name, cp)
}
