package storage

import (
	"context"

	"multipool/internal/model"
)

// Storage defines a sink for operation results.
type Storage interface {
	PutResultBatch(ctx context.Context, results []model.OperationResult) error
}

// CheckpointStore persists the pool snapshot together with the last journal
// sequence applied to it.
type CheckpointStore interface {
	Load(ctx context.Context) (model.Checkpoint, bool, error)
	Save(ctx context.Context, cp model.Checkpoint) error
}

// Multi fans a batch out to every sink in order and stops at the first error.
type Multi []Storage

func (m Multi) PutResultBatch(ctx context.Context, results []model.OperationResult) error {
	for _, s := range m {
		if err := s.PutResultBatch(ctx, results); err != nil {
			return err
		}
	}
	return nil
}
