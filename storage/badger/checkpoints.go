// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// CheckpointRepository implements storage.CheckpointRepository for BadgerDB.
// Checkpoints are scoped per job; stages never share a key.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *CheckpointRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *CheckpointRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveCheckpoint overwrites any prior checkpoint for (JobId, Stage).
// The transaction commit makes the write durable before the stage is
// considered complete.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		checkpoint.UpdatedAt = time.Now().UTC()
		value, err := storage.MarshalCheckpoint(checkpoint)
		if err != nil {
			return err
		}
		return tx.Set(makeCheckpointKey(checkpoint.JobId, checkpoint.Stage), value)
	})
}

// LoadCheckpoint retrieves the checkpoint for (jobID, stage).
// Returns nil, nil if no checkpoint exists.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, jobID string, stage core.Stage) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(jobID, stage))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			checkpoint, unmarshalErr = storage.UnmarshalCheckpoint(val)
			return unmarshalErr
		})
	})
	return checkpoint, err
}

// ClearCheckpoints removes every checkpoint belonging to the job.
func (r *CheckpointRepository) ClearCheckpoints(ctx context.Context, jobID string) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCheckpointScanKey(jobID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
