package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) *JobRepository {
	return &JobRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *JobRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *JobRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveJob persists a job, overwriting any prior state for its ID.
func (r *JobRepository) SaveJob(ctx context.Context, job *core.Job) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		now := time.Now().UTC()
		if job.InsertedAt.IsZero() {
			job.InsertedAt = now
		}
		job.UpdatedAt = now

		value, err := storage.MarshalJob(job)
		if err != nil {
			return err
		}
		return tx.Set(makeJobKey(job.Id), value)
	})
}

// GetJob retrieves a job by ID.
func (r *JobRepository) GetJob(ctx context.Context, id string) (*core.Job, error) {
	var job *core.Job
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get(makeJobKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			job, unmarshalErr = storage.UnmarshalJob(val)
			return unmarshalErr
		})
	})
	return job, err
}

// ListJobs retrieves all jobs, most recently updated first.
func (r *JobRepository) ListJobs(ctx context.Context) ([]*core.Job, error) {
	var jobs []*core.Job
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				job, err := storage.UnmarshalJob(val)
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(jobs, func(a, b *core.Job) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return jobs, nil
}
