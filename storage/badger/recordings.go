package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// RecordingRepository implements storage.RecordingRepository for BadgerDB.
type RecordingRepository struct {
	backend *Backend
}

var _ storage.RecordingRepository = (*RecordingRepository)(nil)

// NewRecordingRepository creates a new RecordingRepository.
func NewRecordingRepository(backend *Backend) *RecordingRepository {
	return &RecordingRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *RecordingRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *RecordingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveRecording persists a recording, overwriting any prior state.
func (r *RecordingRepository) SaveRecording(ctx context.Context, rec *core.Recording) error {
	if err := core.ValidateRecording(rec); err != nil {
		return err
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		now := time.Now().UTC()
		if rec.InsertedAt.IsZero() {
			rec.InsertedAt = now
		}
		rec.UpdatedAt = now

		value, err := storage.MarshalRecording(rec)
		if err != nil {
			return err
		}
		return tx.Set(makeRecordingKey(rec.Id), value)
	})
}

// ListRecordings retrieves all recordings, most recently updated first.
func (r *RecordingRepository) ListRecordings(ctx context.Context) ([]*core.Recording, error) {
	var recs []*core.Recording
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordingPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				rec, err := storage.UnmarshalRecording(val)
				if err != nil {
					return err
				}
				recs = append(recs, rec)
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

	slices.SortFunc(recs, func(a, b *core.Recording) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return recs, nil
}

// GetRecording retrieves a recording by ID.
func (r *RecordingRepository) GetRecording(ctx context.Context, id string) (*core.Recording, error) {
	var rec *core.Recording
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordingKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			rec, unmarshalErr = storage.UnmarshalRecording(val)
			return unmarshalErr
		})
	})
	return rec, err
}
