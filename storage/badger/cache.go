package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// TranscriptCacheRepository implements storage.TranscriptCacheRepository.
// Entries are keyed by a composite fingerprint of audio content, segment
// list, and model parameters; they are not checkpoints and survive job
// completion.
type TranscriptCacheRepository struct {
	backend *Backend
}

var _ storage.TranscriptCacheRepository = (*TranscriptCacheRepository)(nil)

// NewTranscriptCacheRepository creates a new TranscriptCacheRepository.
func NewTranscriptCacheRepository(backend *Backend) *TranscriptCacheRepository {
	return &TranscriptCacheRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *TranscriptCacheRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *TranscriptCacheRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutTranscription stores segments under the cache key.
func (r *TranscriptCacheRepository) PutTranscription(ctx context.Context, key core.ID, segments []core.TranscriptSegment) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		value, err := storage.MarshalSegments(segments)
		if err != nil {
			return err
		}
		return tx.Set(makeTranscriptCacheKey(key), value)
	})
}

// GetTranscription retrieves cached segments. Returns nil, nil on a miss.
func (r *TranscriptCacheRepository) GetTranscription(ctx context.Context, key core.ID) ([]core.TranscriptSegment, error) {
	var segments []core.TranscriptSegment
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get(makeTranscriptCacheKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			segments, unmarshalErr = storage.UnmarshalSegments(val)
			return unmarshalErr
		})
	})
	return segments, err
}
