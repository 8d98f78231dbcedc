package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// ReplaceEntityChunks atomically replaces the entity's chunk set.
// Deletion of the old set and insertion of the new one commit together, so
// readers never observe the entity with partial content.
func (r *ChunkRepository) ReplaceEntityChunks(ctx context.Context, entityID string, chunks []*core.Chunk) error {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkScanKey(entityID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var stale [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			stale = append(stale, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range stale {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for _, chunk := range chunks {
			if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = now
			}
			value, err := storage.MarshalChunk(chunk)
			if err != nil {
				return err
			}
			if err := tx.Set(makeChunkKey(entityID, chunk.Id), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetChunks retrieves an entity's chunks ordered by (content type, ordinal).
func (r *ChunkRepository) GetChunks(ctx context.Context, entityID string) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkScanKey(entityID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				chunks = append(chunks, chunk)
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

	slices.SortFunc(chunks, func(a, b *core.Chunk) int {
		if a.ContentType != b.ContentType {
			if a.ContentType < b.ContentType {
				return -1
			}
			return 1
		}
		return a.Ordinal - b.Ordinal
	})
	return chunks, nil
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, scope core.Scope, limit int) ([]*core.ScoredChunk, error) {
	return r.backend.FindSimilar(ctx, vector, scope, limit)
}
