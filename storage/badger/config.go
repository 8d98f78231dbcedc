package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// ConfigRepository implements storage.ConfigRepository for BadgerDB.
// A single key holds the active embedding configuration; historical
// configurations survive only as ConfigId references on stored chunks.
type ConfigRepository struct {
	backend *Backend
}

var _ storage.ConfigRepository = (*ConfigRepository)(nil)

// NewConfigRepository creates a new ConfigRepository.
func NewConfigRepository(backend *Backend) *ConfigRepository {
	return &ConfigRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ConfigRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ConfigRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SetActiveConfig makes the given configuration the active one.
func (r *ConfigRepository) SetActiveConfig(ctx context.Context, cfg *core.EmbeddingConfig) error {
	if cfg == nil || cfg.Provider == "" || cfg.Model == "" || cfg.Dimension <= 0 {
		return storage.ErrInvalidQuery
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		cfg.Id = core.IDFromContent(cfg.Key())
		if cfg.InsertedAt.IsZero() {
			cfg.InsertedAt = time.Now().UTC()
		}
		value, err := storage.MarshalEmbeddingConfig(cfg)
		if err != nil {
			return err
		}
		return tx.Set([]byte(configKey), value)
	})
}

// ActiveConfig returns the active configuration, or ErrNotFound when none
// has been configured.
func (r *ConfigRepository) ActiveConfig(ctx context.Context) (*core.EmbeddingConfig, error) {
	var cfg *core.EmbeddingConfig
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(configKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			cfg, unmarshalErr = storage.UnmarshalEmbeddingConfig(val)
			return unmarshalErr
		})
	})
	return cfg, err
}
