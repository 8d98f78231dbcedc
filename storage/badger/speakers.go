package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// SpeakerRepository implements storage.SpeakerRepository for BadgerDB.
type SpeakerRepository struct {
	backend *Backend
}

var _ storage.SpeakerRepository = (*SpeakerRepository)(nil)

// NewSpeakerRepository creates a new SpeakerRepository.
func NewSpeakerRepository(backend *Backend) *SpeakerRepository {
	return &SpeakerRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *SpeakerRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *SpeakerRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSpeakers persists one speaker record per unique (recording, label).
// IDs are content-derived, so re-adding an existing pair overwrites the
// same key and stays a single record.
func (r *SpeakerRepository) AddSpeakers(ctx context.Context, speakers ...*core.Speaker) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, speaker := range speakers {
			if speaker.RecordingId == "" || speaker.Label == "" {
				return storage.ErrInvalidQuery
			}
			speaker.Id = core.IDFromContent(speaker.RecordingId + ":" + speaker.Label)
			if speaker.InsertedAt.IsZero() {
				speaker.InsertedAt = time.Now().UTC()
			}
			value, err := storage.MarshalSpeaker(speaker)
			if err != nil {
				return err
			}
			if err := tx.Set(makeSpeakerKey(speaker.RecordingId, speaker.Id), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSpeakers retrieves the speakers observed on a recording, ordered by label.
func (r *SpeakerRepository) GetSpeakers(ctx context.Context, recordingID string) ([]*core.Speaker, error) {
	var speakers []*core.Speaker
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSpeakerScanKey(recordingID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				speaker, err := storage.UnmarshalSpeaker(val)
				if err != nil {
					return err
				}
				speakers = append(speakers, speaker)
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

	slices.SortFunc(speakers, func(a, b *core.Speaker) int {
		return strings.Compare(a.Label, b.Label)
	})
	return speakers, nil
}
