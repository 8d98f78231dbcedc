package storage

import (
	"context"

	"github.com/poiesic/recollect/core"
)

// Repository provides common operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// JobRepository provides operations for managing processing jobs.
type JobRepository interface {
	Repository

	// SaveJob persists a job, overwriting any prior state for its ID.
	// Sets InsertedAt on first save and refreshes UpdatedAt on every save.
	SaveJob(ctx context.Context, job *core.Job) error

	// GetJob retrieves a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id string) (*core.Job, error)

	// ListJobs retrieves all jobs, most recently updated first.
	ListJobs(ctx context.Context) ([]*core.Job, error)
}

// RecordingRepository provides operations for managing recordings.
type RecordingRepository interface {
	Repository

	// SaveRecording persists a recording, overwriting any prior state.
	SaveRecording(ctx context.Context, rec *core.Recording) error

	// GetRecording retrieves a recording by ID.
	// Returns ErrNotFound if the recording doesn't exist.
	GetRecording(ctx context.Context, id string) (*core.Recording, error)

	// ListRecordings retrieves all recordings, most recently updated first.
	ListRecordings(ctx context.Context) ([]*core.Recording, error)
}

// CheckpointRepository provides durable per-(job, stage) intermediate
// results. At most one checkpoint exists per key; saves overwrite.
type CheckpointRepository interface {
	Repository

	// SaveCheckpoint overwrites any prior checkpoint for (JobId, Stage).
	// The write is durable before SaveCheckpoint returns.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for (jobID, stage).
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, jobID string, stage core.Stage) (*core.Checkpoint, error)

	// ClearCheckpoints removes every checkpoint belonging to the job.
	// Called only after full pipeline success.
	ClearCheckpoints(ctx context.Context, jobID string) error
}

// SpeakerRepository provides operations for managing speaker records.
type SpeakerRepository interface {
	Repository

	// AddSpeakers persists one speaker record per unique (recording, label)
	// pair. Re-adding an existing pair is a no-op.
	AddSpeakers(ctx context.Context, speakers ...*core.Speaker) error

	// GetSpeakers retrieves the speakers observed on a recording,
	// ordered by label.
	GetSpeakers(ctx context.Context, recordingID string) ([]*core.Speaker, error)
}

// ChunkRepository provides operations for the chunk/vector store.
type ChunkRepository interface {
	Repository

	// ReplaceEntityChunks atomically replaces the entity's entire chunk and
	// vector set with the given chunks. Used by the indexer's
	// compute-then-swap path: old chunks are deleted and new ones written in
	// a single transaction, so a failed recompute never leaves the entity
	// without indexed content.
	ReplaceEntityChunks(ctx context.Context, entityID string, chunks []*core.Chunk) error

	// GetChunks retrieves an entity's chunks ordered by (content type, ordinal).
	GetChunks(ctx context.Context, entityID string) ([]*core.Chunk, error)

	// FindSimilar scans stored vectors and returns up to limit chunks inside
	// the scope, ordered by cosine similarity to the query vector (highest
	// first). Assumes stored and query vectors are normalized.
	FindSimilar(ctx context.Context, vector []float32, scope core.Scope, limit int) ([]*core.ScoredChunk, error)
}

// ConfigRepository manages the active embedding configuration.
type ConfigRepository interface {
	Repository

	// SetActiveConfig makes the given configuration the active one.
	// Existing vectors keep the configuration that produced them.
	SetActiveConfig(ctx context.Context, cfg *core.EmbeddingConfig) error

	// ActiveConfig returns the active configuration.
	// Returns ErrNotFound when none has been configured.
	ActiveConfig(ctx context.Context) (*core.EmbeddingConfig, error)
}

// TranscriptCacheRepository caches per-run transcription results keyed by a
// composite content fingerprint, so identical re-runs skip model invocation.
type TranscriptCacheRepository interface {
	Repository

	// PutTranscription stores segments under the cache key.
	PutTranscription(ctx context.Context, key core.ID, segments []core.TranscriptSegment) error

	// GetTranscription retrieves cached segments.
	// Returns nil, nil on a cache miss.
	GetTranscription(ctx context.Context, key core.ID) ([]core.TranscriptSegment, error)
}
