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


package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/runner"
	"github.com/poiesic/recollect/storage"
)

// DefaultBatchSize is how many chunks are embedded per API call.
const DefaultBatchSize = 32

// EmbedderResolver maps an embedding configuration to a live embedder.
type EmbedderResolver func(ctx context.Context, cfg *core.EmbeddingConfig) (ai.Embedder, error)

// Indexer computes embeddings for a recording's chunks and swaps them
// into the store. The old chunk set stays searchable until the entire
// new set is ready; a failed run leaves the store untouched.
type Indexer struct {
	chunks    storage.ChunkRepository
	configs   storage.ConfigRepository
	resolver  EmbedderResolver
	chunker   *Chunker
	batchSize int
	policy    runner.RetryPolicy
	logger    *slog.Logger
}

// IndexerOption is a functional option for configuring an Indexer.
type IndexerOption func(*Indexer)

// WithChunker overrides the default chunker.
func WithChunker(chunker *Chunker) IndexerOption {
	return func(ix *Indexer) {
		if chunker != nil {
			ix.chunker = chunker
		}
	}
}

// WithBatchSize sets how many chunks are embedded per call.
func WithBatchSize(size int) IndexerOption {
	return func(ix *Indexer) {
		if size > 0 {
			ix.batchSize = size
		}
	}
}

// WithIndexRetryPolicy overrides the retry policy for embedding calls.
func WithIndexRetryPolicy(policy runner.RetryPolicy) IndexerOption {
	return func(ix *Indexer) {
		ix.policy = policy
	}
}

// NewIndexer creates an indexer over the given repositories. resolver is
// called once per run with the active embedding configuration.
func NewIndexer(
	chunks storage.ChunkRepository,
	configs storage.ConfigRepository,
	resolver EmbedderResolver,
	opts ...IndexerOption,
) (*Indexer, error) {
	if chunks == nil || configs == nil {
		return nil, ErrRepositoryRequired
	}
	if resolver == nil {
		return nil, ErrEmbedderRequired
	}

	ix := &Indexer{
		chunks:    chunks,
		configs:   configs,
		resolver:  resolver,
		chunker:   NewChunker(),
		batchSize: DefaultBatchSize,
		policy:    runner.DefaultRetryPolicy(),
		logger:    slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// IndexRecording chunks and embeds rec's content, then atomically
// replaces its stored chunk set. A recording with no indexable content
// still swaps, clearing any chunks from a previous version.
func (ix *Indexer) IndexRecording(ctx context.Context, rec *core.Recording) error {
	cfg, err := ix.configs.ActiveConfig(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoActiveConfig
		}
		return err
	}

	embedder, err := ix.resolver(ctx, cfg)
	if err != nil {
		return fmt.Errorf("resolving embedder for %s: %w", cfg.Key(), err)
	}

	chunks := ix.chunker.ChunkRecording(rec)
	ix.logger.Debug("chunked recording",
		"recording_id", rec.Id,
		"chunks", len(chunks),
		"config", cfg.Key())

	for start := 0; start < len(chunks); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := ix.embedBatch(ctx, embedder, cfg, chunks[start:end]); err != nil {
			return err
		}
	}

	// Compute-then-swap: the store is only touched after every vector
	// is ready.
	if err := ix.chunks.ReplaceEntityChunks(ctx, rec.Id, chunks); err != nil {
		return fmt.Errorf("replacing chunks for %s: %w", rec.Id, err)
	}

	ix.logger.Info("indexed recording", "recording_id", rec.Id, "chunks", len(chunks))
	return nil
}

// embedBatch fills in vectors for one batch of chunks.
func (ix *Indexer) embedBatch(ctx context.Context, embedder ai.Embedder, cfg *core.EmbeddingConfig, batch []*core.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err := runner.RetryWithBackoff(ctx, ix.policy, ix.logger, func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = embedder.EmbedTexts(ctx, texts)
		return embedErr
	})
	if err != nil {
		return fmt.Errorf("embedding batch of %d: %w", len(batch), err)
	}

	if len(vectors) != len(batch) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
	}

	for i, vector := range vectors {
		if len(vector) != cfg.Dimension {
			return fmt.Errorf("%w: config %s expects %d, embedder produced %d",
				core.ErrDimensionMismatch, cfg.Key(), cfg.Dimension, len(vector))
		}
		batch[i].Vector = NormalizeVector(vector)
		batch[i].ConfigId = cfg.Id
	}
	return nil
}
