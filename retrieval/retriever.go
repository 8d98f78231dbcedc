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


package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/index"
	"github.com/poiesic/recollect/storage"
)

// DefaultTopK is the result cap applied when the caller asks for zero
// or negative hits.
const DefaultTopK = 8

// Retriever embeds queries and ranks stored chunks by cosine similarity.
type Retriever struct {
	chunks   storage.ChunkRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(chunks storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		chunks:   chunks,
		embedder: embedder,
		logger:   slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Search returns up to topK chunks matching the query within scope,
// ranked by similarity descending. Chunks embedded under a different
// configuration than the query simply score low rather than erroring;
// the scope filter is the caller's lever for precision.
func (r *Retriever) Search(ctx context.Context, query string, scope core.Scope, topK int) ([]*core.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	results, err := r.chunks.FindSimilar(ctx, index.NormalizeVector(vector), scope, topK)
	if err != nil {
		r.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	r.logger.Debug("search complete", "query_length", len(query), "hits", len(results))
	return results, nil
}
