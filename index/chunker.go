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
	"fmt"
	"strings"

	"github.com/poiesic/recollect/core"
)

// Default chunking geometry. Windows of 220 words with 40 words of
// overlap keep each chunk within embedding-model comfort while adjacent
// windows share enough context for boundary-straddling queries.
const (
	DefaultChunkWindow  = 220
	DefaultChunkOverlap = 40
)

// Chunker splits recording content into overlapping word windows.
type Chunker struct {
	window  int
	overlap int
}

// ChunkerOption is a functional option for configuring a Chunker.
type ChunkerOption func(*Chunker)

// WithWindow overrides the window size in words.
func WithWindow(words int) ChunkerOption {
	return func(c *Chunker) {
		if words > 0 {
			c.window = words
		}
	}
}

// WithOverlap overrides the overlap in words. Overlap is clamped below
// the window size so every chunk makes forward progress.
func WithOverlap(words int) ChunkerOption {
	return func(c *Chunker) {
		if words >= 0 {
			c.overlap = words
		}
	}
}

// NewChunker creates a chunker with the default window geometry.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		window:  DefaultChunkWindow,
		overlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.window {
		c.overlap = c.window / 2
	}
	return c
}

// Chunk splits text into windows for one entity and content type.
// Ordinals run 0..n-1 in emission order. Empty or whitespace-only text
// yields no chunks.
func (c *Chunker) Chunk(entityID string, contentType core.ContentType, text string) []*core.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := c.window - c.overlap
	var chunks []*core.Chunk
	for start := 0; ; start += stride {
		end := start + c.window
		if end > len(words) {
			end = len(words)
		}

		chunkText := strings.Join(words[start:end], " ")
		ordinal := len(chunks)
		chunks = append(chunks, &core.Chunk{
			Id:          chunkID(entityID, contentType, ordinal, chunkText),
			EntityId:    entityID,
			ContentType: contentType,
			Ordinal:     ordinal,
			Text:        chunkText,
		})

		if end == len(words) {
			break
		}
	}
	return chunks
}

// ChunkRecording emits chunks for every indexable content surface of a
// recording: the transcript, freeform notes, and action items. Action
// items are aggregated into a single bullet-list chunk so an item is
// never split from its owner; when the aggregate exceeds the window it
// falls back to regular windowing.
func (c *Chunker) ChunkRecording(rec *core.Recording) []*core.Chunk {
	var chunks []*core.Chunk
	chunks = append(chunks, c.Chunk(rec.Id, core.ContentTranscript, rec.Transcript)...)
	chunks = append(chunks, c.Chunk(rec.Id, core.ContentNotes, rec.Notes)...)

	if len(rec.ActionItems) > 0 {
		bullets := make([]string, len(rec.ActionItems))
		for i, item := range rec.ActionItems {
			bullets[i] = formatActionItem(item)
		}
		aggregate := strings.Join(bullets, "\n")
		chunks = append(chunks, c.Chunk(rec.Id, core.ContentActionItems, aggregate)...)
	}
	return chunks
}

// formatActionItem renders one action item as a bullet line.
func formatActionItem(item core.ActionItem) string {
	line := "- " + item.Task
	if item.Owner != "" {
		line += " (owner: " + item.Owner + ")"
	}
	if item.DueDate != "" {
		line += " (due: " + item.DueDate + ")"
	}
	return line
}

// chunkID derives a stable content-addressed chunk identifier.
func chunkID(entityID string, contentType core.ContentType, ordinal int, text string) core.ID {
	return core.IDFromContent(fmt.Sprintf("%s:%s:%d:%s", entityID, contentType, ordinal, text))
}
