package index

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recollect/core"
)

func wordsOfLength(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	chunker := NewChunker()
	chunks := chunker.Chunk("rec-1", core.ContentTranscript, wordsOfLength(100))

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Len(t, strings.Fields(chunks[0].Text), 100)
}

func TestChunker_WindowAndOverlap(t *testing.T) {
	chunker := NewChunker()
	// 400 words: window 220 stride 180 -> [0,220), [180,400)
	chunks := chunker.Chunk("rec-1", core.ContentTranscript, wordsOfLength(400))

	require.Len(t, chunks, 2)
	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	assert.Len(t, first, 220)
	assert.Len(t, second, 220)

	// Last 40 words of the first window open the second.
	assert.Equal(t, first[180:], second[:40])
	assert.Equal(t, "w399", second[len(second)-1])

	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, 1, chunks[1].Ordinal)
}

func TestChunker_ExactWindowNoTrailingChunk(t *testing.T) {
	chunker := NewChunker()
	chunks := chunker.Chunk("rec-1", core.ContentTranscript, wordsOfLength(220))
	assert.Len(t, chunks, 1)
}

func TestChunker_EmptyText(t *testing.T) {
	chunker := NewChunker()
	assert.Empty(t, chunker.Chunk("rec-1", core.ContentTranscript, ""))
	assert.Empty(t, chunker.Chunk("rec-1", core.ContentTranscript, "   \n\t "))
}

func TestChunker_StableIDs(t *testing.T) {
	chunker := NewChunker()
	a := chunker.Chunk("rec-1", core.ContentTranscript, "same words here")
	b := chunker.Chunk("rec-1", core.ContentTranscript, "same words here")
	c := chunker.Chunk("rec-2", core.ContentTranscript, "same words here")

	assert.Equal(t, a[0].Id, b[0].Id)
	assert.NotEqual(t, a[0].Id, c[0].Id)
}

func TestChunker_ChunkRecording(t *testing.T) {
	chunker := NewChunker()
	rec := &core.Recording{
		Id:         "rec-1",
		Transcript: wordsOfLength(400),
		Notes:      "short prep notes",
		ActionItems: []core.ActionItem{
			{Task: "send the deck", Owner: "dana", DueDate: "2026-09-05"},
			{Task: "book the room"},
		},
	}

	chunks := chunker.ChunkRecording(rec)
	require.Len(t, chunks, 4, "2 transcript + 1 notes + 1 action items")

	byType := map[core.ContentType]int{}
	for _, chunk := range chunks {
		byType[chunk.ContentType]++
	}
	assert.Equal(t, 2, byType[core.ContentTranscript])
	assert.Equal(t, 1, byType[core.ContentNotes])
	assert.Equal(t, 1, byType[core.ContentActionItems])

	last := chunks[len(chunks)-1]
	assert.Contains(t, last.Text, "- send the deck (owner: dana) (due: 2026-09-05)")
	assert.Contains(t, last.Text, "- book the room")
}

func TestChunker_LargeActionItemListWindows(t *testing.T) {
	chunker := NewChunker()
	items := make([]core.ActionItem, 300)
	for i := range items {
		items[i] = core.ActionItem{Task: fmt.Sprintf("task number %d", i)}
	}
	rec := &core.Recording{Id: "rec-1", ActionItems: items}

	chunks := chunker.ChunkRecording(rec)
	assert.Greater(t, len(chunks), 1, "oversized aggregate falls back to windowing")
	for _, chunk := range chunks {
		assert.Equal(t, core.ContentActionItems, chunk.ContentType)
	}
}
