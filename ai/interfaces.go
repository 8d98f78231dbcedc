package ai

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/recollect/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice preserves the order of the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages a chat model and
// an Embedder sharing the same configuration.
type Provider interface {
	// ChatModel returns the conversational model used for analysis and
	// agent turns. Safe for concurrent use.
	ChatModel() llms.Model

	// Embedder returns the text embedding service. Safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	Close() error
}

// Diarizer splits an audio file into speaker-attributed time segments.
type Diarizer interface {
	// Diarize analyzes the audio at path and returns segments ordered by
	// start time. speakerHint, when positive, tells the backend how many
	// distinct speakers to expect.
	Diarize(ctx context.Context, path string, speakerHint int) ([]core.DiarizationSegment, error)
}

// SpeechTranscriber converts a single audio slice into text.
type SpeechTranscriber interface {
	// Transcribe returns the transcript text of the slice at path along
	// with the language the model detected. language, when non-empty,
	// pins the decode language instead of letting the model guess.
	Transcribe(ctx context.Context, path string, language string) (text string, detectedLang string, err error)

	// ModelParams identifies the model and settings in effect, used as a
	// cache-key component so cached transcripts are invalidated when the
	// model changes.
	ModelParams() string
}
