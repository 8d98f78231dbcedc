package mock

import (
	"context"
	"sync"
)

// MockTranscriber is a test double for ai.SpeechTranscriber. Each slice
// path maps to a canned transcript; unknown paths transcribe to a fixed
// placeholder so pipelines keep moving.
type MockTranscriber struct {
	mu sync.Mutex

	// Transcripts maps slice path to transcript text.
	Transcripts map[string]string

	// Language is the detected language reported for every slice.
	Language string

	// Err is returned by Transcribe when set.
	Err error

	// TranscribeFunc overrides the canned transcripts when set.
	TranscribeFunc func(ctx context.Context, path string, language string) (string, string, error)

	calls []string
}

// NewMockTranscriber creates a transcriber with the given path→text map.
func NewMockTranscriber(transcripts map[string]string) *MockTranscriber {
	return &MockTranscriber{Transcripts: transcripts, Language: "en"}
}

// Transcribe returns the canned transcript for path.
func (m *MockTranscriber) Transcribe(ctx context.Context, path string, language string) (string, string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, path)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, path, language)
	}
	if m.Err != nil {
		return "", "", m.Err
	}
	if text, ok := m.Transcripts[path]; ok {
		return text, m.Language, nil
	}
	return "placeholder transcript", m.Language, nil
}

// ModelParams identifies the mock model for cache keying.
func (m *MockTranscriber) ModelParams() string {
	return "mock-transcriber-v1"
}

// Calls returns the slice paths transcribed so far.
func (m *MockTranscriber) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
