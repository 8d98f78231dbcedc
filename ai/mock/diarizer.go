package mock

import (
	"context"

	"github.com/poiesic/recollect/core"
)

// MockDiarizer is a test double for ai.Diarizer.
type MockDiarizer struct {
	// Segments is returned by Diarize when DiarizeFunc is nil.
	Segments []core.DiarizationSegment

	// Err is returned by Diarize when set.
	Err error

	// DiarizeFunc overrides the canned segments when set.
	DiarizeFunc func(ctx context.Context, path string, speakerHint int) ([]core.DiarizationSegment, error)

	callCount int
}

// NewMockDiarizer creates a diarizer returning the given segments.
func NewMockDiarizer(segments ...core.DiarizationSegment) *MockDiarizer {
	return &MockDiarizer{Segments: segments}
}

// Diarize returns the configured segments or error.
func (m *MockDiarizer) Diarize(ctx context.Context, path string, speakerHint int) ([]core.DiarizationSegment, error) {
	m.callCount++
	if m.DiarizeFunc != nil {
		return m.DiarizeFunc(ctx, path, speakerHint)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Segments, nil
}

// CallCount returns the number of Diarize calls.
func (m *MockDiarizer) CallCount() int {
	return m.callCount
}
