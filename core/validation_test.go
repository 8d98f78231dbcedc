package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJob(t *testing.T) {
	job := &Job{Id: "job-1", RecordingId: "rec-1", Status: JobPending}
	require.NoError(t, ValidateJob(job))

	assert.ErrorIs(t, ValidateJob(nil), ErrInvalidJob)

	bad := *job
	bad.Id = ""
	assert.ErrorIs(t, ValidateJob(&bad), ErrInvalidJob)

	bad = *job
	bad.Status = "running"
	assert.ErrorIs(t, ValidateJob(&bad), ErrInvalidJob)

	bad = *job
	bad.OverallProgress = 101
	assert.ErrorIs(t, ValidateJob(&bad), ErrInvalidJob)
}

func TestValidateRecording(t *testing.T) {
	rec := &Recording{Id: "rec-1", SourcePath: "/tmp/a.m4a"}
	require.NoError(t, ValidateRecording(rec))

	assert.ErrorIs(t, ValidateRecording(nil), ErrInvalidRecording)

	bad := *rec
	bad.SourcePath = ""
	assert.ErrorIs(t, ValidateRecording(&bad), ErrInvalidRecording)

	bad = *rec
	bad.SpeakerHint = -1
	assert.ErrorIs(t, ValidateRecording(&bad), ErrInvalidRecording)
}

func TestValidateChunk(t *testing.T) {
	chunk := &Chunk{EntityId: "rec-1", ContentType: ContentTranscript, Text: "hello world"}
	require.NoError(t, ValidateChunk(chunk))

	bad := *chunk
	bad.Text = "   \n\t"
	err := ValidateChunk(&bad)
	assert.ErrorIs(t, err, ErrInvalidChunk)
	assert.ErrorIs(t, err, ErrEmptyText)

	bad = *chunk
	bad.Ordinal = -1
	assert.ErrorIs(t, ValidateChunk(&bad), ErrInvalidChunk)
}
