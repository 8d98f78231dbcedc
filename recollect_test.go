package recollect

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/ai/mock"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/media"
)

// scriptedRunner fakes ffmpeg and ffprobe for the end-to-end run.
type scriptedRunner struct{}

func (scriptedRunner) Run(ctx context.Context, name string, args ...string) (media.CommandResult, error) {
	if name == "ffprobe" {
		return media.CommandResult{Stdout: "120.0"}, nil
	}
	out := args[len(args)-1]
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return media.CommandResult{}, err
	}
	return media.CommandResult{}, os.WriteFile(out, []byte("wav"), 0o644)
}

const analysisJSON = `{
	"summary": ["sprint review of the import feature"],
	"decisions": ["adopt streaming imports"],
	"action_items": [{"task": "write the migration guide", "owner": "SPEAKER_01"}]
}`

func TestSystem_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "sprint-review.mp4")
	require.NoError(t, os.WriteFile(source, []byte("fake media"), 0o644))

	chat := mock.NewMockChatModel()
	chat.EnqueueText(analysisJSON)
	provider := mock.NewMockProviderWithServices(chat, mock.NewMockEmbedder())

	diarizer := mock.NewMockDiarizer(
		core.DiarizationSegment{Speaker: "SPEAKER_00", Start: 0, End: 40},
		core.DiarizationSegment{Speaker: "SPEAKER_01", Start: 40, End: 80},
		core.DiarizationSegment{Speaker: "SPEAKER_02", Start: 80, End: 120},
	)
	transcriber := mock.NewMockTranscriber(nil)
	transcriber.TranscribeFunc = func(ctx context.Context, path string, language string) (string, string, error) {
		return "discussion about the import feature in " + filepath.Base(path), "en", nil
	}

	system, err := New("",
		WithInMemory(),
		WithAIConfig(ai.NewConfig(
			ai.WithProvider(ai.ProviderMock),
			ai.WithEmbeddingModel("mock-embedder", mock.Dimension),
		)),
		WithProviderFactory(ai.ProviderMock, func(cfg *ai.Config) (ai.Provider, error) {
			return provider, nil
		}),
		WithConverter(media.NewConverter(media.WithRunner(scriptedRunner{}))),
		WithDiarizer(diarizer),
		WithTranscriber(transcriber),
		WithWorkDir(filepath.Join(dir, "work")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { system.Close() })

	ctx := context.Background()
	require.NoError(t, system.SetEmbeddingConfig(ctx, ai.ProviderMock, "mock-embedder", mock.Dimension, ""))

	recordingID, jobID, handle, err := system.ProcessRecording(ctx, source, ProcessOptions{
		Title:       "sprint review",
		SpeakerHint: 3,
	})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	require.NoError(t, handle.Wait(waitCtx))

	job, err := system.repos.Jobs.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)

	rec, err := system.Recording(ctx, recordingID)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Transcript)
	assert.GreaterOrEqual(t, len(rec.ActionItems), 1)
	assert.InDelta(t, 120.0, rec.Duration, 1e-6)

	speakers, err := system.Speakers(ctx, recordingID)
	require.NoError(t, err)
	assert.Len(t, speakers, 3)

	// Indexing ran after processing; transcript text is retrievable.
	hits, err := system.retriever.Search(ctx, "discussion about the import feature", core.Scope{EntityId: recordingID}, 8)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, recordingID, hits[0].Chunk.EntityId)

	// The agent answers over the processed recording.
	chat.EnqueueText("You decided to adopt streaming imports.")
	answer, err := system.Ask(ctx, "what did we decide?", recordingID, nil)
	require.NoError(t, err)
	assert.Equal(t, "You decided to adopt streaming imports.", answer.Text)
}

func TestSystem_RetryRequiresFailedJob(t *testing.T) {
	system, err := New("",
		WithInMemory(),
		WithAIConfig(ai.NewConfig(
			ai.WithProvider(ai.ProviderMock),
			ai.WithEmbeddingModel("mock-embedder", mock.Dimension),
		)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { system.Close() })

	ctx := context.Background()
	job := &core.Job{Id: "job-1", RecordingId: "rec-1", Status: core.JobCompleted}
	require.NoError(t, system.repos.Jobs.SaveJob(ctx, job))

	_, err = system.RetryJob(ctx, "job-1")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}
