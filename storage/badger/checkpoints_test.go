package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

func TestCheckpoint_SaveLoadOverwrite(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	cp := &core.Checkpoint{
		JobId:       "job-1",
		Stage:       core.StageConversion,
		Fingerprint: "fp-1",
		Payload:     []byte(`{"audio_path":"/tmp/a.wav"}`),
	}
	require.NoError(t, repos.Checkpoints.SaveCheckpoint(ctx, cp))

	got, err := repos.Checkpoints.LoadCheckpoint(ctx, "job-1", core.StageConversion)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fp-1", got.Fingerprint)
	assert.False(t, got.UpdatedAt.IsZero())

	// Last write wins for the same (job, stage) key.
	cp.Fingerprint = "fp-2"
	require.NoError(t, repos.Checkpoints.SaveCheckpoint(ctx, cp))
	got, err = repos.Checkpoints.LoadCheckpoint(ctx, "job-1", core.StageConversion)
	require.NoError(t, err)
	assert.Equal(t, "fp-2", got.Fingerprint)
}

func TestCheckpoint_LoadMissing(t *testing.T) {
	repos := newTestRepos(t)
	got, err := repos.Checkpoints.LoadCheckpoint(context.Background(), "job-x", core.StageAnalysis)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCheckpoint_ClearIsJobScoped(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	for _, stage := range core.Stages {
		require.NoError(t, repos.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
			JobId: "job-1", Stage: stage, Fingerprint: "fp", Payload: []byte(`{}`),
		}))
	}
	require.NoError(t, repos.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		JobId: "job-2", Stage: core.StageConversion, Fingerprint: "fp", Payload: []byte(`{}`),
	}))

	require.NoError(t, repos.Checkpoints.ClearCheckpoints(ctx, "job-1"))

	for _, stage := range core.Stages {
		got, err := repos.Checkpoints.LoadCheckpoint(ctx, "job-1", stage)
		require.NoError(t, err)
		assert.Nil(t, got, "stage %s should be cleared", stage)
	}

	other, err := repos.Checkpoints.LoadCheckpoint(ctx, "job-2", core.StageConversion)
	require.NoError(t, err)
	assert.NotNil(t, other, "other jobs' checkpoints untouched")
}

func TestJobRepository_RoundTrip(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	job := &core.Job{Id: "job-1", RecordingId: "rec-1", Status: core.JobPending}
	require.NoError(t, repos.Jobs.SaveJob(ctx, job))
	assert.False(t, job.InsertedAt.IsZero())

	got, err := repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.JobPending, got.Status)

	_, err = repos.Jobs.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordingRepository_ListOrdersByUpdate(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	for _, id := range []string{"rec-a", "rec-b"} {
		require.NoError(t, repos.Recordings.SaveRecording(ctx, &core.Recording{
			Id:         id,
			SourcePath: "/tmp/" + id + ".mp4",
		}))
	}
	// Touch rec-a so it sorts first.
	rec, err := repos.Recordings.GetRecording(ctx, "rec-a")
	require.NoError(t, err)
	rec.Title = "updated"
	require.NoError(t, repos.Recordings.SaveRecording(ctx, rec))

	recs, err := repos.Recordings.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rec-a", recs[0].Id)
	assert.Equal(t, "rec-b", recs[1].Id)
}

func TestSpeakerRepository_UniquePerLabel(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Speakers.AddSpeakers(ctx,
		&core.Speaker{RecordingId: "rec-1", Label: "SPEAKER_00"},
		&core.Speaker{RecordingId: "rec-1", Label: "SPEAKER_01"},
	))
	// Same label again: content-derived ID overwrites in place.
	require.NoError(t, repos.Speakers.AddSpeakers(ctx,
		&core.Speaker{RecordingId: "rec-1", Label: "SPEAKER_00"},
	))

	speakers, err := repos.Speakers.GetSpeakers(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, speakers, 2)
	assert.Equal(t, "SPEAKER_00", speakers[0].Label)
	assert.Equal(t, "SPEAKER_01", speakers[1].Label)
}

func TestConfigRepository_Active(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Configs.ActiveConfig(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cfg := &core.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimension: 1536}
	require.NoError(t, repos.Configs.SetActiveConfig(ctx, cfg))

	got, err := repos.Configs.ActiveConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.Key(), got.Key())
	assert.Equal(t, core.IDFromContent(cfg.Key()), got.Id)
}

func TestTranscriptCache_RoundTrip(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	key := core.IDFromContent("audio+segments+model")
	miss, err := repos.Cache.GetTranscription(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, miss)

	segments := []core.TranscriptSegment{{Speaker: "SPEAKER_00", Start: 0, End: 2, Text: "hello", Language: "en"}}
	require.NoError(t, repos.Cache.PutTranscription(ctx, key, segments))

	got, err := repos.Cache.GetTranscription(ctx, key)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text)
}
