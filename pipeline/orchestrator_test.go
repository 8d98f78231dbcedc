package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recollect/ai/mock"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/media"
	"github.com/poiesic/recollect/storage"
	badgerstore "github.com/poiesic/recollect/storage/badger"
)

// fakeMediaRunner stands in for ffmpeg and ffprobe: conversions and
// slices create their output file, probes report a fixed duration.
type fakeMediaRunner struct {
	duration string
}

func (f *fakeMediaRunner) Run(ctx context.Context, name string, args ...string) (media.CommandResult, error) {
	if name == "ffprobe" {
		return media.CommandResult{Stdout: f.duration}, nil
	}
	// Like real ffmpeg, fail when the -i input does not exist.
	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) {
			if _, err := os.Stat(args[i+1]); err != nil {
				return media.CommandResult{ExitCode: 1, Stderr: "no such file"},
					fmt.Errorf("input missing: %s", args[i+1])
			}
		}
	}
	out := args[len(args)-1]
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return media.CommandResult{}, err
	}
	if err := os.WriteFile(out, []byte("wav"), 0o644); err != nil {
		return media.CommandResult{}, err
	}
	return media.CommandResult{}, nil
}

const validAnalysisJSON = `{
	"summary": ["planned the beta launch", "reviewed open risks"],
	"decisions": ["ship the beta on friday"],
	"action_items": [{"task": "run the load test", "owner": "SPEAKER_01"}]
}`

type testEnv struct {
	repos       *badgerstore.Repositories
	orch        *Orchestrator
	chat        *mock.MockChatModel
	diarizer    *mock.MockDiarizer
	transcriber *mock.MockTranscriber
	workDir     string
	sourcePath  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "standup.mp4")
	require.NoError(t, os.WriteFile(sourcePath, []byte("source media bytes"), 0o644))

	chat := mock.NewMockChatModel()
	diarizer := mock.NewMockDiarizer(
		core.DiarizationSegment{Speaker: "SPEAKER_00", Start: 0, End: 10},
		core.DiarizationSegment{Speaker: "SPEAKER_01", Start: 10, End: 20},
		core.DiarizationSegment{Speaker: "SPEAKER_02", Start: 20, End: 30},
	)
	transcriber := mock.NewMockTranscriber(nil)
	transcriber.TranscribeFunc = func(ctx context.Context, path string, language string) (string, string, error) {
		// Derive deterministic text from the slice ordinal.
		base := strings.TrimSuffix(filepath.Base(path), ".wav")
		return "segment text for " + base, "en", nil
	}

	workDir := filepath.Join(dir, "work")
	orch, err := NewOrchestrator(Deps{
		Jobs:        repos.Jobs,
		Recordings:  repos.Recordings,
		Checkpoints: repos.Checkpoints,
		Speakers:    repos.Speakers,
		Cache:       repos.Cache,
		Converter:   media.NewConverter(media.WithRunner(&fakeMediaRunner{duration: "30.0"})),
		Diarizer:    diarizer,
		Transcriber: transcriber,
		Chat:        chat,
	}, WithWorkDir(workDir), WithTranscriptionWorkers(2))
	require.NoError(t, err)
	t.Cleanup(orch.Release)

	return &testEnv{
		repos:       repos,
		orch:        orch,
		chat:        chat,
		diarizer:    diarizer,
		transcriber: transcriber,
		workDir:     workDir,
		sourcePath:  sourcePath,
	}
}

func (env *testEnv) newJob(t *testing.T, recID, jobID string) {
	t.Helper()
	ctx := context.Background()
	rec, err := env.repos.Recordings.GetRecording(ctx, recID)
	if err != nil {
		rec = &core.Recording{Id: recID, Title: "standup", SourcePath: env.sourcePath}
		require.NoError(t, env.repos.Recordings.SaveRecording(ctx, rec))
	}
	job := &core.Job{Id: jobID, RecordingId: recID, Status: core.JobPending}
	require.NoError(t, env.repos.Jobs.SaveJob(ctx, job))
}

func TestOrchestrator_FullRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.EnqueueText(validAnalysisJSON)
	env.newJob(t, "rec-1", "job-1")

	require.NoError(t, env.orch.Run(ctx, "job-1"))

	job, err := env.repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)
	assert.Equal(t, 100, job.OverallProgress)

	rec, err := env.repos.Recordings.GetRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, rec.Processed())
	assert.Equal(t, "en", rec.Language)
	assert.InDelta(t, 30.0, rec.Duration, 1e-6)
	assert.Equal(t, []string{"ship the beta on friday"}, rec.Decisions)
	require.Len(t, rec.ActionItems, 1)
	assert.Equal(t, "run the load test", rec.ActionItems[0].Task)

	// Transcript lines are ordered by segment start time.
	lines := strings.Split(rec.Transcript, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SPEAKER_00: "))
	assert.True(t, strings.HasPrefix(lines[1], "SPEAKER_01: "))
	assert.True(t, strings.HasPrefix(lines[2], "SPEAKER_02: "))

	speakers, err := env.repos.Speakers.GetSpeakers(ctx, "rec-1")
	require.NoError(t, err)
	assert.Len(t, speakers, 3)

	// Checkpoints are cleared on success.
	for _, stage := range core.Stages {
		cp, err := env.repos.Checkpoints.LoadCheckpoint(ctx, "job-1", stage)
		require.NoError(t, err)
		assert.Nil(t, cp)
	}
}

func TestOrchestrator_AnalysisRejectionKeepsTranscript(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.EnqueueText("this is not json")
	env.newJob(t, "rec-1", "job-1")

	err := env.orch.Run(ctx, "job-1")
	assert.ErrorIs(t, err, ErrAnalysisRejected)

	job, err := env.repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, job.Status)
	assert.Equal(t, 75, job.OverallProgress, "three stages finished before analysis")
	assert.NotEmpty(t, job.ErrorMessage)

	rec, err := env.repos.Recordings.GetRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Transcript, "transcript survives analysis failure")
	assert.Empty(t, rec.Summary)

	// Transcription checkpoint is still there for the retry.
	cp, err := env.repos.Checkpoints.LoadCheckpoint(ctx, "job-1", core.StageTranscription)
	require.NoError(t, err)
	assert.NotNil(t, cp)
}

func TestOrchestrator_RetryResumesFromCheckpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.EnqueueText("garbage output")
	env.newJob(t, "rec-1", "job-1")

	require.Error(t, env.orch.Run(ctx, "job-1"))
	diarizeCalls := env.diarizer.CallCount()
	transcribeCalls := len(env.transcriber.Calls())
	require.Greater(t, transcribeCalls, 0)

	env.chat.Reset()
	env.chat.EnqueueText(validAnalysisJSON)
	require.NoError(t, env.orch.Run(ctx, "job-1"))

	assert.Equal(t, diarizeCalls, env.diarizer.CallCount(), "diarization restored from checkpoint")
	assert.Equal(t, transcribeCalls, len(env.transcriber.Calls()), "transcription restored from checkpoint")

	job, err := env.repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)
}

func TestOrchestrator_SourceChangeInvalidatesCheckpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.EnqueueText("garbage output")
	env.newJob(t, "rec-1", "job-1")

	require.Error(t, env.orch.Run(ctx, "job-1"))
	require.Equal(t, 1, env.diarizer.CallCount())

	// New source bytes shift the conversion fingerprint; the chain
	// invalidates every later stage too.
	require.NoError(t, os.WriteFile(env.sourcePath, []byte("different media bytes"), 0o644))
	env.chat.Reset()
	env.chat.EnqueueText(validAnalysisJSON)
	require.NoError(t, env.orch.Run(ctx, "job-1"))

	assert.Equal(t, 2, env.diarizer.CallCount(), "upstream change forces full re-run")
}

func TestOrchestrator_CompletedJobIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.EnqueueText(validAnalysisJSON)
	env.newJob(t, "rec-1", "job-1")

	require.NoError(t, env.orch.Run(ctx, "job-1"))
	diarizeCalls := env.diarizer.CallCount()

	require.NoError(t, env.orch.Run(ctx, "job-1"))
	assert.Equal(t, diarizeCalls, env.diarizer.CallCount(), "completed job does no work")
}

func TestOrchestrator_ProcessedRecordingFastPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.EnqueueText(validAnalysisJSON)
	env.newJob(t, "rec-1", "job-1")
	require.NoError(t, env.orch.Run(ctx, "job-1"))

	// A second job for the already-processed recording completes
	// without touching any stage.
	env.newJob(t, "rec-1", "job-2")
	require.NoError(t, env.orch.Run(ctx, "job-2"))

	job, err := env.repos.Jobs.GetJob(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)
	assert.Equal(t, 1, env.diarizer.CallCount())
}

func TestOrchestrator_TranscriptionCacheSharedAcrossRecordings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.EnqueueText(validAnalysisJSON)
	env.newJob(t, "rec-1", "job-1")
	require.NoError(t, env.orch.Run(ctx, "job-1"))
	transcribeCalls := len(env.transcriber.Calls())

	// Same source bytes and segments under a different recording: the
	// cache survives job completion and is keyed by content, not job.
	env.chat.EnqueueText(validAnalysisJSON)
	env.newJob(t, "rec-2", "job-2")
	require.NoError(t, env.orch.Run(ctx, "job-2"))

	assert.Equal(t, transcribeCalls, len(env.transcriber.Calls()), "second recording hits the cache")

	rec, err := env.repos.Recordings.GetRecording(ctx, "rec-2")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Transcript)
}

func TestOrchestrator_EmptyDiarizationFallsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.diarizer.Segments = nil
	env.chat.EnqueueText(validAnalysisJSON)
	env.newJob(t, "rec-1", "job-1")

	require.NoError(t, env.orch.Run(ctx, "job-1"))

	speakers, err := env.repos.Speakers.GetSpeakers(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, speakers, 1)
	assert.Equal(t, FallbackSpeakerLabel, speakers[0].Label)

	rec, err := env.repos.Recordings.GetRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.Transcript, FallbackSpeakerLabel+": "))
}

// progressRecorder captures OverallProgress at every job save.
type progressRecorder struct {
	storage.JobRepository
	mu      sync.Mutex
	overall []int
}

func (p *progressRecorder) SaveJob(ctx context.Context, job *core.Job) error {
	p.mu.Lock()
	p.overall = append(p.overall, job.OverallProgress)
	p.mu.Unlock()
	return p.JobRepository.SaveJob(ctx, job)
}

func TestOrchestrator_OverallProgressNeverDecreases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	recorder := &progressRecorder{JobRepository: env.repos.Jobs}
	orch, err := NewOrchestrator(Deps{
		Jobs:        recorder,
		Recordings:  env.repos.Recordings,
		Checkpoints: env.repos.Checkpoints,
		Speakers:    env.repos.Speakers,
		Cache:       env.repos.Cache,
		Converter:   media.NewConverter(media.WithRunner(&fakeMediaRunner{duration: "30.0"})),
		Diarizer:    env.diarizer,
		Transcriber: env.transcriber,
		Chat:        env.chat,
	}, WithWorkDir(env.workDir), WithTranscriptionWorkers(2))
	require.NoError(t, err)
	t.Cleanup(orch.Release)

	// First run fails at analysis, the retry resumes and completes.
	env.chat.EnqueueText("this is not json")
	env.newJob(t, "rec-1", "job-1")
	require.ErrorIs(t, orch.Run(ctx, "job-1"), ErrAnalysisRejected)

	env.chat.Reset()
	env.chat.EnqueueText(validAnalysisJSON)
	require.NoError(t, orch.Run(ctx, "job-1"))

	recorder.mu.Lock()
	overall := append([]int(nil), recorder.overall...)
	recorder.mu.Unlock()

	require.NotEmpty(t, overall)
	for i := 1; i < len(overall); i++ {
		assert.GreaterOrEqual(t, overall[i], overall[i-1],
			"overall progress decreased at save %d: %v", i, overall)
	}
	assert.Equal(t, 100, overall[len(overall)-1])
}

func TestOrchestrator_RetryAfterWorkDirReclaimed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// First run fails at transcription while the speech service is down.
	env.transcriber.TranscribeFunc = func(ctx context.Context, path string, language string) (string, string, error) {
		return "", "", fmt.Errorf("speech service unavailable")
	}
	env.newJob(t, "rec-1", "job-1")
	require.Error(t, env.orch.Run(ctx, "job-1"))

	// The scratch dir is reclaimed between the failure and the retry,
	// taking the checkpointed WAV with it.
	require.NoError(t, os.RemoveAll(env.workDir))

	env.transcriber.TranscribeFunc = func(ctx context.Context, path string, language string) (string, string, error) {
		return "recovered text", "en", nil
	}
	env.chat.EnqueueText(validAnalysisJSON)

	// The retry re-runs conversion instead of trusting the stale
	// checkpoint path, and completes.
	require.NoError(t, env.orch.Run(ctx, "job-1"))

	job, err := env.repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)

	rec, err := env.repos.Recordings.GetRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.Contains(t, rec.Transcript, "recovered text")

	// The diarization checkpoint stayed valid across the re-converted
	// audio, so the service was only called once.
	assert.Equal(t, 1, env.diarizer.CallCount())
}

func TestOrchestrator_ReleasedPoolFailsSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.newJob(t, "rec-1", "job-1")

	env.orch.Release()

	err := env.orch.Run(ctx, "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submitting segment")

	job, getErr := env.repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, core.JobFailed, job.Status)
	assert.Equal(t, core.StageTranscription, job.Stage)
}

func TestOrchestrator_MergeOrderSurvivesCompletionOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.EnqueueText(validAnalysisJSON)
	env.newJob(t, "rec-1", "job-1")

	// Earlier segments finish last, so completion order is the reverse
	// of chronological order.
	env.transcriber.TranscribeFunc = func(ctx context.Context, path string, language string) (string, string, error) {
		base := strings.TrimSuffix(filepath.Base(path), ".wav")
		switch base {
		case "slice-0000":
			time.Sleep(60 * time.Millisecond)
		case "slice-0001":
			time.Sleep(30 * time.Millisecond)
		}
		return "text for " + base, "en", nil
	}

	require.NoError(t, env.orch.Run(ctx, "job-1"))

	rec, err := env.repos.Recordings.GetRecording(ctx, "rec-1")
	require.NoError(t, err)
	lines := strings.Split(rec.Transcript, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "SPEAKER_00: text for slice-0000", lines[0])
	assert.Equal(t, "SPEAKER_01: text for slice-0001", lines[1])
	assert.Equal(t, "SPEAKER_02: text for slice-0002", lines[2])
}

func TestOrchestrator_FailedSegmentDropped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.chat.EnqueueText(validAnalysisJSON)
	env.newJob(t, "rec-1", "job-1")

	env.transcriber.TranscribeFunc = func(ctx context.Context, path string, language string) (string, string, error) {
		base := strings.TrimSuffix(filepath.Base(path), ".wav")
		if base == "slice-0001" {
			return "", "", fmt.Errorf("decode blew up")
		}
		return "text for " + base, "en", nil
	}

	// One slice failing drops that segment's text, not the job.
	require.NoError(t, env.orch.Run(ctx, "job-1"))

	job, err := env.repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)
	assert.True(t, slices.ContainsFunc(job.Logs, func(entry string) bool {
		return strings.Contains(entry, "dropped segment")
	}))

	rec, err := env.repos.Recordings.GetRecording(ctx, "rec-1")
	require.NoError(t, err)
	lines := strings.Split(rec.Transcript, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "SPEAKER_00: "))
	assert.True(t, strings.HasPrefix(lines[1], "SPEAKER_02: "))
}

func TestOrchestrator_DiarizationErrorFallsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.diarizer.Err = fmt.Errorf("model not loaded")
	env.chat.EnqueueText(validAnalysisJSON)
	env.newJob(t, "rec-1", "job-1")

	// Diarization being unavailable never fails the job; the run
	// degrades to a single synthetic speaker.
	require.NoError(t, env.orch.Run(ctx, "job-1"))

	job, err := env.repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)

	speakers, err := env.repos.Speakers.GetSpeakers(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, speakers, 1)
	assert.Equal(t, FallbackSpeakerLabel, speakers[0].Label)
}

func TestValidateAnalysis(t *testing.T) {
	ok := &core.AnalysisResult{Summary: []string{"a summary"}}
	assert.NoError(t, validateAnalysis(ok))

	assert.Error(t, validateAnalysis(&core.AnalysisResult{}))
	assert.Error(t, validateAnalysis(&core.AnalysisResult{Summary: []string{"  "}}))
	assert.Error(t, validateAnalysis(&core.AnalysisResult{
		Summary:     []string{"s"},
		ActionItems: []core.ActionItem{{Task: " "}},
	}))
}

func TestRenderTranscript(t *testing.T) {
	segments := []core.TranscriptSegment{
		{Speaker: "SPEAKER_00", Text: " hello "},
		{Speaker: "SPEAKER_01", Text: ""},
		{Speaker: "SPEAKER_00", Text: "bye"},
	}
	assert.Equal(t, "SPEAKER_00: hello\nSPEAKER_00: bye", renderTranscript(segments))
}
