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


package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/media"
	"github.com/poiesic/recollect/storage"
)

// stageWeight is each stage's share of overall progress. Four stages at
// 25 points each: conversion 0-25, diarization 25-50, transcription
// 50-75, analysis 75-100.
const stageWeight = 25

// Deps bundles the repositories and services the orchestrator needs.
type Deps struct {
	Jobs        storage.JobRepository
	Recordings  storage.RecordingRepository
	Checkpoints storage.CheckpointRepository
	Speakers    storage.SpeakerRepository
	Cache       storage.TranscriptCacheRepository
	Converter   *media.Converter
	Diarizer    ai.Diarizer
	Transcriber ai.SpeechTranscriber
	Chat        llms.Model
}

// Orchestrator drives jobs through the pipeline stages.
type Orchestrator struct {
	jobs        storage.JobRepository
	recordings  storage.RecordingRepository
	checkpoints storage.CheckpointRepository
	speakers    storage.SpeakerRepository
	cache       storage.TranscriptCacheRepository
	converter   *media.Converter
	diarizer    ai.Diarizer
	transcriber ai.SpeechTranscriber
	chat        llms.Model

	slicePool *ants.Pool
	workDir   string
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithWorkDir sets the directory for intermediate audio artifacts.
// Default is a "recollect" directory under the system temp dir.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) error {
		o.workDir = dir
		return nil
	}
}

// WithTranscriptionWorkers sets the slice fan-out pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithTranscriptionWorkers(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		if o.slicePool != nil {
			o.slicePool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.slicePool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator over the given dependencies.
func NewOrchestrator(deps Deps, opts ...Option) (*Orchestrator, error) {
	if deps.Jobs == nil || deps.Recordings == nil || deps.Checkpoints == nil ||
		deps.Speakers == nil || deps.Cache == nil {
		return nil, fmt.Errorf("%w: repositories", ErrDependencyRequired)
	}
	if deps.Converter == nil || deps.Diarizer == nil || deps.Transcriber == nil || deps.Chat == nil {
		return nil, fmt.Errorf("%w: media/ai services", ErrDependencyRequired)
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		jobs:        deps.Jobs,
		recordings:  deps.Recordings,
		checkpoints: deps.Checkpoints,
		speakers:    deps.Speakers,
		cache:       deps.Cache,
		converter:   deps.Converter,
		diarizer:    deps.Diarizer,
		transcriber: deps.Transcriber,
		chat:        deps.Chat,
		slicePool:   pool,
		workDir:     filepath.Join(os.TempDir(), "recollect"),
		logger:      slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}
	return o, nil
}

// Release releases the transcription worker pool.
func (o *Orchestrator) Release() {
	if o.slicePool != nil {
		o.slicePool.Release()
	}
}

// Run processes the job through every stage, resuming from valid
// checkpoints. It is safe to call again after a failure; completed jobs
// return immediately.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	rec, err := o.recordings.GetRecording(ctx, job.RecordingId)
	if err != nil {
		return err
	}

	logger := o.logger.With("job_id", job.Id, "recording_id", rec.Id)

	switch job.Status {
	case core.JobCompleted:
		logger.Debug("job already completed")
		return nil
	case core.JobProcessing:
		return ErrJobActive
	}

	// Fast path: the recording was fully processed by an earlier job.
	if rec.Processed() {
		logger.Info("recording already processed, completing job")
		return o.complete(ctx, job, rec, nil)
	}

	if !job.CanTransition(core.JobProcessing) {
		return fmt.Errorf("%w: %s -> processing", core.ErrInvalidTransition, job.Status)
	}
	job.Status = core.JobProcessing
	job.ErrorMessage = ""
	job.AppendLog("processing started")
	if err := o.jobs.SaveJob(ctx, job); err != nil {
		return err
	}

	st := &state{}
	if digest, err := digestFile(rec.SourcePath); err == nil {
		st.SourceDigest = digest
	} else {
		return o.fail(ctx, job, core.StageConversion, fmt.Errorf("%w: %v", core.ErrStageInput, err))
	}

	for i, stage := range core.Stages {
		fp := o.stageFingerprint(stage, rec, st)

		cp, err := o.checkpoints.LoadCheckpoint(ctx, job.Id, stage)
		if err != nil {
			return o.fail(ctx, job, stage, err)
		}
		if cp != nil && cp.Fingerprint == fp {
			if err := st.restore(stage, cp.Payload); err != nil {
				// Unreadable payload: fall through and re-run the stage.
				logger.Warn("checkpoint payload unreadable, re-running stage", "stage", stage)
			} else if !st.artifactsPresent(stage) {
				logger.Warn("checkpoint artifact missing, re-running stage", "stage", stage)
			} else {
				st.fp = fp
				job.AppendLog(fmt.Sprintf("stage %s restored from checkpoint", stage))
				o.setProgress(ctx, job, i, 100)
				logger.Info("stage restored from checkpoint", "stage", stage)
				continue
			}
		}

		job.Stage = stage
		job.StageProgress = 0
		job.AppendLog(fmt.Sprintf("stage %s started", stage))
		if err := o.jobs.SaveJob(ctx, job); err != nil {
			return err
		}
		logger.Info("stage started", "stage", stage)

		if err := o.runStage(ctx, stage, job, rec, st, i); err != nil {
			return o.fail(ctx, job, stage, err)
		}

		payload, err := st.payload(stage)
		if err != nil {
			return o.fail(ctx, job, stage, err)
		}
		st.fp = fp
		if err := o.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
			JobId:       job.Id,
			Stage:       stage,
			Fingerprint: fp,
			Payload:     payload,
		}); err != nil {
			return o.fail(ctx, job, stage, err)
		}
		o.setProgress(ctx, job, i, 100)
		job.AppendLog(fmt.Sprintf("stage %s completed", stage))
	}

	return o.complete(ctx, job, rec, st)
}

// runStage dispatches one stage.
func (o *Orchestrator) runStage(ctx context.Context, stage core.Stage, job *core.Job, rec *core.Recording, st *state, stageIdx int) error {
	switch stage {
	case core.StageConversion:
		return o.runConversion(ctx, job, rec, st, stageIdx)
	case core.StageDiarization:
		return o.runDiarization(ctx, job, rec, st, stageIdx)
	case core.StageTranscription:
		return o.runTranscription(ctx, job, rec, st, stageIdx)
	case core.StageAnalysis:
		return o.runAnalysis(ctx, job, rec, st, stageIdx)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

// setProgress advances job progress. Overall progress is monotonic:
// restored checkpoints and re-runs never move it backwards.
func (o *Orchestrator) setProgress(ctx context.Context, job *core.Job, stageIdx, stagePct int) {
	if stagePct > 100 {
		stagePct = 100
	}
	job.StageProgress = stagePct
	overall := stageIdx*stageWeight + stagePct*stageWeight/100
	if overall > job.OverallProgress {
		job.OverallProgress = overall
	}
	if err := o.jobs.SaveJob(ctx, job); err != nil {
		o.logger.Warn("failed to persist progress", "job_id", job.Id, "err", err)
	}
}

// fail marks the job failed, keeping its checkpoints so a retry can
// resume where this run stopped.
func (o *Orchestrator) fail(ctx context.Context, job *core.Job, stage core.Stage, stageErr error) error {
	job.Status = core.JobFailed
	job.Stage = stage
	job.ErrorMessage = stageErr.Error()
	job.AppendLog(fmt.Sprintf("stage %s failed: %v", stage, stageErr))
	if saveErr := o.jobs.SaveJob(ctx, job); saveErr != nil {
		o.logger.Error("failed to persist job failure", "job_id", job.Id, "err", saveErr)
	}
	o.logger.Error("job failed", "job_id", job.Id, "stage", stage, "err", stageErr)
	return stageErr
}

// complete persists final artifacts, records speakers, and clears
// checkpoints. The transcript cache is deliberately left alone; it
// outlives jobs.
func (o *Orchestrator) complete(ctx context.Context, job *core.Job, rec *core.Recording, st *state) error {
	if st != nil && len(st.Segments) > 0 {
		seen := map[string]bool{}
		var speakers []*core.Speaker
		for _, segment := range st.Segments {
			if seen[segment.Speaker] {
				continue
			}
			seen[segment.Speaker] = true
			speakers = append(speakers, &core.Speaker{
				RecordingId: rec.Id,
				Label:       segment.Speaker,
			})
		}
		if err := o.speakers.AddSpeakers(ctx, speakers...); err != nil {
			return o.fail(ctx, job, core.StageAnalysis, err)
		}
	}

	if err := o.checkpoints.ClearCheckpoints(ctx, job.Id); err != nil {
		return o.fail(ctx, job, core.StageAnalysis, err)
	}
	o.cleanupWorkDir(job.Id)

	job.Status = core.JobCompleted
	job.OverallProgress = 100
	job.StageProgress = 100
	job.AppendLog("processing completed")
	if err := o.jobs.SaveJob(ctx, job); err != nil {
		return err
	}
	o.logger.Info("job completed", "job_id", job.Id, "recording_id", rec.Id)
	return nil
}

// jobWorkDir returns the scratch directory for one job's artifacts.
func (o *Orchestrator) jobWorkDir(jobID string) string {
	return filepath.Join(o.workDir, "job-"+jobID)
}

func (o *Orchestrator) cleanupWorkDir(jobID string) {
	if err := os.RemoveAll(o.jobWorkDir(jobID)); err != nil {
		o.logger.Warn("failed to clean work dir", "job_id", jobID, "err", err)
	}
}
