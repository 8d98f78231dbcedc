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


package core

import (
	"fmt"
	"strings"
)

// ValidateJob validates a Job according to domain rules.
//
// Validation rules:
//   - Id and RecordingId must not be empty
//   - Status must be one of the four lifecycle states
//   - Progress values must stay within 0-100
//
// NOT validated (populated by the orchestrator):
//   - Stage (empty until processing starts)
//   - ErrorMessage, Logs
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}
	if job.Id == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidJob)
	}
	if job.RecordingId == "" {
		return fmt.Errorf("%w: missing recording id", ErrInvalidJob)
	}
	switch job.Status {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, job.Status)
	}
	if job.StageProgress < 0 || job.StageProgress > 100 {
		return fmt.Errorf("%w: stage progress %d out of range", ErrInvalidJob, job.StageProgress)
	}
	if job.OverallProgress < 0 || job.OverallProgress > 100 {
		return fmt.Errorf("%w: overall progress %d out of range", ErrInvalidJob, job.OverallProgress)
	}
	return nil
}

// ValidateRecording validates a Recording according to domain rules.
func ValidateRecording(rec *Recording) error {
	if rec == nil {
		return fmt.Errorf("%w: recording is nil", ErrInvalidRecording)
	}
	if rec.Id == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecording)
	}
	if rec.SourcePath == "" {
		return fmt.Errorf("%w: missing source path", ErrInvalidRecording)
	}
	if rec.SpeakerHint < 0 {
		return fmt.Errorf("%w: negative speaker hint", ErrInvalidRecording)
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty or whitespace-only
//   - EntityId and ContentType must be set
//   - Ordinal must be non-negative
//
// NOT validated (populated by the indexer):
//   - Vector, ConfigId
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}
	if chunk.EntityId == "" {
		return fmt.Errorf("%w: missing entity id", ErrInvalidChunk)
	}
	if chunk.ContentType == "" {
		return fmt.Errorf("%w: missing content type", ErrInvalidChunk)
	}
	if chunk.Ordinal < 0 {
		return fmt.Errorf("%w: negative ordinal", ErrInvalidChunk)
	}
	return nil
}
