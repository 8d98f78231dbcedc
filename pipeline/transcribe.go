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
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/recollect/core"
)

// runTranscription transcribes each diarization segment, fanning slices
// out over the worker pool. Results land unordered and are sorted by
// start time before merging. Finished transcripts are cached under a key
// covering audio content, segment list, and model parameters, so
// re-processing identical input skips the expensive decode entirely.
func (o *Orchestrator) runTranscription(ctx context.Context, job *core.Job, rec *core.Recording, st *state, stageIdx int) error {
	cacheKey := core.IDFromContent(core.Fingerprint(
		st.SourceDigest,
		segmentsDigest(st.Segments),
		o.transcriber.ModelParams(),
	))

	if cached, err := o.cache.GetTranscription(ctx, cacheKey); err == nil && cached != nil {
		job.AppendLog("transcription served from cache")
		o.logger.Info("transcription cache hit", "job_id", job.Id, "segments", len(cached))
		st.Transcript = cached
		o.finishTranscription(ctx, rec, st)
		return nil
	}

	type sliceResult struct {
		segment core.TranscriptSegment
		err     error
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []core.TranscriptSegment
		errs    []error
		done    int
	)

	workDir := o.jobWorkDir(job.Id)
	for i, segment := range st.Segments {
		i, segment := i, segment
		wg.Add(1)
		submitErr := o.slicePool.Submit(func() {
			defer wg.Done()
			slicePath := filepath.Join(workDir, fmt.Sprintf("slice-%04d.wav", i))

			var out sliceResult
			if err := o.converter.Slice(ctx, st.AudioPath, segment.Start, segment.End, slicePath); err != nil {
				out.err = fmt.Errorf("slicing segment %d: %w", i, err)
			} else {
				text, lang, err := o.transcriber.Transcribe(ctx, slicePath, rec.LanguageHint)
				if err != nil {
					out.err = fmt.Errorf("transcribing segment %d: %w", i, err)
				} else {
					out.segment = core.TranscriptSegment{
						Speaker:  segment.Speaker,
						Start:    segment.Start,
						End:      segment.End,
						Text:     text,
						Language: lang,
					}
				}
			}

			mu.Lock()
			if out.err != nil {
				errs = append(errs, out.err)
			} else {
				results = append(results, out.segment)
			}
			done++
			// Progress writes to the shared job stay under the lock so
			// concurrent slices never interleave updates.
			o.setProgress(ctx, job, stageIdx, done*100/len(st.Segments))
			mu.Unlock()
		})
		if submitErr != nil {
			// Account for the task that never ran, then drain the ones
			// already in flight so none of them touch the job after the
			// caller starts writing its failure state.
			wg.Done()
			wg.Wait()
			return fmt.Errorf("submitting segment %d: %w", i, submitErr)
		}
	}
	wg.Wait()

	// A single slice failing loses that segment's text, not the stage.
	for _, sliceErr := range errs {
		job.AppendLog(fmt.Sprintf("dropped segment: %v", sliceErr))
		o.logger.Warn("dropping failed segment", "job_id", job.Id, "err", sliceErr)
	}
	if len(results) == 0 && len(errs) > 0 {
		return fmt.Errorf("all %d segments failed: %w", len(errs), errs[0])
	}

	slices.SortFunc(results, func(a, b core.TranscriptSegment) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})
	st.Transcript = results

	// Only complete runs are cached; a run with dropped segments should
	// not shadow a future clean transcription of the same audio.
	if len(errs) == 0 {
		if err := o.cache.PutTranscription(ctx, cacheKey, results); err != nil {
			// Cache failures degrade performance, not correctness.
			o.logger.Warn("failed to cache transcription", "job_id", job.Id, "err", err)
		}
	}

	o.finishTranscription(ctx, rec, st)
	return nil
}

// finishTranscription derives the recording-level transcript fields from
// the per-segment results and persists them, so the transcript survives
// even if analysis later fails.
func (o *Orchestrator) finishTranscription(ctx context.Context, rec *core.Recording, st *state) {
	st.Language = rec.LanguageHint
	if st.Language == "" {
		st.Language = core.DominantLanguage(st.Transcript)
	}

	rec.Transcript = renderTranscript(st.Transcript)
	rec.Language = st.Language
	rec.Duration = st.Duration
	if err := o.recordings.SaveRecording(ctx, rec); err != nil {
		o.logger.Error("failed to persist transcript", "recording_id", rec.Id, "err", err)
	}
}

// renderTranscript flattens segments into speaker-attributed lines.
func renderTranscript(segments []core.TranscriptSegment) string {
	var sb strings.Builder
	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		sb.WriteString(segment.Speaker)
		sb.WriteString(": ")
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
