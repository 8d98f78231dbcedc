package pipeline

import (
	"context"
	"fmt"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/media"
)

// FallbackSpeakerLabel is assigned when diarization yields no segments.
const FallbackSpeakerLabel = "SPEAKER_00"

// runDiarization splits the audio into speaker-attributed segments.
// Diarization unavailability never fails the job: an error or an empty
// result degrades to a single full-duration segment under the fallback
// label, so single-speaker memos and offline diarization services still
// transcribe.
func (o *Orchestrator) runDiarization(ctx context.Context, job *core.Job, rec *core.Recording, st *state, stageIdx int) error {
	segments, err := o.diarizer.Diarize(ctx, st.AudioPath, rec.SpeakerHint)
	if err != nil {
		job.AppendLog(fmt.Sprintf("diarization unavailable, using single-speaker fallback: %v", err))
		o.logger.Warn("diarization failed, falling back to single speaker",
			"job_id", job.Id, "err", err)
		segments = nil
	}

	if len(segments) == 0 {
		end := st.Duration
		if end < media.MinSliceSeconds {
			end = media.MinSliceSeconds
		}
		segments = []core.DiarizationSegment{{
			Speaker: FallbackSpeakerLabel,
			Start:   0,
			End:     end,
		}}
		if err == nil {
			job.AppendLog("diarization returned no segments, using single-speaker fallback")
			o.logger.Warn("diarization empty, falling back to single speaker",
				"job_id", job.Id, "duration", st.Duration)
		}
	}

	st.Segments = segments
	return nil
}
