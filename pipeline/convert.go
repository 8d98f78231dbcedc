package pipeline

import (
	"context"
	"fmt"

	"github.com/poiesic/recollect/core"
)

// runConversion normalizes the source media into the 16 kHz mono WAV the
// speech models expect and probes its duration.
func (o *Orchestrator) runConversion(ctx context.Context, job *core.Job, rec *core.Recording, st *state, stageIdx int) error {
	audioPath, err := o.converter.ToWAV(ctx, rec.SourcePath, o.jobWorkDir(job.Id))
	if err != nil {
		return fmt.Errorf("converting %s: %w", rec.SourcePath, err)
	}
	o.setProgress(ctx, job, stageIdx, 70)

	duration, err := o.converter.Probe(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("probing %s: %w", audioPath, err)
	}

	st.AudioPath = audioPath
	st.Duration = duration
	return nil
}
