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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
)

const maxAnalysisAttempts = 3

// runAnalysis asks the chat model to summarize the transcript and pull
// out decisions and action items. Malformed model output is retried up
// to maxAnalysisAttempts; persistent rejection fails the job with
// ErrAnalysisRejected while the transcript and its checkpoints survive,
// so a retry re-runs only this stage.
func (o *Orchestrator) runAnalysis(ctx context.Context, job *core.Job, rec *core.Recording, st *state, stageIdx int) error {
	if strings.TrimSpace(rec.Transcript) == "" {
		return fmt.Errorf("%w: empty transcript", core.ErrStageInput)
	}

	systemPrompt := fmt.Sprintf(analysisPromptTemplate, analysisResponseSchema)
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(rec.Transcript)},
		},
	}

	var result core.AnalysisResult
	var lastErr error
	for attempt := 0; attempt < maxAnalysisAttempts; attempt++ {
		response, err := o.chat.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			// Transport-level failure, not a formatting problem.
			return fmt.Errorf("analysis generation: %w", err)
		}
		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("no choices returned from model")
			continue
		}

		responseText := ai.RepairJSON(ai.StripFences(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			o.logger.Warn("error parsing analysis response",
				"job_id", job.Id,
				"attempt", attempt+1,
				"err", err)
			continue
		}
		if err := validateAnalysis(&result); err != nil {
			lastErr = err
			o.logger.Warn("analysis response failed validation",
				"job_id", job.Id,
				"attempt", attempt+1,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		result = core.AnalysisResult{
			Success: false,
			Message: fmt.Sprintf("analysis rejected after %d attempts: %v", maxAnalysisAttempts, lastErr),
		}
		job.AppendLog(result.Message)
		return fmt.Errorf("%w: %v", ErrAnalysisRejected, lastErr)
	}

	result.Success = true
	rec.Summary = result.Summary
	rec.Decisions = result.Decisions
	rec.ActionItems = result.ActionItems
	if err := o.recordings.SaveRecording(ctx, rec); err != nil {
		return err
	}

	o.logger.Info("analysis complete",
		"job_id", job.Id,
		"decisions", len(result.Decisions),
		"action_items", len(result.ActionItems))
	return nil
}

// validateAnalysis rejects structurally valid JSON that is semantically
// unusable.
func validateAnalysis(result *core.AnalysisResult) error {
	if len(result.Summary) == 0 {
		return fmt.Errorf("summary is empty")
	}
	for i, line := range result.Summary {
		if strings.TrimSpace(line) == "" {
			return fmt.Errorf("summary line %d is blank", i)
		}
	}
	for i, item := range result.ActionItems {
		if strings.TrimSpace(item.Task) == "" {
			return fmt.Errorf("action item %d has no task", i)
		}
	}
	return nil
}
