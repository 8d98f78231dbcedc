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


package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/core"
)

const (
	// DefaultResearchDepth is the round bound when the caller gives none.
	DefaultResearchDepth = 3

	// MaxResearchDepth is the hard ceiling no caller can exceed.
	MaxResearchDepth = 10

	// researchConfidenceTarget stops the loop early once the model
	// reports at least this confidence in its findings.
	researchConfidenceTarget = 0.8
)

const researchPromptTemplate = `You are researching a question against retrieved meeting content.

Question: %s

Retrieved context:
%s

Respond with ONLY a JSON object:
{"findings": "<what the context establishes about the question>",
 "confidence": <0.0-1.0, how completely the findings answer the question>,
 "next_question": "<a sharper follow-up question if confidence is low, else empty string>"}`

// ResearchStep is one round of the research loop, kept as the
// rationale trace.
type ResearchStep struct {
	Question     string  `json:"question"`
	Findings     string  `json:"findings"`
	Confidence   float64 `json:"confidence"`
	NextQuestion string  `json:"next_question,omitempty"`
}

// ResearchReport chains the rounds into a final answer.
type ResearchReport struct {
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Steps      []ResearchStep `json:"steps"`
}

// Research runs the depth-bounded iterative loop: retrieve, analyze,
// assess confidence, refine the question. The depth bound is clamped
// before the first model call, so no caller path can exceed
// MaxResearchDepth. Stops early once confidence reaches the target or
// the model offers no refinement.
func (l *Loop) Research(ctx context.Context, question string, scope core.Scope, depth int) (*ResearchReport, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuery
	}
	if depth <= 0 {
		depth = DefaultResearchDepth
	}
	if depth > MaxResearchDepth {
		depth = MaxResearchDepth
	}

	report := &ResearchReport{Question: question}
	current := question
	for round := 0; round < depth; round++ {
		contextBlock := "(no relevant content found)"
		hits, err := l.retriever.Search(ctx, current, scope, l.topK)
		if err != nil {
			return nil, fmt.Errorf("research retrieval: %w", err)
		}
		if len(hits) > 0 {
			var sb strings.Builder
			for i, hit := range hits {
				if i > 0 {
					sb.WriteString("\n---\n")
				}
				sb.WriteString(hit.Chunk.Text)
			}
			contextBlock = sb.String()
		}

		prompt := fmt.Sprintf(researchPromptTemplate, current, contextBlock)
		response, err := l.model.GenerateContent(ctx, []llms.MessageContent{{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		}}, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			return nil, fmt.Errorf("research round %d: %w", round+1, err)
		}
		if len(response.Choices) < 1 {
			return nil, fmt.Errorf("research round %d: no choices returned", round+1)
		}

		step := ResearchStep{Question: current}
		raw := ai.RepairJSON(ai.StripFences(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(raw), &step); err != nil {
			// Unparseable round: keep the raw text as findings at zero
			// confidence and let the loop continue on the same question.
			l.logger.Warn("unparseable research response", "round", round+1, "err", err)
			step.Findings = response.Choices[0].Content
			step.Confidence = 0
			step.NextQuestion = ""
		}
		step.Question = current
		report.Steps = append(report.Steps, step)
		report.Answer = step.Findings
		report.Confidence = step.Confidence

		l.logger.Info("research round complete",
			"round", round+1,
			"confidence", step.Confidence)

		if step.Confidence >= researchConfidenceTarget {
			break
		}
		next := strings.TrimSpace(step.NextQuestion)
		if next == "" || next == current {
			break
		}
		current = next
	}

	return report, nil
}
