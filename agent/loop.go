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
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/retrieval"
)

const (
	// DefaultMaxToolIterations bounds model round trips per turn.
	DefaultMaxToolIterations = 5

	// DefaultHistoryLimit bounds how many prior turns are replayed.
	DefaultHistoryLimit = 20

	// DefaultRetrievalTopK is how many chunks ground a turn.
	DefaultRetrievalTopK = 8

	// IterationLimitMessage is returned when the model never produces a
	// terminal response within the iteration bound.
	IterationLimitMessage = "I could not finish answering within the allowed number of tool steps. Try narrowing the question or asking it directly."
)

const systemPromptTemplate = `You are an assistant answering questions about recorded meetings.
Ground every answer in the context below and in tool results. If the context does not
contain the answer, say so instead of guessing. Cite speakers by their labels.

Context:
%s`

// Turn is one prior exchange message in a conversation.
type Turn struct {
	Role llms.ChatMessageType
	Text string
}

// Request is one question put to the agent.
type Request struct {
	Query string

	// History holds prior turns, oldest first. Only the most recent
	// DefaultHistoryLimit messages are replayed to the model.
	History []Turn

	// Scope restricts retrieval.
	Scope core.Scope

	// FullTranscript, when set, is given to the model whole and
	// retrieval is skipped. Used for single short recordings.
	FullTranscript string

	// UseTools exposes the registry to the model.
	UseTools bool

	// Context is the ambient scope for tool handlers.
	Context *ToolContext
}

// Answer is the agent's terminal response for one turn.
type Answer struct {
	Text      string
	ToolCalls int
}

// Loop drives one conversational turn: retrieve, compose, call the
// model, and execute tool calls until a terminal response or the
// iteration bound.
type Loop struct {
	model     llms.Model
	retriever *retrieval.Retriever
	registry  *Registry

	maxIterations int
	historyLimit  int
	topK          int
	logger        *slog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxToolIterations overrides the model round-trip bound.
func WithMaxToolIterations(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithHistoryLimit overrides the replayed-history bound.
func WithHistoryLimit(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.historyLimit = n
		}
	}
}

// WithRetrievalTopK overrides how many chunks ground a turn.
func WithRetrievalTopK(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.topK = n
		}
	}
}

// WithLoopLogger sets a custom logger.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates an agent loop. The registry may be nil when tool use
// is never requested.
func NewLoop(model llms.Model, retriever *retrieval.Retriever, registry *Registry, opts ...LoopOption) (*Loop, error) {
	if model == nil {
		return nil, ErrModelRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	l := &Loop{
		model:         model,
		retriever:     retriever,
		registry:      registry,
		maxIterations: DefaultMaxToolIterations,
		historyLimit:  DefaultHistoryLimit,
		topK:          DefaultRetrievalTopK,
		logger:        slog.Default().With("component", "agent"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Ask answers one question. Tool calls returned by the model execute
// sequentially in model order, since later calls may depend on earlier
// side effects.
func (l *Loop) Ask(ctx context.Context, req Request) (*Answer, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	contextBlock, err := l.buildContext(ctx, req)
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{{
		Role:  llms.ChatMessageTypeSystem,
		Parts: []llms.ContentPart{llms.TextPart(fmt.Sprintf(systemPromptTemplate, contextBlock))},
	}}
	history := req.History
	if len(history) > l.historyLimit {
		history = history[len(history)-l.historyLimit:]
	}
	for _, turn := range history {
		messages = append(messages, llms.MessageContent{
			Role:  turn.Role,
			Parts: []llms.ContentPart{llms.TextPart(turn.Text)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Query)},
	})

	options := []llms.CallOption{llms.WithTemperature(0.2)}
	if req.UseTools && l.registry != nil {
		options = append(options, llms.WithTools(l.registry.Definitions()))
	}

	toolCalls := 0
	for iteration := 0; iteration < l.maxIterations; iteration++ {
		response, err := l.model.GenerateContent(ctx, messages, options...)
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}
		if len(response.Choices) < 1 {
			return nil, fmt.Errorf("no choices returned from model")
		}
		choice := response.Choices[0]

		if len(choice.ToolCalls) == 0 {
			return &Answer{Text: choice.Content, ToolCalls: toolCalls}, nil
		}
		if l.registry == nil {
			// Nothing can execute the calls; take whatever text came
			// with them as the terminal answer.
			l.logger.Warn("model requested tools but no registry is configured",
				"requested", len(choice.ToolCalls))
			return &Answer{Text: choice.Content, ToolCalls: toolCalls}, nil
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		for _, call := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, call)
		}
		messages = append(messages, assistant)

		for _, call := range choice.ToolCalls {
			toolCalls++
			result := l.registry.Execute(ctx, call.FunctionCall.Name, call.FunctionCall.Arguments, req.Context)
			encoded, err := json.Marshal(result)
			if err != nil {
				encoded = []byte(fmt.Sprintf(`{"success":false,"error":%q}`, err.Error()))
			}
			l.logger.Debug("tool executed",
				"tool", call.FunctionCall.Name,
				"success", result.Success)
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: call.ID,
					Name:       call.FunctionCall.Name,
					Content:    string(encoded),
				}},
			})
		}
	}

	l.logger.Warn("iteration bound reached without terminal response", "tool_calls", toolCalls)
	return &Answer{Text: IterationLimitMessage, ToolCalls: toolCalls}, nil
}

// buildContext assembles the grounding block: the full transcript when
// provided, otherwise retrieved chunks for the query.
func (l *Loop) buildContext(ctx context.Context, req Request) (string, error) {
	if req.FullTranscript != "" {
		return req.FullTranscript, nil
	}

	hits, err := l.retriever.Search(ctx, req.Query, req.Scope, l.topK)
	if err != nil {
		return "", fmt.Errorf("retrieval: %w", err)
	}
	if len(hits) == 0 {
		return "(no relevant content found)", nil
	}

	var sb strings.Builder
	for i, hit := range hits {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		fmt.Fprintf(&sb, "[%s %s/%d]\n%s", hit.Chunk.EntityId, hit.Chunk.ContentType, hit.Chunk.Ordinal, hit.Chunk.Text)
	}
	return sb.String(), nil
}
