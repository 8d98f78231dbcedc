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
	"fmt"
	"strings"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/retrieval"
	"github.com/poiesic/recollect/storage"
)

// BuiltinDeps are the collaborators the built-in tools close over.
type BuiltinDeps struct {
	Recordings storage.RecordingRepository
	Retriever  *retrieval.Retriever

	// Research runs the iterative research loop. Usually Loop.Research.
	Research func(ctx context.Context, question string, scope core.Scope, depth int) (*ResearchReport, error)
}

// RegisterBuiltins registers the standard tool set on the registry.
func RegisterBuiltins(r *Registry, deps BuiltinDeps) error {
	tools := []*Tool{
		searchNotesTool(deps),
		getTranscriptTool(deps),
		listActionItemsTool(deps),
		addActionItemTool(deps),
	}
	if deps.Research != nil {
		tools = append(tools, researchTool(deps))
	}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func searchNotesTool(deps BuiltinDeps) *Tool {
	return &Tool{
		Name:        "search_notes",
		Description: "Search indexed meeting content for passages relevant to a query. Scoped to the current recording unless recording_id is given.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":        map[string]any{"type": "string", "description": "What to search for."},
				"recording_id": map[string]any{"type": "string", "description": "Recording to search. Defaults to the current recording; empty searches all."},
				"top_k":        map[string]any{"type": "integer", "description": "Maximum passages to return."},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any, tc *ToolContext) (any, error) {
			query := strings.TrimSpace(stringArg(args, "query"))
			if query == "" {
				return nil, fmt.Errorf("query is required")
			}
			scope := core.Scope{EntityId: resolveRecordingID(args, tc)}
			hits, err := deps.Retriever.Search(ctx, query, scope, intArg(args, "top_k"))
			if err != nil {
				return nil, err
			}
			type hit struct {
				RecordingID string  `json:"recording_id"`
				ContentType string  `json:"content_type"`
				Text        string  `json:"text"`
				Score       float32 `json:"score"`
			}
			out := make([]hit, 0, len(hits))
			for _, h := range hits {
				out = append(out, hit{
					RecordingID: h.Chunk.EntityId,
					ContentType: string(h.Chunk.ContentType),
					Text:        h.Chunk.Text,
					Score:       h.Score,
				})
			}
			return out, nil
		},
	}
}

func getTranscriptTool(deps BuiltinDeps) *Tool {
	return &Tool{
		Name:        "get_transcript",
		Description: "Fetch the full speaker-labeled transcript of a recording.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recording_id": map[string]any{"type": "string", "description": "Recording to fetch. Defaults to the current recording."},
			},
		},
		Handler: func(ctx context.Context, args map[string]any, tc *ToolContext) (any, error) {
			id := resolveRecordingID(args, tc)
			if id == "" {
				return nil, fmt.Errorf("no recording in scope")
			}
			rec, err := deps.Recordings.GetRecording(ctx, id)
			if err != nil {
				return nil, err
			}
			return rec.Transcript, nil
		},
	}
}

func listActionItemsTool(deps BuiltinDeps) *Tool {
	return &Tool{
		Name:        "list_action_items",
		Description: "List the structured action items extracted from a recording.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recording_id": map[string]any{"type": "string", "description": "Recording to list. Defaults to the current recording."},
			},
		},
		Handler: func(ctx context.Context, args map[string]any, tc *ToolContext) (any, error) {
			id := resolveRecordingID(args, tc)
			if id == "" {
				return nil, fmt.Errorf("no recording in scope")
			}
			rec, err := deps.Recordings.GetRecording(ctx, id)
			if err != nil {
				return nil, err
			}
			return rec.ActionItems, nil
		},
	}
}

func addActionItemTool(deps BuiltinDeps) *Tool {
	return &Tool{
		Name:        "add_action_item",
		Description: "Append a new action item to a recording.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task":         map[string]any{"type": "string", "description": "What needs to be done."},
				"owner":        map[string]any{"type": "string", "description": "Who owns it."},
				"due_date":     map[string]any{"type": "string", "description": "ISO due date."},
				"recording_id": map[string]any{"type": "string", "description": "Recording to update. Defaults to the current recording."},
			},
			"required": []string{"task"},
		},
		Mutating: true,
		Handler: func(ctx context.Context, args map[string]any, tc *ToolContext) (any, error) {
			task := strings.TrimSpace(stringArg(args, "task"))
			if task == "" {
				return nil, fmt.Errorf("task is required")
			}
			id := resolveRecordingID(args, tc)
			if id == "" {
				return nil, fmt.Errorf("no recording in scope")
			}
			rec, err := deps.Recordings.GetRecording(ctx, id)
			if err != nil {
				return nil, err
			}
			item := core.ActionItem{
				Task:    task,
				Owner:   stringArg(args, "owner"),
				DueDate: stringArg(args, "due_date"),
			}
			rec.ActionItems = append(rec.ActionItems, item)
			if err := deps.Recordings.SaveRecording(ctx, rec); err != nil {
				return nil, err
			}
			return item, nil
		},
	}
}

func researchTool(deps BuiltinDeps) *Tool {
	return &Tool{
		Name:        "research",
		Description: "Iteratively research a question against indexed meeting content, refining the question until confident. Use for questions a single search cannot answer.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question":     map[string]any{"type": "string", "description": "The question to research."},
				"max_depth":    map[string]any{"type": "integer", "description": "Maximum research rounds."},
				"recording_id": map[string]any{"type": "string", "description": "Recording to research. Defaults to the current recording; empty researches all."},
			},
			"required": []string{"question"},
		},
		Handler: func(ctx context.Context, args map[string]any, tc *ToolContext) (any, error) {
			question := strings.TrimSpace(stringArg(args, "question"))
			if question == "" {
				return nil, fmt.Errorf("question is required")
			}
			scope := core.Scope{EntityId: resolveRecordingID(args, tc)}
			return deps.Research(ctx, question, scope, intArg(args, "max_depth"))
		},
	}
}
