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
	"sync"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/recollect/storage"
)

// Handler executes one tool invocation. Errors returned here become
// structured results at the invocation boundary, never propagated
// exceptions.
type Handler func(ctx context.Context, args map[string]any, tc *ToolContext) (any, error)

// ToolContext carries the ambient scope a handler falls back to when
// the model's arguments omit it.
type ToolContext struct {
	// RecordingID is the "current recording" of the conversation.
	RecordingID string
}

// Tool pairs a model-facing function definition with its handler.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON-schema object describing the arguments.
	Parameters map[string]any
	Handler    Handler
	// Mutating handlers run inside a storage transaction; a failed or
	// panicking handler rolls its writes back.
	Mutating bool
}

// Result is the structured outcome of a tool invocation.
type Result struct {
	Success bool   `json:"success"`
	Content any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Registry holds the named tools available to the agent loop. It is
// in-memory and rebuilt at process start.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	names []string

	tx     storage.Repository
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTransactions makes mutating tools run inside the repository's
// transaction scope.
func WithTransactions(repo storage.Repository) RegistryOption {
	return func(r *Registry) {
		r.tx = repo
	}
}

// WithRegistryLogger sets a custom logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:  make(map[string]*Tool),
		logger: slog.Default().With("component", "agent"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. Re-registering a name silently overwrites the
// previous tool.
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Handler == nil {
		return ErrHandlerRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; !exists {
		r.names = append(r.names, tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Definitions returns the registered tools as model-facing function
// definitions, in registration order.
func (r *Registry) Definitions() []llms.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llms.Tool, 0, len(r.names))
	for _, name := range r.names {
		tool := r.tools[name]
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return defs
}

// Execute runs the named tool with JSON-encoded arguments and returns a
// structured result. It never returns an error to the caller: unknown
// names, malformed arguments, handler errors, and handler panics all
// become {success:false, error} results, and a mutating handler's
// storage writes are rolled back on failure.
func (r *Registry) Execute(ctx context.Context, name string, arguments string, tc *ToolContext) Result {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return failure("unknown tool %q", name)
	}

	args := map[string]any{}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return failure("invalid arguments for %q: %v", name, err)
		}
	}
	if tc == nil {
		tc = &ToolContext{}
	}

	var content any
	invoke := func(ctx context.Context) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("tool %q panicked: %v", name, rec)
			}
		}()
		content, err = tool.Handler(ctx, args, tc)
		return err
	}

	var err error
	if tool.Mutating && r.tx != nil {
		err = r.tx.WithTransaction(ctx, invoke)
	} else {
		err = invoke(ctx)
	}
	if err != nil {
		r.logger.Warn("tool invocation failed", "tool", name, "err", err)
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Content: content}
}

// Argument helpers. The model sends loosely typed JSON; handlers accept
// what reasonably coerces and ignore the rest.

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// resolveRecordingID applies the scope rule: explicit argument first,
// ambient context second.
func resolveRecordingID(args map[string]any, tc *ToolContext) string {
	if id := stringArg(args, "recording_id"); id != "" {
		return id
	}
	return tc.RecordingID
}
