package mock

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// MockChatModel is a scriptable test double for llms.Model. Responses are
// served from a queue in order; when the queue runs dry the last response
// repeats, which makes "model always does X" scenarios trivial to set up.
type MockChatModel struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	last      *llms.ContentResponse

	// GenerateFunc overrides the queue entirely when set.
	GenerateFunc func(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)

	// Calls records the message history of every GenerateContent call.
	Calls [][]llms.MessageContent
}

var _ llms.Model = (*MockChatModel)(nil)

// NewMockChatModel creates an empty scripted chat model. With nothing
// enqueued it answers every call with an empty text response.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// EnqueueText scripts a plain text response.
func (m *MockChatModel) EnqueueText(text string) {
	m.enqueue(&llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	})
}

// EnqueueToolCall scripts a response that invokes a single tool.
func (m *MockChatModel) EnqueueToolCall(id, name, arguments string) {
	m.enqueue(&llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:   id,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: arguments,
				},
			}},
		}},
	})
}

// EnqueueResponse scripts an arbitrary response.
func (m *MockChatModel) EnqueueResponse(response *llms.ContentResponse) {
	m.enqueue(response)
}

func (m *MockChatModel) enqueue(response *llms.ContentResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response)
}

// GenerateContent pops the next scripted response.
func (m *MockChatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, messages)
	if m.GenerateFunc != nil {
		fn := m.GenerateFunc
		m.mu.Unlock()
		return fn(ctx, messages, options...)
	}

	var response *llms.ContentResponse
	switch {
	case len(m.responses) > 0:
		response = m.responses[0]
		m.responses = m.responses[1:]
		m.last = response
	case m.last != nil:
		response = m.last
	default:
		response = &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: ""}},
		}
	}
	m.mu.Unlock()
	return response, nil
}

// Call implements the legacy llms.Model method in terms of GenerateContent.
func (m *MockChatModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	response, err := m.GenerateContent(ctx, []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(prompt)}},
	}, options...)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Content, nil
}

// CallCount returns the number of GenerateContent calls recorded.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears scripted responses and recorded calls.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = nil
	m.last = nil
	m.Calls = nil
	m.GenerateFunc = nil
}
