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


package mock

import (
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/recollect/ai"
)

// MockProvider is a test double for ai.Provider.
// It aggregates mock chat and embedder instances.
type MockProvider struct {
	chat     *MockChatModel
	embedder *MockEmbedder
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.Provider interface for consistency with production
// constructors. Use GetMockChatModel()/GetMockEmbedder() to access
// concrete types for test assertions.
func NewMockProvider() ai.Provider {
	return &MockProvider{
		chat:     NewMockChatModel(),
		embedder: NewMockEmbedder(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
func NewMockProviderWithServices(chat *MockChatModel, embedder *MockEmbedder) ai.Provider {
	return &MockProvider{
		chat:     chat,
		embedder: embedder,
	}
}

// Factory adapts NewMockProvider to the ai.ProviderFactory signature.
func Factory(cfg *ai.Config) (ai.Provider, error) {
	return NewMockProvider(), nil
}

// ChatModel returns the mock chat model.
func (p *MockProvider) ChatModel() llms.Model {
	return p.chat
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockChatModel returns the underlying mock chat model for test assertions.
func (p *MockProvider) GetMockChatModel() *MockChatModel {
	return p.chat
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}
