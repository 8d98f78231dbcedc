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


package ai

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Provider name constants accepted by Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the implementation: "openai", "ollama", or "mock".
	Provider string

	// ChatHost is the base URL for the chat/analysis service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	ChatHost string

	// ChatModel is the model identifier used for analysis and agent turns.
	// Example: "qwen2.5:7b", "gpt-4o-mini"
	ChatModel string

	// EmbeddingHost is the base URL for the embedding service API.
	EmbeddingHost string

	// EmbeddingModel is the model identifier used for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingDimension is the expected vector width of EmbeddingModel.
	// Vectors of any other width are rejected at indexing time.
	EmbeddingDimension int

	// APIKey authenticates against hosted providers. Local servers
	// generally ignore it; "none" is sent when empty.
	APIKey string

	// DiarizationHost is the base URL of the speaker diarization service.
	DiarizationHost string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the provider implementation.
func WithProvider(name string) ConfigOption {
	return func(c *Config) {
		c.Provider = name
	}
}

// WithChatHost sets the chat service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithHost sets both chat and embedding hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier and its dimension.
func WithEmbeddingModel(model string, dimension int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
		c.EmbeddingDimension = dimension
	}
}

// WithAPIKey sets the API key for hosted providers.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDiarizationHost sets the diarization service URL.
func WithDiarizationHost(host string) ConfigOption {
	return func(c *Config) {
		c.DiarizationHost = host
	}
}

// DefaultConfig returns a Config with sensible defaults for local services.
// The provider is auto-detected: "openai" when OPENAI_API_KEY is set in the
// environment, "ollama" otherwise.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		Provider:           DetectProvider(),
		ChatHost:           defaultHost,
		ChatModel:          "qwen2.5:7b",
		EmbeddingHost:      defaultHost,
		EmbeddingModel:     "embeddinggemma",
		EmbeddingDimension: 768,
		APIKey:             os.Getenv("OPENAI_API_KEY"),
		DiarizationHost:    "http://localhost:8001",
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// DetectProvider picks a provider from the environment: "openai" when
// OPENAI_API_KEY is present, "ollama" otherwise.
func DetectProvider() string {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	return ProviderOllama
}

// Normalize ensures the configuration is in a canonical form. Chat and
// embedding hosts get the /v1 suffix required by OpenAI-compatible APIs;
// the diarization host keeps its bare form.
func (c *Config) Normalize() {
	c.ChatHost = normalizeHost(c.ChatHost)
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.DiarizationHost = strings.TrimSuffix(c.DiarizationHost, "/")
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderMock:
	default:
		return fmt.Errorf("ai config: unknown provider %q", c.Provider)
	}
	if c.Provider == ProviderMock {
		return nil
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.EmbeddingDimension <= 0 {
		return errors.New("ai config: EmbeddingDimension must be positive")
	}
	return nil
}

// Key returns a cache key identifying the provider instance this
// configuration resolves to.
func (c *Config) Key() string {
	return strings.Join([]string{c.Provider, c.ChatHost, c.ChatModel, c.EmbeddingHost, c.EmbeddingModel}, "|")
}
