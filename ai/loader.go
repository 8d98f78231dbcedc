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
	"fmt"
	"log/slog"
	"sync"
)

// ProviderFactory constructs a Provider from a validated configuration.
// Implementation packages register their factory with a Loader so the ai
// package stays free of vendor imports.
type ProviderFactory func(cfg *Config) (Provider, error)

// Loader resolves configurations to live providers, caching each instance
// by configuration key. Providers are initialized lazily on first use and
// never evicted; Close tears down every cached instance.
type Loader struct {
	mu        sync.Mutex
	factories map[string]ProviderFactory
	cache     map[string]Provider
	logger    *slog.Logger
}

// NewLoader creates an empty Loader. Register factories before loading.
func NewLoader() *Loader {
	return &Loader{
		factories: make(map[string]ProviderFactory),
		cache:     make(map[string]Provider),
		logger:    slog.Default().With("component", "ai-loader"),
	}
}

// RegisterFactory associates a provider name with its constructor.
// Registering the same name again replaces the previous factory.
func (l *Loader) RegisterFactory(name string, factory ProviderFactory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[name] = factory
}

// Load returns the provider for cfg, constructing it on first use.
// Subsequent calls with an equivalent configuration reuse the cached
// instance.
func (l *Loader) Load(cfg *Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := cfg.Key()
	if provider, ok := l.cache[key]; ok {
		return provider, nil
	}

	factory, ok := l.factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("ai: no factory registered for provider %q", cfg.Provider)
	}

	provider, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("initialized provider",
		"provider", cfg.Provider,
		"chat_model", cfg.ChatModel,
		"embedding_model", cfg.EmbeddingModel)
	l.cache[key] = provider
	return provider, nil
}

// Close closes every cached provider and clears the cache.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for key, provider := range l.cache {
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.cache, key)
	}
	return firstErr
}
