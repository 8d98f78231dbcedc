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


// Package ai provides abstractions for the AI services used in Recollect.
//
// It defines the interfaces the pipeline, indexer, and agent depend on:
//
//   - Embedder: generates vector embeddings from text
//   - Provider: bundles a chat model and an embedder behind one lifecycle
//   - Diarizer: splits an audio file into per-speaker segments
//   - SpeechTranscriber: converts an audio slice into text
//
// Implementation sub-packages:
//
//   - ai/openai: OpenAI-compatible chat and embedding APIs
//   - ai/ollama: local Ollama server
//   - ai/mock: deterministic test doubles, no external services
//
// Public constructors in the implementation packages return interface
// types to keep callers decoupled from any one vendor. Providers are
// obtained through a Loader, which caches them per configuration so
// repeated lookups reuse live clients.
package ai
