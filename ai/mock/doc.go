// Package mock provides deterministic test doubles for the ai package.
// Nothing here talks to an external service: embeddings are derived from
// text hashes, chat responses are scripted, and diarization/transcription
// results are configured directly on the mock.
package mock
