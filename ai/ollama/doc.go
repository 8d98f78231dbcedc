// Package ollama implements ai.Provider against a local Ollama server
// using its native API. It is the default provider when no hosted API
// key is configured.
package ollama
