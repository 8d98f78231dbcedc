// Package openai implements ai.Provider against OpenAI-compatible APIs.
// It works with the hosted OpenAI service as well as local servers that
// speak the same protocol (vLLM, LocalAI, Ollama's /v1 endpoint).
package openai
