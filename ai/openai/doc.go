// Package openai provides AI service implementations backed by
// OpenAI-compatible APIs (OpenAI, Ollama, LocalAI, vLLM, ...).
//
// The implementations are thin adapters over langchaingo clients. All public
// constructors return the ai package interfaces to keep callers decoupled
// from this package.
package openai
