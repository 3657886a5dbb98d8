// Package llm wraps an OpenAI-compatible chat completions API.
//
// The default backend is Gemini's OpenAI-compatible endpoint. Any service that
// speaks the chat completions protocol can be used by changing the base URL.
package llm
