// Package llm defines the chat-completion provider interface used for
// summarization and speaker identification.
package llm

import "context"

// Request is a single-turn completion request.
type Request struct {
	SystemPrompt string
	UserPrompt   string

	// Temperature of 0 leaves the provider default in place.
	Temperature float64

	// MaxTokens caps the completion length; 0 means no explicit cap.
	MaxTokens int
}

// Provider produces chat completions.
type Provider interface {
	// Complete runs a single completion and returns the assistant text.
	Complete(ctx context.Context, req Request) (string, error)
}
