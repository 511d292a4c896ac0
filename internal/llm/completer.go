// Package llm wraps the chat-completion provider used for title generation
// and moderation. Callers depend on the narrow Completer interface; a nil
// Completer means the provider is not configured and features must degrade.
package llm

import "context"

// Request is a single-shot chat completion with one system and one user message.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
	// JSON asks the provider for a json_object response format.
	JSON bool
}

// Completer defines the interface contract for chat-completion calls.
type Completer interface {
	// Complete returns the first choice's message text, or "" when the
	// provider returned no choices.
	Complete(ctx context.Context, req Request) (string, error)
	ModelName() string
}
