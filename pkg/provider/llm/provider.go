// Package llm defines the Provider interface for chat completion backends.
//
// The gateway sends one completion request per interaction: the configured
// system instruction plus the transcribed user utterance. Streaming is not
// needed because the reply is synthesised as a whole before playback starts.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Message is one role-tagged conversation turn.
type Message struct {
	// Role is "system", "user" or "assistant".
	Role string

	// Content is the turn text.
	Content string
}

// CompletionRequest carries everything the model needs to produce a reply.
type CompletionRequest struct {
	// Model overrides the provider's configured model for this request.
	// Empty uses the provider default. Lets the admin surface switch models
	// between interactions without rebuilding providers.
	Model string

	// SystemPrompt is the high-priority instruction injected before the
	// conversation. Providers without a dedicated system slot prepend it as a
	// "system"-role message.
	SystemPrompt string

	// Messages is the ordered conversation history. The last message is the
	// user turn that drives the response.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests the
	// provider default.
	Temperature float64
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string
}

// Provider is the abstraction over any chat completion backend.
type Provider interface {
	// Complete sends req and blocks until the full reply arrives or the
	// request fails. Implementations must propagate ctx cancellation promptly.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
