package llm

import "context"

// Provider is a chat-completion backend. Implementations are safe for
// concurrent use; the dashboard shares one across websocket sessions.
type Provider interface {
	// Complete sends a completion request and returns the response.
	// Tool definitions in the request are surfaced to the model; any
	// tool calls it makes come back on the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
