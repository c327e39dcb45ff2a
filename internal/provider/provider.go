// Package provider implements LLM provider interfaces and clients.
package provider

import (
	"context"
)

// Client is the interface for LLM API clients.
type Client interface {
	// CompleteStructured sends a completion request expecting a single
	// structured (JSON) answer and returns the raw text plus usage.
	CompleteStructured(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	// CompleteStream sends a completion request and returns a channel of
	// incremental fragments. The final event has Done set and carries usage;
	// a transport failure surfaces as an event with Err set.
	CompleteStream(ctx context.Context, req *CompletionRequest) (<-chan StreamEvent, error)
	// DefaultModel returns the configured default model.
	DefaultModel() string
}

// CompletionRequest contains the parameters for a completion call.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
	// ForceJSON asks the provider for a JSON-object response where supported.
	ForceJSON bool
}

// CompletionResponse contains a non-streamed completion result.
type CompletionResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// StreamEvent is one element of a streamed completion.
type StreamEvent struct {
	Text  string
	Done  bool
	Usage Usage
	Err   error
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add sums another usage into this one.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
