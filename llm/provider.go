// Package llm defines the interface consumed from text-generation backends.
// The orchestration layer treats the backend as an opaque generator of text
// and tool calls; concrete provider adapters live outside this repository.
package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/roundtable-ai/roundtable/types"
)

// ToolCall represents a tool invocation request returned by the backend.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSchema describes a tool made available to the backend.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ChatRequest is a generation request.
type ChatRequest struct {
	Model       string          `json:"model,omitempty"`
	Messages    []types.Message `json:"messages"`
	Tools       []ToolSchema    `json:"tools,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
}

// ChatResponse is a complete generation result.
type ChatResponse struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// StreamChunk is one incremental piece of a streaming generation. The final
// chunk of an errored stream carries Err; a clean stream simply closes.
type StreamChunk struct {
	Delta        string       `json:"delta"`
	FinishReason string       `json:"finish_reason,omitempty"`
	Err          *types.Error `json:"error,omitempty"`
}

// Provider is the uniform adapter interface over a generation backend.
type Provider interface {
	// Completion issues a synchronous request and returns the full response.
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream issues a streaming request and returns a channel of ordered
	// text deltas. The channel is closed when generation finishes.
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// Name returns the provider's unique identifier.
	Name() string
}
