// Package llm defines the generation oracle contract consumed by the
// planner and executor, plus HTTP-backed and mock implementations.
package llm

import (
	"context"
	"encoding/json"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single unit of communication.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResponseSchema asks the backend to constrain its output to a JSON schema.
// Backends that cannot honor it fall back to free text; callers must handle
// both shapes.
type ResponseSchema struct {
	Name   string `json:"name"`
	Schema any    `json:"schema"` // JSON Schema
}

// ChatRequest encapsulates the input for the oracle.
type ChatRequest struct {
	Model       string          `json:"model"`
	Messages    []Message       `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	Schema      *ResponseSchema `json:"schema,omitempty"`
}

// ChatResponse encapsulates the output from the oracle. When the backend
// honored the requested schema, Structured holds the raw JSON value and
// Content holds the same bytes as text; otherwise Structured is nil and
// Content is free text.
type ChatResponse struct {
	Content    string          `json:"content"`
	Structured json.RawMessage `json:"structured,omitempty"`
	Usage      Usage           `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider defines the interface for interacting with oracle backends.
type Provider interface {
	// Chat sends a chat request to the oracle and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
