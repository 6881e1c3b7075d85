package core

import "context"

// ToolDescriptor is the immutable metadata for a capability. It is created
// at registry build time and never mutated afterwards.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Version     string         `json:"version"`
	InputTypes  map[string]any `json:"input_types,omitempty"`
	OutputTypes map[string]any `json:"output_types,omitempty"`
	Available   bool           `json:"available"`
}

// Capability is a named unit of external action (search, lookup, computation).
// Implementations must not be assumed exception-free: Execute may return an
// error or panic, and callers are expected to sandbox both.
type Capability interface {
	Descriptor() ToolDescriptor
	Execute(ctx context.Context, command string) (any, error)
}
