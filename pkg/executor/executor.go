// Package executor turns a (context, sub-goal, tool) triple into a tool
// invocation and a structured result. Tool failures of any kind (an
// unavailable tool, a blank generated command, an error or panic inside the
// tool) are folded into the result and never propagate to the caller.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/llm"
	"github.com/telos-labs/telos/pkg/registry"
)

var commandSchema = &llm.ResponseSchema{
	Name: "ToolCommand",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"analysis": map[string]any{"type": "string"},
			"command":  map[string]any{"type": "string"},
		},
		"required": []string{"analysis", "command"},
	},
}

// Executor dispatches capabilities against generated commands.
type Executor struct {
	provider    llm.Provider
	model       string
	temperature float64
	registry    *registry.Registry
	logger      *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithTemperature sets the sampling temperature for command generation.
func WithTemperature(t float64) Option {
	return func(e *Executor) { e.temperature = t }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// New creates an Executor over the given provider and registry.
func New(provider llm.Provider, model string, reg *registry.Registry, opts ...Option) *Executor {
	e := &Executor{
		provider: provider,
		model:    model,
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteStep executes a single step using the specified tool.
//
// An unknown tool is rejected immediately without an oracle call. A blank
// generated command is a local failure; nothing is dispatched. A dispatched
// tool's error or panic is captured into the result.
func (e *Executor) ExecuteStep(ctx context.Context, stepContext, subGoal, toolName string) core.ExecutionResult {
	capability, ok := e.registry.Capability(toolName)
	if !ok {
		return core.ExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("tool %q is not available", toolName),
		}
	}

	command, err := e.generateCommand(ctx, stepContext, subGoal, toolName)
	if err != nil {
		return core.ExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("command generation failed: %v", err),
		}
	}
	if command == "" {
		return core.ExecutionResult{
			Success: false,
			Error:   "oracle generated a blank command",
		}
	}

	result, err := dispatch(ctx, capability, command)
	if err != nil {
		return core.ExecutionResult{
			Success: false,
			Command: command,
			Error:   err.Error(),
		}
	}

	return core.ExecutionResult{
		Success: true,
		Command: command,
		Result:  result,
	}
}

// generateCommand asks the oracle for a command constrained to the fixed
// {analysis, command} schema, decoding the reply through the usual tiers.
func (e *Executor) generateCommand(ctx context.Context, stepContext, subGoal, toolName string) (string, error) {
	desc, _ := e.registry.Descriptor(toolName)
	resp, err := e.provider.Chat(ctx, llm.ChatRequest{
		Model:       e.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: commandPrompt(stepContext, subGoal, toolName, desc)}},
		Temperature: e.temperature,
		Schema:      commandSchema,
	})
	if err != nil {
		return "", err
	}

	analysis, command := extractCommand(resp)
	e.logger.Debug("command generated", "tool", toolName, "analysis", analysis, "command", command)
	return command, nil
}

// dispatch sandboxes the capability call: both returned errors and panics
// surface as ordinary errors.
func dispatch(ctx context.Context, capability core.Capability, command string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return capability.Execute(ctx, command)
}

func extractCommand(resp *llm.ChatResponse) (analysis, command string) {
	if resp == nil {
		return "", ""
	}

	var payload struct {
		Analysis string `json:"analysis"`
		Command  string `json:"command"`
	}
	if resp.Structured != nil {
		if err := json.Unmarshal(resp.Structured, &payload); err == nil {
			return strings.TrimSpace(payload.Analysis), strings.TrimSpace(payload.Command)
		}
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &payload); err == nil {
		return strings.TrimSpace(payload.Analysis), strings.TrimSpace(payload.Command)
	}

	for _, line := range strings.Split(resp.Content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Analysis:"):
			analysis = strings.TrimSpace(strings.TrimPrefix(line, "Analysis:"))
		case strings.HasPrefix(line, "Command:"):
			command = strings.TrimSpace(strings.TrimPrefix(line, "Command:"))
		}
	}
	return analysis, command
}

func commandPrompt(stepContext, subGoal, toolName string, desc core.ToolDescriptor) string {
	metadata, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		metadata = []byte(fmt.Sprintf("%+v", desc))
	}
	return fmt.Sprintf(`Task: Generate a command for the %s tool based on the given context and subgoal.

Context: %s
Subgoal: %s
Tool: %s
Tool Metadata: %s

Instructions:
1. Analyze the context and subgoal carefully.
2. Generate a command that will help achieve the subgoal using the specified tool.
3. Ensure the command follows the tool's requirements and best practices.

Response Format:
Your response MUST follow this structure:
1. Analysis: Explain your reasoning for the command.
2. Command: The actual command to execute.

Rules:
- The command MUST be valid for the specified tool.
- The command MUST be specific and actionable.
- The command MUST help achieve the subgoal.`,
		toolName, stepContext, subGoal, toolName, string(metadata))
}

// NewStep builds the trace entry for a finished execution.
func NewStep(index int, toolName, subGoal string, result core.ExecutionResult, startedAt time.Time) core.Step {
	return core.Step{
		Index:      index,
		ToolName:   toolName,
		SubGoal:    subGoal,
		Command:    result.Command,
		Result:     result.Result,
		Success:    result.Success,
		Error:      result.Error,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
}
