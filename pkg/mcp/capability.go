package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/errors"
	"github.com/telos-labs/telos/pkg/registry"
)

// ToolCaller abstracts MCP tool execution for capabilities.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// Capability exposes a single remote MCP tool as a registrable capability.
// Commands arrive as strings; a JSON object command maps directly onto the
// tool's arguments, anything else is routed to the tool's sole required
// string parameter, or to "input" when the schema does not name one.
type Capability struct {
	tool   mcp.Tool
	caller ToolCaller
}

// NewCapability wraps an MCP tool definition and its caller.
func NewCapability(tool mcp.Tool, caller ToolCaller) (*Capability, error) {
	if tool.Name == "" {
		return nil, errors.New(errors.CodeInvalidInput, "mcp tool name is required", nil)
	}
	if caller == nil {
		return nil, errors.New(errors.CodeInvalidInput, "mcp tool caller is required", nil)
	}
	return &Capability{tool: tool, caller: caller}, nil
}

func (c *Capability) Descriptor() core.ToolDescriptor {
	inputs := map[string]any{}
	for name, prop := range c.tool.InputSchema.Properties {
		inputs[name] = prop
	}
	return core.ToolDescriptor{
		Name:        c.tool.Name,
		Description: c.tool.Description,
		Version:     "mcp",
		InputTypes:  inputs,
		OutputTypes: map[string]any{
			"result": map[string]any{"type": "any", "description": "Content returned by the remote tool."},
		},
		Available: true,
	}
}

// Execute calls the remote tool. A result flagged as an error by the server
// is returned as an error here so the executor records a failed step.
func (c *Capability) Execute(ctx context.Context, command string) (any, error) {
	args, err := c.commandArgs(command)
	if err != nil {
		return nil, err
	}
	if err := c.checkRequired(args); err != nil {
		return nil, err
	}

	result, err := c.caller.CallTool(ctx, c.tool.Name, args)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure,
			fmt.Sprintf("mcp tool %s call failed", c.tool.Name), err).WithRecoverable(true)
	}
	return resultOutput(c.tool.Name, result)
}

func (c *Capability) commandArgs(command string) (map[string]any, error) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return nil, errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("mcp tool %s: empty command", c.tool.Name), nil)
	}
	if strings.HasPrefix(trimmed, "{") {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded, nil
		}
	}
	return map[string]any{c.primaryField(): trimmed}, nil
}

// primaryField picks the argument a bare string command binds to.
func (c *Capability) primaryField() string {
	required := c.tool.InputSchema.Required
	if len(required) == 1 {
		return required[0]
	}
	return "input"
}

func (c *Capability) checkRequired(args map[string]any) error {
	schema := c.tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return errors.New(errors.CodeInvalidInput,
				fmt.Sprintf("mcp tool %s: missing required field %q", c.tool.Name, key), nil)
		}
	}
	return nil
}

func resultOutput(name string, result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.New(errors.CodeToolFailure,
			fmt.Sprintf("mcp tool %s returned a nil result", name), nil)
	}
	if result.IsError {
		return nil, errors.New(errors.CodeToolFailure,
			fmt.Sprintf("mcp tool %s returned an error: %s", name, textContent(result.Content)), nil)
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	if text := textContent(result.Content); text != "" {
		return text, nil
	}
	return result, nil
}

func textContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// RegisterAll discovers the server's tools and registers a constructor for
// each into the catalog. Names collide last-write-wins with builtins, so
// deployments that bridge a server should namespace its tool names there.
func RegisterAll(ctx context.Context, catalog *registry.Catalog, client *Client) error {
	tools, err := client.ListTools(ctx)
	if err != nil {
		return errors.New(errors.CodeToolUnavailable, "mcp tool discovery failed", err).WithRecoverable(true)
	}
	for _, tool := range tools {
		tool := tool
		catalog.Register(tool.Name, func(ctx context.Context) (core.Capability, error) {
			return NewCapability(tool, client)
		})
	}
	return nil
}

var _ core.Capability = (*Capability)(nil)
