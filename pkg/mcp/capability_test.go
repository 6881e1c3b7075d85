package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

type stubCaller struct {
	lastName string
	lastArgs map[string]any
	result   *mcp.CallToolResult
	err      error
}

func (s *stubCaller) CallTool(_ context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s.lastName = name
	s.lastArgs = args
	return s.result, s.err
}

func echoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "echo",
		Description: "echoes its input",
		InputSchema: mcp.ToolInputSchema{
			Type:     "object",
			Required: []string{"query"},
		},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func TestCapabilityBindsBareCommandToRequiredField(t *testing.T) {
	caller := &stubCaller{result: textResult("ok")}
	capability, err := NewCapability(echoTool(), caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := capability.Execute(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Errorf("expected text content, got %v", out)
	}
	if caller.lastName != "echo" {
		t.Errorf("expected echo, got %q", caller.lastName)
	}
	if caller.lastArgs["query"] != "hello world" {
		t.Errorf("expected bare command bound to query, got %v", caller.lastArgs)
	}
}

func TestCapabilityParsesJSONCommand(t *testing.T) {
	tool := mcp.Tool{
		Name: "sum",
		InputSchema: mcp.ToolInputSchema{
			Type:     "object",
			Required: []string{"a", "b"},
		},
	}
	caller := &stubCaller{result: textResult("3")}
	capability, err := NewCapability(tool, caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := capability.Execute(context.Background(), `{"a": 1, "b": 2}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller.lastArgs["a"] != float64(1) || caller.lastArgs["b"] != float64(2) {
		t.Errorf("expected decoded JSON args, got %v", caller.lastArgs)
	}
}

func TestCapabilityRejectsMissingRequiredArgs(t *testing.T) {
	tool := mcp.Tool{
		Name: "sum",
		InputSchema: mcp.ToolInputSchema{
			Type:     "object",
			Required: []string{"a", "b"},
		},
	}
	capability, err := NewCapability(tool, &stubCaller{result: textResult("unused")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := capability.Execute(context.Background(), `{"a": 1}`); err == nil {
		t.Fatalf("expected missing required field error")
	}
}

func TestCapabilityServerErrorResultBecomesError(t *testing.T) {
	caller := &stubCaller{result: &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "tool exploded"}},
	}}
	capability, err := NewCapability(echoTool(), caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, execErr := capability.Execute(context.Background(), "go")
	if execErr == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(execErr.Error(), "tool exploded") {
		t.Errorf("expected server message in error, got %v", execErr)
	}
}

func TestCapabilityStructuredContentPreferred(t *testing.T) {
	caller := &stubCaller{result: &mcp.CallToolResult{
		StructuredContent: map[string]any{"value": 42},
		Content:           []mcp.Content{mcp.TextContent{Type: "text", Text: "ignored"}},
	}}
	capability, err := NewCapability(echoTool(), caller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := capability.Execute(context.Background(), "go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	structured, ok := out.(map[string]any)
	if !ok || structured["value"] != 42 {
		t.Errorf("expected structured content, got %v", out)
	}
}

func TestCapabilityEmptyCommandIsError(t *testing.T) {
	capability, err := NewCapability(echoTool(), &stubCaller{result: textResult("unused")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := capability.Execute(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestNewCapabilityValidation(t *testing.T) {
	if _, err := NewCapability(mcp.Tool{}, &stubCaller{}); err == nil {
		t.Errorf("expected error for unnamed tool")
	}
	if _, err := NewCapability(echoTool(), nil); err == nil {
		t.Errorf("expected error for nil caller")
	}
}
