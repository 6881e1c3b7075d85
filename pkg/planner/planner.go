// Package planner drives the decision side of the orchestration loop: query
// analysis, next-step selection, verification, and final answer synthesis.
// Each operation is a single oracle round trip whose reply is decoded by a
// three-tier extraction strategy (structured value, JSON text, line prefixes).
package planner

import (
	"context"
	"log/slog"
	"strings"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/errors"
	"github.com/telos-labs/telos/pkg/llm"
)

// Planner formulates decisions by consulting the generation oracle.
type Planner struct {
	provider    llm.Provider
	model       string
	temperature float64
	available   []string
	metadata    map[string]core.ToolDescriptor
	logger      *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithTemperature sets the sampling temperature for oracle calls.
func WithTemperature(t float64) Option {
	return func(p *Planner) { p.temperature = t }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// New creates a Planner over the given provider and tool catalog view.
// available and metadata come from the registry and are treated read-only.
func New(provider llm.Provider, model string, available []string, metadata map[string]core.ToolDescriptor, opts ...Option) *Planner {
	p := &Planner{
		provider:  provider,
		model:     model,
		available: available,
		metadata:  metadata,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Planner) chat(ctx context.Context, prompt string, schema *llm.ResponseSchema) (*llm.ChatResponse, error) {
	resp, err := p.provider.Chat(ctx, llm.ChatRequest{
		Model:       p.model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: p.temperature,
		Schema:      schema,
	})
	if err != nil {
		return nil, errors.New(errors.CodeLLMError, "oracle call failed", err).WithRecoverable(true)
	}
	return resp, nil
}

// AnalyzeQuery summarizes the task's objectives and the capabilities needed
// to address it. The result is advisory text consumed by later prompts; it
// is not structurally validated.
func (p *Planner) AnalyzeQuery(ctx context.Context, task core.Task) (string, error) {
	resp, err := p.chat(ctx, analyzeQueryPrompt(task), queryAnalysisSchema)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// NextStep asks the oracle for the next decision given the trace so far.
// Fields that cannot be extracted default to empty strings; an empty tool
// name means "no valid tool selected" and is the caller's safe default.
func (p *Planner) NextStep(ctx context.Context, task core.Task, analysis string, trace []core.Step, stepIndex, maxSteps int) (core.Decision, error) {
	resp, err := p.chat(ctx, nextStepPrompt(task, analysis, trace, stepIndex, maxSteps, p.available, p.metadata), nextStepSchema)
	if err != nil {
		return core.Decision{}, err
	}
	decision, err := extractDecision(resp)
	if err != nil {
		return core.Decision{}, err
	}
	p.logger.Debug("planner decision",
		"tool", decision.ToolName, "sub_goal", decision.SubGoal, "step", stepIndex)
	return decision, nil
}

// Verify asks the oracle whether the gathered evidence answers the task.
// An ambiguous reply defaults to CONTINUE: keep working rather than stop
// prematurely on unreliable output.
func (p *Planner) Verify(ctx context.Context, task core.Task, analysis string, trace []core.Step) (core.VerificationDecision, error) {
	resp, err := p.chat(ctx, verifyPrompt(task, analysis, trace), verificationSchema)
	if err != nil {
		return core.VerificationDecision{}, err
	}
	return extractVerification(resp), nil
}

// Finalize synthesizes the user-facing answer from the trace. It must work
// on an empty trace, degrading to an answer from the task description alone.
func (p *Planner) Finalize(ctx context.Context, task core.Task, trace []core.Step) (string, error) {
	resp, err := p.chat(ctx, finalizePrompt(task, trace), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
