// Package orchestrator composes planner, executor, registry, and trace into
// the bounded plan-act-verify state machine:
//
//	ANALYZING -> {GENERATE_STEP -> VALIDATE_TOOL -> EXECUTE -> RECORD -> VERIFY}* -> FINALIZE -> DONE
//
// A run is a single pass from ANALYZING to DONE; there is no retry or resume
// across runs.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/errors"
	"github.com/telos-labs/telos/pkg/executor"
	"github.com/telos-labs/telos/pkg/memory"
	"github.com/telos-labs/telos/pkg/planner"
	"github.com/telos-labs/telos/pkg/registry"
	"github.com/telos-labs/telos/pkg/telemetry"
)

// Config bounds a run and wires its collaborators.
type Config struct {
	// MaxSteps is the step budget. The loop executes at most MaxSteps
	// iterations; an iteration that selects no valid tool still consumes one
	// step, so a persistently malfunctioning planner cannot loop forever.
	MaxSteps int

	// MaxTime is the wall-clock budget, checked before each iteration.
	// It never interrupts an in-flight oracle or tool call; per-call
	// deadlines belong on the oracle transport.
	MaxTime time.Duration

	// Archiver optionally receives the final trace. Archival failures are
	// logged, never fatal.
	Archiver memory.Archiver

	Logger  *slog.Logger
	Metrics *telemetry.LoopMetrics
}

// RunResult is the outcome of one orchestrated run.
type RunResult struct {
	RunID                string      `json:"run_id"`
	Task                 core.Task   `json:"task"`
	QueryAnalysis        string      `json:"query_analysis"`
	FinalOutput          string      `json:"final_output"`
	ExecutionTimeSeconds float64     `json:"execution_time_seconds"`
	StepsTaken           int         `json:"steps_taken"`
	Trace                []core.Step `json:"trace"`
}

// Orchestrator drives tasks through the loop. It holds no per-run state and
// may serve concurrent runs; the registry is the only shared collaborator
// and is immutable after build.
type Orchestrator struct {
	planner  *planner.Planner
	executor *executor.Executor
	registry *registry.Registry
	cfg      Config
	tracer   trace.Tracer
}

// New creates an Orchestrator.
func New(p *planner.Planner, e *executor.Executor, reg *registry.Registry, cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 10
	}
	return &Orchestrator{
		planner:  p,
		executor: e,
		registry: reg,
		cfg:      cfg,
		tracer:   otel.Tracer("telos/orchestrator"),
	}
}

// Run executes one task through the full state machine.
//
// Recoverable failures (unavailable tool, blank command, tool error or
// panic) are folded into the trace as failed or skipped steps. Fatal
// failures, meaning the oracle is unreachable at any decision point, abort
// the run; the partial trace accumulated so far is still returned alongside
// the error so nothing is silently swallowed.
func (o *Orchestrator) Run(ctx context.Context, task core.Task) (*RunResult, error) {
	ctx, runID := core.EnsureRunID(ctx)
	logger := o.cfg.Logger.With("run_id", runID, "task_id", task.ID)
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "Orchestrator.Run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.max_steps", o.cfg.MaxSteps),
		),
	)
	defer span.End()

	runTrace := memory.NewTrace()
	result := &RunResult{RunID: runID, Task: task}

	fail := func(op string, err error) (*RunResult, error) {
		o.cfg.Metrics.RecordOracleFailure(ctx, op)
		o.cfg.Metrics.RecordRun(ctx, "failed", time.Since(start))
		result.Trace = runTrace.Snapshot()
		result.ExecutionTimeSeconds = time.Since(start).Seconds()
		logger.Error("run failed", "operation", op, "error", err,
			"partial_steps", len(result.Trace))
		return result, err
	}

	// ANALYZING, entered exactly once per run.
	analysis, err := o.analyze(ctx, task)
	if err != nil {
		return fail("analyze", err)
	}
	result.QueryAnalysis = analysis
	logger.Info("task analyzed")

	// The loop guard is evaluated before every iteration and is the only
	// timeout mechanism; an in-flight call is never interrupted by it.
	stepIndex := 0
	for stepIndex < o.cfg.MaxSteps && time.Since(start) < o.cfg.MaxTime {
		stepIndex++

		stop, err := o.iterate(ctx, task, analysis, runTrace, stepIndex, logger)
		if err != nil {
			return fail("iterate", err)
		}
		if stop {
			break
		}
	}

	// FINALIZE runs exactly once regardless of exit path, including
	// zero-iteration runs on an empty trace.
	finalOutput, err := o.finalize(ctx, task, runTrace)
	if err != nil {
		return fail("finalize", err)
	}

	result.FinalOutput = finalOutput
	result.StepsTaken = stepIndex
	result.Trace = runTrace.Snapshot()
	result.ExecutionTimeSeconds = time.Since(start).Seconds()

	o.archive(ctx, runID, result.Trace, logger)
	o.cfg.Metrics.RecordRun(ctx, "completed", time.Since(start))
	logger.Info("run complete", "steps", stepIndex,
		"recorded", len(result.Trace), "seconds", result.ExecutionTimeSeconds)
	return result, nil
}

func (o *Orchestrator) analyze(ctx context.Context, task core.Task) (string, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Analyze")
	defer span.End()
	return o.planner.AnalyzeQuery(ctx, task)
}

// iterate performs one GENERATE_STEP -> VALIDATE_TOOL -> EXECUTE -> RECORD
// -> VERIFY pass. It returns stop=true when verification concluded STOP.
func (o *Orchestrator) iterate(ctx context.Context, task core.Task, analysis string, runTrace *memory.Trace, stepIndex int, logger *slog.Logger) (stop bool, err error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Iteration",
		trace.WithAttributes(attribute.Int("step.index", stepIndex)),
	)
	defer span.End()

	// GENERATE_STEP
	decision, err := o.planner.NextStep(ctx, task, analysis, runTrace.Snapshot(), stepIndex, o.cfg.MaxSteps)
	if err != nil {
		return false, err
	}

	// VALIDATE_TOOL: an empty or unknown tool name skips the executor and
	// the trace entirely; the step budget is still consumed.
	if decision.ToolName == "" || !o.registry.Has(decision.ToolName) {
		logger.Warn("skipping iteration: tool not available",
			"tool", decision.ToolName, "step", stepIndex)
		o.cfg.Metrics.RecordSkippedIteration(ctx, decision.ToolName)
		span.SetAttributes(attribute.Bool("step.skipped", true))
		return false, nil
	}

	// EXECUTE: the result is accepted unconditionally; a tool failure is
	// evidence, not a loop-terminating error.
	startedAt := time.Now().UTC()
	execResult := o.executor.ExecuteStep(ctx, decision.Context, decision.SubGoal, decision.ToolName)

	// RECORD
	step := executor.NewStep(runTrace.Len()+1, decision.ToolName, decision.SubGoal, execResult, startedAt)
	runTrace.Append(step)
	o.cfg.Metrics.RecordStep(ctx, decision.ToolName, execResult.Success)
	if !execResult.Success {
		logger.Warn("step failed", "tool", decision.ToolName, "error", execResult.Error)
	}

	// VERIFY
	verdict, err := o.planner.Verify(ctx, task, analysis, runTrace.Snapshot())
	if err != nil {
		return false, err
	}
	span.SetAttributes(attribute.String("step.conclusion", string(verdict.Conclusion)))
	return verdict.Conclusion == core.ConclusionStop, nil
}

func (o *Orchestrator) finalize(ctx context.Context, task core.Task, runTrace *memory.Trace) (string, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Finalize")
	defer span.End()
	return o.planner.Finalize(ctx, task, runTrace.Snapshot())
}

func (o *Orchestrator) archive(ctx context.Context, runID string, steps []core.Step, logger *slog.Logger) {
	if o.cfg.Archiver == nil || len(steps) == 0 {
		return
	}
	if err := o.cfg.Archiver.Archive(ctx, runID, steps); err != nil {
		logger.Warn("trace archival failed", "error", err)
	}
}

// Validate checks that the orchestrator's collaborators are usable.
func (o *Orchestrator) Validate() error {
	if o.registry == nil || len(o.registry.Available()) == 0 {
		return errors.New(errors.CodeNoTools, "orchestrator requires at least one available tool", nil)
	}
	return nil
}
