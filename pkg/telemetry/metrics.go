// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LoopMetrics tracks orchestration loop activity for production monitoring.
type LoopMetrics struct {
	// runCounter tracks runs started and completed, by outcome
	runCounter metric.Int64Counter

	// stepCounter tracks executed steps by tool and success
	stepCounter metric.Int64Counter

	// skipCounter tracks iterations skipped over an invalid tool selection
	skipCounter metric.Int64Counter

	// oracleFailureCounter tracks failed oracle calls by operation
	oracleFailureCounter metric.Int64Counter

	// runDuration is the wall-clock duration of full runs in seconds
	runDuration metric.Float64Histogram
}

// NewLoopMetrics creates a loop metrics tracker with OTel meters.
func NewLoopMetrics() (*LoopMetrics, error) {
	meter := otel.Meter("telos/orchestrator")

	runCounter, err := meter.Int64Counter(
		"telos.runs.total",
		metric.WithDescription("Runs by outcome (completed, failed)"),
	)
	if err != nil {
		return nil, err
	}

	stepCounter, err := meter.Int64Counter(
		"telos.steps.total",
		metric.WithDescription("Executed steps by tool and success"),
	)
	if err != nil {
		return nil, err
	}

	skipCounter, err := meter.Int64Counter(
		"telos.steps.skipped",
		metric.WithDescription("Iterations skipped over an invalid tool selection"),
	)
	if err != nil {
		return nil, err
	}

	oracleFailureCounter, err := meter.Int64Counter(
		"telos.oracle.failures",
		metric.WithDescription("Failed oracle calls by planner operation"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"telos.run.duration",
		metric.WithDescription("Run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &LoopMetrics{
		runCounter:           runCounter,
		stepCounter:          stepCounter,
		skipCounter:          skipCounter,
		oracleFailureCounter: oracleFailureCounter,
		runDuration:          runDuration,
	}, nil
}

// RecordRun records a finished run with its outcome and duration.
func (m *LoopMetrics) RecordRun(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.runDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordStep records an executed step.
func (m *LoopMetrics) RecordStep(ctx context.Context, tool string, success bool) {
	if m == nil {
		return
	}
	m.stepCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("success", success),
	))
}

// RecordSkippedIteration records an iteration that selected no valid tool.
func (m *LoopMetrics) RecordSkippedIteration(ctx context.Context, tool string) {
	if m == nil {
		return
	}
	m.skipCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// RecordOracleFailure records a failed oracle call for a planner operation.
func (m *LoopMetrics) RecordOracleFailure(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.oracleFailureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
