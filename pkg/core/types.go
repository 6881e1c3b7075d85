// Package core holds the shared data model for Telos runs.
package core

import (
	"time"

	"github.com/google/uuid"
)

// Task is the unit of work driven through the orchestration loop.
// It is immutable once a run starts.
type Task struct {
	ID      string `json:"id"`
	Goal    string `json:"goal"`
	Context string `json:"context,omitempty"`
	Image   string `json:"image,omitempty"`
}

// NewTask creates a task with a generated ID.
func NewTask(goal string) Task {
	return Task{ID: uuid.NewString(), Goal: goal}
}

// Decision is the planner's choice for one loop iteration. It is consumed
// by the orchestrator immediately and not retained beyond the Step it produces.
type Decision struct {
	Justification string `json:"justification"`
	Context       string `json:"context"`
	SubGoal       string `json:"sub_goal"`
	ToolName      string `json:"tool_name"`
}

// Conclusion is the verification verdict for the current trace.
type Conclusion string

const (
	ConclusionContinue Conclusion = "CONTINUE"
	ConclusionStop     Conclusion = "STOP"
)

// VerificationDecision carries the planner's verdict on whether enough
// evidence has been gathered to stop the loop.
type VerificationDecision struct {
	Analysis   string     `json:"analysis"`
	Conclusion Conclusion `json:"conclusion"`
}

// ExecutionResult is the executor's structured outcome for one dispatch.
// Result is opaque to the core; its schema belongs to the tool.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Command string `json:"command,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Step is one recorded loop iteration. Once appended to the trace it is
// owned by the trace and never mutated.
type Step struct {
	Index      int       `json:"index"`
	ToolName   string    `json:"tool_name"`
	SubGoal    string    `json:"sub_goal"`
	Command    string    `json:"command"`
	Result     any       `json:"result,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
