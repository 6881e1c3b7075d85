// Package memory provides the append-only execution trace for a run and
// optional archival backends.
package memory

import (
	"sync"

	"github.com/telos-labs/telos/pkg/core"
)

// Trace is the ordered, append-only sequence of executed steps for one run.
// Append is the only mutator; insertion order is the causal order replayed
// into every subsequent planning prompt. A trace is owned by a single run,
// but the lock lets a server inspect a live run cheaply.
type Trace struct {
	mu    sync.RWMutex
	steps []core.Step
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Append records a step. Steps are never updated or removed.
func (t *Trace) Append(step core.Step) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, step)
}

// Snapshot returns the full trace in insertion order.
//
// Every planning prompt replays the whole snapshot: full fidelity and
// auditability at the cost of unbounded prompt growth on long runs.
func (t *Trace) Snapshot() []core.Step {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]core.Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.steps)
}
