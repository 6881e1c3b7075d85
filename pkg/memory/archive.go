package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/telos-labs/telos/pkg/core"
)

// Archiver receives the final trace of a run for archival. Archival is an
// external collaborator: failures are reported to the caller but never
// affect the run outcome.
type Archiver interface {
	Archive(ctx context.Context, runID string, steps []core.Step) error
}

// FileArchiver stores each run's trace as a separate JSON file.
// Suitable for simple persistence without external dependencies.
type FileArchiver struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileArchiver creates a file-based trace archiver.
func NewFileArchiver(baseDir string) (*FileArchiver, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileArchiver{baseDir: baseDir}, nil
}

func (f *FileArchiver) runFile(runID string) string {
	// Sanitize runID to prevent path traversal
	safe := filepath.Base(runID)
	return filepath.Join(f.baseDir, safe+".json")
}

// Archive writes the trace for runID, replacing any earlier archive.
func (f *FileArchiver) Archive(_ context.Context, runID string, steps []core.Step) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	return os.WriteFile(f.runFile(runID), data, 0644)
}

// Load reads back an archived trace.
func (f *FileArchiver) Load(runID string) ([]core.Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.runFile(runID))
	if err != nil {
		return nil, err
	}
	var steps []core.Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to parse archived trace: %w", err)
	}
	return steps, nil
}

// ListRuns returns all archived run IDs.
func (f *FileArchiver) ListRuns() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		return nil, err
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == ".json" {
			runs = append(runs, name[:len(name)-5])
		}
	}
	sort.Strings(runs)
	return runs, nil
}

var _ Archiver = (*FileArchiver)(nil)
