package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/orchestrator"
	"github.com/telos-labs/telos/pkg/registry"
)

type stubRunner struct {
	result *orchestrator.RunResult
	err    error
	seen   core.Task
}

func (s *stubRunner) Run(ctx context.Context, task core.Task) (*orchestrator.RunResult, error) {
	s.seen = task
	return s.result, s.err
}

type stubCapability struct{ name string }

func (s *stubCapability) Descriptor() core.ToolDescriptor {
	return core.ToolDescriptor{Name: s.name}
}

func (s *stubCapability) Execute(ctx context.Context, command string) (any, error) {
	return nil, nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	catalog := registry.NewCatalog()
	catalog.Register("calculator", func(ctx context.Context) (core.Capability, error) {
		return &stubCapability{name: "calculator"}, nil
	})
	reg, err := catalog.Build(context.Background(), []string{registry.Wildcard}, registry.BuildOptions{})
	if err != nil {
		t.Fatalf("registry build failed: %v", err)
	}
	return reg
}

func TestHandleRunSuccess(t *testing.T) {
	runner := &stubRunner{result: &orchestrator.RunResult{
		RunID:       "run-1",
		FinalOutput: "42",
		StepsTaken:  1,
	}}
	srv := New(runner, testRegistry(t), Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs",
		strings.NewReader(`{"task":"what is 6 * 7","context":"math"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result orchestrator.RunResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.FinalOutput != "42" {
		t.Errorf("unexpected output: %q", result.FinalOutput)
	}
	if runner.seen.Goal != "what is 6 * 7" || runner.seen.Context != "math" {
		t.Errorf("task not passed through: %+v", runner.seen)
	}
	if runner.seen.ID == "" {
		t.Errorf("expected a generated task ID")
	}
}

func TestHandleRunRequiresTask(t *testing.T) {
	srv := New(&stubRunner{}, testRegistry(t), Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{"task":"  "}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleRunFatalErrorReturnsPartialResult(t *testing.T) {
	runner := &stubRunner{
		result: &orchestrator.RunResult{RunID: "run-2", Trace: []core.Step{{Index: 1}}},
		err:    fmt.Errorf("oracle unreachable"),
	}
	srv := New(runner, testRegistry(t), Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{"task":"goal"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var body struct {
		Error  string                  `json:"error"`
		Result *orchestrator.RunResult `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Error == "" || body.Result == nil || len(body.Result.Trace) != 1 {
		t.Errorf("expected error plus partial trace, got %+v", body)
	}
}

func TestHandleToolsListsDescriptors(t *testing.T) {
	srv := New(&stubRunner{}, testRegistry(t), Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Tools []core.ToolDescriptor `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(body.Tools) != 1 || body.Tools[0].Name != "calculator" {
		t.Errorf("unexpected tools: %+v", body.Tools)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := New(&stubRunner{}, testRegistry(t), Config{APIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	srv := New(&stubRunner{}, testRegistry(t), Config{APIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for health without token, got %d", rec.Code)
	}
}
