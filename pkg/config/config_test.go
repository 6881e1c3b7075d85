package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected ollama default, got %q", cfg.LLM.Provider)
	}
	if cfg.Orchestrator.MaxSteps != 10 {
		t.Errorf("expected 10 max steps, got %d", cfg.Orchestrator.MaxSteps)
	}
	if cfg.Orchestrator.MaxTime != 300*time.Second {
		t.Errorf("expected 300s max time, got %v", cfg.Orchestrator.MaxTime)
	}
	if !cfg.Orchestrator.Required {
		t.Errorf("expected at least one tool to be required by default")
	}
	if len(cfg.Tools.Enabled) != 1 || cfg.Tools.Enabled[0] != "all" {
		t.Errorf("expected wildcard tool selection, got %v", cfg.Tools.Enabled)
	}
	if cfg.Archive.Backend != "none" {
		t.Errorf("expected archival off by default, got %q", cfg.Archive.Backend)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected :8080 default, got %q", cfg.Server.Addr)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telos.yaml")
	content := []byte(`
log:
  level: debug
  format: json
llm:
  provider: openai
  model: gpt-4o-mini
orchestrator:
  max_steps: 3
archive:
  backend: sqlite
  dsn: /tmp/telos-test.db
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log section not loaded: %+v", cfg.Log)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm section not loaded: %+v", cfg.LLM)
	}
	if cfg.Orchestrator.MaxSteps != 3 {
		t.Errorf("expected file override of max_steps, got %d", cfg.Orchestrator.MaxSteps)
	}
	if cfg.Archive.Backend != "sqlite" {
		t.Errorf("archive section not loaded: %+v", cfg.Archive)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default server addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telos.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: from-file\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TELOS_LLM_MODEL", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Model != "from-env" {
		t.Errorf("expected env to win over file, got %q", cfg.LLM.Model)
	}
}

func TestLoadEnvMultiWordKeys(t *testing.T) {
	t.Setenv("TELOS_LLM_BASE_URL", "http://env:9999")
	t.Setenv("TELOS_LLM_API_KEY", "sk-env")
	t.Setenv("TELOS_ORCHESTRATOR_MAX_STEPS", "7")
	t.Setenv("TELOS_ORCHESTRATOR_MAX_TIME", "45s")
	t.Setenv("TELOS_TELEMETRY_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("TELOS_TOOLS_MCP_COMMAND", "mcp-server")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.BaseURL != "http://env:9999" {
		t.Errorf("expected base_url from env, got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("expected api_key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Orchestrator.MaxSteps != 7 {
		t.Errorf("expected max_steps from env, got %d", cfg.Orchestrator.MaxSteps)
	}
	if cfg.Orchestrator.MaxTime != 45*time.Second {
		t.Errorf("expected max_time from env, got %v", cfg.Orchestrator.MaxTime)
	}
	if cfg.Telemetry.OTLPEndpoint != "collector:4317" {
		t.Errorf("expected otlp_endpoint from env, got %q", cfg.Telemetry.OTLPEndpoint)
	}
	if cfg.Tools.MCPCommand != "mcp-server" {
		t.Errorf("expected mcp_command from env, got %q", cfg.Tools.MCPCommand)
	}
}

func TestLoadMissingFileIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
