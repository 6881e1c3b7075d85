// Package config loads Telos configuration from defaults, an optional YAML
// file, and TELOS_-prefixed environment variables, in that order.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log          LogConfig          `koanf:"log"`
	LLM          LLMConfig          `koanf:"llm"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Tools        ToolsConfig        `koanf:"tools"`
	Archive      ArchiveConfig      `koanf:"archive"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
	Server       ServerConfig       `koanf:"server"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider    string        `koanf:"provider"` // ollama, openai
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
}

type OrchestratorConfig struct {
	MaxSteps int           `koanf:"max_steps"`
	MaxTime  time.Duration `koanf:"max_time"`
	Required bool          `koanf:"required"` // fail startup when no tool is available
}

type ToolsConfig struct {
	// Enabled lists tool names to build, or ["all"] for every registered
	// constructor.
	Enabled []string `koanf:"enabled"`

	// MCPCommand optionally starts an MCP server subprocess whose tools are
	// bridged into the registry.
	MCPCommand string   `koanf:"mcp_command"`
	MCPArgs    []string `koanf:"mcp_args"`
}

type ArchiveConfig struct {
	Backend string `koanf:"backend"` // none, file, sqlite
	Dir     string `koanf:"dir"`
	DSN     string `koanf:"dsn"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type ServerConfig struct {
	Addr   string `koanf:"addr"`
	APIKey string `koanf:"api_key"`
}

// Load reads configuration from the optional YAML file at path, then from
// TELOS_-prefixed environment variables (TELOS_LLM_MODEL -> llm.model,
// TELOS_ORCHESTRATOR_MAX_STEPS -> orchestrator.max_steps).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "llama3.2")
	k.Set("llm.base_url", "http://localhost:11434")
	k.Set("llm.temperature", 0.0)
	k.Set("llm.timeout", "120s")

	k.Set("orchestrator.max_steps", 10)
	k.Set("orchestrator.max_time", "300s")
	k.Set("orchestrator.required", true)

	k.Set("tools.enabled", []string{"all"})

	k.Set("archive.backend", "none")
	k.Set("archive.dir", "traces")
	k.Set("archive.dsn", "telos.db")

	k.Set("telemetry.exporter", "stdout")

	k.Set("server.addr", ":8080")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Every config key is section.key, so only the first underscore is a
	// separator; the rest belong to multi-word keys like base_url.
	if err := k.Load(env.Provider("TELOS_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "TELOS_"))
		section, rest, found := strings.Cut(key, "_")
		if !found {
			return key
		}
		return section + "." + rest
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
