// Command telos runs the task orchestration loop from the command line or
// serves it over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/telos-labs/telos/pkg/config"
	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/executor"
	"github.com/telos-labs/telos/pkg/llm"
	"github.com/telos-labs/telos/pkg/mcp"
	"github.com/telos-labs/telos/pkg/memory"
	"github.com/telos-labs/telos/pkg/orchestrator"
	"github.com/telos-labs/telos/pkg/planner"
	"github.com/telos-labs/telos/pkg/registry"
	"github.com/telos-labs/telos/pkg/server"
	"github.com/telos-labs/telos/pkg/telemetry"
	"github.com/telos-labs/telos/pkg/tools"
)

const version = "1.0.0"

type globalFlags struct {
	ConfigPath string
	JSON       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags, args := parseGlobalFlags(os.Args[1:])
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fatal(fmt.Errorf("load config: %w", err))
	}
	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	switch args[0] {
	case "run":
		if len(args) < 2 {
			fatal(fmt.Errorf("usage: telos run \"<task>\""))
		}
		err = runTask(ctx, cfg, flags, args[1])
	case "serve":
		err = runServe(ctx, cfg)
	case "tools":
		err = runTools(ctx, cfg, flags)
	case "version":
		fmt.Println(version)
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string) {
	var flags globalFlags
	fs := flag.NewFlagSet("telos", flag.ExitOnError)
	fs.StringVar(&flags.ConfigPath, "config", "", "path to a YAML config file")
	fs.BoolVar(&flags.JSON, "json", false, "emit machine-readable JSON output")
	fs.Usage = printUsage
	_ = fs.Parse(args)
	return flags, fs.Args()
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: telos [flags] <command>

Commands:
  run "<task>"   execute a single task through the loop and print the result
  serve          serve the loop over HTTP
  tools          list the available tools
  version        print the version

Flags:
  -config path   YAML config file (env vars with TELOS_ prefix also apply)
  -json          emit JSON output`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "telos:", err)
	os.Exit(1)
}

// bootstrap wires provider, registry, planner, executor, and archiver from
// configuration. The returned cleanup flushes telemetry and closes the
// archiver.
func bootstrap(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, *registry.Registry, func(), error) {
	tel, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:  "telos",
		Version:      version,
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init telemetry: %w", err)
	}

	cleanups := []func(){func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	reg, err := buildRegistry(ctx, cfg, &cleanups)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	archiver, err := buildArchiver(cfg, &cleanups)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	metadata := map[string]core.ToolDescriptor{}
	for _, desc := range reg.Descriptors() {
		metadata[desc.Name] = desc
	}

	metrics, err := telemetry.NewLoopMetrics()
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("init metrics: %w", err)
	}

	plan := planner.New(provider, cfg.LLM.Model, reg.Available(), metadata,
		planner.WithTemperature(cfg.LLM.Temperature))
	exec := executor.New(provider, cfg.LLM.Model, reg,
		executor.WithTemperature(cfg.LLM.Temperature))

	orch := orchestrator.New(plan, exec, reg, orchestrator.Config{
		MaxSteps: cfg.Orchestrator.MaxSteps,
		MaxTime:  cfg.Orchestrator.MaxTime,
		Archiver: archiver,
		Metrics:  metrics,
	})
	if cfg.Orchestrator.Required {
		if err := orch.Validate(); err != nil {
			cleanup()
			return nil, nil, nil, err
		}
	}
	return orch, reg, cleanup, nil
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	var inner llm.Provider
	switch cfg.LLM.Provider {
	case "", "ollama":
		inner = llm.NewOllama(cfg.LLM.BaseURL)
	case "openai":
		inner = llm.NewOpenAI(cfg.LLM.BaseURL, cfg.LLM.APIKey)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
	return llm.NewResilient(inner, cfg.LLM.Timeout), nil
}

func buildRegistry(ctx context.Context, cfg *config.Config, cleanups *[]func()) (*registry.Registry, error) {
	catalog := registry.NewCatalog()
	tools.RegisterBuiltins(catalog)

	if cfg.Tools.MCPCommand != "" {
		client, err := mcp.NewStdioClient(ctx, cfg.Tools.MCPCommand, cfg.Tools.MCPArgs)
		if err != nil {
			return nil, fmt.Errorf("start mcp server: %w", err)
		}
		*cleanups = append(*cleanups, func() { _ = client.Close() })
		if err := mcp.RegisterAll(ctx, catalog, client); err != nil {
			return nil, err
		}
	}

	return catalog.Build(ctx, cfg.Tools.Enabled, registry.BuildOptions{
		RequireTools: cfg.Orchestrator.Required,
	})
}

func buildArchiver(cfg *config.Config, cleanups *[]func()) (memory.Archiver, error) {
	switch cfg.Archive.Backend {
	case "", "none":
		return nil, nil
	case "file":
		return memory.NewFileArchiver(cfg.Archive.Dir)
	case "sqlite":
		archiver, err := memory.OpenSQLiteArchiver(cfg.Archive.DSN)
		if err != nil {
			return nil, err
		}
		*cleanups = append(*cleanups, func() { _ = archiver.Close() })
		return archiver, nil
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", cfg.Archive.Backend)
	}
}

func runTask(ctx context.Context, cfg *config.Config, flags globalFlags, goal string) error {
	orch, _, cleanup, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := orch.Run(ctx, core.NewTask(goal))
	if err != nil {
		return err
	}

	if flags.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Println("Analysis:")
	fmt.Println(result.QueryAnalysis)
	fmt.Printf("\nSteps taken: %d (%.2fs)\n", result.StepsTaken, result.ExecutionTimeSeconds)
	for _, step := range result.Trace {
		status := "ok"
		if !step.Success {
			status = "failed: " + step.Error
		}
		fmt.Printf("  %d. [%s] %s (%s)\n", step.Index, step.ToolName, step.SubGoal, status)
	}
	fmt.Println("\nAnswer:")
	fmt.Println(result.FinalOutput)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	orch, reg, cleanup, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(orch, reg, server.Config{
		Addr:   cfg.Server.Addr,
		APIKey: cfg.Server.APIKey,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func runTools(ctx context.Context, cfg *config.Config, flags globalFlags) error {
	_, reg, cleanup, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	descriptors := reg.Descriptors()
	if flags.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(descriptors)
	}
	out, err := yaml.Marshal(descriptors)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
