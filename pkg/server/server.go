// Package server exposes the orchestrator over a small HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/orchestrator"
	"github.com/telos-labs/telos/pkg/registry"
)

// Runner is the part of the orchestrator the server needs.
type Runner interface {
	Run(ctx context.Context, task core.Task) (*orchestrator.RunResult, error)
}

// Server serves runs and tool discovery over HTTP.
type Server struct {
	runner   Runner
	registry *registry.Registry
	apiKey   string
	logger   *slog.Logger
	http     *http.Server
}

// Config holds the HTTP listener settings.
type Config struct {
	Addr string
	// APIKey, when set, requires "Authorization: Bearer <key>" on every
	// endpoint except health.
	APIKey string

	Logger *slog.Logger
}

// New builds the server and its routes.
func New(runner Runner, reg *registry.Registry, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		runner:   runner,
		registry: reg,
		apiKey:   cfg.APIKey,
		logger:   cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("POST /v1/runs", s.auth(http.HandlerFunc(s.handleRun)))
	mux.Handle("GET /v1/tools", s.auth(http.HandlerFunc(s.handleTools)))

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token != s.apiKey {
				writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tools":  len(s.registry.Available()),
	})
}

type runRequest struct {
	Task    string `json:"task"`
	Context string `json:"context,omitempty"`
	Image   string `json:"image,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeError(w, http.StatusBadRequest, "task is required")
		return
	}

	task := core.NewTask(req.Task)
	task.Context = req.Context
	task.Image = req.Image
	result, err := s.runner.Run(r.Context(), task)
	if err != nil {
		s.logger.Error("run failed", "task_id", task.ID, "error", err)
		// The partial result still carries the trace; surface both.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  err.Error(),
			"result": result,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": s.registry.Descriptors(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
