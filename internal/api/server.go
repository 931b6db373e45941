// Package api exposes the agent over HTTP: a one-shot chat endpoint,
// health and tool listings, and a WebSocket stream for interactive
// sessions with confirmation round-trips.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Krigsexe/Kage/internal/agent"
	"github.com/Krigsexe/Kage/internal/buildinfo"
	"github.com/Krigsexe/Kage/internal/tools"
)

// Agent is the engine capability the server needs. Satisfied by
// *agent.Engine; stubbed in tests.
type Agent interface {
	Run(ctx context.Context, input string) <-chan agent.Step
	Confirm(ctx context.Context, accepted bool) <-chan agent.Step
}

// EngineFactory creates a fresh engine per session. Each WebSocket
// connection gets its own conversation log.
type EngineFactory func() Agent

// Server serves the HTTP and WebSocket API.
type Server struct {
	newEngine EngineFactory
	registry  *tools.Registry
	logger    *slog.Logger
	mux       *http.ServeMux
}

// NewServer creates a server. The factory is invoked once per chat
// request and once per WebSocket connection.
func NewServer(factory EngineFactory, registry *tools.Registry, logger *slog.Logger) *Server {
	s := &Server{
		newEngine: factory,
		registry:  registry,
		logger:    logger.With("component", "api"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/tools", s.handleTools)
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/ws", s.handleWS)
	s.mux = mux
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	s.logger.Info("api listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.Version,
		"uptime":  buildinfo.Uptime().String(),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	defs := s.registry.Definitions()
	type toolInfo struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Category    string         `json:"category,omitempty"`
		Dangerous   bool           `json:"dangerous"`
		Schema      map[string]any `json:"schema"`
	}
	out := make([]toolInfo, len(defs))
	for i, d := range defs {
		out[i] = toolInfo{
			Name:        d.Name,
			Description: d.Description,
			Category:    d.Category,
			Dangerous:   d.Dangerous,
			Schema:      d.JSONSchema(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string       `json:"response,omitempty"`
	Error    string       `json:"error,omitempty"`
	Steps    []agent.Step `json:"steps"`
}

// handleChat runs one engine turn and returns all steps. Dangerous
// tool calls cannot be confirmed over this endpoint; the run ends at
// waiting_confirmation and the client is told to use the WebSocket.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	engine := s.newEngine()
	var resp chatResponse
	for step := range engine.Run(r.Context(), req.Message) {
		resp.Steps = append(resp.Steps, step)
		switch step.State {
		case agent.StateDone:
			resp.Response = step.Response
		case agent.StateError:
			resp.Error = step.Error
		case agent.StateWaitingConfirmation:
			resp.Error = fmt.Sprintf("tool %q requires confirmation; use the WebSocket API", step.ToolName)
		}
	}

	status := http.StatusOK
	if resp.Error != "" && resp.Response == "" {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
