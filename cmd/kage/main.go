// Kage is a local coding agent.
//
// It runs a tool-augmented reason/act loop against a local Ollama model
// or the OpenAI API: the model plans, invokes workspace tools (files,
// shell, git, tests, web search), and loops on the observed results
// until it can answer. Configuration is loaded from a single YAML file
// discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	kage chat                Start an interactive session (default)
//	kage init [dir]          Write an example config file
//	kage ask <question>      Ask a single question and exit
//	kage serve               Start the HTTP/WebSocket API server
//	kage index [dir]         Index a project into the knowledge base
//	kage version             Print version and build information
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Krigsexe/Kage/examples"
	"github.com/Krigsexe/Kage/internal/agent"
	"github.com/Krigsexe/Kage/internal/api"
	"github.com/Krigsexe/Kage/internal/buildinfo"
	"github.com/Krigsexe/Kage/internal/config"
	"github.com/Krigsexe/Kage/internal/embeddings"
	"github.com/Krigsexe/Kage/internal/fetch"
	"github.com/Krigsexe/Kage/internal/knowledge"
	"github.com/Krigsexe/Kage/internal/llm"
	"github.com/Krigsexe/Kage/internal/memory"
	"github.com/Krigsexe/Kage/internal/prompts"
	"github.com/Krigsexe/Kage/internal/search"
	"github.com/Krigsexe/Kage/internal/tools"
	"github.com/Krigsexe/Kage/internal/tools/builtin"
)

// main constructs the OS-level environment and delegates to [run] so
// the full lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand; the flag
// package's package-level state would prevent calling run concurrently
// from tests, and the surface is small.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var workspace string
	var logLevel string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-workspace" && i+1 < len(args):
			workspace = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-workspace="):
			workspace = strings.TrimPrefix(args[i], "-workspace=")
		case args[i] == "-log-level" && i+1 < len(args):
			logLevel = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-log-level="):
			logLevel = strings.TrimPrefix(args[i], "-log-level=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "", "chat":
		rt, err := newRuntime(configPath, workspace, logLevel, stderr)
		if err != nil {
			return err
		}
		defer rt.Close()
		return runChat(ctx, rt, stdin, stdout)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: kage ask <question>")
		}
		rt, err := newRuntime(configPath, workspace, logLevel, stderr)
		if err != nil {
			return err
		}
		defer rt.Close()
		return runAsk(ctx, rt, stdout, strings.Join(cmdArgs, " "))
	case "serve":
		rt, err := newRuntime(configPath, workspace, logLevel, stderr)
		if err != nil {
			return err
		}
		defer rt.Close()
		return runServe(ctx, rt)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "index":
		dir := ""
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		rt, err := newRuntime(configPath, workspace, logLevel, stderr)
		if err != nil {
			return err
		}
		defer rt.Close()
		return runIndex(ctx, rt, stdout, dir)
	case "version":
		return runVersion(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runtime holds everything a command needs after startup.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	client     llm.Client
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	compactor  *memory.Compactor
	persistent *memory.PersistentStore
	retriever  *knowledge.Retriever
	knowledge  *knowledge.Store
	embedder   *embeddings.Client
	workspace  string
}

// newRuntime loads configuration and constructs the shared components.
// A missing config file is not fatal; defaults target a local Ollama.
func newRuntime(configPath, workspace, logLevel string, logSink io.Writer) (*runtime, error) {
	var cfg *config.Config
	if path, err := config.FindConfig(configPath); err == nil {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else if configPath != "" {
		return nil, err
	} else {
		cfg = config.Default()
	}
	if workspace != "" {
		cfg.Workspace.Path = workspace
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := setupLogger(logSink, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ws := cfg.Workspace.Path
	if ws == "" {
		ws, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workspace: %w", err)
		}
	}
	ws, err = filepath.Abs(ws)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	registry := tools.NewRegistry()
	if err := builtin.RegisterAll(registry, builtin.Config{
		Workspace:       ws,
		SandboxEnabled:  cfg.Tools.SandboxEnabled,
		BashTimeout:     time.Duration(cfg.Tools.BashTimeoutSec) * time.Second,
		CodeExecTimeout: time.Duration(cfg.Tools.CodeExecTimeoutSec) * time.Second,
		MaxFileSize:     cfg.Tools.MaxFileSize,
		DeniedPatterns:  cfg.Tools.DeniedPatterns,
	}); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	docsCache, err := fetch.OpenCache(filepath.Join(cfg.DataDir, "docs_cache"), 0)
	if err != nil {
		return nil, err
	}
	registry.MustRegister(fetch.NewTool(fetch.New(), docsCache))
	if cfg.Search.SearxngURL != "" {
		mgr := search.NewManager("searxng", "")
		mgr.Register(search.NewSearXNG(cfg.Search.SearxngURL))
		registry.MustRegister(search.NewTool(mgr))
	}

	persistent, err := memory.OpenPersistentStore(ws)
	if err != nil {
		return nil, fmt.Errorf("open persistent memory: %w", err)
	}

	rt := &runtime{
		cfg:        cfg,
		logger:     logger,
		client:     client,
		registry:   registry,
		dispatcher: tools.NewDispatcher(registry, cfg.ToolTimeout(), logger),
		compactor: memory.NewCompactor(client, memory.CompactionConfig{
			Threshold:  cfg.Memory.CompactionThreshold,
			KeepRecent: cfg.Memory.KeepRecent,
		}, logger),
		persistent: persistent,
		workspace:  ws,
	}

	if cfg.Knowledge.Enabled {
		if err := rt.openKnowledge(); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) openKnowledge() error {
	store, err := knowledge.OpenStore(filepath.Join(rt.cfg.DataDir, "knowledge.db"))
	if err != nil {
		return fmt.Errorf("open knowledge base: %w", err)
	}
	baseURL := rt.cfg.Knowledge.EmbeddingBaseURL
	if baseURL == "" {
		baseURL = rt.cfg.LLM.OllamaURL
	}
	rt.knowledge = store
	rt.embedder = embeddings.New(embeddings.Config{
		BaseURL: baseURL,
		Model:   rt.cfg.Knowledge.EmbeddingModel,
	})
	rt.retriever = knowledge.NewRetriever(store, rt.embedder, 0)
	return nil
}

func (rt *runtime) Close() {
	if rt.persistent != nil {
		rt.persistent.Close()
	}
	if rt.knowledge != nil {
		rt.knowledge.Close()
	}
}

// newEngine builds a fresh engine with its own conversation log and
// session record. The system prompt embeds the tool manifest and any
// persistent memory from previous sessions in this workspace.
func (rt *runtime) newEngine() (*agent.Engine, *memory.Log, *memory.Session) {
	session := memory.NewSession(rt.workspace)
	log := memory.NewLog(rt.systemPrompt(""))
	engine := agent.NewEngine(rt.client, rt.dispatcher, log, rt.compactor,
		agent.Config{MaxIterations: rt.cfg.Agent.MaxIterations},
		agent.Options{Session: session, Persistent: rt.persistent},
		rt.logger)
	return engine, log, session
}

func (rt *runtime) systemPrompt(knowledgeContext string) string {
	return prompts.SystemPrompt(rt.registry.Manifest(), rt.workspace,
		rt.persistent.ContextForLLM(), knowledgeContext)
}

// refreshKnowledge retrieves chunks relevant to the query and rebuilds
// the system prompt around them. No-op when the knowledge base is
// disabled or empty.
func (rt *runtime) refreshKnowledge(ctx context.Context, log *memory.Log, query string) {
	if rt.retriever == nil {
		return
	}
	chunks, err := rt.retriever.Retrieve(ctx, query)
	if err != nil {
		rt.logger.Warn("knowledge retrieval failed", "error", err)
		return
	}
	log.SetSystem(rt.systemPrompt(knowledge.FormatForLLM(chunks)))
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "", "ollama":
		return llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL:       cfg.LLM.OllamaURL,
			Model:         cfg.LLM.Model,
			Temperature:   cfg.LLM.Temperature,
			MaxTokens:     cfg.LLM.MaxTokens,
			ContextWindow: cfg.LLM.ContextWindow,
		}), nil
	case "openai":
		if cfg.LLM.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("llm provider openai requires openai_api_key")
		}
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:        cfg.LLM.OpenAIAPIKey,
			Model:         cfg.LLM.OpenAIModel,
			Temperature:   cfg.LLM.Temperature,
			MaxTokens:     cfg.LLM.MaxTokens,
			ContextWindow: cfg.LLM.ContextWindow,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.LLM.Provider)
	}
}

func setupLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})
	return slog.New(handler), nil
}

// runAsk runs one question to completion. Dangerous tool calls are
// declined; interactive confirmation needs the chat command.
func runAsk(ctx context.Context, rt *runtime, stdout io.Writer, question string) error {
	engine, log, _ := rt.newEngine()
	rt.refreshKnowledge(ctx, log, question)

	steps := engine.Run(ctx, question)
	for {
		step, ok := <-steps
		if !ok {
			return nil
		}
		switch step.State {
		case agent.StateToolCall:
			if step.ToolResult == nil {
				fmt.Fprintf(stdout, "[tool] %s\n", step.ToolName)
			}
		case agent.StateWaitingConfirmation:
			fmt.Fprintf(stdout, "[declined] %s requires confirmation; use kage chat\n", step.ToolName)
			for range steps {
			}
			steps = engine.Confirm(ctx, false)
		case agent.StateDone:
			fmt.Fprintln(stdout, step.Response)
		case agent.StateError:
			return fmt.Errorf("run failed: %s", step.Error)
		}
	}
}

// runServe starts the HTTP/WebSocket API. Each connection gets its own
// engine over the shared registry and persistent store.
func runServe(ctx context.Context, rt *runtime) error {
	rt.logger.Info("starting", "build", buildinfo.String(), "workspace", rt.workspace)
	server := api.NewServer(func() api.Agent {
		engine, _, _ := rt.newEngine()
		return engine
	}, rt.registry, rt.logger)

	addr := fmt.Sprintf("%s:%d", rt.cfg.Listen.Address, rt.cfg.Listen.Port)
	return server.ListenAndServe(ctx, addr)
}

// runIndex walks the project and embeds its files into the knowledge
// base for retrieval during chat.
func runIndex(ctx context.Context, rt *runtime, stdout io.Writer, dir string) error {
	if rt.knowledge == nil {
		if err := rt.openKnowledge(); err != nil {
			return err
		}
	}
	if dir == "" {
		dir = rt.workspace
	}
	icfg := knowledge.DefaultIndexConfig()
	if len(rt.cfg.Knowledge.IndexExtensions) > 0 {
		icfg.Extensions = rt.cfg.Knowledge.IndexExtensions
	}
	if len(rt.cfg.Knowledge.IgnorePatterns) > 0 {
		icfg.IgnoreDirs = rt.cfg.Knowledge.IgnorePatterns
	}
	indexer := knowledge.NewIndexer(rt.knowledge, rt.embedder, icfg, rt.logger)

	start := time.Now()
	n, err := indexer.IndexProject(ctx, dir)
	if err != nil {
		return fmt.Errorf("index %s: %w", dir, err)
	}
	fmt.Fprintf(stdout, "indexed %d files in %s\n", n, time.Since(start).Truncate(time.Millisecond))
	return nil
}

// runInit writes the example config into dir. An existing config is
// never overwritten.
func runInit(stdout io.Writer, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	target := filepath.Join(dir, "kage.yaml")
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%s already exists, not overwriting", target)
	}
	if err := os.WriteFile(target, examples.ConfigYAML, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %s\n", target)
	fmt.Fprintln(stdout, "edit it, then start a session with: kage chat")
	return nil
}

func runVersion(w io.Writer) error {
	info := buildinfo.Info()
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Kage - Local Coding Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: kage [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  chat         Interactive session (default)")
	fmt.Fprintln(w, "  init [dir]   Write an example config file (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question and exit")
	fmt.Fprintln(w, "  serve        Start the HTTP/WebSocket API server")
	fmt.Fprintln(w, "  index [dir]  Index a project into the knowledge base")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>     Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -workspace <dir>   Workspace root for file operations (default: cwd)")
	fmt.Fprintln(w, "  -log-level <lvl>   trace, debug, info, warn, or error")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	for _, p := range config.DefaultSearchPaths() {
		fmt.Fprintf(w, "  %s\n", p)
	}
	return nil
}
