// Package config handles Kage configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./kage.yaml, ~/.config/kage/config.yaml, /etc/kage/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"kage.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "kage", "config.yaml"))
	}

	paths = append(paths, "/etc/kage/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Kage configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	Memory    MemoryConfig    `yaml:"memory"`
	Tools     ToolsConfig     `yaml:"tools"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Search    SearchConfig    `yaml:"search"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the API server settings for serve mode.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// LLMConfig defines the LLM backend settings.
type LLMConfig struct {
	Provider      string  `yaml:"provider"` // ollama, openai
	Model         string  `yaml:"model"`
	OllamaURL     string  `yaml:"ollama_url"`
	OpenAIAPIKey  string  `yaml:"openai_api_key"`
	OpenAIModel   string  `yaml:"openai_model"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	ContextWindow int     `yaml:"context_window"`
	TimeoutSec    int     `yaml:"timeout_sec"` // Per-request timeout (default 300)
}

// AgentConfig controls the agent execution loop.
type AgentConfig struct {
	// MaxIterations bounds the tool-call loop per run. Default 10.
	MaxIterations int `yaml:"max_iterations"`
	// ToolTimeoutSec bounds each tool execution. Default 60.
	ToolTimeoutSec int `yaml:"tool_timeout_sec"`
}

// MemoryConfig defines memory and compaction settings.
type MemoryConfig struct {
	// CompactionThreshold is the fraction of the context window at which
	// compaction triggers (default 0.8).
	CompactionThreshold float64 `yaml:"compaction_threshold"`
	// KeepRecent is the number of trailing messages compaction preserves
	// (default 6, the last three exchanges).
	KeepRecent int `yaml:"keep_recent"`
}

// ToolsConfig defines tool execution settings.
type ToolsConfig struct {
	// SandboxEnabled forwards the sandbox hint to tools that declare
	// requires_sandbox. Disabled by default.
	SandboxEnabled bool `yaml:"sandbox_enabled"`
	// BashTimeoutSec is the default bash command timeout (default 30).
	BashTimeoutSec int `yaml:"bash_timeout_sec"`
	// CodeExecTimeoutSec is the default code_exec timeout (default 60).
	CodeExecTimeoutSec int `yaml:"code_exec_timeout_sec"`
	// MaxFileSize caps file_read input size in bytes (default 10 MB).
	MaxFileSize int64 `yaml:"max_file_size"`
	// DeniedPatterns are bash command substrings to block outright.
	DeniedPatterns []string `yaml:"denied_patterns"`
}

// KnowledgeConfig defines the RAG knowledge base settings.
type KnowledgeConfig struct {
	Enabled          bool     `yaml:"enabled"`
	EmbeddingModel   string   `yaml:"embedding_model"` // e.g., nomic-embed-text
	EmbeddingBaseURL string   `yaml:"embedding_baseurl"`
	IndexExtensions  []string `yaml:"index_extensions"`
	IgnorePatterns   []string `yaml:"ignore_patterns"`
}

// SearchConfig defines web search provider settings.
type SearchConfig struct {
	// SearxngURL is the SearXNG instance base URL. Empty disables web_search.
	SearxngURL string `yaml:"searxng_url"`
}

// WorkspaceConfig defines the agent's workspace for file operations.
type WorkspaceConfig struct {
	// Path is the root directory for file operations.
	// All file tool paths are resolved relative to this directory.
	// If empty, the process working directory is used.
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8420},
		LLM: LLMConfig{
			Provider:      "ollama",
			Model:         "qwen2.5-coder:1.5b",
			OllamaURL:     "http://localhost:11434",
			OpenAIModel:   "gpt-4o-mini",
			Temperature:   0.1,
			MaxTokens:     4096,
			ContextWindow: 32768,
			TimeoutSec:    300,
		},
		Agent: AgentConfig{
			MaxIterations:  10,
			ToolTimeoutSec: 60,
		},
		Memory: MemoryConfig{
			CompactionThreshold: 0.8,
			KeepRecent:          6,
		},
		Tools: ToolsConfig{
			BashTimeoutSec:     30,
			CodeExecTimeoutSec: 60,
			MaxFileSize:        10 * 1024 * 1024,
		},
		Knowledge: KnowledgeConfig{
			EmbeddingModel: "nomic-embed-text",
			IndexExtensions: []string{
				".go", ".py", ".js", ".ts", ".rs", ".java",
				".md", ".yaml", ".yml", ".json", ".toml",
			},
			IgnorePatterns: []string{
				"node_modules", ".git", "__pycache__", ".venv",
				"dist", "build", "target", "vendor",
			},
		},
		DataDir: defaultDataDir(),
	}
}

// defaultDataDir returns ~/.kage, falling back to the working directory
// when the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kage"
	}
	return filepath.Join(home, ".kage")
}

// LLMTimeout returns the per-request LLM timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	if c.LLM.TimeoutSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.LLM.TimeoutSec) * time.Second
}

// ToolTimeout returns the per-tool execution timeout as a duration.
func (c *Config) ToolTimeout() time.Duration {
	if c.Agent.ToolTimeoutSec <= 0 {
		return time.Minute
	}
	return time.Duration(c.Agent.ToolTimeoutSec) * time.Second
}
