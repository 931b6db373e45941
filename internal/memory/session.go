package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// SessionError records one error observed during a session.
type SessionError struct {
	Error     string    `json:"error"`
	FilePath  string    `json:"file_path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session tracks one session's activity: the project being worked on,
// files the agent modified, errors hit, and decisions recorded. It is
// distinct from the conversation Log: the Log is model input, the
// Session is bookkeeping for persistence and status reporting.
type Session struct {
	ProjectPath   string         `json:"project_path"`
	StartedAt     time.Time      `json:"started_at"`
	ModifiedFiles []string       `json:"modified_files"`
	Errors        []SessionError `json:"errors"`
	Decisions     []string       `json:"decisions"`
}

// NewSession creates a session rooted at the given project path.
func NewSession(projectPath string) *Session {
	return &Session{
		ProjectPath: projectPath,
		StartedAt:   time.Now().UTC(),
	}
}

// RecordFileModification records that a file was modified. Duplicate
// paths are recorded once.
func (s *Session) RecordFileModification(path string) {
	for _, f := range s.ModifiedFiles {
		if f == path {
			return
		}
	}
	s.ModifiedFiles = append(s.ModifiedFiles, path)
}

// RecordError records an error for later reference.
func (s *Session) RecordError(errText, filePath string) {
	s.Errors = append(s.Errors, SessionError{
		Error:     errText,
		FilePath:  filePath,
		Timestamp: time.Now().UTC(),
	})
}

// RecordDecision records an architectural or design decision.
func (s *Session) RecordDecision(decision string) {
	s.Decisions = append(s.Decisions, decision)
}

// Summary renders a human-readable session summary.
func (s *Session) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session started: %s\n", s.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Project: %s\n", s.ProjectPath)

	if len(s.ModifiedFiles) > 0 {
		fmt.Fprintf(&b, "\nModified files (%d):\n", len(s.ModifiedFiles))
		for _, f := range lastN(s.ModifiedFiles, 10) {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	if len(s.Errors) > 0 {
		fmt.Fprintf(&b, "\nRecent errors (%d):\n", len(s.Errors))
		for _, e := range s.Errors[max(0, len(s.Errors)-5):] {
			fmt.Fprintf(&b, "  - %s\n", truncate(e.Error, 100))
		}
	}
	if len(s.Decisions) > 0 {
		fmt.Fprintf(&b, "\nDecisions (%d):\n", len(s.Decisions))
		for _, d := range lastN(s.Decisions, 5) {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	return b.String()
}

// Save writes the session to a JSON file.
func (s *Session) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// LoadSession reads a session from a JSON file.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &s, nil
}

func lastN[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
