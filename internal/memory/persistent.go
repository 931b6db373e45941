package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// PersistentStore is cross-session memory backed by SQLite. It holds
// the project profile, architectural decisions, error history, and
// compaction-generated session summaries. The database lives in the
// project's .kage directory.
type PersistentStore struct {
	db   *sql.DB
	path string
}

// OpenPersistentStore opens (creating if needed) the persistent store
// for the given project path.
func OpenPersistentStore(projectPath string) (*PersistentStore, error) {
	dir := filepath.Join(projectPath, ".kage")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dbPath := filepath.Join(dir, "memory.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &PersistentStore{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *PersistentStore) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *PersistentStore) Close() error {
	return s.db.Close()
}

func (s *PersistentStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS project_profile (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			decision   TEXT NOT NULL,
			context    TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS error_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			error      TEXT NOT NULL,
			solution   TEXT,
			file_path  TEXT,
			resolved   INTEGER DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_summaries (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			summary        TEXT NOT NULL,
			files_modified TEXT,
			created_at     TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// SetProfile sets a project profile value.
func (s *PersistentStore) SetProfile(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal profile value: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO project_profile (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), now())
	if err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

// Profile returns all profile values as raw JSON strings keyed by name.
func (s *PersistentStore) Profile() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM project_profile`)
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		result[k] = v
	}
	return result, rows.Err()
}

// Decision is one recorded architectural decision.
type Decision struct {
	Decision  string
	Context   string
	CreatedAt string
}

// RecordDecision records an architectural decision.
func (s *PersistentStore) RecordDecision(decision, context string) error {
	_, err := s.db.Exec(`
		INSERT INTO decisions (decision, context, created_at) VALUES (?, ?, ?)
	`, decision, context, now())
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// Decisions returns the most recent decisions, newest first.
func (s *PersistentStore) Decisions(limit int) ([]Decision, error) {
	rows, err := s.db.Query(`
		SELECT decision, COALESCE(context, ''), created_at FROM decisions
		ORDER BY rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.Decision, &d.Context, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RecordError records an error, optionally with its solution and the
// file it occurred in. Errors recorded with a solution are marked
// resolved.
func (s *PersistentStore) RecordError(errText, solution, filePath string) error {
	resolved := 0
	if solution != "" {
		resolved = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO error_history (error, solution, file_path, resolved, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, errText, nullable(solution), nullable(filePath), resolved, now())
	if err != nil {
		return fmt.Errorf("record error: %w", err)
	}
	return nil
}

// PastError is one recorded error with its resolution state.
type PastError struct {
	Error    string
	Solution string
	FilePath string
	Resolved bool
}

// SimilarErrors finds resolved past errors matching keywords from the
// given error text. Matching is simple substring search over the first
// few significant words.
func (s *PersistentStore) SimilarErrors(errText string, limit int) ([]PastError, error) {
	words := strings.Fields(strings.ToLower(errText))
	if len(words) > 5 {
		words = words[:5]
	}

	seen := make(map[string]bool)
	var out []PastError
	for _, w := range words {
		if len(w) <= 3 {
			continue
		}
		rows, err := s.db.Query(`
			SELECT error, COALESCE(solution, ''), COALESCE(file_path, ''), resolved
			FROM error_history
			WHERE error LIKE ? AND resolved = 1
			LIMIT ?
		`, "%"+w+"%", limit)
		if err != nil {
			return nil, fmt.Errorf("query errors: %w", err)
		}
		for rows.Next() {
			var e PastError
			var resolved int
			if err := rows.Scan(&e.Error, &e.Solution, &e.FilePath, &resolved); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan error row: %w", err)
			}
			e.Resolved = resolved == 1
			if !seen[e.Error] {
				seen[e.Error] = true
				out = append(out, e)
			}
		}
		rows.Close()
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveSessionSummary persists a compaction- or session-end summary.
func (s *PersistentStore) SaveSessionSummary(summary string, filesModified []string) error {
	files, err := json.Marshal(filesModified)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO session_summaries (summary, files_modified, created_at)
		VALUES (?, ?, ?)
	`, summary, string(files), now())
	if err != nil {
		return fmt.Errorf("save session summary: %w", err)
	}
	return nil
}

// RecentSummaries returns the most recent session summaries, newest first.
func (s *PersistentStore) RecentSummaries(limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT summary FROM session_summaries ORDER BY rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sum string
		if err := rows.Scan(&sum); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ContextForLLM renders recent persistent memory (decisions and session
// summaries) as a text block for inclusion in the system prompt. An
// empty store yields an empty string.
func (s *PersistentStore) ContextForLLM() string {
	var b strings.Builder

	if decisions, err := s.Decisions(5); err == nil && len(decisions) > 0 {
		b.WriteString("## Past Decisions\n")
		for _, d := range decisions {
			fmt.Fprintf(&b, "- %s\n", d.Decision)
		}
	}

	if summaries, err := s.RecentSummaries(3); err == nil && len(summaries) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## Previous Sessions\n")
		for _, sum := range summaries {
			fmt.Fprintf(&b, "%s\n", truncate(sum, 500))
		}
	}

	return b.String()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
