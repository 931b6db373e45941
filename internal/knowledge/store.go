// Package knowledge is the local RAG subsystem: it chunks project
// files, embeds them, and retrieves relevant chunks for the system
// prompt. Vectors are stored in SQLite as little-endian float32 blobs.
package knowledge

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Chunk is one embedded slice of a source file.
type Chunk struct {
	ID       string
	Path     string
	Ordinal  int
	Content  string
	Vector   []float32
}

// Store persists chunks and their vectors.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the knowledge database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open knowledge db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id         TEXT PRIMARY KEY,
			path       TEXT NOT NULL,
			ordinal    INTEGER NOT NULL,
			content    TEXT NOT NULL,
			vector     BLOB NOT NULL,
			indexed_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
	`)
	if err != nil {
		return fmt.Errorf("migrate knowledge db: %w", err)
	}
	return nil
}

// ReplaceFile atomically replaces all chunks for a file.
func (s *Store) ReplaceFile(path string, chunks []Chunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := tx.Exec(`
			INSERT INTO chunks (id, path, ordinal, content, vector, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, path, c.Ordinal, c.Content, encodeVector(c.Vector), now)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	return tx.Commit()
}

// All loads every stored chunk with its vector.
func (s *Store) All() ([]Chunk, error) {
	rows, err := s.db.Query(`
		SELECT id, path, ordinal, content, vector FROM chunks ORDER BY path, ordinal
	`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Path, &c.Ordinal, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Vector = decodeVector(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of stored chunks.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// DeleteFile removes all chunks for a file.
func (s *Store) DeleteFile(path string) error {
	if _, err := s.db.Exec(`DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", path, err)
	}
	return nil
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks little-endian bytes into a float32 slice.
func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
