package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Embedder is the embedding capability the indexer and retriever need.
type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexConfig controls which files are indexed and how they are split.
type IndexConfig struct {
	Extensions   []string // file extensions to index (with dot)
	IgnoreDirs   []string // directory names skipped entirely
	ChunkLines   int      // lines per chunk
	OverlapLines int      // lines shared between adjacent chunks
	MaxFileBytes int64    // files larger than this are skipped
}

// DefaultIndexConfig covers the usual source and doc files.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Extensions:   []string{".go", ".py", ".js", ".ts", ".md", ".txt", ".yaml", ".yml", ".json"},
		IgnoreDirs:   []string{".git", ".kage", "node_modules", "vendor", "__pycache__", ".venv"},
		ChunkLines:   40,
		OverlapLines: 5,
		MaxFileBytes: 1 << 20,
	}
}

func (c *IndexConfig) applyDefaults() {
	d := DefaultIndexConfig()
	if len(c.Extensions) == 0 {
		c.Extensions = d.Extensions
	}
	if len(c.IgnoreDirs) == 0 {
		c.IgnoreDirs = d.IgnoreDirs
	}
	if c.ChunkLines <= 0 {
		c.ChunkLines = d.ChunkLines
	}
	if c.OverlapLines < 0 || c.OverlapLines >= c.ChunkLines {
		c.OverlapLines = d.OverlapLines
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = d.MaxFileBytes
	}
}

// Indexer walks a project tree and stores embedded chunks.
type Indexer struct {
	store    *Store
	embedder Embedder
	cfg      IndexConfig
	logger   *slog.Logger
}

// NewIndexer creates an indexer.
func NewIndexer(store *Store, embedder Embedder, cfg IndexConfig, logger *slog.Logger) *Indexer {
	cfg.applyDefaults()
	return &Indexer{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.With("component", "indexer"),
	}
}

// IndexProject walks root and (re)indexes every matching file. Returns
// the number of files indexed. Unreadable files are skipped, not fatal.
func (ix *Indexer) IndexProject(ctx context.Context, root string) (int, error) {
	indexed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if ix.ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !ix.wantFile(path) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > ix.cfg.MaxFileBytes {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := ix.IndexFile(ctx, root, path); err != nil {
			ix.logger.Warn("skipping file", "path", path, "error", err)
			return nil
		}
		indexed++
		return nil
	})
	if err != nil {
		return indexed, fmt.Errorf("walk %s: %w", root, err)
	}

	ix.logger.Info("project indexed", "root", root, "files", indexed)
	return indexed, nil
}

// IndexFile chunks, embeds, and stores one file. The stored path is
// relative to root.
func (ix *Indexer) IndexFile(ctx context.Context, root, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	texts := splitChunks(string(data), ix.cfg.ChunkLines, ix.cfg.OverlapLines)
	if len(texts) == 0 {
		return ix.store.DeleteFile(rel)
	}

	vectors, err := ix.embedder.GenerateBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{Path: rel, Ordinal: i, Content: text, Vector: vectors[i]}
	}
	return ix.store.ReplaceFile(rel, chunks)
}

func (ix *Indexer) ignored(dirName string) bool {
	for _, d := range ix.cfg.IgnoreDirs {
		if dirName == d {
			return true
		}
	}
	return false
}

func (ix *Indexer) wantFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ix.cfg.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// splitChunks splits text into overlapping line windows. Blank-only
// chunks are dropped.
func splitChunks(text string, chunkLines, overlap int) []string {
	lines := strings.Split(text, "\n")
	stride := chunkLines - overlap

	var chunks []string
	for start := 0; start < len(lines); start += stride {
		end := start + chunkLines
		if end > len(lines) {
			end = len(lines)
		}
		chunk := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(lines) {
			break
		}
	}
	return chunks
}
