package knowledge

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeEmbedder maps texts to deterministic vectors: documents about
// "cats" point one way, everything else another.
type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Generate(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if strings.Contains(strings.ToLower(text), "cat") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (f *fakeEmbedder) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Generate(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func openTestKnowledge(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "knowledge.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreVectorRoundTrip(t *testing.T) {
	store := openTestKnowledge(t)

	want := []float32{0.5, -1.25, 3.0}
	err := store.ReplaceFile("a.go", []Chunk{
		{Ordinal: 0, Content: "package a", Vector: want},
	})
	if err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	chunks, err := store.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len = %d, want 1", len(chunks))
	}
	got := chunks[0].Vector
	if len(got) != len(want) {
		t.Fatalf("vector len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vector[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if chunks[0].ID == "" {
		t.Error("chunk ID should be generated")
	}
}

func TestStoreReplaceFileIsAtomic(t *testing.T) {
	store := openTestKnowledge(t)

	store.ReplaceFile("a.go", []Chunk{
		{Ordinal: 0, Content: "old one", Vector: []float32{1}},
		{Ordinal: 1, Content: "old two", Vector: []float32{1}},
	})
	store.ReplaceFile("a.go", []Chunk{
		{Ordinal: 0, Content: "new", Vector: []float32{1}},
	})

	n, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1 after replace", n)
	}
}

func TestSplitChunks(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "line"
	}
	text := strings.Join(lines, "\n")

	chunks := splitChunks(text, 4, 1)
	if len(chunks) != 3 {
		t.Fatalf("len = %d, want 3 (stride 3 over 10 lines)", len(chunks))
	}

	if got := splitChunks("\n\n\n", 4, 1); got != nil {
		t.Errorf("blank text should yield no chunks, got %v", got)
	}
}

func TestIndexProjectAndRetrieve(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "cats.md"), []byte("cats are great pets"), 0o644)
	os.WriteFile(filepath.Join(root, "dogs.md"), []byte("dogs need walks"), 0o644)
	os.WriteFile(filepath.Join(root, "ignore.bin"), []byte{0, 1, 2}, 0o644)
	os.MkdirAll(filepath.Join(root, ".git"), 0o755)
	os.WriteFile(filepath.Join(root, ".git", "skip.md"), []byte("cat inside git"), 0o644)

	store := openTestKnowledge(t)
	emb := &fakeEmbedder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ix := NewIndexer(store, emb, IndexConfig{}, logger)
	n, err := ix.IndexProject(context.Background(), root)
	if err != nil {
		t.Fatalf("IndexProject: %v", err)
	}
	if n != 2 {
		t.Errorf("indexed %d files, want 2 (.bin and .git skipped)", n)
	}

	r := NewRetriever(store, emb, 1)
	got, err := r.Retrieve(context.Background(), "tell me about cats")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("retrieved %d chunks, want 1", len(got))
	}
	if got[0].Path != "cats.md" {
		t.Errorf("retrieved %q, want cats.md", got[0].Path)
	}

	ctxBlock := FormatForLLM(got)
	if !strings.Contains(ctxBlock, "cats.md") || !strings.Contains(ctxBlock, "cats are great pets") {
		t.Errorf("FormatForLLM output missing content:\n%s", ctxBlock)
	}
	if FormatForLLM(nil) != "" {
		t.Error("empty retrieval must render empty context")
	}
}
