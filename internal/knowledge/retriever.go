package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/Krigsexe/Kage/internal/embeddings"
)

// Retrieved is one chunk with its similarity score.
type Retrieved struct {
	Chunk
	Score float32
}

// Retriever finds the stored chunks most relevant to a query.
type Retriever struct {
	store    *Store
	embedder Embedder
	topK     int
	minScore float32
}

// NewRetriever creates a retriever. topK <= 0 defaults to 4.
func NewRetriever(store *Store, embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		topK:     topK,
		minScore: 0.3,
	}
}

// Retrieve embeds the query and returns the top-k chunks by cosine
// similarity, best first. Chunks below the relevance floor are
// dropped; noise in the system prompt is worse than no context.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Retrieved, error) {
	queryVec, err := r.embedder.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := r.store.All()
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vectors[i] = c.Vector
	}

	var out []Retrieved
	for _, m := range embeddings.TopK(queryVec, vectors, r.topK) {
		if m.Score < r.minScore {
			continue
		}
		out = append(out, Retrieved{Chunk: chunks[m.Index], Score: m.Score})
	}
	return out, nil
}

// FormatForLLM renders retrieved chunks as a context block for the
// system prompt. Empty input yields an empty string.
func FormatForLLM(chunks []Retrieved) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Relevant Project Context\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "\n### %s (chunk %d)\n%s\n", c.Path, c.Ordinal, c.Content)
	}
	return b.String()
}
