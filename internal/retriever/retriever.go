package retriever

import (
	"context"
	"fmt"

	"document-qa/internal/embedding"
	"document-qa/internal/index"
	"document-qa/internal/models"
)

// Retriever answers queries against one index build: it embeds the query,
// searches the snapshot and hydrates the matching chunk records. A
// retriever never outlives its document; once the index is rebuilt its
// snapshot reports index.ErrStaleIndex.
type Retriever struct {
	embedder embedding.Embedder
	snapshot *index.Snapshot
}

func New(embedder embedding.Embedder, snapshot *index.Snapshot) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if snapshot == nil {
		return nil, fmt.Errorf("index snapshot cannot be nil")
	}
	return &Retriever{embedder: embedder, snapshot: snapshot}, nil
}

// Retrieve returns at most k chunks ordered by descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.snapshot.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, err
	}
	return results, nil
}
