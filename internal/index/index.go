// Package index stores the active document's chunk vectors in an embedded
// chromem-go collection and serves nearest-neighbor search over them. The
// index is rebuilt wholesale on every document load; readers observe either
// the old or the new index, never a mix.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
)

var (
	// ErrNotBuilt means search was called before any successful build.
	ErrNotBuilt = errors.New("vector index not built")

	// ErrStaleIndex means a snapshot taken for a previous document was
	// used after the index was rebuilt. Served instead of silently mixing
	// chunks from two documents.
	ErrStaleIndex = errors.New("vector index superseded by a newer build")
)

const collectionName = "document_chunks"

// VectorIndex owns the (chunk id -> vector) set for the active document.
type VectorIndex struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	chunks     map[int]models.Chunk
	epoch      uint64
}

func New() *VectorIndex {
	return &VectorIndex{}
}

// Build replaces any existing index atomically. The new collection is
// assembled off to the side and swapped in under the write lock.
func (x *VectorIndex) Build(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return fmt.Errorf("cannot build index from zero chunks")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	byID := make(map[int]models.Chunk, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(chunk.ID),
			Content:   chunk.Text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"source_label": chunk.SourceLabel,
				"start_offset": strconv.Itoa(chunk.StartOffset),
				"end_offset":   strconv.Itoa(chunk.EndOffset),
			},
		}
		byID[chunk.ID] = chunk
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	x.mu.Lock()
	x.db = db
	x.collection = collection
	x.chunks = byID
	x.epoch++
	x.mu.Unlock()

	log.Debug().Int("chunks", len(chunks)).Int("dimension", dim).Msg("vector index built")
	return nil
}

// Search returns up to k nearest neighbors by cosine similarity, sorted
// descending by score with ties broken by ascending chunk id. An empty but
// built index yields an empty result, not an error.
func (x *VectorIndex) Search(ctx context.Context, queryVector []float32, k int) ([]models.RetrievedChunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.searchLocked(ctx, queryVector, k)
}

func (x *VectorIndex) searchLocked(ctx context.Context, queryVector []float32, k int) ([]models.RetrievedChunk, error) {
	if x.collection == nil {
		return nil, ErrNotBuilt
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	count := x.collection.Count()
	if count == 0 {
		return []models.RetrievedChunk{}, nil
	}

	// Rank the whole collection so equal-score ties can be broken
	// deterministically before truncating to k.
	results, err := x.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryVector,
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}

	ranked := make([]models.RetrievedChunk, 0, len(results))
	for _, res := range results {
		id, err := strconv.Atoi(res.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected document id %q in collection", res.ID)
		}
		chunk, ok := x.chunks[id]
		if !ok {
			return nil, fmt.Errorf("indexed id %d has no chunk record", id)
		}
		ranked = append(ranked, models.RetrievedChunk{Chunk: chunk, Score: res.Similarity})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Chunk.ID < ranked[j].Chunk.ID
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// Len reports the number of indexed chunks.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.collection == nil {
		return 0
	}
	return x.collection.Count()
}

// Snapshot binds a reader to the current build. Searches through the
// snapshot fail with ErrStaleIndex once the index has been rebuilt.
func (x *VectorIndex) Snapshot() *Snapshot {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return &Snapshot{index: x, epoch: x.epoch}
}

// Snapshot is a read handle pinned to one index build.
type Snapshot struct {
	index *VectorIndex
	epoch uint64
}

func (s *Snapshot) Search(ctx context.Context, queryVector []float32, k int) ([]models.RetrievedChunk, error) {
	s.index.mu.RLock()
	defer s.index.mu.RUnlock()
	if s.epoch != s.index.epoch {
		return nil, ErrStaleIndex
	}
	return s.index.searchLocked(ctx, queryVector, k)
}

// envelope is the serialized form produced by Persist. The chromem export
// carries the vectors; the chunk records are kept alongside so citations
// survive a restore.
type envelope struct {
	Chunks []models.Chunk `json:"chunks"`
	Index  []byte         `json:"index"`
}

// Persist serializes the index to an opaque payload. Callers treat it as a
// black-box blob; a Restore of the payload reproduces the same neighbor
// rankings.
func (x *VectorIndex) Persist(ctx context.Context) ([]byte, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.collection == nil {
		return nil, ErrNotBuilt
	}

	tmp, err := os.CreateTemp("", "docqa-index-*.chromem")
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := x.db.ExportToFile(tmpPath, false, "", collectionName); err != nil {
		return nil, fmt.Errorf("failed to export collection: %w", err)
	}
	blob, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(x.chunks))
	for _, chunk := range x.chunks {
		chunks = append(chunks, chunk)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })

	return json.Marshal(envelope{Chunks: chunks, Index: blob})
}

// Restore rebuilds the index from a Persist payload, replacing any current
// build atomically.
func (x *VectorIndex) Restore(ctx context.Context, payload []byte) error {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("malformed index payload: %w", err)
	}
	if len(env.Chunks) == 0 || len(env.Index) == 0 {
		return fmt.Errorf("index payload is incomplete")
	}

	tmp, err := os.CreateTemp("", "docqa-index-*.chromem")
	if err != nil {
		return fmt.Errorf("failed to create import file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := os.WriteFile(tmpPath, env.Index, 0o600); err != nil {
		return fmt.Errorf("failed to write import file: %w", err)
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(tmpPath, "", collectionName); err != nil {
		return fmt.Errorf("failed to import collection: %w", err)
	}
	collection := db.GetCollection(collectionName, nil)
	if collection == nil {
		return fmt.Errorf("imported payload has no %q collection", collectionName)
	}

	byID := make(map[int]models.Chunk, len(env.Chunks))
	for _, chunk := range env.Chunks {
		byID[chunk.ID] = chunk
	}

	x.mu.Lock()
	x.db = db
	x.collection = collection
	x.chunks = byID
	x.epoch++
	x.mu.Unlock()

	log.Debug().Int("chunks", len(byID)).Msg("vector index restored")
	return nil
}
