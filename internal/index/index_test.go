package index

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
)

func normalized(values ...float32) []float32 {
	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = v / norm
	}
	return out
}

func testChunks(texts ...string) []models.Chunk {
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{ID: i, Text: text, SourceLabel: "page 1"}
	}
	return chunks
}

func TestSearchBeforeBuild(t *testing.T) {
	idx := New()
	_, err := idx.Search(context.Background(), normalized(1, 0, 0), 1)
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestBuildValidation(t *testing.T) {
	idx := New()
	ctx := context.Background()

	t.Run("no chunks", func(t *testing.T) {
		err := idx.Build(ctx, nil, nil)
		assert.Error(t, err)
	})
	t.Run("count mismatch", func(t *testing.T) {
		err := idx.Build(ctx, testChunks("a", "b"), [][]float32{normalized(1, 0, 0)})
		assert.Error(t, err)
	})
	t.Run("dimension mismatch", func(t *testing.T) {
		err := idx.Build(ctx, testChunks("a", "b"), [][]float32{normalized(1, 0, 0), normalized(1, 0)})
		assert.Error(t, err)
	})
}

func TestSelfRetrievalIdentity(t *testing.T) {
	ctx := context.Background()
	chunks := testChunks("first passage", "second passage", "third passage")
	vectors := [][]float32{
		normalized(1, 0, 0),
		normalized(0, 1, 0),
		normalized(0, 0, 1),
	}

	idx := New()
	require.NoError(t, idx.Build(ctx, chunks, vectors))

	for i, vec := range vectors {
		results, err := idx.Search(ctx, vec, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, i, results[0].Chunk.ID, "chunk %d retrieves itself", i)
	}
}

func TestSearchKCap(t *testing.T) {
	ctx := context.Background()
	chunks := testChunks("a", "b", "c")
	vectors := [][]float32{
		normalized(1, 0, 0),
		normalized(0, 1, 0),
		normalized(0, 0, 1),
	}

	idx := New()
	require.NoError(t, idx.Build(ctx, chunks, vectors))

	results, err := idx.Search(ctx, normalized(1, 1, 1), 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = idx.Search(ctx, normalized(1, 1, 1), 10)
	require.NoError(t, err)
	assert.Len(t, results, 3, "never more than the collection holds")

	_, err = idx.Search(ctx, normalized(1, 1, 1), 0)
	assert.Error(t, err)
}

func TestSearchTieBreakByAscendingID(t *testing.T) {
	ctx := context.Background()
	chunks := testChunks("far away", "twin one", "twin two")
	twin := normalized(0, 1, 0)
	vectors := [][]float32{normalized(1, 0, 0), twin, twin}

	idx := New()
	require.NoError(t, idx.Build(ctx, chunks, vectors))

	results, err := idx.Search(ctx, twin, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Chunk.ID)
	assert.Equal(t, 2, results[1].Chunk.ID)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestRebuildReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Build(ctx,
		testChunks("old one", "old two"),
		[][]float32{normalized(1, 0, 0), normalized(0, 1, 0)}))
	stale := idx.Snapshot()

	require.NoError(t, idx.Build(ctx,
		testChunks("new one", "new two", "new three"),
		[][]float32{normalized(1, 0, 0), normalized(0, 1, 0), normalized(0, 0, 1)}))

	results, err := idx.Search(ctx, normalized(1, 1, 1), 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Contains(t, res.Chunk.Text, "new", "no chunk from the previous document")
	}

	_, err = stale.Search(ctx, normalized(1, 0, 0), 1)
	assert.ErrorIs(t, err, ErrStaleIndex)
}

func TestSnapshotTracksCurrentBuild(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.Build(ctx, testChunks("only"), [][]float32{normalized(1, 0)}))

	snap := idx.Snapshot()
	results, err := snap.Search(ctx, normalized(1, 0), 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	chunks := testChunks("alpha passage", "beta passage", "gamma passage")
	vectors := [][]float32{
		normalized(1, 0.2, 0),
		normalized(0, 1, 0.2),
		normalized(0.2, 0, 1),
	}

	idx := New()
	require.NoError(t, idx.Build(ctx, chunks, vectors))

	query := normalized(0.9, 0.5, 0.1)
	before, err := idx.Search(ctx, query, 3)
	require.NoError(t, err)

	payload, err := idx.Persist(ctx)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Restore(ctx, payload))

	after, err := restored.Search(ctx, query, 3)
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Chunk.ID, after[i].Chunk.ID, "neighbor ranking is stable across restore")
		assert.Equal(t, before[i].Chunk.Text, after[i].Chunk.Text)
		assert.Equal(t, before[i].Chunk.SourceLabel, after[i].Chunk.SourceLabel)
	}
}

func TestPersistBeforeBuild(t *testing.T) {
	idx := New()
	_, err := idx.Persist(context.Background())
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestRestoreRejectsGarbage(t *testing.T) {
	idx := New()
	assert.Error(t, idx.Restore(context.Background(), []byte("not a payload")))
}
