package embedding

import (
	"context"
	"sync"
)

// CachingEmbedder memoizes vectors per exact input text. Safe because
// embedders are deterministic for a fixed model and input; saves repeated
// model calls for recurring queries and answer validation.
type CachingEmbedder struct {
	inner Embedder

	mu    sync.RWMutex
	cache map[string][]float32
}

func WithCache(inner Embedder) *CachingEmbedder {
	return &CachingEmbedder{
		inner: inner,
		cache: make(map[string][]float32),
	}
}

func (c *CachingEmbedder) Dimension() int {
	return c.inner.Dimension()
}

func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	c.mu.RLock()
	for i, t := range texts {
		if v, ok := c.cache[t]; ok {
			out[i] = v
		} else {
			missing = append(missing, t)
			missingIdx = append(missingIdx, i)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for i, v := range vectors {
		c.cache[missing[i]] = v
		out[missingIdx[i]] = v
	}
	c.mu.Unlock()

	return out, nil
}
