package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
)

var (
	// ErrUnavailable means the embedding model could not be reached or
	// loaded. This is fatal for the session: no index can be built.
	ErrUnavailable = errors.New("embedding model unavailable")

	ErrEmptyTexts = errors.New("no texts provided for embedding")
)

// Embedder maps texts to fixed-dimension dense vectors. Implementations
// must be deterministic for a fixed model and input and order-preserving:
// one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// LangchainEmbedder adapts a langchaingo embedder client to the Embedder
// interface.
type LangchainEmbedder struct {
	impl *embeddings.EmbedderImpl
	dim  int
}

// NewEmbedder builds an embedder from the configured provider. Construction
// errors wrap ErrUnavailable.
func NewEmbedder(cfg *config.LLMConfig, dimension int) (*LangchainEmbedder, error) {
	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch cfg.Provider {
	case "ollama":
		client, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		client, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	impl, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("embedder ready")
	return &LangchainEmbedder{impl: impl, dim: dimension}, nil
}

func (e *LangchainEmbedder) Dimension() int {
	return e.dim
}

// Embed generates one vector per input text, preserving order.
func (e *LangchainEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}
	vectors, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
