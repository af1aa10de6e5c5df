package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
)

var (
	ErrUnavailable = errors.New("generation model unavailable")
	ErrEmptyResult = errors.New("generation returned no choices")
)

// Generator is the external text-generation capability. It must only ever
// be invoked with grounding context already embedded in the prompt; it is
// stateless from the caller's perspective and may be slow, so calls take a
// context the caller can abandon.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LangchainGenerator implements Generator over a langchaingo chat model.
type LangchainGenerator struct {
	llm llms.Model
}

func NewGenerator(cfg *config.LLMConfig) (*LangchainGenerator, error) {
	var (
		llm llms.Model
		err error
	)
	switch cfg.Provider {
	case "ollama":
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		llm, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("generator ready")
	return &LangchainGenerator{llm: llm}, nil
}

func (g *LangchainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := g.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResult
	}
	return strings.TrimSpace(res.Choices[0].Content), nil
}
