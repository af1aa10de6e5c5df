package composer

import (
	"context"
	"fmt"
	"strings"

	"document-qa/internal/llmservice"
	"document-qa/internal/models"
)

const excerptLen = 200

// Composer turns retrieved chunks into grounded answers. It never calls
// the generator without at least one retrieved chunk, and it never emits a
// citation for a chunk outside the retrieved set.
type Composer struct {
	llm llmservice.Generator
}

func New(llm llmservice.Generator) (*Composer, error) {
	if llm == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	return &Composer{llm: llm}, nil
}

// Answer builds a grounding context from the retrieved chunks in retrieval
// order, asks the generator for an answer conditioned on it, and attaches
// one citation per supplied chunk. With nothing retrieved it returns the
// fixed insufficient-context answer and no citations.
func (c *Composer) Answer(ctx context.Context, query string, retrieved []models.RetrievedChunk) (models.Answer, error) {
	if query == "" {
		return models.Answer{}, fmt.Errorf("query cannot be empty")
	}
	if len(retrieved) == 0 {
		return models.Answer{Text: models.InsufficientContextAnswer}, nil
	}

	prompt := fmt.Sprintf(models.AnswerPromptTemplate, contextBlock(retrieved), query)
	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return models.Answer{}, fmt.Errorf("answer generation failed: %w", err)
	}

	return models.Answer{Text: text, Citations: citationsFor(retrieved)}, nil
}

// Summarize produces an abstractive summary grounded in the given chunks,
// capped at roughly maxWords words.
func (c *Composer) Summarize(ctx context.Context, chunks []models.RetrievedChunk, maxWords int) (models.Answer, error) {
	if len(chunks) == 0 {
		return models.Answer{Text: models.InsufficientContextAnswer}, nil
	}
	if maxWords <= 0 {
		maxWords = 150
	}

	prompt := fmt.Sprintf(models.SummaryPromptTemplate, maxWords, contextBlock(chunks))
	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return models.Answer{}, fmt.Errorf("summary generation failed: %w", err)
	}

	return models.Answer{Text: text, Citations: citationsFor(chunks)}, nil
}

// contextBlock renders the chunks verbatim, highest score first, each
// prefixed with its source label so the generator can refer to it.
func contextBlock(retrieved []models.RetrievedChunk) string {
	var b strings.Builder
	for i, rc := range retrieved {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(fmt.Sprintf("[%s]\n%s", rc.Chunk.SourceLabel, rc.Chunk.Text))
	}
	return b.String()
}

// citationsFor attaches a citation for every chunk supplied as context; the
// generator was grounded in exactly those.
func citationsFor(retrieved []models.RetrievedChunk) []models.Citation {
	citations := make([]models.Citation, len(retrieved))
	for i, rc := range retrieved {
		citations[i] = models.Citation{
			ChunkID:     rc.Chunk.ID,
			SourceLabel: rc.Chunk.SourceLabel,
			Excerpt:     excerpt(rc.Chunk.Text),
		}
	}
	return citations
}

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= excerptLen {
		return text
	}
	cut := excerptLen
	for cut > 0 && text[cut]&0xC0 == 0x80 { // don't split a rune
		cut--
	}
	return text[:cut] + "..."
}
