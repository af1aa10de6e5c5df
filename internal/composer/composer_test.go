package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
)

// mockGenerator records prompts and returns a fixed response.
type mockGenerator struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func retrieved(texts ...string) []models.RetrievedChunk {
	out := make([]models.RetrievedChunk, len(texts))
	for i, text := range texts {
		out[i] = models.RetrievedChunk{
			Chunk: models.Chunk{ID: i, Text: text, SourceLabel: fmt.Sprintf("page %d", i+1)},
			Score: 1 - float32(i)*0.1,
		}
	}
	return out
}

func TestAnswerWithoutContext(t *testing.T) {
	llm := &mockGenerator{response: "should not be used"}
	c, err := New(llm)
	require.NoError(t, err)

	answer, err := c.Answer(context.Background(), "any question", nil)
	require.NoError(t, err)

	assert.Equal(t, models.InsufficientContextAnswer, answer.Text)
	assert.Empty(t, answer.Citations)
	assert.Zero(t, llm.calls, "the generator is never called without retrieved chunks")
}

func TestAnswerGroundsPromptVerbatim(t *testing.T) {
	llm := &mockGenerator{response: "Paris."}
	c, err := New(llm)
	require.NoError(t, err)

	chunks := retrieved("Paris is the capital of France.", "The Eiffel Tower is in Paris.")
	answer, err := c.Answer(context.Background(), "What is the capital of France?", chunks)
	require.NoError(t, err)

	assert.Equal(t, "Paris.", answer.Text)
	assert.Contains(t, llm.lastPrompt, "Paris is the capital of France.")
	assert.Contains(t, llm.lastPrompt, "The Eiffel Tower is in Paris.")
	assert.Contains(t, llm.lastPrompt, "What is the capital of France?")
	assert.Less(t,
		strings.Index(llm.lastPrompt, "Paris is the capital"),
		strings.Index(llm.lastPrompt, "The Eiffel Tower"),
		"context keeps retrieval order")
}

func TestAnswerCitesOnlyRetrievedChunks(t *testing.T) {
	llm := &mockGenerator{response: "answer"}
	c, err := New(llm)
	require.NoError(t, err)

	chunks := retrieved("first", "second", "third")
	answer, err := c.Answer(context.Background(), "q", chunks)
	require.NoError(t, err)

	require.Len(t, answer.Citations, len(chunks))
	for i, cit := range answer.Citations {
		assert.Equal(t, chunks[i].Chunk.ID, cit.ChunkID)
		assert.Equal(t, chunks[i].Chunk.SourceLabel, cit.SourceLabel)
		assert.Equal(t, chunks[i].Chunk.Text, cit.Excerpt)
	}
}

func TestAnswerGeneratorFailure(t *testing.T) {
	llm := &mockGenerator{err: errors.New("model offline")}
	c, err := New(llm)
	require.NoError(t, err)

	_, err = c.Answer(context.Background(), "q", retrieved("text"))
	assert.Error(t, err, "generation failures surface, no degraded guess")
}

func TestExcerptTruncation(t *testing.T) {
	llm := &mockGenerator{response: "answer"}
	c, err := New(llm)
	require.NoError(t, err)

	long := strings.Repeat("w ", 300)
	answer, err := c.Answer(context.Background(), "q", retrieved(long))
	require.NoError(t, err)

	require.Len(t, answer.Citations, 1)
	assert.LessOrEqual(t, len(answer.Citations[0].Excerpt), excerptLen+3)
	assert.True(t, strings.HasSuffix(answer.Citations[0].Excerpt, "..."))
}

func TestSummarize(t *testing.T) {
	llm := &mockGenerator{response: "A short summary."}
	c, err := New(llm)
	require.NoError(t, err)

	chunks := retrieved("chapter one text", "chapter two text")
	answer, err := c.Summarize(context.Background(), chunks, 80)
	require.NoError(t, err)

	assert.Equal(t, "A short summary.", answer.Text)
	assert.Contains(t, llm.lastPrompt, "80 words")
	assert.Contains(t, llm.lastPrompt, "chapter one text")
	assert.Len(t, answer.Citations, 2)
}

func TestSummarizeWithoutChunks(t *testing.T) {
	llm := &mockGenerator{response: "unused"}
	c, err := New(llm)
	require.NoError(t, err)

	answer, err := c.Summarize(context.Background(), nil, 80)
	require.NoError(t, err)
	assert.Equal(t, models.InsufficientContextAnswer, answer.Text)
	assert.Zero(t, llm.calls)
}
