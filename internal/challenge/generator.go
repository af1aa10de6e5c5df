// Package challenge implements the active-recall loop: question generation
// spread across the document and free-text answer grading against the
// source material.
package challenge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/helper"
	"document-qa/internal/llmservice"
	"document-qa/internal/models"
)

// Batch is one fixed-size set of comprehension questions. A session holds
// exactly one batch; regeneration replaces it, never merges.
type Batch struct {
	ID        string
	Round     int
	Questions []models.ChallengeQuestion
}

// Generator derives comprehension questions from document chunks using the
// external generation capability, one question per selected chunk.
type Generator struct {
	llm   llmservice.Generator
	count int
}

func NewGenerator(llm llmservice.Generator, count int) (*Generator, error) {
	if llm == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if count <= 0 {
		return nil, fmt.Errorf("question count must be positive, got %d", count)
	}
	return &Generator{llm: llm, count: count}, nil
}

// NewBatch selects chunks deterministically spread across the document and
// derives one question per chunk, grounded only in that chunk's text.
// Passing the previous batch rotates the selection so regeneration draws a
// different spread whenever the document has more chunks than questions.
func (g *Generator) NewBatch(ctx context.Context, chunks []models.Chunk, prev *Batch) (*Batch, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to generate questions from")
	}

	round := 0
	if prev != nil {
		round = prev.Round + 1
	}

	batchID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}

	indices := spreadIndices(len(chunks), g.count, round)
	questions := make([]models.ChallengeQuestion, 0, len(indices))
	for _, idx := range indices {
		chunk := chunks[idx]
		raw, err := g.llm.Generate(ctx, fmt.Sprintf(models.QuestionPromptTemplate, chunk.Text))
		if err != nil {
			return nil, fmt.Errorf("question generation for chunk %d failed: %w", chunk.ID, err)
		}

		questionID, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}

		prompt, answer := parseQuestionAnswer(raw, chunk.Text)
		questions = append(questions, models.ChallengeQuestion{
			ID:              questionID,
			PromptText:      prompt,
			SourceChunkIDs:  []int{chunk.ID},
			ReferenceAnswer: answer,
		})
	}

	log.Debug().Int("round", round).Ints("chunk_indices", indices).Msg("challenge batch generated")
	return &Batch{ID: batchID, Round: round, Questions: questions}, nil
}

// spreadIndices picks count evenly spaced chunk indices, rotated by round
// so consecutive batches cover different passages. It is a pure function of
// its arguments. Documents with at most count chunks use every chunk.
func spreadIndices(n, count, round int) []int {
	if n <= count {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	indices := make([]int, count)
	for j := 0; j < count; j++ {
		indices[j] = (round + j*n/count) % n
	}
	sort.Ints(indices)
	return indices
}

// parseQuestionAnswer extracts the "Question:"/"Answer:" lines from the
// generator output. Missing pieces fall back to the raw output and the
// source passage so a malformed response still yields a gradable question.
func parseQuestionAnswer(raw, chunkText string) (string, string) {
	var question, answer string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Question:"):
			question = strings.TrimSpace(strings.TrimPrefix(line, "Question:"))
		case strings.HasPrefix(line, "Answer:"):
			answer = strings.TrimSpace(strings.TrimPrefix(line, "Answer:"))
		}
	}
	if question == "" {
		question = strings.TrimSpace(raw)
	}
	if answer == "" {
		answer = strings.TrimSpace(chunkText)
	}
	return question, answer
}
