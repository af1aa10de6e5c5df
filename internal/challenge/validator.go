package challenge

import (
	"context"
	"fmt"
	"math"
	"strings"

	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/models"
)

// Validator grades free-text answers by embedding similarity against the
// reference answer and the source passages. No string equality is involved,
// so lexically different but equivalent answers still score.
type Validator struct {
	embedder embedding.Embedder
	correct  float32
	partial  float32
}

func NewValidator(embedder embedding.Embedder, cfg config.ValidatorConfig) (*Validator, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if cfg.CorrectThreshold <= 0 || cfg.PartialThreshold <= 0 || cfg.PartialThreshold > cfg.CorrectThreshold {
		return nil, fmt.Errorf("invalid thresholds: correct=%.2f partial=%.2f",
			cfg.CorrectThreshold, cfg.PartialThreshold)
	}
	return &Validator{
		embedder: embedder,
		correct:  cfg.CorrectThreshold,
		partial:  cfg.PartialThreshold,
	}, nil
}

// Validate scores userAnswer against the question's reference answer and
// the source chunk texts. The score is the best cosine similarity across
// the reference material; thresholds map it to the three-valued verdict.
// The reference answer is always returned so the user can self-check.
func (v *Validator) Validate(ctx context.Context, question models.ChallengeQuestion, sourceTexts []string, userAnswer string) (models.ValidationResult, error) {
	result := models.ValidationResult{
		QuestionID:      question.ID,
		ReferenceAnswer: question.ReferenceAnswer,
	}

	trimmed := strings.TrimSpace(userAnswer)
	if trimmed == "" {
		result.Verdict = models.VerdictIncorrect
		result.Explanation = "No answer was given."
		return result, nil
	}

	texts := append([]string{trimmed, question.ReferenceAnswer}, sourceTexts...)
	vectors, err := v.embedder.Embed(ctx, texts)
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("failed to embed answers for grading: %w", err)
	}

	score := cosine(vectors[0], vectors[1])
	for _, src := range vectors[2:] {
		if s := cosine(vectors[0], src); s > score {
			score = s
		}
	}
	result.Similarity = score

	switch {
	case score >= v.correct:
		result.Verdict = models.VerdictCorrect
		result.Explanation = fmt.Sprintf("The answer matches the reference material (similarity %.2f).", score)
	case score >= v.partial:
		result.Verdict = models.VerdictPartiallyCorrect
		result.Explanation = fmt.Sprintf("The answer covers part of the reference material (similarity %.2f, below %.2f).", score, v.correct)
	default:
		result.Verdict = models.VerdictIncorrect
		result.Explanation = fmt.Sprintf("The answer does not match the reference material (similarity %.2f, below %.2f).", score, v.partial)
	}
	return result, nil
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
