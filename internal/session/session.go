// Package session ties the pipeline together around one active document.
// All mutable state lives on the Session struct, so concurrent user
// sessions are isolated from each other by construction.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"document-qa/internal/challenge"
	"document-qa/internal/chunker"
	"document-qa/internal/composer"
	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/index"
	"document-qa/internal/llmservice"
	"document-qa/internal/models"
	"document-qa/internal/retriever"
	"document-qa/internal/store"
)

var (
	ErrNoDocument      = errors.New("no document loaded")
	ErrUnknownQuestion = errors.New("question does not belong to the current challenge batch")
)

const maxHistory = 50

// Session owns the active document, its index and all per-user state.
type Session struct {
	id  string
	cfg *config.Config

	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	composer  *composer.Composer
	generator *challenge.Generator
	validator *challenge.Validator

	mu        sync.Mutex
	doc       models.Document
	docKey    string
	chunks    []models.Chunk
	centroid  []float32
	index     *index.VectorIndex
	retriever *retriever.Retriever
	batch     *challenge.Batch
	history   []models.Exchange
}

// New wires a session from injected capabilities. The embedding and
// generation models are interfaces so tests can substitute deterministic
// stubs.
func New(cfg *config.Config, embedder embedding.Embedder, llm llmservice.Generator) (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}

	ch, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	comp, err := composer.New(llm)
	if err != nil {
		return nil, err
	}
	gen, err := challenge.NewGenerator(llm, cfg.RAG.QuestionCount)
	if err != nil {
		return nil, err
	}
	val, err := challenge.NewValidator(embedder, cfg.Validator)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:        id,
		cfg:       cfg,
		chunker:   ch,
		embedder:  embedder,
		composer:  comp,
		generator: gen,
		validator: val,
		index:     index.New(),
	}, nil
}

func (s *Session) ID() string { return s.id }

// LoadDocument chunks and embeds the document and rebuilds the index.
// The previous document's chunks, challenge batch and chat history are
// discarded; retrievers bound to the old index become stale.
func (s *Session) LoadDocument(ctx context.Context, doc models.Document) (int, error) {
	chunks, err := s.chunker.ChunkDocument(doc)
	if err != nil {
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed document: %w", err)
	}

	if err := s.index.Build(ctx, chunks, vectors); err != nil {
		return 0, err
	}
	ret, err := retriever.New(s.embedder, s.index.Snapshot())
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.doc = doc
	s.docKey = helper.Fingerprint(doc.Text)
	s.chunks = chunks
	s.centroid = meanVector(vectors)
	s.retriever = ret
	s.batch = nil
	s.history = nil
	s.mu.Unlock()

	log.Info().Str("session", s.id).Str("document", doc.Name).Int("chunks", len(chunks)).Msg("document loaded")
	return len(chunks), nil
}

// Ask answers a free-form question grounded in the active document and
// records the exchange in the session history.
func (s *Session) Ask(ctx context.Context, question string) (models.Answer, error) {
	s.mu.Lock()
	ret := s.retriever
	s.mu.Unlock()
	if ret == nil {
		return models.Answer{}, ErrNoDocument
	}

	retrieved, err := ret.Retrieve(ctx, question, s.cfg.RAG.TopK)
	if err != nil {
		return models.Answer{}, err
	}
	answer, err := s.composer.Answer(ctx, question, retrieved)
	if err != nil {
		return models.Answer{}, err
	}

	s.mu.Lock()
	s.history = append(s.history, models.Exchange{Question: question, Answer: answer.Text})
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	s.mu.Unlock()

	return answer, nil
}

// Summarize composes an abstractive summary from the chunks nearest the
// document centroid, which spreads coverage over the dominant topics.
func (s *Session) Summarize(ctx context.Context) (models.Answer, error) {
	s.mu.Lock()
	centroid := s.centroid
	s.mu.Unlock()
	if centroid == nil {
		return models.Answer{}, ErrNoDocument
	}

	representative, err := s.index.Search(ctx, centroid, s.cfg.RAG.SummaryChunks)
	if err != nil {
		return models.Answer{}, err
	}
	return s.composer.Summarize(ctx, representative, s.cfg.RAG.SummaryWords)
}

// NewChallenge generates a fresh question batch, discarding the previous
// one. Selection rotates so repeated calls cover different passages.
func (s *Session) NewChallenge(ctx context.Context) ([]models.ChallengeQuestion, error) {
	s.mu.Lock()
	chunks := s.chunks
	prev := s.batch
	s.mu.Unlock()
	if len(chunks) == 0 {
		return nil, ErrNoDocument
	}

	batch, err := s.generator.NewBatch(ctx, chunks, prev)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.batch = batch
	s.mu.Unlock()
	return batch.Questions, nil
}

// ValidateAnswer grades a user's answer to a question from the current
// batch against the question's reference answer and source chunks.
func (s *Session) ValidateAnswer(ctx context.Context, questionID, userAnswer string) (models.ValidationResult, error) {
	s.mu.Lock()
	batch := s.batch
	chunks := s.chunks
	s.mu.Unlock()
	if batch == nil {
		return models.ValidationResult{}, ErrNoDocument
	}

	var question *models.ChallengeQuestion
	for i := range batch.Questions {
		if batch.Questions[i].ID == questionID {
			question = &batch.Questions[i]
			break
		}
	}
	if question == nil {
		return models.ValidationResult{}, ErrUnknownQuestion
	}

	byID := make(map[int]models.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	sourceTexts := make([]string, 0, len(question.SourceChunkIDs))
	for _, id := range question.SourceChunkIDs {
		if c, ok := byID[id]; ok {
			sourceTexts = append(sourceTexts, c.Text)
		}
	}

	return s.validator.Validate(ctx, *question, sourceTexts, userAnswer)
}

// Questions returns the current challenge batch, if any.
func (s *Session) Questions() []models.ChallengeQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}
	return s.batch.Questions
}

// History returns the recorded question/answer exchanges.
func (s *Session) History() []models.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Exchange, len(s.history))
	copy(out, s.history)
	return out
}

// Persist saves the active index under the document's fingerprint.
func (s *Session) Persist(ctx context.Context, snapshots store.SnapshotStore) error {
	s.mu.Lock()
	key := s.docKey
	s.mu.Unlock()
	if key == "" {
		return ErrNoDocument
	}

	payload, err := s.index.Persist(ctx)
	if err != nil {
		return err
	}
	return snapshots.Save(ctx, key, payload)
}

// RestoreIndex reloads a persisted index for the given document text,
// skipping the embedding pass. Chat history and challenge state start
// fresh, as with any document load. The chunk centroid is not part of the
// snapshot, so Summarize needs a full LoadDocument.
func (s *Session) RestoreIndex(ctx context.Context, snapshots store.SnapshotStore, doc models.Document) error {
	key := helper.Fingerprint(doc.Text)
	payload, err := snapshots.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := s.index.Restore(ctx, payload); err != nil {
		return err
	}

	chunks, err := s.chunker.ChunkDocument(doc)
	if err != nil {
		return err
	}
	ret, err := retriever.New(s.embedder, s.index.Snapshot())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.doc = doc
	s.docKey = key
	s.chunks = chunks
	s.centroid = nil
	s.retriever = ret
	s.batch = nil
	s.history = nil
	s.mu.Unlock()

	log.Info().Str("session", s.id).Str("document", doc.Name).Msg("index restored from snapshot")
	return nil
}

func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	mean := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i := range mean {
			mean[i] += v[i]
		}
	}
	for i := range mean {
		mean[i] /= float32(len(vectors))
	}
	return mean
}
