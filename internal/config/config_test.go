package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
embed_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultChunkSize, cfg.RAG.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.RAG.ChunkOverlap)
	assert.Equal(t, DefaultTopK, cfg.RAG.TopK)
	assert.Equal(t, DefaultQuestionCount, cfg.RAG.QuestionCount)
	assert.InDelta(t, DefaultCorrectThreshold, cfg.Validator.CorrectThreshold, 1e-6)
	assert.InDelta(t, DefaultPartialThreshold, cfg.Validator.PartialThreshold, 1e-6)
	assert.Equal(t, "file", cfg.Store.Type)
	assert.Equal(t, "ollama", cfg.EmbedLLM.Provider)
}

func TestLoadConfigRejectsBadOverlap(t *testing.T) {
	path := writeConfig(t, `
rag:
  chunk_size: 100
  chunk_overlap: 100
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadThresholds(t *testing.T) {
	path := writeConfig(t, `
validator:
  correct_threshold: 0.5
  partial_threshold: 0.9
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
