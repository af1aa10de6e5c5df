package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds connection details for one model endpoint. Provider is
// either "openai" (any OpenAI-compatible API) or "ollama".
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// RAGConfig tunes the retrieval pipeline.
type RAGConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
	TopK          int `yaml:"top_k"`
	SummaryChunks int `yaml:"summary_chunks"`
	SummaryWords  int `yaml:"summary_words"`
	QuestionCount int `yaml:"question_count"`
}

// ValidatorConfig holds the similarity thresholds that map a grading score
// to a verdict. The defaults are fixed constants; they are exposed here for
// calibration only.
type ValidatorConfig struct {
	CorrectThreshold float32 `yaml:"correct_threshold"`
	PartialThreshold float32 `yaml:"partial_threshold"`
}

// StoreConfig selects where index snapshots are persisted.
type StoreConfig struct {
	Type  string `yaml:"type"` // "file" or "postgres"
	Path  string `yaml:"path"`
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

type Config struct {
	RAG       RAGConfig       `yaml:"rag"`
	Validator ValidatorConfig `yaml:"validator"`
	EmbedLLM  LLMConfig       `yaml:"embed_llm"`
	GenLLM    LLMConfig       `yaml:"gen_llm"`
	Store     StoreConfig     `yaml:"store"`
}

const (
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 200
	DefaultTopK          = 3
	DefaultSummaryChunks = 5
	DefaultSummaryWords  = 150
	DefaultQuestionCount = 3

	// Cosine similarity cutoffs for answer grading.
	DefaultCorrectThreshold = 0.85
	DefaultPartialThreshold = 0.60
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with all tunables at their defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = DefaultChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = DefaultTopK
	}
	if cfg.RAG.SummaryChunks == 0 {
		cfg.RAG.SummaryChunks = DefaultSummaryChunks
	}
	if cfg.RAG.SummaryWords == 0 {
		cfg.RAG.SummaryWords = DefaultSummaryWords
	}
	if cfg.RAG.QuestionCount == 0 {
		cfg.RAG.QuestionCount = DefaultQuestionCount
	}
	if cfg.Validator.CorrectThreshold == 0 {
		cfg.Validator.CorrectThreshold = DefaultCorrectThreshold
	}
	if cfg.Validator.PartialThreshold == 0 {
		cfg.Validator.PartialThreshold = DefaultPartialThreshold
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "file"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./snapshots"
	}
}

func (c *Config) Validate() error {
	if c.RAG.ChunkOverlap <= 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap must be between 1 and chunk_size-1, got overlap=%d size=%d",
			c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.Validator.PartialThreshold > c.Validator.CorrectThreshold {
		return fmt.Errorf("partial_threshold %.2f exceeds correct_threshold %.2f",
			c.Validator.PartialThreshold, c.Validator.CorrectThreshold)
	}
	return nil
}
