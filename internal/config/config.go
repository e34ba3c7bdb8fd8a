package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"pdfchat/internal/chunker"
)

type Config struct {
	Database  DatabaseConfig `yaml:"database"`
	Embedding LLMConfig      `yaml:"embedding"`
	LLM       LLMConfig      `yaml:"llm"`
	RAG       RAGConfig      `yaml:"rag"`
	VectorDB  VectorDBConfig `yaml:"vectordb"`
}

type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

// LLMConfig configures either the embedding backend or the generation
// backend, depending on the section it appears under.
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // local | ollama | openai
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Key            string  `yaml:"key"`
	Dimension      int     `yaml:"dimension"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type RAGConfig struct {
	ChunkWords      int `yaml:"chunk_words"`
	OverlapWords    int `yaml:"overlap_words"`
	TopK            int `yaml:"top_k"`
	MinRelevance    int `yaml:"min_relevance"` // percent, 0-100
	MaxContextChars int `yaml:"max_context_chars"`
}

type VectorDBConfig struct {
	Path          string `yaml:"path"`
	InMemory      bool   `yaml:"in_memory"`
	EncryptionKey string `yaml:"encryption_key"`
}

// LoadConfig reads the yaml file at path, merges environment overrides and
// fills defaults. A missing file is not an error; defaults are returned.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	mergeWithEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "local"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 128
	}
	if cfg.Embedding.Provider == "ollama" {
		if cfg.Embedding.BaseURL == "" {
			cfg.Embedding.BaseURL = "http://localhost:11434"
		}
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "nomic-embed-text"
		}
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 15
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2048
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 30
	}

	if cfg.RAG.ChunkWords == 0 {
		cfg.RAG.ChunkWords = chunker.DefaultWindowWords
	}
	if cfg.RAG.OverlapWords == 0 {
		cfg.RAG.OverlapWords = chunker.DefaultOverlapWords
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 3
	}
	if cfg.RAG.MinRelevance == 0 {
		cfg.RAG.MinRelevance = 20
	}
	if cfg.RAG.MaxContextChars == 0 {
		cfg.RAG.MaxContextChars = 12000
	}
}

func mergeWithEnv(cfg *Config) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		cfg.LLM.Key = key
	}
	if base := os.Getenv("LLM_BASE_URL"); base != "" {
		cfg.LLM.BaseURL = base
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
		cfg.Embedding.BaseURL = base
	}
}
