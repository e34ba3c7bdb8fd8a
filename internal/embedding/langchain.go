package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdfchat/internal/config"
	"pdfchat/internal/models"
)

// LangChain adapts a langchaingo embedder to the Embedder interface with a
// request timeout. Backend failures are reported as ErrEmbeddingUnavailable
// so callers never mistake them for an empty result.
type LangChain struct {
	impl    *embeddings.EmbedderImpl
	name    string
	dim     int
	timeout time.Duration
}

// NewOllama creates an embedder backed by an Ollama server.
func NewOllama(cfg *config.LLMConfig) (*LangChain, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing ollama embedder: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	log.Debug().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("ollama embedder ready")
	return newLangChain(impl, "ollama/"+cfg.Model, cfg), nil
}

// NewOpenAI creates an embedder backed by an OpenAI-compatible endpoint.
func NewOpenAI(cfg *config.LLMConfig) (*LangChain, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing openai embedder: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	log.Debug().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("openai embedder ready")
	return newLangChain(impl, "openai/"+cfg.Model, cfg), nil
}

func newLangChain(impl *embeddings.EmbedderImpl, name string, cfg *config.LLMConfig) *LangChain {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LangChain{impl: impl, name: name, dim: cfg.Dimension, timeout: timeout}
}

func (e *LangChain) Name() string { return e.name }

// Dimension is the configured vector size; 0 means it is learned from the
// first successful Embed call.
func (e *LangChain) Dimension() int { return e.dim }

func (e *LangChain) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: backend returned an empty vector", models.ErrEmbeddingUnavailable)
	}
	if e.dim == 0 {
		e.dim = len(vec)
	}
	return vec, nil
}
