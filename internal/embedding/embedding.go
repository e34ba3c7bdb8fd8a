package embedding

import (
	"context"
	"fmt"

	"pdfchat/internal/config"
)

// Embedder converts text into a fixed-length vector. The same embedder
// instance must be used for chunk indexing and query encoding so that the
// vectors are comparable. Embed is deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Name() string
}

// NewFromConfig builds the embedder selected by the embedding section of
// the config.
func NewFromConfig(cfg *config.LLMConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocal(cfg.Dimension), nil
	case "ollama":
		return NewOllama(cfg)
	case "openai":
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
