package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaConfig configures the Ollama provider.
type OllamaConfig struct {
	BaseURL   string
	Model     string
	Dimension int
}

// OllamaProvider embeds text with a local Ollama server through langchaingo.
type OllamaProvider struct {
	embedder  lcembeddings.Embedder
	model     string
	dimension int
}

// NewOllamaProvider creates an Ollama embedding provider.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	dim, err := resolveDimension(cfg.Model, cfg.Dimension)
	if err != nil {
		return nil, err
	}

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OllamaProvider{embedder: embedder, model: cfg.Model, dimension: dim}, nil
}

// Embed generates an embedding for text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vec, nil
}

// Dimension returns the embedding dimension.
func (p *OllamaProvider) Dimension() int { return p.dimension }

// Model returns the model name.
func (p *OllamaProvider) Model() string { return p.model }

// Close is a no-op.
func (p *OllamaProvider) Close() error { return nil }
