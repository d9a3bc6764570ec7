package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meridian-labs/catalog-search/pkg/config"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider implements Provider against any OpenAI-compatible
// embeddings endpoint (OpenAI itself, Ollama, vLLM, ...).
type OpenAIProvider struct {
	embedder  embeddings.Embedder
	dimension int
	logger    *slog.Logger
}

// NewOpenAIProvider builds a provider from the embedding config. The token
// is fixed to "none" for local endpoints that skip authentication; set
// OPENAI_API_KEY in the environment for hosted ones.
func NewOpenAIProvider(cfg config.EmbeddingConfig) (*OpenAIProvider, error) {
	client, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(cfg.BatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("wrapping embedder: %w", err)
	}
	return &OpenAIProvider{
		embedder:  embedder,
		dimension: cfg.Dimension,
		logger:    slog.Default().With("component", "openai-embedder", "model", cfg.Model),
	}, nil
}

// Embed requests one embedding per text in a single batched call.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		p.logger.Error("embedding request failed", "count", len(texts), "error", err)
		return nil, &ProviderError{Op: "embed", Err: err}
	}
	for i, vec := range vectors {
		if len(vec) != p.dimension {
			return nil, &ProviderError{
				Op:  "embed",
				Err: fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), p.dimension),
			}
		}
	}
	p.logger.Debug("embeddings generated", "count", len(vectors))
	return vectors, nil
}

// Dimension returns the configured vector length.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}
