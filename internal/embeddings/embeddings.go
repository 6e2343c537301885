// Package embeddings computes vectors on the client for databases whose
// classes have no server-side vectorizer.
package embeddings

import (
	"context"
	"fmt"

	"github.com/blevlabs/TuningTracker/internal/config"
)

// Provider represents an embedding provider type.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// Service embeds object text and search concepts.
type Service interface {
	// EmbedBatch embeds document texts, one vector per text in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a search concept (may use a different task prefix).
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimensions for this model.
	Dimensions() int

	// Provider returns the provider name.
	Provider() Provider

	// ModelName returns the model name.
	ModelName() string
}

// Known model dimensions
var modelDimensions = map[string]int{
	// Ollama models
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,

	// OpenAI models
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// GetModelDimensions returns the known dimensions for a model, or 0 if unknown.
func GetModelDimensions(model string) int {
	return modelDimensions[model]
}

// NewService creates the configured embedding service. It returns nil and no
// error when client-side vectorization is disabled.
func NewService(cfg config.VectorizerConfig) (Service, error) {
	switch cfg.Provider {
	case "", config.VectorizerNone:
		return nil, nil
	case string(ProviderOllama):
		return NewOllamaService(cfg.Ollama.URL, cfg.Ollama.Model)
	case string(ProviderOpenAI):
		return NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, cfg.OpenAI.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported vectorizer provider: %s", cfg.Provider)
	}
}

// checkCount guards against providers that drop inputs.
func checkCount(vectors [][]float32, inputs int) error {
	if len(vectors) != inputs {
		return fmt.Errorf("provider returned %d embeddings for %d inputs", len(vectors), inputs)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("provider returned an empty embedding for input %d", i)
		}
	}
	return nil
}
