package embeddings

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/blevlabs/TuningTracker/internal/config"
)

// OpenAIService implements Service with the OpenAI embeddings API, or any
// server that speaks it when a base URL is set.
type OpenAIService struct {
	client     openai.Client
	model      string
	dimensions int

	// requested is sent to the API; zero keeps the model's native size.
	requested int
}

// NewOpenAIService creates a new OpenAI embedding service.
func NewOpenAIService(apiKey, model, baseURL string, dimensions int, opts ...option.RequestOption) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = config.DefaultOpenAIEmbedModel
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)

	known := dimensions
	if known == 0 {
		known = GetModelDimensions(model)
		if known == 0 {
			known = 1536
			log.Debug("Unknown model dimensions, defaulting", "model", model, "dimensions", known)
		}
	}

	return &OpenAIService{
		client:     openai.NewClient(clientOpts...),
		model:      model,
		dimensions: known,
		requested:  dimensions,
	}, nil
}

// EmbedQuery embeds a search concept. OpenAI models take no task prefix.
func (s *OpenAIService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds document texts.
func (s *OpenAIService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return s.embed(ctx, texts)
}

// Dimensions returns the embedding dimensions.
func (s *OpenAIService) Dimensions() int {
	return s.dimensions
}

// Provider returns the provider name.
func (s *OpenAIService) Provider() Provider {
	return ProviderOpenAI
}

// ModelName returns the model name.
func (s *OpenAIService) ModelName() string {
	return s.model
}

func (s *OpenAIService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	log.Debug("Requesting embeddings from OpenAI", "model", s.model, "count", len(texts))

	params := openai.EmbeddingNewParams{
		Model:          openai.EmbeddingModel(s.model),
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if s.requested > 0 {
		params.Dimensions = openai.Int(int64(s.requested))
	}

	resp, err := s.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	// Data is not guaranteed to arrive in input order.
	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(vectors) {
			continue
		}
		v := make([]float32, len(data.Embedding))
		for i, x := range data.Embedding {
			v[i] = float32(x)
		}
		vectors[idx] = v
	}
	if err := checkCount(vectors, len(texts)); err != nil {
		return nil, err
	}

	s.dimensions = len(vectors[0])
	return vectors, nil
}
