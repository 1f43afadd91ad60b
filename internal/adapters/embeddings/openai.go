package embeddings

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

// OpenAIProvider implements embedding generation using the official OpenAI Go SDK
type OpenAIProvider struct {
	client     openai.Client
	model      openai.EmbeddingModel
	dimensions int
	timeout    time.Duration
	log        *logger.Logger
}

// NewOpenAIProvider creates a new OpenAI embedding provider
func NewOpenAIProvider(apiKey string, model string, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "openai API key is required")
	}

	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Small
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:     client,
		model:      openai.EmbeddingModel(model),
		dimensions: getDimensions(model),
		timeout:    timeout,
		log:        logger.Get().With("component", "openai_embeddings", "model", model),
	}, nil
}

// GenerateEmbedding creates a vector embedding for the given text.
// OpenAI embedding models are symmetric, so the task type only matters for
// logging here; it is part of the Provider contract for backends that are not.
func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, text string, task TaskType) ([]float32, error) {
	if text == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "text cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	response, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: p.model,
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai API call failed")
	}

	if len(response.Data) == 0 {
		return nil, errors.Wrapf(errors.ErrInternal, "no embedding data returned")
	}

	// Convert []float64 to []float32 for pgvector compatibility
	embeddingData := response.Data[0].Embedding
	result := make([]float32, len(embeddingData))
	for i, val := range embeddingData {
		result[i] = float32(val)
	}

	p.log.Debug("Generated embedding",
		"task", string(task),
		"text_length", len(text),
		"embedding_dims", len(result),
		"tokens_used", response.Usage.TotalTokens)

	return result, nil
}

// Dimensions returns the dimensionality of embeddings
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Name returns the model name (e.g., "text-embedding-3-small")
func (p *OpenAIProvider) Name() string {
	return string(p.model)
}

// getDimensions returns embedding dimensions for known OpenAI models
func getDimensions(model string) int {
	switch model {
	case openai.EmbeddingModelTextEmbedding3Small:
		return 1536
	case openai.EmbeddingModelTextEmbedding3Large:
		return 3072
	case openai.EmbeddingModelTextEmbeddingAda002:
		return 1536
	default:
		return 1536
	}
}
