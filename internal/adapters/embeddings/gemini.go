package embeddings

import (
	"context"
	"time"

	"google.golang.org/genai"

	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

// GeminiProvider implements embedding generation using the Gemini API.
// Gemini embedding models are asymmetric: the task type changes the vector,
// so queries and documents must be embedded with matching task hints.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	dimensions int
	timeout    time.Duration
	log        *logger.Logger
}

// NewGeminiProvider creates a new Gemini embedding provider
func NewGeminiProvider(ctx context.Context, apiKey string, model string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "gemini API key is required")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}

	return &GeminiProvider{
		client:     client,
		model:      model,
		dimensions: 768,
		timeout:    timeout,
		log:        logger.Get().With("component", "gemini_embeddings", "model", model),
	}, nil
}

// GenerateEmbedding creates a vector embedding for the given text
func (p *GeminiProvider) GenerateEmbedding(ctx context.Context, text string, task TaskType) ([]float32, error) {
	if text == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "text cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Models.EmbedContent(ctx, p.model,
		genai.Text(text),
		&genai.EmbedContentConfig{TaskType: geminiTaskType(task)},
	)
	if err != nil {
		return nil, errors.Wrap(err, "gemini embed call failed")
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.Wrapf(errors.ErrInternal, "no embedding data returned")
	}

	p.log.Debugw("Generated embedding",
		"task", string(task),
		"text_length", len(text),
		"embedding_dims", len(resp.Embeddings[0].Values))

	return resp.Embeddings[0].Values, nil
}

// Dimensions returns the dimensionality of embeddings
func (p *GeminiProvider) Dimensions() int {
	return p.dimensions
}

// Name returns the model name
func (p *GeminiProvider) Name() string {
	return p.model
}

func geminiTaskType(task TaskType) string {
	switch task {
	case TaskQuery:
		return "RETRIEVAL_QUERY"
	case TaskDocument:
		return "RETRIEVAL_DOCUMENT"
	default:
		return "SEMANTIC_SIMILARITY"
	}
}
