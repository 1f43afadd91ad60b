package embeddings

import "context"

// TaskType hints the embedding backend how the vector will be used.
// Query and document vectors are not interchangeable on asymmetric models.
type TaskType string

const (
	TaskQuery    TaskType = "retrieval_query"
	TaskDocument TaskType = "retrieval_document"
)

// Provider defines the interface for embedding generation services
// Implementations can use different backends: OpenAI, Gemini, local models, etc.
type Provider interface {
	// GenerateEmbedding creates a vector embedding for a single text
	GenerateEmbedding(ctx context.Context, text string, task TaskType) ([]float32, error)

	// Dimensions returns the dimensionality of embeddings produced by this provider
	Dimensions() int

	// Name returns the provider/model name used for search compatibility checks
	Name() string
}
