package memory

import (
	"context"

	"github.com/pgvector/pgvector-go"
)

// Repository persists consolidation records and serves scoped vector search.
type Repository interface {
	Store(ctx context.Context, mem *Memory) error

	// SearchSimilar returns up to limit memories for the given scope key,
	// nearest first by cosine distance.
	SearchSimilar(ctx context.Context, scopeKey string, embedding pgvector.Vector, limit int) ([]*Memory, error)
}
