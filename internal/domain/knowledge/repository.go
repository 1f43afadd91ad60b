package knowledge

import (
	"context"

	"github.com/pgvector/pgvector-go"
)

// Repository serves nearest-neighbor search over the knowledge corpus.
type Repository interface {
	// SearchNearest returns up to limit chunks ranked by cosine
	// similarity to the query vector.
	SearchNearest(ctx context.Context, embedding pgvector.Vector, limit int) ([]*Result, error)
}
