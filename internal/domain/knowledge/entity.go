package knowledge

import (
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Chunk is one embedded fragment of the static research corpus (trading
// books, reports, papers), written once by the ingestion pipeline.
type Chunk struct {
	ID        uuid.UUID       `db:"id"`
	Content   string          `db:"content"`
	Source    string          `db:"source"`
	Embedding pgvector.Vector `db:"embedding"`
}

// Result is a ranked retrieval hit. Similarity is 1 - cosine distance,
// so higher is closer.
type Result struct {
	Content    string  `db:"content" json:"content"`
	Source     string  `db:"source" json:"source"`
	Similarity float64 `db:"similarity" json:"similarity"`
}
