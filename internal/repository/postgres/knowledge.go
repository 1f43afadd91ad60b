package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"tradesync/internal/domain/knowledge"
)

// Compile-time check
var _ knowledge.Repository = (*KnowledgeRepository)(nil)

// KnowledgeRepository implements knowledge.Repository using sqlx and pgvector
type KnowledgeRepository struct {
	db *sqlx.DB
}

// NewKnowledgeRepository creates a new knowledge repository
func NewKnowledgeRepository(db *sqlx.DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// Insert stores one corpus chunk. Used by the ingestion pipeline.
func (r *KnowledgeRepository) Insert(ctx context.Context, chunk *knowledge.Chunk) error {
	query := `
		INSERT INTO knowledge_chunks (id, content, source, embedding)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, chunk.ID, chunk.Content, chunk.Source, chunk.Embedding)
	return err
}

// SearchNearest returns corpus chunks ranked by cosine similarity
func (r *KnowledgeRepository) SearchNearest(ctx context.Context, embedding pgvector.Vector, limit int) ([]*knowledge.Result, error) {
	var results []*knowledge.Result

	query := `
		SELECT content, source, 1 - (embedding <=> $1) as similarity
		FROM knowledge_chunks
		ORDER BY embedding <=> $1
		LIMIT $2`

	err := r.db.SelectContext(ctx, &results, query, embedding, limit)
	if err != nil {
		return nil, err
	}

	return results, nil
}
