package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"tradesync/internal/domain/memory"
)

// Compile-time check
var _ memory.Repository = (*MemoryRepository)(nil)

// MemoryRepository implements memory.Repository using sqlx and pgvector
type MemoryRepository struct {
	db *sqlx.DB
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *sqlx.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// Store inserts a new consolidation record
func (r *MemoryRepository) Store(ctx context.Context, m *memory.Memory) error {
	query := `
		INSERT INTO memories (
			id, app_name, user_id, scope_key, content, embedding, timestamp, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.AppName, m.UserID, m.ScopeKey, m.Content, m.Embedding, m.Timestamp, m.CreatedAt,
	)

	return err
}

// SearchSimilar performs scoped semantic search using pgvector cosine distance
func (r *MemoryRepository) SearchSimilar(ctx context.Context, scopeKey string, embedding pgvector.Vector, limit int) ([]*memory.Memory, error) {
	var memories []*memory.Memory

	query := `
		SELECT id, app_name, user_id, scope_key, content, embedding, timestamp, created_at
		FROM memories
		WHERE scope_key = $1
		ORDER BY embedding <=> $2
		LIMIT $3`

	err := r.db.SelectContext(ctx, &memories, query, scopeKey, embedding, limit)
	if err != nil {
		return nil, err
	}

	return memories, nil
}
