package inmemory

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesync/internal/domain/memory"
)

func storeMemory(t *testing.T, repo *MemoryRepository, scopeKey, content string, vec []float32) {
	t.Helper()
	require.NoError(t, repo.Store(context.Background(), &memory.Memory{
		ScopeKey:  scopeKey,
		Content:   content,
		Embedding: pgvector.NewVector(vec),
	}))
}

func TestSearchSimilar_NearestFirstWithinScope(t *testing.T) {
	repo := NewMemoryRepository()
	storeMemory(t, repo, "tradesync:user-1", "exact match", []float32{1, 0, 0})
	storeMemory(t, repo, "tradesync:user-1", "orthogonal", []float32{0, 1, 0})
	storeMemory(t, repo, "tradesync:user-1", "close", []float32{0.9, 0.1, 0})
	storeMemory(t, repo, "tradesync:user-2", "other user", []float32{1, 0, 0})

	results, err := repo.SearchSimilar(context.Background(), "tradesync:user-1", pgvector.NewVector([]float32{1, 0, 0}), 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "exact match", results[0].Content)
	assert.Equal(t, "close", results[1].Content)
}

func TestSearchSimilar_EmptyScope(t *testing.T) {
	repo := NewMemoryRepository()
	storeMemory(t, repo, "tradesync:user-1", "something", []float32{1, 0, 0})

	results, err := repo.SearchSimilar(context.Background(), "tradesync:user-9", pgvector.NewVector([]float32{1, 0, 0}), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchSimilar_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	storeMemory(t, repo, "tradesync:user-1", "original", []float32{1, 0, 0})

	results, err := repo.SearchSimilar(context.Background(), "tradesync:user-1", pgvector.NewVector([]float32{1, 0, 0}), 1)
	require.NoError(t, err)
	results[0].Content = "mutated"

	again, err := repo.SearchSimilar(context.Background(), "tradesync:user-1", pgvector.NewVector([]float32{1, 0, 0}), 1)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}
