package inmemory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/pgvector/pgvector-go"

	"tradesync/internal/domain/memory"
)

// Compile-time check
var _ memory.Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory memory.Repository for tests and local
// development. Search ranks by exact cosine distance.
type MemoryRepository struct {
	mu       sync.RWMutex
	memories []*memory.Memory
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Store appends a consolidation record
func (r *MemoryRepository) Store(_ context.Context, m *memory.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *m
	r.memories = append(r.memories, &stored)
	return nil
}

// SearchSimilar returns up to limit memories in the scope, nearest first
func (r *MemoryRepository) SearchSimilar(_ context.Context, scopeKey string, embedding pgvector.Vector, limit int) ([]*memory.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		mem  *memory.Memory
		dist float64
	}

	var candidates []scored
	for _, m := range r.memories {
		if m.ScopeKey != scopeKey {
			continue
		}
		candidates = append(candidates, scored{
			mem:  m,
			dist: cosineDistance(embedding.Slice(), m.Embedding.Slice()),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]*memory.Memory, 0, len(candidates))
	for _, c := range candidates {
		mem := *c.mem
		results = append(results, &mem)
	}
	return results, nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
