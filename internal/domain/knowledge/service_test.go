package knowledge

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesync/internal/adapters/embeddings"
	"tradesync/pkg/errors"
)

type fakeKnowledgeRepo struct {
	results   []*Result
	lastLimit int
	hits      int
	err       error
}

func (r *fakeKnowledgeRepo) SearchNearest(_ context.Context, _ pgvector.Vector, limit int) ([]*Result, error) {
	r.hits++
	r.lastLimit = limit
	if r.err != nil {
		return nil, r.err
	}
	return r.results, nil
}

type stubEmbedder struct {
	calls int
	err   error
}

func (e *stubEmbedder) GenerateEmbedding(_ context.Context, _ string, _ embeddings.TaskType) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.5, 0.5}, nil
}

func (e *stubEmbedder) Dimensions() int { return 2 }
func (e *stubEmbedder) Name() string    { return "stub" }

func TestSearch_RanksAndReturnsResults(t *testing.T) {
	repo := &fakeKnowledgeRepo{results: []*Result{
		{Content: "momentum persists over 3-12 months", Source: "factors.md", Similarity: 0.91},
		{Content: "mean reversion dominates intraday", Source: "factors.md", Similarity: 0.84},
	}}
	svc := NewService(repo, &stubEmbedder{}, DefaultConfig())

	results := svc.Search(context.Background(), "momentum", 0)

	require.Len(t, results, 2)
	assert.Equal(t, "factors.md", results[0].Source)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
	assert.Equal(t, 5, repo.lastLimit) // default limit applied
}

func TestSearch_ExplicitLimitPassedThrough(t *testing.T) {
	repo := &fakeKnowledgeRepo{}
	svc := NewService(repo, &stubEmbedder{}, DefaultConfig())

	svc.Search(context.Background(), "momentum", 3)
	assert.Equal(t, 3, repo.lastLimit)
}

func TestSearch_CacheHitSkipsGateways(t *testing.T) {
	repo := &fakeKnowledgeRepo{results: []*Result{{Content: "notes", Similarity: 0.8}}}
	embedder := &stubEmbedder{}
	svc := NewService(repo, embedder, DefaultConfig())

	first := svc.Search(context.Background(), "Momentum Factor", 0)
	second := svc.Search(context.Background(), "momentum factor", 0) // normalized key

	assert.Equal(t, first, second)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, repo.hits)

	// Different limit is a different cache entry.
	svc.Search(context.Background(), "momentum factor", 3)
	assert.Equal(t, 2, repo.hits)
}

func TestSearch_DegradesToEmptyOnFailure(t *testing.T) {
	t.Run("embedding error", func(t *testing.T) {
		svc := NewService(&fakeKnowledgeRepo{}, &stubEmbedder{err: errors.New("quota exceeded")}, DefaultConfig())
		assert.Nil(t, svc.Search(context.Background(), "momentum", 0))
	})

	t.Run("repository error", func(t *testing.T) {
		svc := NewService(&fakeKnowledgeRepo{err: errors.ErrUnavailable}, &stubEmbedder{}, DefaultConfig())
		assert.Nil(t, svc.Search(context.Background(), "momentum", 0))
	})

	t.Run("empty query", func(t *testing.T) {
		embedder := &stubEmbedder{}
		svc := NewService(&fakeKnowledgeRepo{}, embedder, DefaultConfig())
		assert.Nil(t, svc.Search(context.Background(), "  ", 0))
		assert.Zero(t, embedder.calls)
	})
}
