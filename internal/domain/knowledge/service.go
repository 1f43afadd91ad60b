package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"tradesync/internal/adapters/embeddings"
	"tradesync/internal/metrics"
	"tradesync/pkg/cache"
	"tradesync/pkg/logger"
)

// Config tunes knowledge retrieval.
type Config struct {
	DefaultLimit int
	CacheTTL     time.Duration
	CacheMaxSize int
	CallTimeout  time.Duration
}

// DefaultConfig mirrors production tuning.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: 5,
		CacheTTL:     300 * time.Second,
		CacheMaxSize: 500,
		CallTimeout:  30 * time.Second,
	}
}

// Service caches similarity search over the static knowledge corpus. It
// sits in a best-effort research pipeline: every failure is logged and
// degrades to an empty result, never an error to the caller.
type Service struct {
	repo     Repository
	embedder embeddings.Provider
	cache    *cache.Cache[[]Result]
	cfg      Config
	log      *logger.Logger
}

// NewService creates a knowledge search service.
func NewService(repo Repository, embedder embeddings.Provider, cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Service{
		repo:     repo,
		embedder: embedder,
		cache:    cache.New[[]Result](cfg.CacheMaxSize, cfg.CacheTTL),
		cfg:      cfg,
		log:      logger.Get().With("component", "knowledge_service"),
	}
}

// Search returns corpus chunks ranked by similarity to the query.
func (s *Service) Search(ctx context.Context, query string, limit int) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	cacheKey := fmt.Sprintf("%s:%d", query, limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		metrics.CacheLookups.WithLabelValues("knowledge", "hit").Inc()
		return cached
	}
	metrics.CacheLookups.WithLabelValues("knowledge", "miss").Inc()

	ectx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	vector, err := s.embedder.GenerateEmbedding(ectx, query, embeddings.TaskQuery)
	if err != nil {
		s.log.Warnf("Knowledge query embedding failed: %v", err)
		return nil
	}

	results, err := s.repo.SearchNearest(ctx, pgvector.NewVector(vector), limit)
	if err != nil {
		s.log.Warnf("Knowledge search failed: %v", err)
		return nil
	}

	ranked := make([]Result, 0, len(results))
	for _, r := range results {
		ranked = append(ranked, *r)
	}

	s.cache.Set(cacheKey, ranked)
	return ranked
}
