package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"tradesync/internal/adapters/embeddings"
	"tradesync/internal/domain/session"
	"tradesync/internal/metrics"
	"tradesync/pkg/cache"
	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

// Config tunes consolidation and retrieval.
type Config struct {
	// SummaryWindow: how many of the most recent events feed one digest.
	SummaryWindow int
	// SummaryMinEvents: sessions shorter than this are not consolidated.
	SummaryMinEvents int
	// SummaryMinChars: digests shorter than this are discarded as noise.
	SummaryMinChars int
	// ConsolidateEvery: accepted events between consolidations, used by
	// ShouldConsolidate.
	ConsolidateEvery int
	// SearchLimit caps retrieval results.
	SearchLimit int
	// CacheTTL / CacheMaxSize bound the search result cache.
	CacheTTL     time.Duration
	CacheMaxSize int
	// CallTimeout bounds each external summarize/embed call.
	CallTimeout time.Duration
}

// DefaultConfig mirrors production tuning.
func DefaultConfig() Config {
	return Config{
		SummaryWindow:    12,
		SummaryMinEvents: 6,
		SummaryMinChars:  120,
		ConsolidateEvery: 10,
		SearchLimit:      5,
		CacheTTL:         120 * time.Second,
		CacheMaxSize:     200,
		CallTimeout:      30 * time.Second,
	}
}

// Notifier receives consolidation notifications for downstream consumers.
// Optional and best-effort.
type Notifier interface {
	PublishMemoryConsolidated(ctx context.Context, appName, userID, scopeKey string, contentLength int) error
}

// Service consolidates sessions into long-term memory and serves cached
// similarity search over it. Retrieval never fails the conversation: every
// gateway error degrades to an empty result.
type Service struct {
	repo       Repository
	embedder   embeddings.Provider
	summarizer session.Summarizer
	notifier   Notifier
	cache      *cache.Cache[[]Entry]
	cfg        Config
	log        *logger.Logger
}

// NewService creates a memory service.
func NewService(repo Repository, embedder embeddings.Provider, summarizer session.Summarizer, cfg Config) *Service {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Service{
		repo:       repo,
		embedder:   embedder,
		summarizer: summarizer,
		cache:      cache.New[[]Entry](cfg.CacheMaxSize, cfg.CacheTTL),
		cfg:        cfg,
		log:        logger.Get().With("component", "memory_service"),
	}
}

// SetNotifier attaches an optional downstream notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// ShouldConsolidate reports whether enough accepted events have passed
// since the last consolidation. The caller records the new count via
// session state after a successful Consolidate.
func (s *Service) ShouldConsolidate(sess *session.Session) bool {
	if sess == nil || s.cfg.ConsolidateEvery <= 0 {
		return false
	}
	return len(sess.Events) >= sess.State.MemoryEventCount+s.cfg.ConsolidateEvery
}

// Consolidate folds the session's recent events into one durable memory
// record. Short sessions and empty or trivial digests are skipped so the
// memory store never fills with noise.
func (s *Service) Consolidate(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return errors.Wrap(errors.ErrInvalidInput, "session is required")
	}
	if len(sess.Events) < s.cfg.SummaryMinEvents {
		metrics.MemoryConsolidations.WithLabelValues("skipped").Inc()
		return nil
	}

	window := sess.Events
	if s.cfg.SummaryWindow > 0 && len(window) > s.cfg.SummaryWindow {
		window = window[len(window)-s.cfg.SummaryWindow:]
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	digest, err := s.summarizer.SummarizeConversation(sctx, window, "")
	if err != nil {
		metrics.MemoryConsolidations.WithLabelValues("error").Inc()
		return errors.Wrap(err, "consolidation summary failed")
	}
	digest = strings.TrimSpace(digest)
	if digest == "" || (s.cfg.SummaryMinChars > 0 && len(digest) < s.cfg.SummaryMinChars) {
		metrics.MemoryConsolidations.WithLabelValues("skipped").Inc()
		return nil
	}

	ectx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	vector, err := s.embedder.GenerateEmbedding(ectx, digest, embeddings.TaskDocument)
	if err != nil {
		metrics.MemoryConsolidations.WithLabelValues("error").Inc()
		return errors.Wrap(err, "digest embedding failed")
	}

	now := time.Now()
	mem := &Memory{
		ID:        uuid.New(),
		AppName:   sess.AppName,
		UserID:    sess.UserID,
		ScopeKey:  sess.ScopeKey(),
		Content:   digest,
		Embedding: pgvector.NewVector(vector),
		Timestamp: now,
		CreatedAt: now,
	}

	if err := s.repo.Store(ctx, mem); err != nil {
		metrics.MemoryConsolidations.WithLabelValues("error").Inc()
		return errors.Wrap(err, "failed to store memory")
	}

	metrics.MemoryConsolidations.WithLabelValues("ok").Inc()

	if s.notifier != nil {
		if err := s.notifier.PublishMemoryConsolidated(ctx, sess.AppName, sess.UserID, mem.ScopeKey, len(digest)); err != nil {
			s.log.Warnf("Failed to publish consolidation event: %v", err)
		}
	}

	s.log.Infof("Consolidated session %s into memory (%d chars)", sess.SessionID, len(digest))
	return nil
}

// Search returns the memories most similar to the query, restricted to the
// app/user scope. Results are cached per (scope, query). Any gateway
// failure is logged and degrades to an empty result.
func (s *Service) Search(ctx context.Context, appName, userID, query string) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	scopeKey := appName + ":" + userID
	cacheKey := scopeKey + ":" + strings.ToLower(query)

	if cached, ok := s.cache.Get(cacheKey); ok {
		metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
		return cached
	}
	metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()

	ectx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	vector, err := s.embedder.GenerateEmbedding(ectx, query, embeddings.TaskQuery)
	if err != nil {
		s.log.Warnf("Memory search embedding failed: %v", err)
		return nil
	}

	results, err := s.repo.SearchSimilar(ctx, scopeKey, pgvector.NewVector(vector), s.cfg.SearchLimit)
	if err != nil {
		s.log.Warnf("Memory search failed: %v", err)
		return nil
	}

	entries := make([]Entry, 0, len(results))
	for _, mem := range results {
		if mem.Content == "" {
			continue
		}
		entries = append(entries, Entry{
			Author:    "memory",
			Content:   mem.Content,
			Timestamp: mem.Timestamp,
		})
	}

	s.cache.Set(cacheKey, entries)
	return entries
}
