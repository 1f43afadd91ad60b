package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradesync/internal/adapters/adk"
	"tradesync/internal/adapters/ai"
	"tradesync/internal/adapters/config"
	"tradesync/internal/adapters/embeddings"
	"tradesync/internal/adapters/errors/noop"
	"tradesync/internal/adapters/errors/sentry"
	"tradesync/internal/adapters/kafka"
	"tradesync/internal/adapters/postgres"
	"tradesync/internal/adapters/redis"
	"tradesync/internal/agents"
	apihttp "tradesync/internal/api/http"
	"tradesync/internal/domain/knowledge"
	"tradesync/internal/domain/memory"
	"tradesync/internal/domain/session"
	"tradesync/internal/domain/trading"
	"tradesync/internal/events"
	"tradesync/internal/metrics"
	pgrepo "tradesync/internal/repository/postgres"
	"tradesync/internal/tools/shared"
	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Databases
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// AI gateways
	embedder, err := embeddings.NewProvider(ctx, embeddings.Config{
		Provider: embeddings.ProviderType(cfg.AI.EmbeddingProvider),
		APIKey:   embeddingKey(cfg),
		Model:    cfg.AI.EmbeddingModel,
		Timeout:  cfg.AI.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create embedding provider: %v", err)
	}

	summarizer, err := ai.NewSummarizer(ctx, cfg.AI.GeminiKey, cfg.AI.SummaryModel, cfg.AI.RequestTimeout)
	if err != nil {
		log.Fatalf("Failed to create summarizer: %v", err)
	}

	// Repositories
	sessionRepo := pgrepo.NewSessionRepository(pgClient.DB())
	memoryRepo := pgrepo.NewMemoryRepository(pgClient.DB())
	knowledgeRepo := pgrepo.NewKnowledgeRepository(pgClient.DB())

	// Services
	sessionService := session.NewService(sessionRepo, summarizer, sessionConfig(cfg))
	memoryService := memory.NewService(memoryRepo, embedder, summarizer, memoryConfig(cfg))
	knowledgeService := knowledge.NewService(knowledgeRepo, embedder, knowledgeConfig(cfg))

	// Event publishing (optional)
	var producer *kafka.Producer
	var tradePublisher trading.Publisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		publisher := events.NewPublisher(producer)
		sessionService.SetNotifier(publisher)
		memoryService.SetNotifier(publisher)
		tradePublisher = publisher
		log.Info("Kafka event publishing enabled")
	}

	// Trading
	guard := redis.NewIdempotencyGuard(redisClient, cfg.Trading.IdempotencyTTL)
	broker := trading.NewPaperBroker(nil)
	executor := trading.NewExecutor(sessionService, broker, guard, tradePublisher, trading.Config{
		LiveEnabled: cfg.Trading.LiveEnabled,
	})

	// Agent surface
	agentFactory, err := agents.NewFactory(shared.Deps{
		Sessions:  sessionService,
		Memory:    memoryService,
		Knowledge: knowledgeService,
		Executor:  executor,
		Log:       log,
	}, agents.Config{
		Provider: cfg.AI.AgentProvider,
		Model:    cfg.AI.AgentModel,
	})
	if err != nil {
		log.Fatalf("Failed to create agent factory: %v", err)
	}

	advisor, err := agentFactory.BuildAdvisor()
	if err != nil {
		log.Fatalf("Failed to build advisor pipeline: %v", err)
	}

	adkSessions := adk.NewSessionService(sessionService)
	advisorRunner, err := agents.NewAdvisorRunner(cfg.App.Name, advisor, adkSessions, sessionService, memoryService)
	if err != nil {
		log.Fatalf("Failed to create advisor runner: %v", err)
	}

	// API
	apiServer := apihttp.NewServer(cfg.App.Name, advisorRunner, sessionService)
	httpServer := &http.Server{Addr: cfg.App.ListenAddr, Handler: apiServer.Handler()}
	go func() {
		log.Infof("API server listening on %s", cfg.App.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	metrics.Register()
	metricsServer := startMetricsServer(cfg.App.MetricsAddr, pgClient, redisClient, log)

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, []*http.Server{httpServer, metricsServer}, errorTracker, log)
}

// embeddingKey picks the API key matching the configured provider.
func embeddingKey(cfg *config.Config) string {
	if cfg.AI.EmbeddingProvider == string(embeddings.ProviderGemini) {
		return cfg.AI.GeminiKey
	}
	return cfg.AI.OpenAIKey
}

func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		EventLimit:       cfg.Session.EventLimit,
		SummaryTrigger:   cfg.Session.SummaryTrigger,
		SummaryKeep:      cfg.Session.SummaryKeep,
		SummaryCooldown:  cfg.Session.SummaryCooldown,
		SkipAuthors:      cfg.Session.SkipAuthors,
		SummarizeTimeout: cfg.AI.RequestTimeout,
	}
}

func memoryConfig(cfg *config.Config) memory.Config {
	return memory.Config{
		SummaryWindow:    cfg.Memory.SummaryWindow,
		SummaryMinEvents: cfg.Memory.SummaryMinEvents,
		SummaryMinChars:  cfg.Memory.SummaryMinChars,
		ConsolidateEvery: cfg.Memory.ConsolidateEvery,
		SearchLimit:      cfg.Memory.SearchLimit,
		CacheTTL:         cfg.Memory.CacheTTL,
		CacheMaxSize:     cfg.Memory.CacheMaxSize,
		CallTimeout:      cfg.AI.RequestTimeout,
	}
}

func knowledgeConfig(cfg *config.Config) knowledge.Config {
	return knowledge.Config{
		DefaultLimit: cfg.Knowledge.DefaultLimit,
		CacheTTL:     cfg.Knowledge.CacheTTL,
		CacheMaxSize: cfg.Knowledge.CacheMaxSize,
		CallTimeout:  cfg.AI.RequestTimeout,
	}
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// startMetricsServer exposes /metrics and /health.
func startMetricsServer(addr string, pg *postgres.Client, rd *redis.Client, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		hctx, hcancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer hcancel()

		if err := pg.Health(hctx); err != nil {
			http.Error(w, "postgres: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err := rd.Health(hctx); err != nil {
			http.Error(w, "redis: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Infof("Metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()
	return srv
}

// waitForShutdown waits for a shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, servers []*http.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Server shutdown failed: %v", err)
		}
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
