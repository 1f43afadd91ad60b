package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"tradesync/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	AI            AIConfig
	Session       SessionConfig
	Memory        MemoryConfig
	Knowledge     KnowledgeConfig
	Trading       TradingConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"tradesync"`
	Env         string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9102"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
}

type AIConfig struct {
	OpenAIKey         string        `envconfig:"OPENAI_API_KEY"`
	GeminiKey         string        `envconfig:"GEMINI_API_KEY"`
	EmbeddingProvider string        `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel    string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	SummaryModel      string        `envconfig:"SUMMARY_MODEL" default:"gemini-2.0-flash"`
	AgentProvider     string        `envconfig:"AGENT_PROVIDER" default:"gemini"`
	AgentModel        string        `envconfig:"AGENT_MODEL" default:"gemini-2.0-flash"`
	RequestTimeout    time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"30s"`
}

// SessionConfig controls the event log lifecycle. Trigger and cooldown are
// event counts: summarization fires only past Trigger events and at least
// Cooldown events after the previous summarization.
type SessionConfig struct {
	EventLimit      int      `envconfig:"SESSION_EVENT_LIMIT" default:"50"`
	SummaryTrigger  int      `envconfig:"SESSION_SUMMARY_TRIGGER" default:"40"`
	SummaryKeep     int      `envconfig:"SESSION_SUMMARY_KEEP" default:"12"`
	SummaryCooldown int      `envconfig:"SESSION_SUMMARY_COOLDOWN" default:"20"`
	SkipAuthors     []string `envconfig:"SESSION_SUMMARY_SKIP_AUTHORS" default:"signals_research_agent,technical_research_agent,news_research_agent,rag_research_agent,memory_research_agent,search_research_agent,vertex_search_agent,vertex_rag_agent"`
}

type MemoryConfig struct {
	SummaryWindow    int           `envconfig:"MEMORY_SUMMARY_WINDOW" default:"12"`
	SummaryMinEvents int           `envconfig:"MEMORY_SUMMARY_MIN_EVENTS" default:"6"`
	SummaryMinChars  int           `envconfig:"MEMORY_SUMMARY_MIN_CHARS" default:"120"`
	ConsolidateEvery int           `envconfig:"MEMORY_CONSOLIDATE_EVERY" default:"10"`
	SearchLimit      int           `envconfig:"MEMORY_SEARCH_LIMIT" default:"5"`
	CacheTTL         time.Duration `envconfig:"MEMORY_CACHE_TTL" default:"120s"`
	CacheMaxSize     int           `envconfig:"MEMORY_CACHE_MAX" default:"200"`
}

type KnowledgeConfig struct {
	DefaultLimit int           `envconfig:"KNOWLEDGE_SEARCH_LIMIT" default:"5"`
	CacheTTL     time.Duration `envconfig:"KNOWLEDGE_CACHE_TTL" default:"300s"`
	CacheMaxSize int           `envconfig:"KNOWLEDGE_CACHE_MAX" default:"500"`
}

type TradingConfig struct {
	LiveEnabled    bool          `envconfig:"LIVE_TRADING_ENABLED" default:"false"`
	IdempotencyTTL time.Duration `envconfig:"TRADE_IDEMPOTENCY_TTL" default:"24h"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
