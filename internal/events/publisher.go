package events

import (
	"context"
	"time"

	"tradesync/internal/adapters/kafka"
	"tradesync/internal/domain/trading"
	"tradesync/pkg/logger"
)

// Kafka topics for downstream consumers (analytics, notifications).
const (
	TopicTradingEvents = "tradesync.trading"
	TopicSessionEvents = "tradesync.sessions"
	TopicMemoryEvents  = "tradesync.memories"
)

// TradeExecutedEvent is emitted after a live fill.
type TradeExecutedEvent struct {
	UserID     string    `json:"user_id"`
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   string    `json:"quantity"`
	Price      string    `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// SessionSummarizedEvent is emitted when a session log is folded into a summary.
type SessionSummarizedEvent struct {
	AppName       string    `json:"app_name"`
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id"`
	EventsDropped int       `json:"events_dropped"`
	SummarizedAt  time.Time `json:"summarized_at"`
}

// MemoryConsolidatedEvent is emitted when a session digest is stored as memory.
type MemoryConsolidatedEvent struct {
	AppName        string    `json:"app_name"`
	UserID         string    `json:"user_id"`
	ScopeKey       string    `json:"scope_key"`
	ContentLength  int       `json:"content_length"`
	ConsolidatedAt time.Time `json:"consolidated_at"`
}

// Publisher publishes lifecycle events to Kafka
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{
		producer: producer,
		log:      logger.Get().With("component", "event_publisher"),
	}
}

// PublishTradeExecuted publishes a live fill
func (p *Publisher) PublishTradeExecuted(ctx context.Context, userID string, fill *trading.Fill) error {
	event := TradeExecutedEvent{
		UserID:     userID,
		OrderID:    fill.OrderID,
		Symbol:     fill.Symbol,
		Side:       string(fill.Side),
		Quantity:   fill.Quantity.String(),
		Price:      fill.Price.String(),
		ExecutedAt: fill.ExecutedAt,
	}
	return p.producer.Publish(ctx, TopicTradingEvents, userID, event)
}

// PublishSessionSummarized publishes a summarization
func (p *Publisher) PublishSessionSummarized(ctx context.Context, appName, userID, sessionID string, eventsDropped int) error {
	event := SessionSummarizedEvent{
		AppName:       appName,
		UserID:        userID,
		SessionID:     sessionID,
		EventsDropped: eventsDropped,
		SummarizedAt:  time.Now(),
	}
	return p.producer.Publish(ctx, TopicSessionEvents, sessionID, event)
}

// PublishMemoryConsolidated publishes a memory consolidation
func (p *Publisher) PublishMemoryConsolidated(ctx context.Context, appName, userID, scopeKey string, contentLength int) error {
	event := MemoryConsolidatedEvent{
		AppName:        appName,
		UserID:         userID,
		ScopeKey:       scopeKey,
		ContentLength:  contentLength,
		ConsolidatedAt: time.Now(),
	}
	return p.producer.Publish(ctx, TopicMemoryEvents, scopeKey, event)
}
