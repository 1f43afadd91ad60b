package shared

import (
	"context"

	"tradesync/internal/domain/knowledge"
	"tradesync/internal/domain/memory"
	"tradesync/internal/domain/session"
	"tradesync/internal/domain/trading"
	"tradesync/pkg/logger"
)

// Deps bundles dependencies required by concrete tool implementations
type Deps struct {
	Sessions  *session.Service
	Memory    *memory.Service
	Knowledge *knowledge.Service
	Executor  *trading.Executor
	Log       *logger.Logger
}

type contextKey struct{}

// InvocationMetadata captures the identifiers of the conversation a tool
// call belongs to.
type InvocationMetadata struct {
	AppName   string
	UserID    string
	SessionID string
}

// WithInvocationMetadata injects tool invocation metadata into a context.
func WithInvocationMetadata(ctx context.Context, meta InvocationMetadata) context.Context {
	return context.WithValue(ctx, contextKey{}, meta)
}

// MetadataFromContext extracts invocation metadata if present.
func MetadataFromContext(ctx context.Context) (InvocationMetadata, bool) {
	meta, ok := ctx.Value(contextKey{}).(InvocationMetadata)
	return meta, ok
}
