package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Memory is one durable consolidation record: a factual digest of part of a
// conversation, embedded for similarity retrieval. Immutable once written.
type Memory struct {
	ID      uuid.UUID `db:"id"`
	AppName string    `db:"app_name"`
	UserID  string    `db:"user_id"`

	// ScopeKey is app_name:user_id. All retrieval is restricted to one
	// scope key; memories are never visible across apps or users.
	ScopeKey string `db:"scope_key"`

	Content   string          `db:"content"`
	Embedding pgvector.Vector `db:"embedding"`

	Timestamp time.Time `db:"timestamp"`
	CreatedAt time.Time `db:"created_at"`
}

// Entry is a retrieval result in conversation shape: an assistant-authored
// single-text-part message ready to feed back into a prompt.
type Entry struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
