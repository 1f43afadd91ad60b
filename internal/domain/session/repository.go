package session

import (
	"context"
)

// Repository persists sessions and their event logs.
//
// CommitTurn is the hot path: it must apply the new event, any trim of old
// events, and the state update atomically, so that a crash between steps
// can never leave a summarized state pointing at an untrimmed log.
type Repository interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, appName, userID, sessionID string, opts *GetOptions) (*Session, error)
	List(ctx context.Context, appName, userID string) ([]*Session, error)
	Delete(ctx context.Context, appName, userID, sessionID string) error

	// CommitTurn atomically persists one accepted turn: inserts event (may
	// be nil for state-only commits), deletes events with Seq < dropBeforeSeq
	// when dropBeforeSeq > 0, and writes the session state. The inserted
	// event gets its Seq assigned.
	CommitTurn(ctx context.Context, sess *Session, event *Event, dropBeforeSeq int64) error

	// UpdateState overwrites the session state without touching events.
	UpdateState(ctx context.Context, sess *Session) error
}
