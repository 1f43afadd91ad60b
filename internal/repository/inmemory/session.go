package inmemory

import (
	"context"
	"sort"
	"sync"

	"tradesync/internal/domain/session"
	"tradesync/pkg/errors"
)

// Compile-time check
var _ session.Repository = (*SessionRepository)(nil)

// SessionRepository is an in-memory session.Repository for tests and
// local development. Seq numbers are assigned from a per-repository counter.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	nextSeq  int64
}

// NewSessionRepository creates an empty in-memory repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*session.Session),
		nextSeq:  1,
	}
}

func key(appName, userID, sessionID string) string {
	return appName + "/" + userID + "/" + sessionID
}

// Create stores a new session
func (r *SessionRepository) Create(_ context.Context, sess *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(sess.AppName, sess.UserID, sess.SessionID)
	if _, exists := r.sessions[k]; exists {
		return errors.Wrap(errors.ErrAlreadyExists, "session already exists")
	}

	r.sessions[k] = cloneSession(sess)
	return nil
}

// Get returns a copy of the stored session
func (r *SessionRepository) Get(_ context.Context, appName, userID, sessionID string, opts *session.GetOptions) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.sessions[key(appName, userID, sessionID)]
	if !ok {
		return nil, errors.Wrap(errors.ErrNotFound, "session not found")
	}

	sess := cloneSession(stored)
	if opts != nil {
		if !opts.After.IsZero() {
			filtered := sess.Events[:0]
			for _, ev := range sess.Events {
				if ev.Timestamp.After(opts.After) {
					filtered = append(filtered, ev)
				}
			}
			sess.Events = filtered
		}
		if opts.NumRecentEvents > 0 && len(sess.Events) > opts.NumRecentEvents {
			sess.Events = sess.Events[len(sess.Events)-opts.NumRecentEvents:]
		}
	}

	return sess, nil
}

// List returns all sessions for an app (and user, when given), newest first
func (r *SessionRepository) List(_ context.Context, appName, userID string) ([]*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*session.Session
	for _, stored := range r.sessions {
		if stored.AppName != appName {
			continue
		}
		if userID != "" && stored.UserID != userID {
			continue
		}
		sess := cloneSession(stored)
		sess.Events = []session.Event{}
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	return sessions, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(_ context.Context, appName, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(appName, userID, sessionID)
	if _, ok := r.sessions[k]; !ok {
		return errors.Wrap(errors.ErrNotFound, "session not found")
	}

	delete(r.sessions, k)
	return nil
}

// CommitTurn assigns a seq to the event and stores the session snapshot
func (r *SessionRepository) CommitTurn(_ context.Context, sess *session.Session, event *session.Event, dropBeforeSeq int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(sess.AppName, sess.UserID, sess.SessionID)
	if _, ok := r.sessions[k]; !ok {
		return errors.Wrap(errors.ErrNotFound, "session not found")
	}

	if event != nil {
		event.Seq = r.nextSeq
		r.nextSeq++
		if n := len(sess.Events); n > 0 && sess.Events[n-1].ID == event.ID {
			sess.Events[n-1].Seq = event.Seq
		}
	}

	r.sessions[k] = cloneSession(sess)
	return nil
}

// UpdateState stores the session snapshot without event changes
func (r *SessionRepository) UpdateState(_ context.Context, sess *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(sess.AppName, sess.UserID, sess.SessionID)
	stored, ok := r.sessions[k]
	if !ok {
		return errors.Wrap(errors.ErrNotFound, "session not found")
	}

	updated := cloneSession(sess)
	updated.Events = stored.Events
	r.sessions[k] = updated
	return nil
}

func cloneSession(sess *session.Session) *session.Session {
	clone := *sess
	clone.State = sess.State.Clone()
	clone.Events = append([]session.Event(nil), sess.Events...)
	return &clone
}
