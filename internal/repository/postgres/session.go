package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"tradesync/internal/domain/session"
	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

// Compile-time check
var _ session.Repository = (*SessionRepository)(nil)

// SessionRepository implements session.Repository using PostgreSQL.
// Events live in their own table ordered by a bigserial seq; the event
// insert, old-event trim and state write of one turn share a transaction.
type SessionRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: logger.Get().With("component", "session_repository"),
	}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	stateJSON, err := json.Marshal(sess.State)
	if err != nil {
		return errors.Wrap(err, "failed to marshal state")
	}

	query := `
		INSERT INTO advisor_sessions (id, app_name, user_id, session_id, state, updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		sess.ID,
		sess.AppName,
		sess.UserID,
		sess.SessionID,
		stateJSON,
		sess.UpdatedAt,
		sess.CreatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}

	return nil
}

// Get retrieves a session with optional event filtering
func (r *SessionRepository) Get(ctx context.Context, appName, userID, sessionID string, opts *session.GetOptions) (*session.Session, error) {
	if opts == nil {
		opts = &session.GetOptions{}
	}

	query := `
		SELECT id, app_name, user_id, session_id, state, updated_at, created_at
		FROM advisor_sessions
		WHERE app_name = $1 AND user_id = $2 AND session_id = $3
	`

	var sess session.Session
	var stateJSON []byte

	err := r.db.QueryRowContext(ctx, query, appName, userID, sessionID).Scan(
		&sess.ID,
		&sess.AppName,
		&sess.UserID,
		&sess.SessionID,
		&stateJSON,
		&sess.UpdatedAt,
		&sess.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNotFound, "session not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}

	if err := json.Unmarshal(stateJSON, &sess.State); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal state")
	}

	events, err := r.getEvents(ctx, &sess, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get events")
	}
	sess.Events = events

	return &sess, nil
}

// List lists all sessions for an app/user. Events are not loaded.
func (r *SessionRepository) List(ctx context.Context, appName, userID string) ([]*session.Session, error) {
	query := `
		SELECT id, app_name, user_id, session_id, state, updated_at, created_at
		FROM advisor_sessions
		WHERE app_name = $1
	`
	args := []interface{}{appName}

	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}

	query += ` ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		var sess session.Session
		var stateJSON []byte

		err := rows.Scan(
			&sess.ID,
			&sess.AppName,
			&sess.UserID,
			&sess.SessionID,
			&stateJSON,
			&sess.UpdatedAt,
			&sess.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}

		if err := json.Unmarshal(stateJSON, &sess.State); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal state")
		}

		sess.Events = []session.Event{}
		sessions = append(sessions, &sess)
	}

	return sessions, rows.Err()
}

// Delete deletes a session. Events go with it via ON DELETE CASCADE.
func (r *SessionRepository) Delete(ctx context.Context, appName, userID, sessionID string) error {
	query := `
		DELETE FROM advisor_sessions
		WHERE app_name = $1 AND user_id = $2 AND session_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, appName, userID, sessionID)
	if err != nil {
		return errors.Wrap(err, "failed to delete session")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check delete result")
	}
	if affected == 0 {
		return errors.Wrap(errors.ErrNotFound, "session not found")
	}

	return nil
}

// CommitTurn persists one accepted turn atomically: the new event, the trim
// of summarized events, and the updated state.
func (r *SessionRepository) CommitTurn(ctx context.Context, sess *session.Session, event *session.Event, dropBeforeSeq int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if event != nil {
		contentJSON, err := json.Marshal(event.Content)
		if err != nil {
			return errors.Wrap(err, "failed to marshal event content")
		}

		insertQuery := `
			INSERT INTO advisor_events (id, session_pk, event_id, author, branch, content, turn_complete, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING seq
		`

		err = tx.QueryRowContext(ctx, insertQuery,
			event.ID,
			sess.ID,
			event.EventID,
			event.Author,
			event.Branch,
			contentJSON,
			event.TurnComplete,
			event.Timestamp,
		).Scan(&event.Seq)
		if err != nil {
			return errors.Wrap(err, "failed to insert event")
		}

		// Mirror the assigned seq into the in-memory log.
		if n := len(sess.Events); n > 0 && sess.Events[n-1].ID == event.ID {
			sess.Events[n-1].Seq = event.Seq
		}
	}

	if dropBeforeSeq > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM advisor_events WHERE session_pk = $1 AND seq < $2`,
			sess.ID, dropBeforeSeq,
		)
		if err != nil {
			return errors.Wrap(err, "failed to trim events")
		}
	}

	stateJSON, err := json.Marshal(sess.State)
	if err != nil {
		return errors.Wrap(err, "failed to marshal state")
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE advisor_sessions SET state = $1, updated_at = $2 WHERE id = $3`,
		stateJSON, sess.UpdatedAt, sess.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update session state")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit turn")
	}

	return nil
}

// UpdateState overwrites the session state without touching events
func (r *SessionRepository) UpdateState(ctx context.Context, sess *session.Session) error {
	stateJSON, err := json.Marshal(sess.State)
	if err != nil {
		return errors.Wrap(err, "failed to marshal state")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE advisor_sessions SET state = $1, updated_at = $2 WHERE id = $3`,
		stateJSON, sess.UpdatedAt, sess.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update state")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check update result")
	}
	if affected == 0 {
		return errors.Wrap(errors.ErrNotFound, "session not found")
	}

	return nil
}

// getEvents loads the session's events in storage order.
func (r *SessionRepository) getEvents(ctx context.Context, sess *session.Session, opts *session.GetOptions) ([]session.Event, error) {
	query := `
		SELECT id, seq, event_id, author, branch, content, turn_complete, timestamp
		FROM advisor_events
		WHERE session_pk = $1
	`
	args := []interface{}{sess.ID}

	if !opts.After.IsZero() {
		query += ` AND timestamp > $2`
		args = append(args, opts.After)
	}

	query += ` ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []session.Event
	for rows.Next() {
		var ev session.Event
		var contentJSON []byte

		err := rows.Scan(
			&ev.ID,
			&ev.Seq,
			&ev.EventID,
			&ev.Author,
			&ev.Branch,
			&contentJSON,
			&ev.TurnComplete,
			&ev.Timestamp,
		)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal(contentJSON, &ev.Content); err != nil {
			return nil, err
		}

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if opts.NumRecentEvents > 0 && len(events) > opts.NumRecentEvents {
		events = events[len(events)-opts.NumRecentEvents:]
	}
	if events == nil {
		events = []session.Event{}
	}

	return events, nil
}
