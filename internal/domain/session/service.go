package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradesync/internal/metrics"
	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

// Summarizer folds conversation events into a compact factual digest. A
// previous summary, when present, must be folded in so no information is
// lost when the summarized events are dropped.
type Summarizer interface {
	SummarizeConversation(ctx context.Context, events []Event, existingSummary string) (string, error)
}

// Notifier receives summarization notifications for downstream consumers.
// Optional and best-effort: failures never affect the session.
type Notifier interface {
	PublishSessionSummarized(ctx context.Context, appName, userID, sessionID string, eventsDropped int) error
}

// Config tunes the event log lifecycle. All thresholds are event counts.
type Config struct {
	// EventLimit is the hard cap on the persisted log. 0 disables capping.
	EventLimit int
	// SummaryTrigger: summarization is considered only once the log
	// exceeds this many events.
	SummaryTrigger int
	// SummaryKeep: events retained verbatim after a summarization.
	SummaryKeep int
	// SummaryCooldown: minimum events between consecutive summarizations.
	SummaryCooldown int
	// SkipAuthors are agent names whose events never trigger summarization
	// (the parallel research agents, which emit mid-fan-out).
	SkipAuthors []string
	// SummarizeTimeout bounds the external summarizer call.
	SummarizeTimeout time.Duration
}

// DefaultConfig mirrors production tuning.
func DefaultConfig() Config {
	return Config{
		EventLimit:      50,
		SummaryTrigger:  40,
		SummaryKeep:     12,
		SummaryCooldown: 20,
		SkipAuthors: []string{
			"signals_research_agent",
			"technical_research_agent",
			"news_research_agent",
			"rag_research_agent",
			"memory_research_agent",
			"search_research_agent",
			"vertex_search_agent",
			"vertex_rag_agent",
		},
		SummarizeTimeout: 30 * time.Second,
	}
}

// Service owns the session lifecycle: event append, in-session
// summarization and the hard event cap.
type Service struct {
	repo       Repository
	summarizer Summarizer
	notifier   Notifier
	cfg        Config
	log        *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	skip  map[string]struct{}
}

// NewService creates a session service.
func NewService(repo Repository, summarizer Summarizer, cfg Config) *Service {
	skip := make(map[string]struct{}, len(cfg.SkipAuthors))
	for _, author := range cfg.SkipAuthors {
		skip[author] = struct{}{}
	}
	if cfg.SummarizeTimeout <= 0 {
		cfg.SummarizeTimeout = 30 * time.Second
	}
	return &Service{
		repo:       repo,
		summarizer: summarizer,
		cfg:        cfg,
		log:        logger.Get().With("component", "session_service"),
		locks:      make(map[string]*sync.Mutex),
		skip:       skip,
	}
}

// SetNotifier attaches an optional downstream notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateSession creates a new session with optional initial state.
func (s *Service) CreateSession(ctx context.Context, appName, userID, sessionID string, initialState map[string]interface{}) (*Session, error) {
	if appName == "" || userID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "app_name and user_id are required")
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	state := NewState()
	if err := state.Apply(initialState); err != nil {
		return nil, errors.Wrap(err, "invalid initial state")
	}

	now := time.Now()
	sess := &Session{
		ID:        uuid.New(),
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
		State:     state,
		Events:    []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	s.log.Infof("Created session: app=%s user=%s session=%s", appName, userID, sessionID)
	return sess, nil
}

// GetSession retrieves a session with its events.
func (s *Service) GetSession(ctx context.Context, appName, userID, sessionID string, opts *GetOptions) (*Session, error) {
	if appName == "" || userID == "" || sessionID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "app_name, user_id, and session_id are required")
	}

	sess, err := s.repo.Get(ctx, appName, userID, sessionID, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}
	return sess, nil
}

// ListSessions lists sessions for a user (events not loaded).
func (s *Service) ListSessions(ctx context.Context, appName, userID string) ([]*Session, error) {
	if appName == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "app_name is required")
	}

	sessions, err := s.repo.List(ctx, appName, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	return sessions, nil
}

// DeleteSession deletes a session.
func (s *Service) DeleteSession(ctx context.Context, appName, userID, sessionID string) error {
	if appName == "" || userID == "" || sessionID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "app_name, user_id, and session_id are required")
	}

	if err := s.repo.Delete(ctx, appName, userID, sessionID); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}

	s.log.Infof("Deleted session: app=%s user=%s session=%s", appName, userID, sessionID)
	return nil
}

// AppendEvent appends an accepted event to the session, runs the
// summarization trigger check and the hard cap, and persists the result
// atomically. Partial (streaming) events are ignored: they update the
// caller's transient view only.
//
// The read-summarize-trim-write sequence is serialized per session id;
// different sessions proceed in parallel.
func (s *Service) AppendEvent(ctx context.Context, sess *Session, event *Event) error {
	if sess == nil || event == nil {
		return errors.Wrap(errors.ErrInvalidInput, "session and event are required")
	}

	if event.Partial {
		return nil
	}

	lock := s.lockFor(sess.AppName, sess.UserID, sess.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	sess.Events = append(sess.Events, *event)
	sess.UpdatedAt = time.Now()

	trimmed := s.maybeSummarize(ctx, sess, event)

	// Hard cap, oldest first. The summary trim usually leaves the log
	// well under the cap; this is the backstop for sessions where the
	// summarizer keeps degrading.
	if s.cfg.EventLimit > 0 && len(sess.Events) > s.cfg.EventLimit {
		dropped := len(sess.Events) - s.cfg.EventLimit
		sess.Events = sess.Events[dropped:]
		trimmed = true
		metrics.SessionEventsTrimmed.Add(float64(dropped))
	}

	var dropBeforeSeq int64
	if trimmed && len(sess.Events) > 0 {
		dropBeforeSeq = sess.Events[0].Seq // 0 when the only kept events are unsaved
	}

	// Persistence failure is fatal for the turn: silently losing a user's
	// event is worse than surfacing the error.
	if err := s.repo.CommitTurn(ctx, sess, event, dropBeforeSeq); err != nil {
		return errors.Wrap(err, "failed to persist turn")
	}

	return nil
}

// UpdateState merges a delta into the session state and persists it.
func (s *Service) UpdateState(ctx context.Context, sess *Session, delta map[string]interface{}) error {
	if sess == nil {
		return errors.Wrap(errors.ErrInvalidInput, "session is required")
	}

	lock := s.lockFor(sess.AppName, sess.UserID, sess.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := sess.State.Apply(delta); err != nil {
		return errors.Wrap(err, "invalid state delta")
	}
	sess.UpdatedAt = time.Now()

	if err := s.repo.UpdateState(ctx, sess); err != nil {
		return errors.Wrap(err, "failed to update state")
	}
	return nil
}

// MergeResearchState folds the outputs of a research fan-out into the
// session in one write. Each branch owns a disjoint key, so a single merged
// update cannot clobber unrelated branches.
func (s *Service) MergeResearchState(ctx context.Context, sess *Session, outputs map[string]interface{}) error {
	if sess == nil {
		return errors.Wrap(errors.ErrInvalidInput, "session is required")
	}
	if len(outputs) == 0 {
		return nil
	}

	lock := s.lockFor(sess.AppName, sess.UserID, sess.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if sess.State.Research == nil {
		sess.State.Research = make(map[string]interface{}, len(outputs))
	}
	for branch, out := range outputs {
		sess.State.Research[branch] = out
	}
	sess.UpdatedAt = time.Now()

	if err := s.repo.UpdateState(ctx, sess); err != nil {
		return errors.Wrap(err, "failed to merge research state")
	}
	return nil
}

// maybeSummarize runs the trigger check and, when it fires, replaces the
// old events with an updated rolling summary. Returns true when events were
// dropped. Summarizer failures degrade: the trigger is treated as not fired
// so no events are lost.
func (s *Service) maybeSummarize(ctx context.Context, sess *Session, event *Event) bool {
	if s.summarizer == nil {
		return false
	}
	if event.Author == "" || event.Author == "user" {
		return false
	}
	if _, skip := s.skip[event.Author]; skip {
		return false
	}
	if !event.Final() {
		return false
	}

	trigger, keep, cooldown := s.cfg.SummaryTrigger, s.cfg.SummaryKeep, s.cfg.SummaryCooldown
	if trigger <= 0 || keep <= 0 || len(sess.Events) <= trigger {
		return false
	}
	if len(sess.Events) < sess.State.SummaryEventCount+cooldown {
		return false
	}

	cut := len(sess.Events) - keep
	if cut <= 0 {
		return false
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.SummarizeTimeout)
	defer cancel()

	summary, err := s.summarizer.SummarizeConversation(sctx, sess.Events[:cut], sess.State.Summary)
	if err != nil {
		s.log.Warnf("Summarization failed for session %s, keeping full log: %v", sess.SessionID, err)
		metrics.SummarizationsTotal.WithLabelValues("error").Inc()
		return false
	}
	if summary == "" {
		metrics.SummarizationsTotal.WithLabelValues("empty").Inc()
		return false
	}

	sess.State.Summary = summary
	sess.State.SummaryEventCount = len(sess.Events)
	metrics.SessionEventsTrimmed.Add(float64(cut))
	sess.Events = sess.Events[cut:]
	metrics.SummarizationsTotal.WithLabelValues("ok").Inc()

	if s.notifier != nil {
		if err := s.notifier.PublishSessionSummarized(ctx, sess.AppName, sess.UserID, sess.SessionID, cut); err != nil {
			s.log.Warnf("Failed to publish summarization event: %v", err)
		}
	}

	s.log.Infof("Summarized session %s: kept %d events", sess.SessionID, keep)
	return true
}

// lockFor returns the per-session mutex, creating it on first use.
func (s *Service) lockFor(appName, userID, sessionID string) *sync.Mutex {
	key := appName + ":" + userID + ":" + sessionID
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
