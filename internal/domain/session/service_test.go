package session

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesync/pkg/errors"
)

// fakeRepo records persistence calls without a database.
type fakeRepo struct {
	sessions    map[string]*Session
	nextSeq     int64
	commitCalls int
	stateWrites int
	lastDropSeq int64
	failCommit  error
	failUpdate  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*Session), nextSeq: 1}
}

func (r *fakeRepo) Create(_ context.Context, sess *Session) error {
	r.sessions[sess.SessionID] = sess
	return nil
}

func (r *fakeRepo) Get(_ context.Context, _, _, sessionID string, _ *GetOptions) (*Session, error) {
	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return sess, nil
}

func (r *fakeRepo) List(_ context.Context, _, _ string) ([]*Session, error) {
	var out []*Session
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out, nil
}

func (r *fakeRepo) Delete(_ context.Context, _, _, sessionID string) error {
	if _, ok := r.sessions[sessionID]; !ok {
		return errors.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *fakeRepo) CommitTurn(_ context.Context, sess *Session, event *Event, dropBeforeSeq int64) error {
	if r.failCommit != nil {
		return r.failCommit
	}
	r.commitCalls++
	r.lastDropSeq = dropBeforeSeq
	if event != nil {
		event.Seq = r.nextSeq
		r.nextSeq++
		if n := len(sess.Events); n > 0 {
			sess.Events[n-1].Seq = event.Seq
		}
	}
	r.sessions[sess.SessionID] = sess
	return nil
}

func (r *fakeRepo) UpdateState(_ context.Context, sess *Session) error {
	if r.failUpdate != nil {
		return r.failUpdate
	}
	r.stateWrites++
	r.sessions[sess.SessionID] = sess
	return nil
}

// fakeSummarizer returns a canned summary and records calls.
type fakeSummarizer struct {
	summary string
	err     error
	calls   int
	gotOld  string
	gotLen  int
}

func (s *fakeSummarizer) SummarizeConversation(_ context.Context, events []Event, existing string) (string, error) {
	s.calls++
	s.gotOld = existing
	s.gotLen = len(events)
	return s.summary, s.err
}

func finalEvent(author, text string) *Event {
	return &Event{
		Author:       author,
		Content:      TextContent("model", text),
		TurnComplete: true,
	}
}

func seedSession(t *testing.T, svc *Service, repo *fakeRepo, events int) *Session {
	t.Helper()
	sess, err := svc.CreateSession(context.Background(), "tradesync", "user-1", "sess-1", nil)
	require.NoError(t, err)

	for i := 0; i < events; i++ {
		sess.Events = append(sess.Events, Event{
			Seq:          repo.nextSeq,
			Author:       "advisor_agent",
			Content:      TextContent("model", fmt.Sprintf("turn %d", i)),
			TurnComplete: true,
		})
		repo.nextSeq++
	}
	return sess
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.EventLimit = 50
	cfg.SummaryTrigger = 40
	cfg.SummaryKeep = 12
	cfg.SummaryCooldown = 20
	return cfg
}

func TestAppendEvent_PartialEventsAreNotPersisted(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSummarizer{}, testConfig())
	sess := seedSession(t, svc, repo, 0)

	err := svc.AppendEvent(context.Background(), sess, &Event{
		Author:  "advisor_agent",
		Partial: true,
		Content: TextContent("model", "strea"),
	})
	require.NoError(t, err)
	assert.Zero(t, repo.commitCalls)
	assert.Empty(t, sess.Events)
}

func TestAppendEvent_NoSummarizationAtOrBelowTrigger(t *testing.T) {
	repo := newFakeRepo()
	summarizer := &fakeSummarizer{summary: "digest"}
	svc := NewService(repo, summarizer, testConfig())
	sess := seedSession(t, svc, repo, 39)

	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", "hello")))

	assert.Zero(t, summarizer.calls)
	assert.Len(t, sess.Events, 40)
	assert.Empty(t, sess.State.Summary)
}

func TestAppendEvent_SummarizationFiresPastTrigger(t *testing.T) {
	repo := newFakeRepo()
	summarizer := &fakeSummarizer{summary: "the user wants BTC exposure"}
	svc := NewService(repo, summarizer, testConfig())
	sess := seedSession(t, svc, repo, 40)

	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", "done")))

	assert.Equal(t, 1, summarizer.calls)
	assert.Equal(t, 29, summarizer.gotLen) // 41 - keep
	assert.Len(t, sess.Events, 12)
	assert.Equal(t, "the user wants BTC exposure", sess.State.Summary)
	assert.Equal(t, 41, sess.State.SummaryEventCount)
	assert.Positive(t, repo.lastDropSeq)
}

func TestAppendEvent_ExistingSummaryIsFoldedIn(t *testing.T) {
	repo := newFakeRepo()
	summarizer := &fakeSummarizer{summary: "updated"}
	svc := NewService(repo, summarizer, testConfig())
	sess := seedSession(t, svc, repo, 40)
	sess.State.Summary = "previous digest"

	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", "done")))

	assert.Equal(t, "previous digest", summarizer.gotOld)
	assert.Equal(t, "updated", sess.State.Summary)
}

func TestAppendEvent_CooldownBlocksResummarization(t *testing.T) {
	repo := newFakeRepo()
	summarizer := &fakeSummarizer{summary: "digest"}
	svc := NewService(repo, summarizer, testConfig())

	// 45 events, last summarized at 41: inside the 20-event cooldown.
	sess := seedSession(t, svc, repo, 44)
	sess.State.SummaryEventCount = 41

	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", "done")))
	assert.Zero(t, summarizer.calls)

	// Grow to 61: cooldown satisfied, fires again.
	for len(sess.Events) < 60 {
		sess.Events = append(sess.Events, *finalEvent("advisor_agent", "filler"))
	}
	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", "done")))
	assert.Equal(t, 1, summarizer.calls)
	assert.Len(t, sess.Events, 12)
}

func TestAppendEvent_EmptySummaryKeepsFullLog(t *testing.T) {
	repo := newFakeRepo()
	summarizer := &fakeSummarizer{summary: ""}
	svc := NewService(repo, summarizer, testConfig())
	sess := seedSession(t, svc, repo, 40)

	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", "done")))

	assert.Equal(t, 1, summarizer.calls)
	assert.Len(t, sess.Events, 41)
	assert.Empty(t, sess.State.Summary)
	assert.Zero(t, sess.State.SummaryEventCount)
}

func TestAppendEvent_SummarizerErrorKeepsFullLog(t *testing.T) {
	repo := newFakeRepo()
	summarizer := &fakeSummarizer{err: errors.New("model unavailable")}
	svc := NewService(repo, summarizer, testConfig())
	sess := seedSession(t, svc, repo, 40)

	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", "done")))

	assert.Len(t, sess.Events, 41)
	assert.Empty(t, sess.State.Summary)
}

func TestAppendEvent_ResearchAuthorsNeverTrigger(t *testing.T) {
	repo := newFakeRepo()
	summarizer := &fakeSummarizer{summary: "digest"}
	svc := NewService(repo, summarizer, testConfig())
	sess := seedSession(t, svc, repo, 45)

	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("news_research_agent", "headline scan")))
	assert.Zero(t, summarizer.calls)

	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("user", "what next?")))
	assert.Zero(t, summarizer.calls)

	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("", "system note")))
	assert.Zero(t, summarizer.calls)

	// A final assistant event does trigger at the same log length.
	require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", "summary time")))
	assert.Equal(t, 1, summarizer.calls)
}

func TestAppendEvent_NonFinalEventsNeverTrigger(t *testing.T) {
	repo := newFakeRepo()
	summarizer := &fakeSummarizer{summary: "digest"}
	svc := NewService(repo, summarizer, testConfig())
	sess := seedSession(t, svc, repo, 45)

	ev := &Event{Author: "advisor_agent", Content: TextContent("model", "thinking"), TurnComplete: false}
	require.NoError(t, svc.AppendEvent(context.Background(), sess, ev))
	assert.Zero(t, summarizer.calls)
}

func TestAppendEvent_HardCapBoundsTheLog(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, testConfig()) // no summarizer: cap is the only trim
	sess := seedSession(t, svc, repo, 0)

	for i := 0; i < 60; i++ {
		require.NoError(t, svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", fmt.Sprintf("turn %d", i))))
	}

	assert.Len(t, sess.Events, 50)
	// Oldest events were dropped.
	assert.Equal(t, "turn 10", sess.Events[0].Text())
}

func TestAppendEvent_PersistenceFailureSurfaces(t *testing.T) {
	repo := newFakeRepo()
	repo.failCommit = errors.ErrUnavailable
	svc := NewService(repo, nil, testConfig())
	sess := &Session{AppName: "tradesync", UserID: "user-1", SessionID: "sess-1"}

	err := svc.AppendEvent(context.Background(), sess, finalEvent("advisor_agent", "hi"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestMergeResearchState_SingleWrite(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, testConfig())
	sess := seedSession(t, svc, repo, 0)

	err := svc.MergeResearchState(context.Background(), sess, map[string]interface{}{
		"memory":    "user prefers low risk",
		"knowledge": "momentum factor notes",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.stateWrites)
	assert.Equal(t, "user prefers low risk", sess.State.Research["memory"])
	assert.Equal(t, "momentum factor notes", sess.State.Research["knowledge"])

	// A later merge updates one branch without touching the other.
	require.NoError(t, svc.MergeResearchState(context.Background(), sess, map[string]interface{}{
		"knowledge": "updated notes",
	}))
	assert.Equal(t, "user prefers low risk", sess.State.Research["memory"])
	assert.Equal(t, "updated notes", sess.State.Research["knowledge"])
}

func TestUpdateState_AppliesDelta(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, testConfig())
	sess := seedSession(t, svc, repo, 0)

	err := svc.UpdateState(context.Background(), sess, map[string]interface{}{
		KeyAwaitingConfirmation: true,
		"preferred_exchange":    "coinbase",
	})
	require.NoError(t, err)

	assert.True(t, sess.State.AwaitingConfirmation)
	assert.Equal(t, "coinbase", sess.State.Extra["preferred_exchange"])
	assert.Equal(t, 1, repo.stateWrites)
}

func TestCreateSession_GeneratesSessionID(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, testConfig())

	sess, err := svc.CreateSession(context.Background(), "tradesync", "user-1", "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.SessionID)
	assert.False(t, strings.Contains(sess.SessionID, " "))
}

func TestCreateSession_RequiresIdentifiers(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, testConfig())

	_, err := svc.CreateSession(context.Background(), "", "user-1", "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
