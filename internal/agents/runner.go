package agents

import (
	"context"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"tradesync/internal/domain/memory"
	"tradesync/internal/domain/session"
	"tradesync/internal/tools/shared"
	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

// researchBranches maps research agent names to the state key their output
// is merged under.
var researchBranches = map[string]string{
	"memory_research_agent": "memory",
	"rag_research_agent":    "knowledge",
}

// AdvisorRunner drives one conversation turn end to end: it runs the agent
// pipeline against the persistent session, merges the research fan-out into
// session state, and consolidates long-term memory on its cadence.
type AdvisorRunner struct {
	appName  string
	runner   *runner.Runner
	sessions *session.Service
	memories *memory.Service
	log      *logger.Logger
}

// NewAdvisorRunner creates a runner for the advisor pipeline.
func NewAdvisorRunner(appName string, advisor agent.Agent, adkSessions adksession.Service, sessions *session.Service, memories *memory.Service) (*AdvisorRunner, error) {
	runnerInstance, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          advisor,
		SessionService: adkSessions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create runner")
	}

	return &AdvisorRunner{
		appName:  appName,
		runner:   runnerInstance,
		sessions: sessions,
		memories: memories,
		log:      logger.Get().With("component", "advisor_runner"),
	}, nil
}

// Chat sends one user message through the pipeline and returns the final
// response text.
func (r *AdvisorRunner) Chat(ctx context.Context, userID, sessionID, message string) (string, error) {
	if userID == "" || sessionID == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "user_id and session_id are required")
	}
	if strings.TrimSpace(message) == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "message is empty")
	}

	if err := r.ensureSession(ctx, userID, sessionID); err != nil {
		return "", err
	}

	ctx = shared.WithInvocationMetadata(ctx, shared.InvocationMetadata{
		AppName:   r.appName,
		UserID:    userID,
		SessionID: sessionID,
	})

	userContent := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: message}},
	}

	var finalText string
	research := make(map[string]interface{})

	for event, err := range r.runner.Run(ctx, userID, sessionID, userContent, agent.RunConfig{}) {
		if err != nil {
			return "", errors.Wrap(err, "advisor run failed")
		}
		if event == nil || event.LLMResponse.Partial || event.LLMResponse.Content == nil {
			continue
		}

		text := eventText(event)
		if text == "" {
			continue
		}

		if branch, ok := researchBranches[event.Author]; ok {
			research[branch] = text
			continue
		}
		if event.TurnComplete {
			finalText = text
		}
	}

	r.finishTurn(ctx, userID, sessionID, research)
	return finalText, nil
}

// ensureSession creates the session on first contact.
func (r *AdvisorRunner) ensureSession(ctx context.Context, userID, sessionID string) error {
	_, err := r.sessions.GetSession(ctx, r.appName, userID, sessionID, &session.GetOptions{NumRecentEvents: 1})
	if err == nil {
		return nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return errors.Wrap(err, "failed to load session")
	}

	_, err = r.sessions.CreateSession(ctx, r.appName, userID, sessionID, nil)
	if err != nil && !errors.Is(err, errors.ErrAlreadyExists) {
		return errors.Wrap(err, "failed to create session")
	}
	return nil
}

// finishTurn runs the post-turn housekeeping: research merge and memory
// consolidation. Both are best-effort.
func (r *AdvisorRunner) finishTurn(ctx context.Context, userID, sessionID string, research map[string]interface{}) {
	sess, err := r.sessions.GetSession(ctx, r.appName, userID, sessionID, nil)
	if err != nil {
		r.log.Warnf("Post-turn session load failed: %v", err)
		return
	}

	if len(research) > 0 {
		if err := r.sessions.MergeResearchState(ctx, sess, research); err != nil {
			r.log.Warnf("Research merge failed: %v", err)
		}
	}

	if r.memories == nil || !r.memories.ShouldConsolidate(sess) {
		return
	}
	if err := r.memories.Consolidate(ctx, sess); err != nil {
		r.log.Warnf("Memory consolidation failed: %v", err)
		return
	}
	if err := r.sessions.UpdateState(ctx, sess, map[string]interface{}{
		session.KeyMemoryEventCount: len(sess.Events),
	}); err != nil {
		r.log.Warnf("Failed to record consolidation cadence: %v", err)
	}
}

func eventText(event *adksession.Event) string {
	var b strings.Builder
	for _, part := range event.LLMResponse.Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
