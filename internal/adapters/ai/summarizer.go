package ai

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"tradesync/internal/domain/session"
	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

const summaryPrompt = `You are maintaining a rolling summary of a conversation between a user and a trading assistant.

Write a compact factual digest of the conversation below. Capture:
- the user's goals, risk tolerance and investment horizon
- assets and markets discussed
- decisions made and trades considered or executed
- standing constraints and preferences
- open questions still unanswered

Do not add commentary or advice. Output only the summary text.`

// Summarizer produces rolling conversation summaries with Gemini.
type Summarizer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
}

// NewSummarizer creates a Gemini-backed summarizer.
func NewSummarizer(ctx context.Context, apiKey, model string, timeout time.Duration) (*Summarizer, error) {
	if apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}

	return &Summarizer{
		client:  client,
		model:   model,
		timeout: timeout,
		log:     logger.Get().With("component", "summarizer", "model", model),
	}, nil
}

// SummarizeConversation folds the events, plus any existing summary, into
// a fresh digest. An empty result means the model produced nothing usable;
// callers treat that as "do not trim".
func (s *Summarizer) SummarizeConversation(ctx context.Context, events []session.Event, existingSummary string) (string, error) {
	transcript := renderTranscript(events)
	if transcript == "" {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(summaryPrompt)
	if existingSummary != "" {
		b.WriteString("\n\nPrevious summary (fold this in, do not drop facts from it):\n")
		b.WriteString(existingSummary)
	}
	b.WriteString("\n\nConversation:\n")
	b.WriteString(transcript)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		genai.Text(b.String()),
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.2)},
	)
	if err != nil {
		return "", errors.Wrap(err, "summarization call failed")
	}

	summary := strings.TrimSpace(resp.Text())
	s.log.Debugw("Generated summary", "events", len(events), "summary_length", len(summary))
	return summary, nil
}

// renderTranscript flattens events into "AUTHOR: text" lines. Events with
// no text (pure tool traffic) are skipped.
func renderTranscript(events []session.Event) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		text := strings.TrimSpace(ev.Text())
		if text == "" {
			continue
		}
		author := ev.Author
		if author == "" {
			author = "unknown"
		}
		lines = append(lines, strings.ToUpper(author)+": "+text)
	}
	return strings.Join(lines, "\n")
}
