package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session represents one user's conversation with the advisor: a bounded,
// append-only event log plus keyed state. Identified by (AppName, UserID,
// SessionID).
type Session struct {
	ID        uuid.UUID
	AppName   string
	UserID    string
	SessionID string
	State     State
	Events    []Event
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScopeKey returns the app:user pair that scopes long-term memory visibility.
func (s *Session) ScopeKey() string {
	return s.AppName + ":" + s.UserID
}

// Event is a single committed turn fragment: a user message, an agent
// response, or a tool call/response pair. Immutable once persisted.
type Event struct {
	ID           uuid.UUID
	Seq          int64 // storage order, assigned on persist
	EventID      string
	Author       string // "user", "system", or an agent name
	Content      Content
	Timestamp    time.Time
	Branch       string
	Partial      bool // streaming fragment, never persisted
	TurnComplete bool
}

// Final reports whether the event closes its turn. Only final events count
// toward the summarization trigger.
func (e *Event) Final() bool {
	return !e.Partial && e.TurnComplete
}

// Text joins the textual parts of the event content.
func (e *Event) Text() string {
	var parts []string
	for _, p := range e.Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Content holds the author-ordered parts of an event.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is one content fragment: text, a tool call, or a tool response.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall describes a tool invocation requested by an agent.
type FunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// FunctionResponse carries a tool's result back into the conversation.
type FunctionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response,omitempty"`
}

// TextContent builds a single-text-part content body.
func TextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

// GetOptions filters events on session reads.
type GetOptions struct {
	// After keeps only events strictly newer than the given time.
	After time.Time
	// NumRecentEvents keeps only the N most recent events.
	NumRecentEvents int
}
