package http

import (
	"encoding/json"
	"net/http"

	"tradesync/internal/agents"
	"tradesync/internal/domain/session"
	"tradesync/pkg/errors"
	"tradesync/pkg/logger"
)

// Server exposes the advisor over a small JSON API.
type Server struct {
	runner   *agents.AdvisorRunner
	sessions *session.Service
	appName  string
	log      *logger.Logger
}

// NewServer creates the API server.
func NewServer(appName string, runner *agents.AdvisorRunner, sessions *session.Service) *Server {
	return &Server{
		runner:   runner,
		sessions: sessions,
		appName:  appName,
		log:      logger.Get().With("component", "api_server"),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("DELETE /v1/sessions", s.handleDeleteSession)
	return mux
}

type chatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrInvalidInput, "malformed request body"))
		return
	}

	reply, err := s.runner.Chat(r.Context(), req.UserID, req.SessionID, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, errors.Wrap(errors.ErrInvalidInput, "user_id is required"))
		return
	}

	sessions, err := s.sessions.ListSessions(r.Context(), s.appName, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	type item struct {
		SessionID string `json:"session_id"`
		UpdatedAt string `json:"updated_at"`
	}
	items := make([]item, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, item{
			SessionID: sess.SessionID,
			UpdatedAt: sess.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": items})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	sessionID := r.URL.Query().Get("session_id")

	if err := s.sessions.DeleteSession(r.Context(), s.appName, userID, sessionID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warnf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, errors.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	var vErr *errors.ValidationError
	if errors.As(err, &vErr) {
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.log.Errorf("Request failed: %v", err)
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
