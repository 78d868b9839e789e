package dialogue

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agendei/agendei-server/internal/catalog"
	"github.com/agendei/agendei-server/pkg/logging"
)

// Handler wires HTTP requests to the dialogue engine.
type Handler struct {
	engine    *Engine
	providers catalog.Repository
	logger    *logging.Logger
}

// NewHandler creates a dialogue handler.
func NewHandler(engine *Engine, providers catalog.Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, providers: providers, logger: logger}
}

// StartResponse is returned when a session is opened.
type StartResponse struct {
	SessionID string       `json:"session_id"`
	State     SessionState `json:"state"`
	Messages  []Turn       `json:"messages"`
}

// MessageRequest is the body for submitting a user utterance.
type MessageRequest struct {
	Text     string `json:"text"`
	ClientID string `json:"client_id,omitempty"`
}

// MessageResponse is returned after a turn is processed.
type MessageResponse struct {
	SessionID string       `json:"session_id"`
	State     SessionState `json:"state"`
	Reply     string       `json:"reply"`
	Messages  []Turn       `json:"messages"`
}

// Start handles POST /providers/{slug}/sessions.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	provider, err := h.providers.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, catalog.ErrProviderNotFound) {
			http.Error(w, "Provider not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load provider for session", "slug", slug, "error", err)
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	session, err := h.engine.Initiate(r.Context(), provider)
	if err != nil {
		h.logger.Error("failed to start session", "slug", slug, "error", err)
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, StartResponse{
		SessionID: session.ID,
		State:     session.State,
		Messages:  session.History,
	})
}

// Message handles POST /sessions/{sessionID}/messages.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.engine.SubmitUtterance(r.Context(), sessionID, req.Text, req.ClientID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyUtterance):
			http.Error(w, "Message text is required", http.StatusBadRequest)
		case errors.Is(err, ErrSessionNotFound):
			http.Error(w, "Session not found", http.StatusNotFound)
		case errors.Is(err, ErrSessionClosed):
			http.Error(w, "Session is no longer active", http.StatusConflict)
		case errors.Is(err, ErrTurnInFlight):
			http.Error(w, "Previous message still processing", http.StatusTooManyRequests)
		default:
			h.logger.Error("failed to process message", "session_id", sessionID, "error", err)
			http.Error(w, "Failed to process message", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, MessageResponse{
		SessionID: session.ID,
		State:     session.State,
		Reply:     lastAssistantText(session.History),
		Messages:  session.History,
	})
}

// GetSession handles GET /sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.engine.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load session", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

func lastAssistantText(history []Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == ChatRoleAssistant {
			return history[i].Text
		}
	}
	return ""
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
