package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/agendei/agendei-server/internal/catalog"
	"github.com/agendei/agendei-server/internal/dialogue"
	"github.com/agendei/agendei-server/pkg/logging"
)

// DialogueEngine is the slice of the dialogue engine the widget needs.
type DialogueEngine interface {
	Initiate(ctx context.Context, provider *catalog.Provider) (*dialogue.Session, error)
	SubmitUtterance(ctx context.Context, sessionID, text, actingUserID string) (*dialogue.Session, error)
	Session(ctx context.Context, id string) (*dialogue.Session, error)
}

// Handler serves the embeddable booking widget over WebSocket.
type Handler struct {
	engine    DialogueEngine
	providers catalog.Repository
	logger    *logging.Logger
	widgetJS  []byte
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string                `json:"type"` // "session", "message", "pong", "error"
	Text      string                `json:"text,omitempty"`
	Role      string                `json:"role,omitempty"`
	SessionID string                `json:"session_id,omitempty"`
	State     dialogue.SessionState `json:"state,omitempty"`
	Timestamp string                `json:"timestamp,omitempty"`
	Messages  []dialogue.Turn       `json:"messages,omitempty"`
}

// NewHandler creates a web chat handler.
func NewHandler(engine DialogueEngine, providers catalog.Repository, widgetJS []byte, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("webchat: dialogue engine required")
	}
	if providers == nil {
		panic("webchat: provider repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, providers: providers, widgetJS: widgetJS, logger: logger}
}

// HandleWebSocket upgrades to WebSocket and drives a booking dialogue.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	slug := r.URL.Query().Get("provider")
	if slug == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing provider parameter"})
		return
	}

	ctx := r.Context()
	session, err := h.openSession(ctx, slug, r.URL.Query().Get("session"))
	if err != nil {
		if errors.Is(err, catalog.ErrProviderNotFound) {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "unknown provider"})
			return
		}
		h.logger.Error("webchat: failed to open session", "provider", slug, "error", err)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "failed to start chat"})
		return
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: session.ID,
		State:     session.State,
		Messages:  session.History,
	})

	h.logger.Info("webchat: connection opened", "provider", slug, "session_id", session.ID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", session.ID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		updated, err := h.engine.SubmitUtterance(ctx, session.ID, msg.Text, "")
		if err != nil {
			h.logger.Warn("webchat: turn rejected", "session_id", session.ID, "error", err)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: turnErrorText(err)})
			continue
		}
		session = updated

		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      dialogue.ChatRoleAssistant,
			Text:      lastAssistantText(session.History),
			State:     session.State,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// openSession resumes an existing session when the widget reconnects with a
// session ID, otherwise starts a fresh one.
func (h *Handler) openSession(ctx context.Context, slug, sessionID string) (*dialogue.Session, error) {
	if sessionID != "" {
		session, err := h.engine.Session(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, dialogue.ErrSessionNotFound) {
			return nil, err
		}
	}
	provider, err := h.providers.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return h.engine.Initiate(ctx, provider)
}

func turnErrorText(err error) string {
	switch {
	case errors.Is(err, dialogue.ErrSessionClosed):
		return "this chat already finished"
	case errors.Is(err, dialogue.ErrTurnInFlight):
		return "still processing your last message"
	case errors.Is(err, dialogue.ErrEmptyUtterance):
		return "message text is required"
	default:
		return "failed to process message"
	}
}

func lastAssistantText(history []dialogue.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == dialogue.ChatRoleAssistant {
			return history[i].Text
		}
	}
	return ""
}

// HandleHistory returns the transcript for a session.
// GET /webchat/history?session={id}
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	session, err := h.engine.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, dialogue.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: failed to load history", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": session.ID,
		"state":      session.State,
		"messages":   session.History,
	})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}
