package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/squareb/menu-chatbot/internal/conversation"
	"github.com/squareb/menu-chatbot/internal/domain"
	"github.com/squareb/menu-chatbot/internal/observability"
	"github.com/squareb/menu-chatbot/internal/session"
)

const maxMessageBytes = 1 << 16

// Responder answers a message within a session.
type Responder interface {
	Respond(ctx context.Context, sess *conversation.Session, message string) (conversation.Reply, error)
}

// SessionStore loads and saves sessions.
type SessionStore interface {
	Load(ctx context.Context, id string) (*conversation.Session, error)
	Save(ctx context.Context, sess *conversation.Session) error
}

// ChatHandler handles chat messages.
type ChatHandler struct {
	logger   *observability.Logger
	engine   Responder
	sessions SessionStore
	locker   *session.Locker
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(logger *observability.Logger, engine Responder, sessions SessionStore, locker *session.Locker) *ChatHandler {
	if locker == nil {
		locker = session.NewLocker()
	}
	return &ChatHandler{
		logger:   logger,
		engine:   engine,
		sessions: sessions,
		locker:   locker,
	}
}

// ChatRequestDTO is the body of POST /chat.
type ChatRequestDTO struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponseDTO is the reply to POST /chat.
type ChatResponseDTO struct {
	Response    string    `json:"response"`
	SessionID   string    `json:"session_id"`
	Intent      string    `json:"intent"`
	Suggestions []ItemDTO `json:"suggestions"`
	Timestamp   string    `json:"timestamp"`
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithContext(ctx)

	var req ChatRequestDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required", "")
		return
	}

	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = uuid.NewString()
	}

	unlock, err := h.locker.Lock(ctx, id)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "request cancelled", err.Error())
		return
	}
	defer unlock()

	sess, err := h.sessions.Load(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("Failed to load session, starting a new one")
		sess = conversation.NewSession(id)
	}

	reply, err := h.engine.Respond(ctx, sess, req.Message)
	if err != nil {
		if domain.IsType(err, domain.ErrorTypeValidation) {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		log.Error().Err(err).Str("session_id", id).Msg("Respond failed")
		writeError(w, http.StatusInternalServerError, "chat failed", err.Error())
		return
	}

	if !reply.Fallback {
		if err := h.sessions.Save(ctx, sess); err != nil {
			log.Error().Err(err).Str("session_id", id).Msg("Failed to save session")
		}
	}

	writeJSON(w, http.StatusOK, ChatResponseDTO{
		Response:    reply.Text,
		SessionID:   id,
		Intent:      string(reply.Intent),
		Suggestions: toItemDTOs(reply.Suggestions),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}
