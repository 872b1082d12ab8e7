package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/squareb/menu-chatbot/internal/observability"
)

// SessionRemover deletes stored sessions.
type SessionRemover interface {
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// SessionHandler manages sessions.
type SessionHandler struct {
	logger   *observability.Logger
	sessions SessionRemover
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(logger *observability.Logger, sessions SessionRemover) *SessionHandler {
	return &SessionHandler{logger: logger, sessions: sessions}
}

// StatusDTO is a success flag with a customer-facing message.
type StatusDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Delete handles DELETE /session/{sessionId}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "sessionId")

	exists, err := h.sessions.Exists(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("session_id", id).Msg("Session lookup failed")
		writeError(w, http.StatusInternalServerError, "session lookup failed", err.Error())
		return
	}
	if !exists {
		writeJSON(w, http.StatusOK, StatusDTO{Success: false, Message: "الجلسة غير موجودة"})
		return
	}

	if err := h.sessions.Delete(ctx, id); err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("session_id", id).Msg("Session delete failed")
		writeError(w, http.StatusInternalServerError, "session delete failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatusDTO{Success: true, Message: "تم مسح الجلسة"})
}
