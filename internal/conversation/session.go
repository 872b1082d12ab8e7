package conversation

import (
	"time"

	"github.com/squareb/menu-chatbot/internal/llm"
)

// DefaultHistoryLimit is the number of turns a session keeps.
const DefaultHistoryLimit = 20

// Turn is one message of a conversation.
type Turn struct {
	Role llm.Role  `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the state of one customer conversation.
type Session struct {
	ID        string    `json:"id"`
	History   []Turn    `json:"history"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, History: []Turn{}, CreatedAt: now, UpdatedAt: now}
}

// Append adds turns and drops the oldest ones beyond limit.
func (s *Session) Append(limit int, turns ...Turn) {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	s.History = append(s.History, turns...)
	if over := len(s.History) - limit; over > 0 {
		s.History = append([]Turn(nil), s.History[over:]...)
	}
	s.UpdatedAt = time.Now().UTC()
}

// Recent returns the last n turns as completion messages.
func (s *Session) Recent(n int) []llm.Message {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	start := max(len(s.History)-n, 0)
	msgs := make([]llm.Message, 0, len(s.History)-start)
	for _, t := range s.History[start:] {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Text})
	}
	return msgs
}

// Len is the number of stored turns.
func (s *Session) Len() int {
	return len(s.History)
}
