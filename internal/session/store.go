// Package session persists conversation sessions and serializes exchanges
// per session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/squareb/menu-chatbot/internal/cache"
	"github.com/squareb/menu-chatbot/internal/conversation"
	"github.com/squareb/menu-chatbot/internal/domain"
)

// Store keeps sessions as JSON documents in a cache backend.
type Store struct {
	cache cache.Client
	ttl   time.Duration
}

// NewStore creates a store. Sessions idle for longer than ttl expire; a
// zero ttl keeps them until deleted.
func NewStore(c cache.Client, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

// Load returns the session with id, or a new empty one when it is unknown.
func (s *Store) Load(ctx context.Context, id string) (*conversation.Session, error) {
	data, err := s.cache.Get(ctx, cache.SessionKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return conversation.NewSession(id), nil
	}
	if err != nil {
		return nil, domain.StorageError("load session", err)
	}

	var sess conversation.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, domain.StorageError("decode session", err)
	}
	if sess.ID == "" {
		sess.ID = id
	}
	return &sess, nil
}

// Exists reports whether a session with id is stored.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.cache.Get(ctx, cache.SessionKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, domain.StorageError("load session", err)
	}
	return true, nil
}

// Save writes the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sess *conversation.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return domain.StorageError("encode session", err)
	}
	if err := s.cache.Set(ctx, cache.SessionKey(sess.ID), data, s.ttl); err != nil {
		return domain.StorageError("save session", err)
	}
	return nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, cache.SessionKey(id)); err != nil {
		return domain.StorageError("delete session", err)
	}
	return nil
}

// Clear removes every session.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.cache.DeleteByPrefix(ctx, cache.SessionKey("")); err != nil {
		return domain.StorageError("clear sessions", err)
	}
	return nil
}
