package memory

import (
	"context"
	"sync"

	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]app.State
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]app.State),
	}
}

func (s *SessionStore) Save(_ context.Context, id string, state app.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = state
	return nil
}

func (s *SessionStore) Load(_ context.Context, id string) (app.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[id]
	if !ok {
		return app.State{}, domain.ErrSessionNotFound
	}
	return state, nil
}
