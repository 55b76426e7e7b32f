package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/domain"
)

// SessionStore keeps session state in Redis so a participant who reloads the
// page, or lands on another process, resumes their session. Entries expire
// after ttl of inactivity.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, id string, state app.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.key(id), payload, s.ttl).Err()
}

func (s *SessionStore) Load(ctx context.Context, id string) (app.State, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return app.State{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return app.State{}, err
	}
	var state app.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return app.State{}, fmt.Errorf("decode session: %w", err)
	}
	return state, nil
}

func (s *SessionStore) key(id string) string {
	return "contest:session:" + id
}
