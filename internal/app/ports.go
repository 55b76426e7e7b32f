package app

import (
	"context"
	"time"

	"riddle-hunt-service/internal/domain"
)

// RecordStore is one logical table of the persistence gateway. Backends
// assign IDs on Insert and return domain.ErrDuplicateRecord when a record
// for the same key already exists.
type RecordStore[T any] interface {
	Insert(ctx context.Context, record T) (T, error)
	FindByKey(ctx context.Context, key string) ([]T, error)
	// List returns every record, newest first.
	List(ctx context.Context) ([]T, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByKey(ctx context.Context, key string) error
	// DeleteSince removes every record whose timestamp is at or after since.
	DeleteSince(ctx context.Context, since time.Time) error
}

// WinnerStore adds ID lookups to the winners table.
type WinnerStore interface {
	RecordStore[domain.Winner]
	FindByID(ctx context.Context, id string) (domain.Winner, error)
}

// Gateway groups the three tables the contest persists to.
type Gateway struct {
	UsedKeys      RecordStore[domain.UsedKey]
	WrongAttempts RecordStore[domain.WrongAttempt]
	Winners       WinnerStore
}

// SessionRepository persists session state so a reconnecting participant
// resumes where they left off.
type SessionRepository interface {
	Save(ctx context.Context, id string, state State) error
	Load(ctx context.Context, id string) (State, error)
}
