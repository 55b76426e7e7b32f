package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"riddle-hunt-service/internal/domain"
)

// Table is an in-memory gateway table. It enforces one record per key, the
// same constraint the Redis and Postgres backends apply.
type Table[T domain.Record[T]] struct {
	mu    sync.RWMutex
	rows  map[string]T
	byKey map[string]string
}

func NewTable[T domain.Record[T]]() *Table[T] {
	return &Table[T]{
		rows:  make(map[string]T),
		byKey: make(map[string]string),
	}
}

func (t *Table[T]) Insert(_ context.Context, record T) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byKey[record.RecordKey()]; exists {
		var zero T
		return zero, domain.ErrDuplicateRecord
	}
	if record.RecordID() == "" {
		record = record.WithID(uuid.NewString())
	}
	t.rows[record.RecordID()] = record
	t.byKey[record.RecordKey()] = record.RecordID()
	return record, nil
}

func (t *Table[T]) FindByKey(_ context.Context, key string) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.byKey[key]
	if !ok {
		return nil, nil
	}
	return []T{t.rows[id]}, nil
}

// FindByID returns the record with id.
func (t *Table[T]) FindByID(_ context.Context, id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

func (t *Table[T]) List(_ context.Context) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].RecordTime(), out[j].RecordTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].RecordID() < out[j].RecordID()
	})
	return out, nil
}

func (t *Table[T]) DeleteByID(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleteLocked(id)
	return nil
}

func (t *Table[T]) DeleteByKey(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byKey[key]; ok {
		t.deleteLocked(id)
	}
	return nil
}

func (t *Table[T]) DeleteSince(_ context.Context, since time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, row := range t.rows {
		if !row.RecordTime().Before(since) {
			t.deleteLocked(id)
		}
	}
	return nil
}

// Len returns the number of stored records.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

func (t *Table[T]) deleteLocked(id string) {
	row, ok := t.rows[id]
	if !ok {
		return
	}
	delete(t.rows, id)
	if t.byKey[row.RecordKey()] == id {
		delete(t.byKey, row.RecordKey())
	}
}

// WinnerTable adds FindByID with the gateway's not-found error.
type WinnerTable struct {
	*Table[domain.Winner]
}

func NewWinnerTable() *WinnerTable {
	return &WinnerTable{Table: NewTable[domain.Winner]()}
}

func (w *WinnerTable) FindByID(ctx context.Context, id string) (domain.Winner, error) {
	winner, ok := w.Table.FindByID(ctx, id)
	if !ok {
		return domain.Winner{}, domain.ErrWinnerNotFound
	}
	return winner, nil
}
