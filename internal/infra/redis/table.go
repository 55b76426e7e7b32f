package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"riddle-hunt-service/internal/domain"
)

// insertScript claims the key in the index and stores the record in one step,
// so two sessions can never both insert a record for the same key.
var insertScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[2], ARGV[1], ARGV[2]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[2], ARGV[3])
return 1
`)

// deleteScript removes a record and releases its key if the index still points at it.
var deleteScript = redis.NewScript(`
local removed = redis.call('HDEL', KEYS[1], ARGV[1])
if redis.call('HGET', KEYS[2], ARGV[2]) == ARGV[1] then
  redis.call('HDEL', KEYS[2], ARGV[2])
end
return removed
`)

// Table stores one gateway table in two hashes:
//
//	contest:{name}:records  {id}  -> JSON record
//	contest:{name}:by_key   {key} -> {id}
type Table[T domain.Record[T]] struct {
	client *redis.Client
	name   string
}

func NewTable[T domain.Record[T]](client *redis.Client, name string) *Table[T] {
	return &Table[T]{client: client, name: name}
}

func (t *Table[T]) Insert(ctx context.Context, record T) (T, error) {
	var zero T
	if record.RecordID() == "" {
		record = record.WithID(uuid.NewString())
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return zero, fmt.Errorf("encode %s record: %w", t.name, err)
	}

	inserted, err := insertScript.Run(ctx, t.client,
		[]string{t.recordsKey(), t.indexKey()},
		record.RecordKey(), record.RecordID(), payload,
	).Int()
	if err != nil {
		return zero, fmt.Errorf("insert %s record: %w", t.name, err)
	}
	if inserted == 0 {
		return zero, domain.ErrDuplicateRecord
	}
	return record, nil
}

func (t *Table[T]) FindByKey(ctx context.Context, key string) ([]T, error) {
	id, err := t.client.HGet(ctx, t.indexKey(), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s key: %w", t.name, err)
	}
	record, ok, err := t.get(ctx, id)
	if err != nil || !ok {
		return nil, err
	}
	return []T{record}, nil
}

// FindByID returns the record with id.
func (t *Table[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	return t.get(ctx, id)
}

func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	raw, err := t.client.HGetAll(ctx, t.recordsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	out := make([]T, 0, len(raw))
	for id, payload := range raw {
		var record T
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("decode %s record %s: %w", t.name, id, err)
		}
		out = append(out, record)
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

func (t *Table[T]) DeleteByID(ctx context.Context, id string) error {
	record, ok, err := t.get(ctx, id)
	if err != nil || !ok {
		return err
	}
	return t.delete(ctx, record.RecordID(), record.RecordKey())
}

func (t *Table[T]) DeleteByKey(ctx context.Context, key string) error {
	id, err := t.client.HGet(ctx, t.indexKey(), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup %s key: %w", t.name, err)
	}
	return t.delete(ctx, id, key)
}

func (t *Table[T]) DeleteSince(ctx context.Context, since time.Time) error {
	records, err := t.List(ctx)
	if err != nil {
		return err
	}
	var ids, keys []string
	for _, record := range records {
		if !record.RecordTime().Before(since) {
			ids = append(ids, record.RecordID())
			keys = append(keys, record.RecordKey())
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, t.recordsKey(), ids...)
		pipe.HDel(ctx, t.indexKey(), keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("bulk delete %s: %w", t.name, err)
	}
	return nil
}

func (t *Table[T]) get(ctx context.Context, id string) (T, bool, error) {
	var record T
	payload, err := t.client.HGet(ctx, t.recordsKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return record, false, nil
	}
	if err != nil {
		return record, false, fmt.Errorf("get %s record: %w", t.name, err)
	}
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return record, false, fmt.Errorf("decode %s record %s: %w", t.name, id, err)
	}
	return record, true, nil
}

func (t *Table[T]) delete(ctx context.Context, id, key string) error {
	err := deleteScript.Run(ctx, t.client, []string{t.recordsKey(), t.indexKey()}, id, key).Err()
	if err != nil {
		return fmt.Errorf("delete %s record: %w", t.name, err)
	}
	return nil
}

func (t *Table[T]) recordsKey() string {
	return "contest:" + t.name + ":records"
}

func (t *Table[T]) indexKey() string {
	return "contest:" + t.name + ":by_key"
}

// WinnerTable adds FindByID with the gateway's not-found error.
type WinnerTable struct {
	*Table[domain.Winner]
}

func NewWinnerTable(client *redis.Client) *WinnerTable {
	return &WinnerTable{Table: NewTable[domain.Winner](client, "winners")}
}

func (w *WinnerTable) FindByID(ctx context.Context, id string) (domain.Winner, error) {
	winner, ok, err := w.Table.FindByID(ctx, id)
	if err != nil {
		return domain.Winner{}, err
	}
	if !ok {
		return domain.Winner{}, domain.ErrWinnerNotFound
	}
	return winner, nil
}
