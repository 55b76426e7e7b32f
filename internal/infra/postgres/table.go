package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/domain"
)

const uniqueViolation = "23505"

// Table is a gateway table backed by bun. Uniqueness of unique_key is
// enforced by the database.
type Table[T any, M any] struct {
	db *bun.DB
	m  mapping[T, M]
}

func newTable[T any, M any](db *bun.DB, m mapping[T, M]) *Table[T, M] {
	return &Table[T, M]{db: db, m: m}
}

func (t *Table[T, M]) Insert(ctx context.Context, record T) (T, error) {
	row := t.m.toRow(record)
	_, err := t.db.NewInsert().Model(row).Returning("*").Exec(ctx)
	if err != nil {
		var zero T
		if isUniqueViolation(err) {
			return zero, domain.ErrDuplicateRecord
		}
		return zero, fmt.Errorf("insert into %s: %w", t.m.table, err)
	}
	return t.m.fromRow(row), nil
}

func (t *Table[T, M]) FindByKey(ctx context.Context, key string) ([]T, error) {
	var rows []M
	err := t.db.NewSelect().
		Model(&rows).
		Where("unique_key = ?", key).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", t.m.table, err)
	}
	return t.convert(rows), nil
}

func (t *Table[T, M]) List(ctx context.Context) ([]T, error) {
	var rows []M
	err := t.db.NewSelect().
		Model(&rows).
		OrderExpr("? DESC", bun.Ident(t.m.timeColumn)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.m.table, err)
	}
	return t.convert(rows), nil
}

func (t *Table[T, M]) DeleteByID(ctx context.Context, id string) error {
	_, err := t.db.NewDelete().Model((*M)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", t.m.table, err)
	}
	return nil
}

func (t *Table[T, M]) DeleteByKey(ctx context.Context, key string) error {
	_, err := t.db.NewDelete().Model((*M)(nil)).Where("unique_key = ?", key).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", t.m.table, err)
	}
	return nil
}

func (t *Table[T, M]) DeleteSince(ctx context.Context, since time.Time) error {
	_, err := t.db.NewDelete().
		Model((*M)(nil)).
		Where("? >= ?", bun.Ident(t.m.timeColumn), since.UTC()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bulk delete from %s: %w", t.m.table, err)
	}
	return nil
}

func (t *Table[T, M]) convert(rows []M) []T {
	out := make([]T, 0, len(rows))
	for i := range rows {
		out = append(out, t.m.fromRow(&rows[i]))
	}
	return out
}

// WinnerTable adds FindByID.
type WinnerTable struct {
	*Table[domain.Winner, winnerRow]
}

func (w *WinnerTable) FindByID(ctx context.Context, id string) (domain.Winner, error) {
	row := new(winnerRow)
	err := w.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Winner{}, domain.ErrWinnerNotFound
	}
	if err != nil {
		return domain.Winner{}, fmt.Errorf("find winner: %w", err)
	}
	return w.m.fromRow(row), nil
}

// NewGateway builds the Postgres-backed persistence gateway.
func NewGateway(db *bun.DB) app.Gateway {
	return app.Gateway{
		UsedKeys:      newTable(db, usedKeyMapping),
		WrongAttempts: newTable(db, wrongAttemptMapping),
		Winners:       &WinnerTable{Table: newTable(db, winnerMapping)},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}
