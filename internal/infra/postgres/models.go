package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"riddle-hunt-service/internal/domain"
)

type usedKeyRow struct {
	bun.BaseModel `bun:"table:used_keys"`

	ID        string    `bun:"id,pk,nullzero,type:uuid"`
	UniqueKey string    `bun:"unique_key,notnull"`
	UsedAt    time.Time `bun:"used_at,notnull"`
}

type wrongAttemptRow struct {
	bun.BaseModel `bun:"table:wrong_attempts"`

	ID          string    `bun:"id,pk,nullzero,type:uuid"`
	UniqueKey   string    `bun:"unique_key,notnull"`
	AttemptedAt time.Time `bun:"attempted_at,notnull"`
}

type winnerRow struct {
	bun.BaseModel `bun:"table:winners"`

	ID          string    `bun:"id,pk,nullzero,type:uuid"`
	Name        string    `bun:"name,notnull"`
	Department  string    `bun:"department,notnull"`
	UniqueKey   string    `bun:"unique_key,notnull"`
	RiddleIndex int       `bun:"riddle_index,notnull"`
	CompletedAt time.Time `bun:"completed_at,notnull"`
}

type riddleRow struct {
	bun.BaseModel `bun:"table:riddles"`

	Position      int      `bun:"position,pk"`
	UniqueKey     string   `bun:"unique_key,notnull"`
	Prompt        string   `bun:"prompt,notnull"`
	Options       []string `bun:"options,array,notnull"`
	CorrectOption int      `bun:"correct_option,notnull"`
}

// mapping converts between a domain record and its row.
type mapping[T any, M any] struct {
	table      string
	timeColumn string
	toRow      func(T) *M
	fromRow    func(*M) T
}

var usedKeyMapping = mapping[domain.UsedKey, usedKeyRow]{
	table:      "used_keys",
	timeColumn: "used_at",
	toRow: func(k domain.UsedKey) *usedKeyRow {
		return &usedKeyRow{ID: k.ID, UniqueKey: k.UniqueKey, UsedAt: k.UsedAt.UTC()}
	},
	fromRow: func(r *usedKeyRow) domain.UsedKey {
		return domain.UsedKey{ID: r.ID, UniqueKey: r.UniqueKey, UsedAt: r.UsedAt}
	},
}

var wrongAttemptMapping = mapping[domain.WrongAttempt, wrongAttemptRow]{
	table:      "wrong_attempts",
	timeColumn: "attempted_at",
	toRow: func(a domain.WrongAttempt) *wrongAttemptRow {
		return &wrongAttemptRow{ID: a.ID, UniqueKey: a.UniqueKey, AttemptedAt: a.AttemptedAt.UTC()}
	},
	fromRow: func(r *wrongAttemptRow) domain.WrongAttempt {
		return domain.WrongAttempt{ID: r.ID, UniqueKey: r.UniqueKey, AttemptedAt: r.AttemptedAt}
	},
}

var winnerMapping = mapping[domain.Winner, winnerRow]{
	table:      "winners",
	timeColumn: "completed_at",
	toRow: func(w domain.Winner) *winnerRow {
		return &winnerRow{
			ID:          w.ID,
			Name:        w.Name,
			Department:  w.Department,
			UniqueKey:   w.UniqueKey,
			RiddleIndex: w.RiddleIndex,
			CompletedAt: w.CompletedAt.UTC(),
		}
	},
	fromRow: func(r *winnerRow) domain.Winner {
		return domain.Winner{
			ID:          r.ID,
			Name:        r.Name,
			Department:  r.Department,
			UniqueKey:   r.UniqueKey,
			RiddleIndex: r.RiddleIndex,
			CompletedAt: r.CompletedAt,
		}
	},
}
