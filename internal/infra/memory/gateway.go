package memory

import (
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/domain"
)

// Tables is the in-memory backend, keeping typed handles for tests.
type Tables struct {
	UsedKeys      *Table[domain.UsedKey]
	WrongAttempts *Table[domain.WrongAttempt]
	Winners       *WinnerTable
}

func NewTables() *Tables {
	return &Tables{
		UsedKeys:      NewTable[domain.UsedKey](),
		WrongAttempts: NewTable[domain.WrongAttempt](),
		Winners:       NewWinnerTable(),
	}
}

// Gateway exposes the tables through the app ports.
func (t *Tables) Gateway() app.Gateway {
	return app.Gateway{
		UsedKeys:      t.UsedKeys,
		WrongAttempts: t.WrongAttempts,
		Winners:       t.Winners,
	}
}
