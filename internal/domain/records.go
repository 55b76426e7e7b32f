package domain

import "time"

// Record is implemented by every persisted contest record so gateway
// backends can share one generic table implementation.
type Record[T any] interface {
	RecordID() string
	RecordKey() string
	RecordTime() time.Time
	WithID(id string) T
}

func (u UsedKey) RecordID() string         { return u.ID }
func (u UsedKey) RecordKey() string        { return u.UniqueKey }
func (u UsedKey) RecordTime() time.Time    { return u.UsedAt }
func (u UsedKey) WithID(id string) UsedKey { u.ID = id; return u }

func (w WrongAttempt) RecordID() string              { return w.ID }
func (w WrongAttempt) RecordKey() string             { return w.UniqueKey }
func (w WrongAttempt) RecordTime() time.Time         { return w.AttemptedAt }
func (w WrongAttempt) WithID(id string) WrongAttempt { w.ID = id; return w }

func (w Winner) RecordID() string        { return w.ID }
func (w Winner) RecordKey() string       { return w.UniqueKey }
func (w Winner) RecordTime() time.Time   { return w.CompletedAt }
func (w Winner) WithID(id string) Winner { w.ID = id; return w }
