package domain

import (
	"strings"
	"time"
)

// UsedKey marks a key as exhausted by a successful completion.
type UsedKey struct {
	ID        string    `json:"id"`
	UniqueKey string    `json:"uniqueKey"`
	UsedAt    time.Time `json:"usedAt"`
}

// WrongAttempt blocks a key after an incorrect answer.
type WrongAttempt struct {
	ID          string    `json:"id"`
	UniqueKey   string    `json:"uniqueKey"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// Winner is a participant who answered their riddle correctly and registered.
type Winner struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Department  string    `json:"department"`
	UniqueKey   string    `json:"uniqueKey"`
	RiddleIndex int       `json:"riddleIndex"`
	CompletedAt time.Time `json:"completedAt"`
}

// Riddle is an immutable multiple-choice question.
type Riddle struct {
	Prompt        string   `json:"prompt" yaml:"prompt"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption int      `json:"correctOption" yaml:"correct"`
}

// IsCorrect reports whether option is the riddle's answer.
func (r Riddle) IsCorrect(option int) bool {
	return option == r.CorrectOption
}

// CatalogEntry binds one key to its riddle.
type CatalogEntry struct {
	Key    string `json:"key" yaml:"key"`
	Riddle Riddle `json:"riddle" yaml:",inline"`
}

// NormalizeKey applies the same normalization participants' input goes through.
func NormalizeKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
