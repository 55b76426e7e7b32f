package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"riddle-hunt-service/internal/domain"
)

// purgeFloor is older than any record, so ">= purgeFloor" matches every row.
var purgeFloor = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	StrategyDirect = "direct"
	StrategyBulk   = "bulk"
	StrategyPerRow = "per-row"
)

// StepOutcome is the result of one named step of an admin operation.
type StepOutcome struct {
	Name     string   `json:"name"`
	Strategy string   `json:"strategy"`
	Deleted  int      `json:"deleted"`
	Errors   []string `json:"errors,omitempty"`
}

// OK reports whether the step finished without errors.
func (o StepOutcome) OK() bool {
	return len(o.Errors) == 0
}

// Report lists every step an admin operation ran, in order.
type Report struct {
	Operation string        `json:"operation"`
	Steps     []StepOutcome `json:"steps"`
}

// Failed returns the steps that recorded errors.
func (r Report) Failed() []StepOutcome {
	var failed []StepOutcome
	for _, step := range r.Steps {
		if !step.OK() {
			failed = append(failed, step)
		}
	}
	return failed
}

// Step returns the outcome with the given name.
func (r Report) Step(name string) (StepOutcome, bool) {
	for _, step := range r.Steps {
		if step.Name == name {
			return step, true
		}
	}
	return StepOutcome{}, false
}

// Admin runs the password-gated winner deletions.
type Admin struct {
	gateway  Gateway
	password string
	log      *zap.Logger
}

func NewAdmin(gateway Gateway, password string, log *zap.Logger) *Admin {
	if log == nil {
		log = zap.NewNop()
	}
	return &Admin{gateway: gateway, password: password, log: log.Named("admin")}
}

// Authorize checks the shared admin password.
func (a *Admin) Authorize(password string) error {
	if strings.TrimSpace(password) != a.password {
		return domain.ErrUnauthorized
	}
	return nil
}

// DeleteWinner removes one winner and recycles their key. Only the winner
// deletion itself can fail the operation; the key resets are best-effort and
// show up in the report.
func (a *Admin) DeleteWinner(ctx context.Context, password, winnerID string) (Report, error) {
	report := Report{Operation: "delete-winner"}
	if err := a.Authorize(password); err != nil {
		return report, err
	}

	winner, err := a.gateway.Winners.FindByID(ctx, winnerID)
	if errors.Is(err, domain.ErrWinnerNotFound) {
		return report, err
	}
	if err != nil {
		return report, fmt.Errorf("find winner: %w: %w", domain.ErrPersistence, err)
	}

	if err := a.gateway.Winners.DeleteByID(ctx, winner.ID); err != nil {
		a.log.Error("winner deletion failed", zap.String("winner", winner.ID), zap.Error(err))
		return report, fmt.Errorf("delete winner: %w: %w", domain.ErrPersistence, err)
	}
	report.Steps = append(report.Steps, StepOutcome{Name: "delete-winner", Strategy: StrategyDirect, Deleted: 1})

	key := winner.UniqueKey
	report.Steps = append(report.Steps,
		resetKey[domain.UsedKey](ctx, a.log, "reset-used-key", key, a.gateway.UsedKeys),
		resetKey[domain.WrongAttempt](ctx, a.log, "clear-wrong-attempts", key, a.gateway.WrongAttempts),
	)
	a.log.Info("winner deleted", zap.String("winner", winner.ID), zap.String("key", key), zap.Int("failedSteps", len(report.Failed())))
	return report, nil
}

// PurgeAll empties winners, used keys and wrong attempts. Each table is first
// cleared with one bulk delete; when that fails its rows are deleted one by
// one. Every table is attempted whatever happened to the previous ones.
func (a *Admin) PurgeAll(ctx context.Context, password string) (Report, error) {
	report := Report{Operation: "purge-all"}
	if err := a.Authorize(password); err != nil {
		return report, err
	}

	report.Steps = append(report.Steps,
		purgeTable[domain.Winner](ctx, a.log, "purge-winners", a.gateway.Winners),
		purgeTable[domain.UsedKey](ctx, a.log, "purge-used-keys", a.gateway.UsedKeys),
		purgeTable[domain.WrongAttempt](ctx, a.log, "purge-wrong-attempts", a.gateway.WrongAttempts),
	)
	a.log.Info("purge completed", zap.Int("failedSteps", len(report.Failed())))
	return report, nil
}

// resetKey deletes the key's records from one table. Deleted counts the rows
// that existed, so a table with nothing on record reports zero.
func resetKey[T any](ctx context.Context, log *zap.Logger, name, key string, store RecordStore[T]) StepOutcome {
	step := StepOutcome{Name: name, Strategy: StrategyDirect}
	rows, err := store.FindByKey(ctx, key)
	if err != nil {
		log.Warn("key reset lookup failed", zap.String("step", name), zap.String("key", key), zap.Error(err))
		step.Errors = append(step.Errors, fmt.Sprintf("find rows: %v", err))
		return step
	}
	if len(rows) == 0 {
		return step
	}
	if err := store.DeleteByKey(ctx, key); err != nil {
		log.Warn("key reset step failed", zap.String("step", name), zap.String("key", key), zap.Error(err))
		step.Errors = append(step.Errors, err.Error())
		return step
	}
	step.Deleted = len(rows)
	return step
}

type recordID interface {
	RecordID() string
}

func purgeTable[T recordID](ctx context.Context, log *zap.Logger, name string, store RecordStore[T]) StepOutcome {
	step := StepOutcome{Name: name, Strategy: StrategyBulk}

	// The bulk delete reports no count, so rows are counted up front.
	before, err := store.List(ctx)
	if err != nil {
		log.Warn("counting rows before purge failed", zap.String("step", name), zap.Error(err))
		step.Errors = append(step.Errors, fmt.Sprintf("count rows: %v", err))
	}
	err = store.DeleteSince(ctx, purgeFloor)
	if err == nil {
		step.Deleted = len(before)
		return step
	}

	log.Warn("bulk delete failed, deleting row by row", zap.String("step", name), zap.Error(err))
	step.Strategy = StrategyPerRow
	rows, err := store.List(ctx)
	if err != nil {
		log.Error("listing rows for fallback failed", zap.String("step", name), zap.Error(err))
		step.Errors = append(step.Errors, err.Error())
		return step
	}
	for _, row := range rows {
		if err := store.DeleteByID(ctx, row.RecordID()); err != nil {
			log.Error("row delete failed", zap.String("step", name), zap.String("id", row.RecordID()), zap.Error(err))
			step.Errors = append(step.Errors, fmt.Sprintf("%s: %v", row.RecordID(), err))
			continue
		}
		step.Deleted++
	}
	return step
}
