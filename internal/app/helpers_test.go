package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/domain"
	"riddle-hunt-service/internal/infra/memory"
	"riddle-hunt-service/internal/timer"
)

var testKeys = []string{
	"GABI2025HUNT20", "GABI2025HUNT27", "GABI2025HUNT56", "GABI2025HUNT99", "GABI2025HUNT87",
	"GABI2025HUNT67", "GABI2025HUNT49", "GABI2025HUNT69", "GABI2025HUNT59", "GABI2025HUNT09",
}

// correctFor is the right option for the riddle at index i.
func correctFor(i int) int {
	return (i + 1) % domain.OptionCount
}

func wrongFor(i int) int {
	return (correctFor(i) + 1) % domain.OptionCount
}

func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	entries := make([]domain.CatalogEntry, 0, len(testKeys))
	for i, key := range testKeys {
		entries = append(entries, domain.CatalogEntry{
			Key: key,
			Riddle: domain.Riddle{
				Prompt:        fmt.Sprintf("riddle %d", i),
				Options:       []string{"a", "b", "c", "d"},
				CorrectOption: correctFor(i),
			},
		})
	}
	catalog, err := domain.NewCatalog(entries)
	require.NoError(t, err)
	return catalog
}

type fixture struct {
	tables  *memory.Tables
	gateway app.Gateway
	ticks   *timer.ManualTicks
	contest *app.Contest
	now     time.Time
}

const testTimeLimit = 3 * time.Second

func newFixture(t *testing.T, opts ...app.ContestOption) *fixture {
	t.Helper()
	f := &fixture{
		tables: memory.NewTables(),
		ticks:  timer.NewManualTicks(),
		now:    time.Date(2025, 7, 9, 12, 0, 0, 0, time.UTC),
	}
	f.gateway = f.tables.Gateway()
	f.build(t, opts...)
	return f
}

// build (re)creates the contest over the fixture's gateway.
func (f *fixture) build(t *testing.T, opts ...app.ContestOption) {
	t.Helper()
	base := []app.ContestOption{
		app.WithClock(func() time.Time { return f.now }),
		app.WithTicker(f.ticks.New),
	}
	f.contest = app.NewContest(testCatalog(t), f.gateway, testTimeLimit, append(base, opts...)...)
}

func (f *fixture) session(t *testing.T, id string) *app.Session {
	t.Helper()
	s := f.contest.NewSession(id)
	t.Cleanup(s.Close)
	go drain(s)
	return s
}

// drain consumes updates for tests that do not inspect them.
func drain(s *app.Session) {
	for range s.Updates() {
	}
}

// win plays key to the registration screen.
func (f *fixture) win(t *testing.T, s *app.Session, index int) {
	t.Helper()
	ctx := context.Background()
	_, err := s.SubmitKey(ctx, testKeys[index])
	require.NoError(t, err)
	correct, err := s.SubmitAnswer(ctx, correctFor(index))
	require.NoError(t, err)
	require.True(t, correct)
}

// failingStore injects errors in front of a record store.
type failingStore[T any] struct {
	app.RecordStore[T]
	insertErr      error
	listErr        error
	deleteSinceErr error
	deleteIDErr    map[string]error
	lookups        int
}

func (s *failingStore[T]) List(ctx context.Context) ([]T, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.RecordStore.List(ctx)
}

func (s *failingStore[T]) FindByKey(ctx context.Context, key string) ([]T, error) {
	s.lookups++
	return s.RecordStore.FindByKey(ctx, key)
}

func (s *failingStore[T]) Insert(ctx context.Context, record T) (T, error) {
	if s.insertErr != nil {
		var zero T
		return zero, s.insertErr
	}
	return s.RecordStore.Insert(ctx, record)
}

func (s *failingStore[T]) DeleteSince(ctx context.Context, since time.Time) error {
	if s.deleteSinceErr != nil {
		return s.deleteSinceErr
	}
	return s.RecordStore.DeleteSince(ctx, since)
}

func (s *failingStore[T]) DeleteByID(ctx context.Context, id string) error {
	if err := s.deleteIDErr[id]; err != nil {
		return err
	}
	return s.RecordStore.DeleteByID(ctx, id)
}

type failingWinners struct {
	app.WinnerStore
	insertErrs     []error
	deleteSinceErr error
	deleteIDErr    map[string]error
}

// Insert fails once per queued error, then passes through.
func (s *failingWinners) Insert(ctx context.Context, winner domain.Winner) (domain.Winner, error) {
	if len(s.insertErrs) > 0 {
		err := s.insertErrs[0]
		s.insertErrs = s.insertErrs[1:]
		return domain.Winner{}, err
	}
	return s.WinnerStore.Insert(ctx, winner)
}

func (s *failingWinners) DeleteSince(ctx context.Context, since time.Time) error {
	if s.deleteSinceErr != nil {
		return s.deleteSinceErr
	}
	return s.WinnerStore.DeleteSince(ctx, since)
}

func (s *failingWinners) DeleteByID(ctx context.Context, id string) error {
	if err := s.deleteIDErr[id]; err != nil {
		return err
	}
	return s.WinnerStore.DeleteByID(ctx, id)
}
