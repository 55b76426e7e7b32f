package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/config"
	"riddle-hunt-service/internal/domain"
	"riddle-hunt-service/internal/infra/memory"
	"riddle-hunt-service/internal/timer"
)

func TestWinningFlowRegistersWinnerAndConsumesKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.contest.NewSession("s-1")
	defer s.Close()

	state, err := s.SubmitKey(ctx, " gabi2025hunt20 ")
	require.NoError(t, err)
	require.Equal(t, app.ScreenRiddleActive, state.Screen)
	require.Equal(t, "GABI2025HUNT20", state.Key)
	require.Equal(t, 0, state.RiddleIndex)
	require.Equal(t, 1, f.ticks.Running())

	correct, err := s.SubmitAnswer(ctx, 1)
	require.NoError(t, err)
	require.True(t, correct)
	require.Equal(t, app.ScreenWinnerRegistration, s.State().Screen)
	require.Eventually(t, func() bool { return f.ticks.Running() == 0 }, time.Second, 5*time.Millisecond,
		"answering stops the timer")

	var kinds []app.UpdateKind
	for len(s.Updates()) > 0 {
		kinds = append(kinds, (<-s.Updates()).Kind)
	}
	require.Contains(t, kinds, app.UpdateCelebrate)

	winner, err := s.SubmitWinner(ctx, "  Ada ", "Eng")
	require.NoError(t, err)
	require.Equal(t, "Ada", winner.Name)
	require.Equal(t, "Eng", winner.Department)
	require.Equal(t, "GABI2025HUNT20", winner.UniqueKey)
	require.Equal(t, 0, winner.RiddleIndex)
	require.Equal(t, f.now, winner.CompletedAt)
	require.Equal(t, app.ScreenWinnersList, s.State().Screen)

	winners, err := f.contest.Winners(ctx)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	used, err := f.gateway.UsedKeys.FindByKey(ctx, "GABI2025HUNT20")
	require.NoError(t, err)
	require.Len(t, used, 1)

	other := f.session(t, "s-2")
	state, err = other.SubmitKey(ctx, "GABI2025HUNT20")
	require.ErrorIs(t, err, domain.ErrKeyAlreadyUsed)
	require.Equal(t, app.ScreenLanding, state.Screen)
}

func TestSubmitKeyRejectsUnknownKeyWithoutGatewayCalls(t *testing.T) {
	f := newFixture(t)
	used := &failingStore[domain.UsedKey]{RecordStore: f.tables.UsedKeys}
	wrong := &failingStore[domain.WrongAttempt]{RecordStore: f.tables.WrongAttempts}
	f.gateway.UsedKeys = used
	f.gateway.WrongAttempts = wrong
	f.build(t)
	s := f.session(t, "s-1")

	state, err := s.SubmitKey(context.Background(), "NOT-A-KEY")
	require.ErrorIs(t, err, domain.ErrInvalidKey)
	require.Equal(t, app.ScreenLanding, state.Screen)
	require.Zero(t, f.ticks.Created())
	require.Zero(t, used.lookups)
	require.Zero(t, wrong.lookups)
}

func TestSubmitKeyBeforeContestStart(t *testing.T) {
	f := newFixture(t)
	f.build(t, app.WithGate(timer.NewGate(f.now.Add(time.Hour))))
	s := f.session(t, "s-1")

	_, err := s.SubmitKey(context.Background(), testKeys[0])
	require.ErrorIs(t, err, domain.ErrContestNotStarted)

	f.now = f.now.Add(time.Hour)
	_, err = s.SubmitKey(context.Background(), testKeys[0])
	require.NoError(t, err)
}

func TestWrongAnswerBlocksKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, "s-1")

	_, err := s.SubmitKey(ctx, testKeys[2])
	require.NoError(t, err)
	correct, err := s.SubmitAnswer(ctx, wrongFor(2))
	require.NoError(t, err)
	require.False(t, correct)
	require.Equal(t, app.ScreenBlocked, s.State().Screen)

	_, err = s.SubmitAnswer(ctx, correctFor(2))
	require.ErrorIs(t, err, domain.ErrKeyBlocked)
	require.Equal(t, 1, f.tables.WrongAttempts.Len(), "no second wrong attempt is written")

	other := f.session(t, "s-2")
	state, err := other.SubmitKey(ctx, testKeys[2])
	require.NoError(t, err)
	require.Equal(t, app.ScreenBlocked, state.Screen)
	require.Zero(t, f.tables.UsedKeys.Len())
}

func TestWrongAttemptWriteFailureStillBlocksInSession(t *testing.T) {
	f := newFixture(t)
	f.gateway.WrongAttempts = &failingStore[domain.WrongAttempt]{
		RecordStore: f.tables.WrongAttempts,
		insertErr:   errors.New("connection refused"),
	}
	f.build(t)
	ctx := context.Background()
	s := f.session(t, "s-1")

	_, err := s.SubmitKey(ctx, testKeys[1])
	require.NoError(t, err)
	correct, err := s.SubmitAnswer(ctx, wrongFor(1))
	require.NoError(t, err, "recording the wrong attempt is best-effort")
	require.False(t, correct)
	require.Zero(t, f.tables.WrongAttempts.Len())

	s.Reset(ctx)
	state, err := s.SubmitKey(ctx, testKeys[1])
	require.NoError(t, err)
	require.Equal(t, app.ScreenBlocked, state.Screen)
}

func TestInvalidOptionKeepsTimerRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, "s-1")

	_, err := s.SubmitKey(ctx, testKeys[0])
	require.NoError(t, err)

	_, err = s.SubmitAnswer(ctx, domain.OptionCount)
	require.ErrorIs(t, err, domain.ErrInvalidOption)
	_, err = s.SubmitAnswer(ctx, -1)
	require.ErrorIs(t, err, domain.ErrInvalidOption)
	require.Equal(t, app.ScreenRiddleActive, s.State().Screen)
	require.Equal(t, 1, f.ticks.Running())
}

func TestTimerExpiryThenRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, "s-1")

	_, err := s.SubmitKey(ctx, testKeys[4])
	require.NoError(t, err)
	first := s.State().Attempt

	require.True(t, f.ticks.Tick())
	require.Eventually(t, func() bool { return s.Remaining() == 2 }, time.Second, 5*time.Millisecond)
	require.True(t, f.ticks.Tick())
	require.True(t, f.ticks.Tick())
	require.Eventually(t, func() bool {
		return s.State().Screen == app.ScreenRiddleExpired
	}, time.Second, 5*time.Millisecond)

	_, err = s.SubmitAnswer(ctx, correctFor(4))
	require.ErrorIs(t, err, domain.ErrTimeExpired)
	require.Zero(t, f.tables.WrongAttempts.Len(), "expiry records nothing")

	state, err := s.Retry(ctx)
	require.NoError(t, err)
	require.Equal(t, app.ScreenRiddleActive, state.Screen)
	require.Equal(t, first+1, state.Attempt)
	require.Equal(t, 3, s.Remaining())

	correct, err := s.SubmitAnswer(ctx, correctFor(4))
	require.NoError(t, err)
	require.True(t, correct)
}

func TestRetryOnlyAfterExpiry(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, "s-1")

	_, err := s.Retry(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestResetStopsTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, "s-1")

	_, err := s.SubmitKey(ctx, testKeys[0])
	require.NoError(t, err)
	state := s.Reset(ctx)
	require.Equal(t, app.ScreenLanding, state.Screen)
	require.Eventually(t, func() bool { return f.ticks.Running() == 0 }, time.Second, 5*time.Millisecond)
	require.False(t, f.ticks.Tick())
	require.Equal(t, app.ScreenLanding, s.State().Screen)
}

func TestSubmitWinnerRequiresDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, "s-1")
	f.win(t, s, 0)

	_, err := s.SubmitWinner(ctx, "Ada", "   ")
	require.ErrorIs(t, err, domain.ErrMissingWinnerDetails)
	_, err = s.SubmitWinner(ctx, "", "Eng")
	require.ErrorIs(t, err, domain.ErrMissingWinnerDetails)
	require.Equal(t, app.ScreenWinnerRegistration, s.State().Screen)
	require.Zero(t, f.tables.UsedKeys.Len())
}

func TestUsedKeyFailureWritesNoWinner(t *testing.T) {
	f := newFixture(t)
	f.gateway.UsedKeys = &failingStore[domain.UsedKey]{
		RecordStore: f.tables.UsedKeys,
		insertErr:   errors.New("timeout"),
	}
	f.build(t)
	ctx := context.Background()
	s := f.session(t, "s-1")
	f.win(t, s, 0)

	_, err := s.SubmitWinner(ctx, "Ada", "Eng")
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.Equal(t, app.ScreenWinnerRegistration, s.State().Screen)

	winners, err := f.contest.Winners(ctx)
	require.NoError(t, err)
	require.Empty(t, winners)
}

func TestSecondWinnerForSameKeyIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.session(t, "s-1")
	second := f.session(t, "s-2")

	f.win(t, first, 3)
	f.win(t, second, 3)

	_, err := first.SubmitWinner(ctx, "Ada", "Eng")
	require.NoError(t, err)
	_, err = second.SubmitWinner(ctx, "Grace", "Ops")
	require.ErrorIs(t, err, domain.ErrKeyAlreadyUsed)

	winners, err := f.contest.Winners(ctx)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	require.Equal(t, "Ada", winners[0].Name)
}

func TestShowWinnersFromLanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, "s-1")

	state, err := s.ShowWinners(ctx)
	require.NoError(t, err)
	require.Equal(t, app.ScreenWinnersList, state.Screen)

	_, err = s.SubmitKey(ctx, testKeys[0])
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	s.Reset(ctx)
	_, err = s.SubmitKey(ctx, testKeys[0])
	require.NoError(t, err)
	_, err = s.ShowWinners(ctx)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestOpenSessionResumesStoredState(t *testing.T) {
	sessions := memory.NewSessionStore()
	f := newFixture(t)
	f.build(t, app.WithSessionRepository(sessions))
	ctx := context.Background()

	s, err := f.contest.OpenSession(ctx, "s-1")
	require.NoError(t, err)
	go drain(s)
	_, err = s.SubmitKey(ctx, testKeys[5])
	require.NoError(t, err)
	s.Close()

	resumed, err := f.contest.OpenSession(ctx, "s-1")
	require.NoError(t, err)
	defer resumed.Close()
	state := resumed.State()
	require.Equal(t, app.ScreenRiddleExpired, state.Screen)
	require.Equal(t, testKeys[5], state.Key)

	go drain(resumed)
	_, err = resumed.Retry(ctx)
	require.NoError(t, err)
	correct, err := resumed.SubmitAnswer(ctx, correctFor(5))
	require.NoError(t, err)
	require.True(t, correct)
}

func TestUnusedKeysCountsUsedAndBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unused, err := f.contest.UnusedKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.KeyCount, unused)

	winner := f.session(t, "s-1")
	f.win(t, winner, 0)
	_, err = winner.SubmitWinner(ctx, "Ada", "Eng")
	require.NoError(t, err)

	loser := f.session(t, "s-2")
	_, err = loser.SubmitKey(ctx, testKeys[1])
	require.NoError(t, err)
	_, err = loser.SubmitAnswer(ctx, wrongFor(1))
	require.NoError(t, err)

	unused, err = f.contest.UnusedKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.KeyCount-2, unused)
}

func TestShippedCatalogEndToEnd(t *testing.T) {
	cfg, err := config.Load("../../config/config.yaml")
	require.NoError(t, err)
	catalog, err := domain.NewCatalog(cfg.Contest.Entries)
	require.NoError(t, err)

	tables := memory.NewTables()
	contest := app.NewContest(catalog, tables.Gateway(), cfg.Contest.TimeLimit(), app.WithTicker(timer.NewManualTicks().New))
	s := contest.NewSession("s-1")
	defer s.Close()
	ctx := context.Background()

	_, err = s.SubmitKey(ctx, "GABI2025HUNT20")
	require.NoError(t, err)
	riddle, ok := s.Riddle()
	require.True(t, ok)
	require.True(t, strings.HasPrefix(riddle.Prompt, "Without a mouth"))
	require.Equal(t, 45, s.Remaining())

	correct, err := s.SubmitAnswer(ctx, 1)
	require.NoError(t, err)
	require.True(t, correct)
	_, err = s.SubmitWinner(ctx, "Ada", "Eng")
	require.NoError(t, err)

	winners, err := contest.Winners(ctx)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	require.Equal(t, "GABI2025HUNT20", winners[0].UniqueKey)
	require.Equal(t, 0, winners[0].RiddleIndex)
}

func newFlakyWinnersFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.gateway.Winners = &failingWinners{
		WinnerStore: f.tables.Winners,
		insertErrs:  []error{errors.New("timeout")},
	}
	f.build(t)
	return f
}

func TestWinnerRetryReusesOwnUsedKey(t *testing.T) {
	f := newFlakyWinnersFixture(t)
	ctx := context.Background()
	s := f.session(t, "s-1")
	f.win(t, s, 0)

	_, err := s.SubmitWinner(ctx, "Ada", "Eng")
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.Equal(t, 1, f.tables.UsedKeys.Len())
	require.NotEmpty(t, s.State().UsedKeyID)

	_, err = s.SubmitWinner(ctx, "Ada", "Eng")
	require.NoError(t, err)
	require.Equal(t, 1, f.tables.UsedKeys.Len())
	require.Equal(t, 1, f.tables.Winners.Len())
}

func TestWinnerRetryAfterPurgeClaimsKeyAgain(t *testing.T) {
	f := newFlakyWinnersFixture(t)
	ctx := context.Background()
	admin := app.NewAdmin(f.gateway, adminPassword, nil)
	s := f.session(t, "s-1")
	f.win(t, s, 0)

	_, err := s.SubmitWinner(ctx, "Ada", "Eng")
	require.ErrorIs(t, err, domain.ErrPersistence)
	_, err = admin.PurgeAll(ctx, adminPassword)
	require.NoError(t, err)
	require.Zero(t, f.tables.UsedKeys.Len())

	winner, err := s.SubmitWinner(ctx, "Ada", "Eng")
	require.NoError(t, err)
	require.Equal(t, 1, f.tables.UsedKeys.Len(), "a winner is never written without its used-key record")
	require.Equal(t, 1, f.tables.Winners.Len())

	used, err := f.gateway.UsedKeys.FindByKey(ctx, winner.UniqueKey)
	require.NoError(t, err)
	require.Len(t, used, 1)
}

func TestWinnerRetryAfterKeyReclaimedElsewhere(t *testing.T) {
	f := newFlakyWinnersFixture(t)
	ctx := context.Background()
	admin := app.NewAdmin(f.gateway, adminPassword, nil)
	s := f.session(t, "s-1")
	f.win(t, s, 0)

	_, err := s.SubmitWinner(ctx, "Ada", "Eng")
	require.ErrorIs(t, err, domain.ErrPersistence)
	_, err = admin.PurgeAll(ctx, adminPassword)
	require.NoError(t, err)

	other := f.session(t, "s-2")
	f.win(t, other, 0)
	_, err = other.SubmitWinner(ctx, "Grace", "Ops")
	require.NoError(t, err)

	_, err = s.SubmitWinner(ctx, "Ada", "Eng")
	require.ErrorIs(t, err, domain.ErrKeyAlreadyUsed)
	winners, err := f.contest.Winners(ctx)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	require.Equal(t, "Grace", winners[0].Name)
}
