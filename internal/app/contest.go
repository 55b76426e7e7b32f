package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"riddle-hunt-service/internal/domain"
	"riddle-hunt-service/internal/timer"
)

// Contest holds everything sessions share: the catalog, the gateway, the
// riddle time limit and the start gate.
type Contest struct {
	catalog   *domain.Catalog
	gateway   Gateway
	sessions  SessionRepository
	timeLimit int
	gate      timer.Gate
	now       func() time.Time
	newTicker timer.TickerFunc
	log       *zap.Logger
}

// ContestOption customizes a Contest.
type ContestOption func(*Contest)

// WithClock is used by tests for deterministic timestamps and gate checks.
func WithClock(now func() time.Time) ContestOption {
	return func(c *Contest) { c.now = now }
}

// WithTicker swaps the tick source of every riddle timer.
func WithTicker(f timer.TickerFunc) ContestOption {
	return func(c *Contest) { c.newTicker = f }
}

// WithGate holds key submissions back until the gate opens.
func WithGate(g timer.Gate) ContestOption {
	return func(c *Contest) { c.gate = g }
}

// WithSessionRepository enables resuming sessions by ID.
func WithSessionRepository(repo SessionRepository) ContestOption {
	return func(c *Contest) { c.sessions = repo }
}

func WithLogger(log *zap.Logger) ContestOption {
	return func(c *Contest) { c.log = log }
}

func NewContest(catalog *domain.Catalog, gateway Gateway, timeLimit time.Duration, opts ...ContestOption) *Contest {
	c := &Contest{
		catalog:   catalog,
		gateway:   gateway,
		timeLimit: int(timeLimit / time.Second),
		now:       time.Now,
		newTicker: timer.NewRealTicker,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog exposes the riddle catalog.
func (c *Contest) Catalog() *domain.Catalog {
	return c.catalog
}

// Gate exposes the start gate.
func (c *Contest) Gate() timer.Gate {
	return c.gate
}

// Now is the contest clock.
func (c *Contest) Now() time.Time {
	return c.now()
}

// NewTicker is the tick source timers created for this contest should use.
func (c *Contest) NewTicker(d time.Duration) timer.Ticker {
	return c.newTicker(d)
}

// TimeLimitSeconds is the per-riddle answer window.
func (c *Contest) TimeLimitSeconds() int {
	return c.timeLimit
}

// Winners lists every winner, newest first.
func (c *Contest) Winners(ctx context.Context) ([]domain.Winner, error) {
	winners, err := c.gateway.Winners.List(ctx)
	if err != nil {
		c.log.Error("list winners failed", zap.Error(err))
		return nil, fmt.Errorf("list winners: %w: %w", domain.ErrPersistence, err)
	}
	return winners, nil
}

// UnusedKeys counts keys with neither a used-key nor a wrong-attempt record.
func (c *Contest) UnusedKeys(ctx context.Context) (int, error) {
	used, err := c.gateway.UsedKeys.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list used keys: %w: %w", domain.ErrPersistence, err)
	}
	wrong, err := c.gateway.WrongAttempts.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list wrong attempts: %w: %w", domain.ErrPersistence, err)
	}

	taken := make(map[string]struct{}, len(used)+len(wrong))
	for _, r := range used {
		taken[r.UniqueKey] = struct{}{}
	}
	for _, r := range wrong {
		taken[r.UniqueKey] = struct{}{}
	}
	unused := 0
	for _, key := range c.catalog.Keys() {
		if _, ok := taken[key]; !ok {
			unused++
		}
	}
	return unused, nil
}

// NewSession starts a session on the landing page.
func (c *Contest) NewSession(id string) *Session {
	return c.session(id, Landing())
}

// OpenSession resumes the stored state for id, or starts fresh when there is none.
func (c *Contest) OpenSession(ctx context.Context, id string) (*Session, error) {
	if c.sessions == nil || id == "" {
		return c.NewSession(id), nil
	}
	state, err := c.sessions.Load(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return c.NewSession(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w: %w", domain.ErrPersistence, err)
	}
	return c.session(id, state.Resumed()), nil
}

func (c *Contest) session(id string, state State) *Session {
	return &Session{
		id:      id,
		contest: c,
		state:   state,
		updates: make(chan Update, 16),
		log:     c.log.With(zap.String("session", id)),
	}
}

// UpdateKind tags a session update.
type UpdateKind string

const (
	UpdateState     UpdateKind = "state"
	UpdateTick      UpdateKind = "tick"
	UpdateCelebrate UpdateKind = "celebrate"
)

// Update is pushed to the session's consumer whenever something changes.
type Update struct {
	Kind      UpdateKind
	State     State
	Remaining int
}

// Session is one participant's run through the contest. All methods are safe
// for concurrent use; the riddle timer delivers its expiry on its own goroutine.
type Session struct {
	id      string
	contest *Contest
	log     *zap.Logger

	mu    sync.Mutex
	state State
	timer *timer.Countdown

	pubMu   sync.Mutex
	updates chan Update
	closed  bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Riddle returns the riddle bound to the session's key, if any.
func (s *Session) Riddle() (domain.Riddle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Key == "" {
		return domain.Riddle{}, false
	}
	return s.contest.catalog.Riddle(s.state.RiddleIndex)
}

// Remaining returns the seconds left on the riddle timer.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

// Updates delivers state changes, timer ticks and celebrations. When the
// consumer falls behind the oldest update is dropped.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// SubmitKey validates a key and, when it is fresh, starts its riddle.
// A key with a wrong attempt on record lands on the blocked view without an error.
func (s *Session) SubmitKey(ctx context.Context, raw string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Screen != ScreenLanding {
		return s.state, domain.ErrInvalidTransition
	}
	if !s.contest.gate.Open(s.contest.now()) {
		return s.state, domain.ErrContestNotStarted
	}
	key := domain.NormalizeKey(raw)
	index, _, ok := s.contest.catalog.Lookup(key)
	if !ok {
		return s.state, domain.ErrInvalidKey
	}

	used, err := s.contest.gateway.UsedKeys.FindByKey(ctx, key)
	if err != nil {
		s.log.Error("used key lookup failed", zap.String("key", key), zap.Error(err))
		return s.state, fmt.Errorf("check used keys: %w: %w", domain.ErrPersistence, err)
	}
	if len(used) > 0 {
		return s.state, domain.ErrKeyAlreadyUsed
	}

	blocked := s.state.BlockedInSession(key)
	if !blocked {
		wrong, err := s.contest.gateway.WrongAttempts.FindByKey(ctx, key)
		if err != nil {
			s.log.Error("wrong attempt lookup failed", zap.String("key", key), zap.Error(err))
			return s.state, fmt.Errorf("check wrong attempts: %w: %w", domain.ErrPersistence, err)
		}
		blocked = len(wrong) > 0
	}

	var next State
	if blocked {
		next, err = s.state.EnterBlocked(key, index)
	} else {
		next, err = s.state.EnterRiddle(key, index)
	}
	if err != nil {
		return s.state, err
	}
	s.state = next
	if !blocked {
		s.armTimerLocked()
	}
	s.log.Info("key accepted", zap.String("key", key), zap.Int("riddle", index), zap.Bool("blocked", blocked))
	s.commitLocked(ctx)
	return s.state, nil
}

// SubmitAnswer stops the timer and checks the option. A wrong answer blocks
// the key; recording that is best-effort.
func (s *Session) SubmitAnswer(ctx context.Context, option int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.state.Answer(option, false); err != nil {
		return false, err
	}
	riddle, ok := s.contest.catalog.Riddle(s.state.RiddleIndex)
	if !ok {
		return false, domain.ErrInvalidTransition
	}
	if option < 0 || option >= len(riddle.Options) {
		return false, domain.ErrInvalidOption
	}
	if s.timer == nil || !s.timer.Stop() {
		return false, domain.ErrTimeExpired
	}

	correct := riddle.IsCorrect(option)
	next, err := s.state.Answer(option, correct)
	if err != nil {
		return false, err
	}

	if !correct {
		_, err := s.contest.gateway.WrongAttempts.Insert(ctx, domain.WrongAttempt{
			UniqueKey:   s.state.Key,
			AttemptedAt: s.contest.now().UTC(),
		})
		if err != nil {
			s.log.Warn("failed to record wrong attempt", zap.String("key", s.state.Key), zap.Error(err))
		}
	}

	s.state = next
	s.log.Info("answer submitted", zap.String("key", s.state.Key), zap.Bool("correct", correct))
	s.commitLocked(ctx)
	if correct {
		s.publish(Update{Kind: UpdateCelebrate, State: s.state})
	}
	return correct, nil
}

// Retry re-arms the timer after an expiration.
func (s *Session) Retry(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.Retry()
	if err != nil {
		return s.state, err
	}
	s.state = next
	s.armTimerLocked()
	s.commitLocked(ctx)
	return s.state, nil
}

// SubmitWinner registers the participant. The used-key record is written
// first; without it no winner is ever written.
func (s *Session) SubmitWinner(ctx context.Context, name, department string) (domain.Winner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Screen != ScreenWinnerRegistration {
		return domain.Winner{}, domain.ErrInvalidTransition
	}
	name = strings.TrimSpace(name)
	department = strings.TrimSpace(department)
	if name == "" || department == "" {
		return domain.Winner{}, domain.ErrMissingWinnerDetails
	}

	now := s.contest.now().UTC()
	key := s.state.Key
	if err := s.claimKeyLocked(ctx, key, now); err != nil {
		return domain.Winner{}, err
	}

	winner, err := s.contest.gateway.Winners.Insert(ctx, domain.Winner{
		Name:        name,
		Department:  department,
		UniqueKey:   key,
		RiddleIndex: s.state.RiddleIndex,
		CompletedAt: now,
	})
	if err != nil {
		s.log.Error("failed to save winner", zap.String("key", key), zap.Error(err))
		return domain.Winner{}, fmt.Errorf("save winner: %w: %w", domain.ErrPersistence, err)
	}

	next, err := s.state.Registered()
	if err != nil {
		return winner, err
	}
	s.state = next
	s.log.Info("winner registered", zap.String("key", key), zap.String("winner", winner.ID))
	s.commitLocked(ctx)
	return winner, nil
}

// claimKeyLocked makes sure the used-key record this session wrote for key
// still exists, writing it when it does not. A retry after a failed winner
// insert re-checks the store: an admin purge or reset may have removed the
// record in between, and another session may have claimed the key since.
func (s *Session) claimKeyLocked(ctx context.Context, key string, now time.Time) error {
	if id := s.state.UsedKeyID; id != "" {
		records, err := s.contest.gateway.UsedKeys.FindByKey(ctx, key)
		if err != nil {
			s.log.Error("used key lookup failed", zap.String("key", key), zap.Error(err))
			return fmt.Errorf("check used key: %w: %w", domain.ErrPersistence, err)
		}
		for _, r := range records {
			if r.ID == id {
				return nil
			}
		}
		if len(records) > 0 {
			s.log.Warn("key claimed by another session", zap.String("key", key))
			return domain.ErrKeyAlreadyUsed
		}
		s.log.Warn("used key record disappeared, claiming again", zap.String("key", key))
	}

	record, err := s.contest.gateway.UsedKeys.Insert(ctx, domain.UsedKey{UniqueKey: key, UsedAt: now})
	if errors.Is(err, domain.ErrDuplicateRecord) {
		s.log.Warn("key consumed by another session", zap.String("key", key))
		return domain.ErrKeyAlreadyUsed
	}
	if err != nil {
		s.log.Error("failed to mark key used", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("mark key used: %w: %w", domain.ErrPersistence, err)
	}
	s.state = s.state.MarkKeyConsumed(record.ID)
	s.commitLocked(ctx)
	return nil
}

// ShowWinners navigates to the winners list.
func (s *Session) ShowWinners(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.ShowWinners()
	if err != nil {
		return s.state, err
	}
	s.state = next
	s.commitLocked(ctx)
	return s.state, nil
}

// Reset stops any running timer and returns to the landing page.
func (s *Session) Reset(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.state = s.state.Reset()
	s.commitLocked(ctx)
	return s.state
}

// Close stops the timer and ends the update stream. The stored state is kept
// so the participant can reconnect.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.updates)
	}
}

func (s *Session) onTimerExpired(attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.state.Expire(attempt)
	if !ok {
		return
	}
	s.state = next
	s.log.Info("riddle timer expired", zap.String("key", s.state.Key))
	s.commitLocked(context.Background())
}

func (s *Session) armTimerLocked() {
	s.stopTimerLocked()
	attempt := s.state.Attempt
	s.timer = timer.NewCountdown(s.contest.timeLimit,
		func() { s.onTimerExpired(attempt) },
		timer.WithTicker(s.contest.newTicker),
		timer.WithTickHandler(func(remaining int) {
			s.publish(Update{Kind: UpdateTick, Remaining: remaining})
		}),
	)
	s.timer.Start()
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Session) remainingLocked() int {
	if s.timer == nil {
		return 0
	}
	switch s.state.Screen {
	case ScreenRiddleActive, ScreenRiddleExpired:
		return s.timer.Remaining()
	}
	return 0
}

// commitLocked stores the state and notifies the consumer.
func (s *Session) commitLocked(ctx context.Context) {
	if s.contest.sessions != nil && s.id != "" {
		if err := s.contest.sessions.Save(ctx, s.id, s.state); err != nil {
			s.log.Warn("failed to store session", zap.Error(err))
		}
	}
	s.publish(Update{Kind: UpdateState, State: s.state, Remaining: s.remainingLocked()})
}

func (s *Session) publish(u Update) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.updates <- u:
			return
		default:
		}
		// Drop the oldest update so a slow reader never blocks the session.
		select {
		case <-s.updates:
		default:
		}
	}
}
