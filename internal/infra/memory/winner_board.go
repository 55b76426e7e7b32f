package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/domain"
)

// WinnerBoard caches the winners list in front of any WinnerStore. Concurrent
// misses share one backend call; every write through the board invalidates
// the cached list.
type WinnerBoard struct {
	app.WinnerStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu         sync.Mutex
	cached     []domain.Winner
	loaded     bool
	expiresAt  time.Time
	generation uint64
}

func NewWinnerBoard(store app.WinnerStore, ttl time.Duration) *WinnerBoard {
	return &WinnerBoard{
		WinnerStore: store,
		ttl:         ttl,
		clock:       time.Now,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *WinnerBoard) List(ctx context.Context) ([]domain.Winner, error) {
	if winners, ok := b.fresh(); ok {
		return winners, nil
	}

	result, err, _ := b.sf.Do("winners", func() (interface{}, error) {
		if winners, ok := b.fresh(); ok {
			return winners, nil
		}

		b.mu.Lock()
		generation := b.generation
		b.mu.Unlock()

		winners, err := b.WinnerStore.List(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		// A write that landed while loading makes this result stale.
		if b.generation == generation {
			b.cached = winners
			b.loaded = true
			b.expiresAt = b.clock().Add(b.ttlWithJitter())
		}
		b.mu.Unlock()
		return winners, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneWinners(result.([]domain.Winner)), nil
}

func (b *WinnerBoard) Insert(ctx context.Context, winner domain.Winner) (domain.Winner, error) {
	defer b.invalidate()
	return b.WinnerStore.Insert(ctx, winner)
}

func (b *WinnerBoard) DeleteByID(ctx context.Context, id string) error {
	defer b.invalidate()
	return b.WinnerStore.DeleteByID(ctx, id)
}

func (b *WinnerBoard) DeleteByKey(ctx context.Context, key string) error {
	defer b.invalidate()
	return b.WinnerStore.DeleteByKey(ctx, key)
}

func (b *WinnerBoard) DeleteSince(ctx context.Context, since time.Time) error {
	defer b.invalidate()
	return b.WinnerStore.DeleteSince(ctx, since)
}

func (b *WinnerBoard) fresh() ([]domain.Winner, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded || !b.expiresAt.After(b.clock()) {
		return nil, false
	}
	return cloneWinners(b.cached), true
}

func (b *WinnerBoard) invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cached = nil
	b.loaded = false
	b.generation++
}

func (b *WinnerBoard) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func cloneWinners(in []domain.Winner) []domain.Winner {
	out := make([]domain.Winner, len(in))
	copy(out, in)
	return out
}
