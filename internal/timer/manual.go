package timer

import (
	"sync"
	"time"
)

// ManualTicks is a TickerFunc source whose tickers only fire on Tick. It lets
// tests drive countdowns second by second.
type ManualTicks struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

type manualTicker struct {
	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

func NewManualTicks() *ManualTicks {
	return &ManualTicks{}
}

// New satisfies TickerFunc.
func (m *ManualTicks) New(time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	m.mu.Lock()
	m.tickers = append(m.tickers, t)
	m.mu.Unlock()
	return t
}

// Tick delivers one tick to the newest ticker. It returns false when that
// ticker was stopped or nobody received the tick within a second.
func (m *ManualTicks) Tick() bool {
	m.mu.Lock()
	if len(m.tickers) == 0 {
		m.mu.Unlock()
		return false
	}
	t := m.tickers[len(m.tickers)-1]
	m.mu.Unlock()

	select {
	case <-t.stopped:
		return false
	default:
	}
	select {
	case t.ch <- time.Now():
		return true
	case <-t.stopped:
		return false
	case <-time.After(time.Second):
		return false
	}
}

// Running counts tickers that have not been stopped.
func (m *ManualTicks) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		select {
		case <-t.stopped:
		default:
			n++
		}
	}
	return n
}

// Created counts every ticker handed out so far.
func (m *ManualTicks) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}
