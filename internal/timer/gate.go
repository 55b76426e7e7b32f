package timer

import (
	"math"
	"time"
)

// Breakdown splits a countdown into display units.
type Breakdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Split converts whole seconds into a Breakdown.
func Split(seconds int) Breakdown {
	if seconds < 0 {
		seconds = 0
	}
	return Breakdown{
		Days:    seconds / 86400,
		Hours:   seconds % 86400 / 3600,
		Minutes: seconds % 3600 / 60,
		Seconds: seconds % 60,
	}
}

// Gate holds participants back until the contest start time. A zero start
// time leaves the gate open.
type Gate struct {
	startsAt time.Time
}

func NewGate(startsAt time.Time) Gate {
	return Gate{startsAt: startsAt}
}

// Open reports whether the contest has started at now.
func (g Gate) Open(now time.Time) bool {
	return g.startsAt.IsZero() || !now.Before(g.startsAt)
}

// SecondsUntilOpen rounds up so a gate is never reported open early.
func (g Gate) SecondsUntilOpen(now time.Time) int {
	if g.Open(now) {
		return 0
	}
	return int(math.Ceil(g.startsAt.Sub(now).Seconds()))
}

// Remaining is SecondsUntilOpen split for display.
func (g Gate) Remaining(now time.Time) Breakdown {
	return Split(g.SecondsUntilOpen(now))
}

// StartsAt returns the configured start time.
func (g Gate) StartsAt() time.Time {
	return g.startsAt
}
