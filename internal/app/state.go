package app

import (
	"slices"

	"riddle-hunt-service/internal/domain"
)

// Screen tags the variant of State.
type Screen string

const (
	ScreenLanding            Screen = "landing"
	ScreenRiddleActive       Screen = "riddle"
	ScreenRiddleExpired      Screen = "expired"
	ScreenBlocked            Screen = "blocked"
	ScreenWinnerRegistration Screen = "register"
	ScreenWinnersList        Screen = "winners"
)

const noSelection = -1

// State is the whole participant-facing state of one session. It only
// changes through the transition methods below, which are pure: they return
// a new value and never touch the gateway or the timer.
type State struct {
	Screen      Screen `json:"screen"`
	Key         string `json:"key,omitempty"`
	RiddleIndex int    `json:"riddleIndex"`
	Selected    int    `json:"selected"`
	// Attempt increases every time the riddle timer is armed, so expirations
	// from an earlier arm can be told apart.
	Attempt int `json:"attempt"`
	// UsedKeyID is the used-key record this session wrote for Key.
	UsedKeyID string `json:"usedKeyId,omitempty"`
	// BlockedKeys survive Reset: a key blocked in this session stays blocked
	// even if recording the wrong attempt failed.
	BlockedKeys []string `json:"blockedKeys,omitempty"`
}

// Landing is the initial state.
func Landing() State {
	return State{Screen: ScreenLanding, Selected: noSelection}
}

// EnterRiddle binds a fresh key to its riddle and arms a new attempt.
func (s State) EnterRiddle(key string, riddleIndex int) (State, error) {
	if s.Screen != ScreenLanding {
		return s, domain.ErrInvalidTransition
	}
	return State{
		Screen:      ScreenRiddleActive,
		Key:         key,
		RiddleIndex: riddleIndex,
		Selected:    noSelection,
		Attempt:     s.Attempt + 1,
		BlockedKeys: s.BlockedKeys,
	}, nil
}

// EnterBlocked shows the access-denied view for a key with a wrong attempt on record.
func (s State) EnterBlocked(key string, riddleIndex int) (State, error) {
	if s.Screen != ScreenLanding {
		return s, domain.ErrInvalidTransition
	}
	return State{
		Screen:      ScreenBlocked,
		Key:         key,
		RiddleIndex: riddleIndex,
		Selected:    noSelection,
		Attempt:     s.Attempt,
		BlockedKeys: withKey(s.BlockedKeys, key),
	}, nil
}

// Expire moves an active riddle to the expired view. It reports false for
// expirations that belong to an older attempt or arrive in another screen.
func (s State) Expire(attempt int) (State, bool) {
	if s.Screen != ScreenRiddleActive || s.Attempt != attempt {
		return s, false
	}
	s.Screen = ScreenRiddleExpired
	return s, true
}

// Retry re-arms the same key and riddle after an expiration.
func (s State) Retry() (State, error) {
	if s.Screen != ScreenRiddleExpired {
		return s, domain.ErrInvalidTransition
	}
	s.Screen = ScreenRiddleActive
	s.Selected = noSelection
	s.Attempt++
	return s, nil
}

// Answer records the selected option and its correctness.
func (s State) Answer(option int, correct bool) (State, error) {
	switch s.Screen {
	case ScreenRiddleActive:
	case ScreenBlocked:
		return s, domain.ErrKeyBlocked
	case ScreenRiddleExpired:
		return s, domain.ErrTimeExpired
	default:
		return s, domain.ErrInvalidTransition
	}
	s.Selected = option
	if correct {
		s.Screen = ScreenWinnerRegistration
		return s, nil
	}
	s.Screen = ScreenBlocked
	s.BlockedKeys = withKey(s.BlockedKeys, s.Key)
	return s, nil
}

// MarkKeyConsumed remembers the used-key record written for this key.
func (s State) MarkKeyConsumed(recordID string) State {
	s.UsedKeyID = recordID
	return s
}

// Registered completes the flow.
func (s State) Registered() (State, error) {
	if s.Screen != ScreenWinnerRegistration {
		return s, domain.ErrInvalidTransition
	}
	return State{
		Screen:      ScreenWinnersList,
		Selected:    noSelection,
		Attempt:     s.Attempt,
		BlockedKeys: s.BlockedKeys,
	}, nil
}

// ShowWinners is the navigation shortcut from the landing page.
func (s State) ShowWinners() (State, error) {
	if s.Screen != ScreenLanding && s.Screen != ScreenWinnersList {
		return s, domain.ErrInvalidTransition
	}
	return State{
		Screen:      ScreenWinnersList,
		Selected:    noSelection,
		Attempt:     s.Attempt,
		BlockedKeys: s.BlockedKeys,
	}, nil
}

// Reset returns to the landing page from any state.
func (s State) Reset() State {
	next := Landing()
	next.Attempt = s.Attempt
	next.BlockedKeys = s.BlockedKeys
	return next
}

// Resumed adapts a stored state for a reconnecting session. A running timer
// cannot be carried over, so an active riddle comes back expired.
func (s State) Resumed() State {
	if s.Screen == ScreenRiddleActive {
		s.Screen = ScreenRiddleExpired
	}
	if s.Screen == "" {
		return Landing()
	}
	return s
}

// BlockedInSession reports whether key was blocked earlier in this session.
func (s State) BlockedInSession(key string) bool {
	return slices.Contains(s.BlockedKeys, key)
}

func withKey(keys []string, key string) []string {
	if slices.Contains(keys, key) {
		return keys
	}
	out := make([]string, len(keys), len(keys)+1)
	copy(out, keys)
	return append(out, key)
}
