package domain

import "errors"

var (
	// ErrInvalidKey is returned when a submitted key is not part of the contest key set.
	ErrInvalidKey = errors.New("invalid unique key")
	// ErrKeyAlreadyUsed is returned when a key has already produced a winner.
	ErrKeyAlreadyUsed = errors.New("key has already been used")
	// ErrKeyBlocked is returned when a key has a recorded wrong attempt.
	ErrKeyBlocked = errors.New("key is blocked after a wrong attempt")
	// ErrContestNotStarted is returned for key submissions before the contest start time.
	ErrContestNotStarted = errors.New("contest has not started yet")
	// ErrInvalidOption indicates an answer index outside the riddle options.
	ErrInvalidOption = errors.New("option not found")
	// ErrTimeExpired is returned for answers that arrive after the riddle timer ran out.
	ErrTimeExpired = errors.New("riddle time is up")
	// ErrInvalidTransition is returned when an action is not allowed on the current screen.
	ErrInvalidTransition = errors.New("action not allowed in current state")
	// ErrMissingWinnerDetails is returned when name or department is blank.
	ErrMissingWinnerDetails = errors.New("name and department are required")
	// ErrPersistence wraps every failure coming from a gateway backend.
	ErrPersistence = errors.New("persistence failure")
	// ErrDuplicateRecord is returned by gateways when a per-key record already exists.
	ErrDuplicateRecord = errors.New("record already exists for key")
	// ErrConfigurationInvalid blocks startup when the contest configuration is inconsistent.
	ErrConfigurationInvalid = errors.New("configuration invalid")
	// ErrUnauthorized is returned when the admin password does not match.
	ErrUnauthorized = errors.New("incorrect password")
	// ErrWinnerNotFound indicates a winner ID that does not exist.
	ErrWinnerNotFound = errors.New("winner not found")
	// ErrSessionNotFound is returned when no snapshot exists for a session ID.
	ErrSessionNotFound = errors.New("contest session not found")
)

// ErrorCode maps sentinel errors to the stable codes sent to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrKeyAlreadyUsed):
		return "key_already_used"
	case errors.Is(err, ErrKeyBlocked):
		return "key_blocked"
	case errors.Is(err, ErrContestNotStarted):
		return "contest_not_started"
	case errors.Is(err, ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, ErrTimeExpired):
		return "time_expired"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrMissingWinnerDetails):
		return "missing_winner_details"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrWinnerNotFound):
		return "winner_not_found"
	case errors.Is(err, ErrConfigurationInvalid):
		return "configuration_invalid"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	default:
		return "internal"
	}
}
