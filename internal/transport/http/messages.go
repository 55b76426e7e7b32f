package http

import (
	"encoding/json"
	"errors"

	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/domain"
	"riddle-hunt-service/internal/timer"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitKeyPayload struct {
	Key string `json:"key"`
}

type answerPayload struct {
	Option int `json:"option"`
}

type registerWinnerPayload struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type riddleView struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// statePayload is what the browser renders. The correct option never leaves
// the server.
type statePayload struct {
	SessionID string      `json:"sessionId"`
	Screen    app.Screen  `json:"screen"`
	Key       string      `json:"key,omitempty"`
	Riddle    *riddleView `json:"riddle,omitempty"`
	Remaining int         `json:"remaining"`
	TimeLimit int         `json:"timeLimit"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type winnersPayload struct {
	Entries []domain.Winner `json:"entries"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	errBadPayload  = errors.New("invalid message payload")
	errUnsupported = errors.New("unsupported message type")
)

func stateMessage(sessionID string, state app.State, remaining int, contest *app.Contest) outboundMessage {
	payload := statePayload{
		SessionID: sessionID,
		Screen:    state.Screen,
		Key:       state.Key,
		Remaining: remaining,
		TimeLimit: contest.TimeLimitSeconds(),
	}
	switch state.Screen {
	case app.ScreenRiddleActive, app.ScreenRiddleExpired:
		if riddle, ok := contest.Catalog().Riddle(state.RiddleIndex); ok {
			payload.Riddle = &riddleView{Index: state.RiddleIndex, Prompt: riddle.Prompt, Options: riddle.Options}
		}
	}
	return outboundMessage{Type: "state", Payload: payload}
}

func updateMessage(sessionID string, u app.Update, contest *app.Contest) outboundMessage {
	switch u.Kind {
	case app.UpdateTick:
		return outboundMessage{Type: "tick", Payload: tickPayload{Remaining: u.Remaining}}
	case app.UpdateCelebrate:
		return outboundMessage{Type: "celebrate"}
	default:
		return stateMessage(sessionID, u.State, u.Remaining, contest)
	}
}

func countdownMessage(remaining int) outboundMessage {
	return outboundMessage{Type: "countdown", Payload: timer.Split(remaining)}
}

func errorMessage(err error) outboundMessage {
	code := domain.ErrorCode(err)
	switch {
	case errors.Is(err, errBadPayload):
		code = "invalid_payload"
	case errors.Is(err, errUnsupported):
		code = "unsupported_message"
	}
	return outboundMessage{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}}
}
