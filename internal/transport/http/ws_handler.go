package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/timer"
)

type WSHandler struct {
	contest  *app.Contest
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(contest *app.Contest, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		contest: contest,
		log:     log.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// outbox serialises writes to one connection. Senders never block once the
// connection is going away.
type outbox struct {
	ch   chan outboundMessage
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newOutbox() *outbox {
	return &outbox{ch: make(chan outboundMessage, 32), done: make(chan struct{})}
}

func (o *outbox) send(msg outboundMessage) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return
	}
	select {
	case o.ch <- msg:
	case <-o.done:
	}
}

func (o *outbox) close() {
	close(o.done)
	o.mu.Lock()
	o.closed = true
	close(o.ch)
	o.mu.Unlock()
}

// ServeWS upgrades the request and runs one participant session over it.
// Passing the same sessionId again resumes the stored session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	log := h.log.With(zap.String("session", sessionID))

	session, err := h.contest.OpenSession(ctx, sessionID)
	if err != nil {
		log.Error("open session failed", zap.Error(err))
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	out := newOutbox()
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range out.ch {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write failed", zap.Error(err))
				// Keep draining so senders are released.
				for range out.ch {
				}
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for u := range session.Updates() {
			out.send(updateMessage(sessionID, u, h.contest))
		}
	}()

	out.send(stateMessage(sessionID, session.State(), session.Remaining(), h.contest))
	gate := h.startGateCountdown(out)

	log.Info("session connected")
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, session, out, inbound); err != nil {
			out.send(errorMessage(err))
		}
	}
	log.Info("session disconnected")

	if gate != nil {
		gate.Stop()
	}
	session.Close()
	<-updatesDone
	out.close()
	<-writerDone
}

// startGateCountdown streams the time left before the contest opens, then a
// single contestOpen message. It returns nil when the contest is already open.
func (h *WSHandler) startGateCountdown(out *outbox) *timer.Countdown {
	gate := h.contest.Gate()
	seconds := gate.SecondsUntilOpen(h.contest.Now())
	if seconds <= 0 {
		return nil
	}
	out.send(countdownMessage(seconds))
	countdown := timer.NewCountdown(seconds,
		func() { out.send(outboundMessage{Type: "contestOpen"}) },
		timer.WithTicker(h.contest.NewTicker),
		timer.WithTickHandler(func(remaining int) {
			if remaining > 0 {
				out.send(countdownMessage(remaining))
			}
		}),
	)
	countdown.Start()
	return countdown
}

func (h *WSHandler) dispatch(ctx context.Context, session *app.Session, out *outbox, inbound inboundMessage) error {
	switch inbound.Type {
	case "submitKey":
		var payload submitKeyPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return err
		}
		_, err := session.SubmitKey(ctx, payload.Key)
		return err
	case "answer":
		var payload answerPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return err
		}
		_, err := session.SubmitAnswer(ctx, payload.Option)
		return err
	case "retry":
		_, err := session.Retry(ctx)
		return err
	case "registerWinner":
		var payload registerWinnerPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return err
		}
		if _, err := session.SubmitWinner(ctx, payload.Name, payload.Department); err != nil {
			return err
		}
		return h.sendWinners(ctx, out)
	case "showWinners":
		if _, err := session.ShowWinners(ctx); err != nil {
			return err
		}
		return h.sendWinners(ctx, out)
	case "reset":
		session.Reset(ctx)
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnsupported, inbound.Type)
	}
}

func (h *WSHandler) sendWinners(ctx context.Context, out *outbox) error {
	winners, err := h.contest.Winners(ctx)
	if err != nil {
		return err
	}
	out.send(outboundMessage{Type: "winners", Payload: winnersPayload{Entries: winners}})
	return nil
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}
