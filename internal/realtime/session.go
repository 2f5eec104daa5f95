package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 64
)

// laneTimer is a running countdown for one lane.
type laneTimer struct {
	end    int64
	cancel context.CancelFunc
}

// failedExpiry identifies a countdown whose completion could not be written.
type failedExpiry struct {
	lane domain.Lane
	end  int64
}

// Session streams one user's document and countdowns over a websocket.
type Session struct {
	hub     *Hub
	userID  string
	conn    *websocket.Conn
	send    chan []byte
	changes chan struct{}
	failed  chan failedExpiry
	log     *slog.Logger

	cancel context.CancelFunc

	// owned by the run loop
	timers   map[domain.Lane]laneTimer
	timersWG sync.WaitGroup
}

func newSession(h *Hub, userID string, conn *websocket.Conn) *Session {
	return &Session{
		hub:     h,
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		changes: make(chan struct{}, 1),
		failed:  make(chan failedExpiry),
		log:     h.log.With("user_id", userID),
		timers:  make(map[domain.Lane]laneTimer),
	}
}

func (s *Session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	defer cancel()

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.writePump(ctx)
	}()
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readPump(cancel)
	}()

	unsubscribe, err := s.hub.bus.Subscribe(ctx, s.userID, func(Change) { s.notifyChanged() })
	if err != nil {
		s.log.Error("subscribe failed", "error", err)
		s.sendEvent(EventError, ErrorPayload{Message: "Live updates are unavailable."})
		unsubscribe = func() {}
	}
	s.log.Debug("session opened")

	s.refresh(ctx)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-s.changes:
			s.refresh(ctx)
		case f := <-s.failed:
			// Forget the countdown so the next refresh starts it again.
			if t, ok := s.timers[f.lane]; ok && t.end == f.end {
				s.stopTimer(f.lane)
			}
		}
	}

	unsubscribe()
	for lane := range s.timers {
		s.stopTimer(lane)
	}
	s.timersWG.Wait()
	<-writeDone
	_ = s.conn.Close()
	<-readDone
	s.log.Debug("session closed")
}

func (s *Session) notifyChanged() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// refresh pushes the current document and reconciles lane countdowns with it.
func (s *Session) refresh(ctx context.Context) {
	u, err := s.hub.store.Get(ctx, s.userID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			s.sendEvent(EventError, ErrorPayload{Message: domain.ErrAccountNotFound.Message, Code: domain.ErrAccountNotFound.Code})
			s.cancel()
			return
		}
		s.log.Warn("failed to load document", "error", err)
		s.sendEvent(EventError, ErrorPayload{Message: "Storage is unavailable, please try again.", Code: domain.CodeStorageUnavailable})
		return
	}
	s.sendEvent(EventDocument, u)

	nowMs := s.hub.engine.Clock().Now().UnixMilli()
	for _, lane := range domain.Lanes {
		v := engine.View(u, lane, nowMs)
		c := v.Commitment
		if c == nil || c.Completed {
			s.stopTimer(lane)
			continue
		}
		if t, ok := s.timers[lane]; ok && t.end == c.EndTimestamp {
			continue
		}
		s.stopTimer(lane)
		s.startTimer(ctx, lane, c.EndTimestamp, c.DurationMs)
	}
}

func (s *Session) startTimer(ctx context.Context, lane domain.Lane, end, total int64) {
	laneCtx, cancel := context.WithCancel(ctx)
	s.timers[lane] = laneTimer{end: end, cancel: cancel}

	countdown := engine.NewCountdown(s.hub.engine.Clock(), s.hub.tick)
	s.timersWG.Add(1)
	go func() {
		defer s.timersWG.Done()
		countdown.Run(laneCtx, lane, end, total,
			func(t engine.Tick) { s.sendEvent(EventTick, t) },
			func() { s.expire(laneCtx, lane, end) },
		)
	}()
}

func (s *Session) stopTimer(lane domain.Lane) {
	if t, ok := s.timers[lane]; ok {
		t.cancel()
		delete(s.timers, lane)
	}
}

func (s *Session) expire(ctx context.Context, lane domain.Lane, end int64) {
	out, err := s.hub.engine.Complete(ctx, s.userID, lane)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("failed to complete commitment", "lane", lane, "error", err)
		select {
		case s.failed <- failedExpiry{lane: lane, end: end}:
		case <-ctx.Done():
			return
		}
		s.sendError(err)
		return
	}
	s.sendEvent(EventCompleted, CompletedPayload{Lane: lane, Status: out.Status})
}

func (s *Session) sendError(err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		s.sendEvent(EventError, ErrorPayload{Message: de.Message, Code: de.Code})
		return
	}
	s.sendEvent(EventError, ErrorPayload{Message: "Something went wrong."})
}

func (s *Session) sendEvent(typ string, data interface{}) {
	msg, err := json.Marshal(Event{Type: typ, Data: data})
	if err != nil {
		s.log.Error("failed to encode event", "type", typ, "error", err)
		return
	}
	select {
	case s.send <- msg:
	default:
		s.log.Warn("send buffer full, closing session")
		s.cancel()
	}
}

func (s *Session) readPump(cancel context.CancelFunc) {
	defer cancel()

	s.conn.SetReadLimit(4096)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read error", "error", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case MsgPing:
			s.sendEvent(EventPong, nil)
		case MsgRefresh:
			s.notifyChanged()
		}
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flush()
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Debug("write error", "error", err)
				s.cancel()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.cancel()
				return
			}
		}
	}
}

// flush writes whatever is still queued, e.g. the error that closed the session.
func (s *Session) flush() {
	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
