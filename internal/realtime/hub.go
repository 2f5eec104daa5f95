package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
	"illyrian_project/internal/logger"
)

var activeSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "realtime_sessions",
		Help: "Open websocket sessions",
	},
)

func init() {
	prometheus.MustRegister(activeSessions)
}

// Hub owns every open session of this instance.
type Hub struct {
	store  domain.UserStore
	bus    Bus
	engine *engine.Engine
	tick   time.Duration
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewHub(store domain.UserStore, bus Bus, eng *engine.Engine, tick time.Duration) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		store:    store,
		bus:      bus,
		engine:   eng,
		tick:     tick,
		log:      logger.Component("realtime"),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[*Session]struct{}),
	}
}

// Serve runs a session for userID on conn until either side closes it.
func (h *Hub) Serve(userID string, conn *websocket.Conn) {
	s := newSession(h, userID, conn)

	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	h.wg.Add(1)
	activeSessions.Inc()

	defer func() {
		h.mu.Lock()
		delete(h.sessions, s)
		h.mu.Unlock()
		activeSessions.Dec()
		h.wg.Done()
	}()

	s.run(h.ctx)
}

// Sessions returns the number of open sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown closes every session and waits for them to finish.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
