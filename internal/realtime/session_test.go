package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
	"illyrian_project/internal/logger"
	"illyrian_project/internal/repository"
)

type rawEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startServer(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(userID, conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var ev rawEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestSession_StreamsCountdownAndCompletes(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUserStore()
	bus := NewLocalBus()
	eng := engine.New(store, engine.WithPublisher(bus), engine.WithLogger(logger.Discard()))
	hub := NewHub(store, bus, eng, 20*time.Millisecond)
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	end := time.Now().Add(150 * time.Millisecond).UnixMilli()
	require.NoError(t, store.Create(ctx, &domain.User{
		ID:            "u1",
		Username:      "alice",
		WalletsLocked: true,
		SelectedOffer: &domain.SelectedOffer{ID: 1, Range: "20$", Tokens: 200, DurationHours: 24, EffectiveDurationMs: 150},
		OfferEndTime:  &end,
	}))

	conn := startServer(t, hub, "u1")

	first := readEvent(t, conn)
	require.Equal(t, EventDocument, first.Type)
	var doc domain.User
	require.NoError(t, json.Unmarshal(first.Data, &doc))
	assert.Equal(t, "u1", doc.ID)
	assert.False(t, doc.InvestCompleted)

	ticks := 0
	var completed CompletedPayload
	var finalDoc domain.User
	for completed.Lane == "" || !finalDoc.InvestCompleted {
		ev := readEvent(t, conn)
		switch ev.Type {
		case EventTick:
			var tick engine.Tick
			require.NoError(t, json.Unmarshal(ev.Data, &tick))
			assert.Equal(t, domain.LaneInvest, tick.Lane)
			ticks++
		case EventCompleted:
			require.NoError(t, json.Unmarshal(ev.Data, &completed))
		case EventDocument:
			require.NoError(t, json.Unmarshal(ev.Data, &finalDoc))
		case EventError:
			t.Fatalf("unexpected error event: %s", ev.Data)
		}
	}

	assert.Greater(t, ticks, 1)
	assert.Equal(t, domain.LaneInvest, completed.Lane)
	assert.Equal(t, domain.StatusInvestCompleted, completed.Status)
	require.NotNil(t, finalDoc.LastInvestSummary)
	assert.Equal(t, int64(200), finalDoc.LastInvestSummary.Tokens)
}

func TestSession_PushesDocumentChanges(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUserStore()
	bus := NewLocalBus()
	eng := engine.New(store, engine.WithPublisher(bus), engine.WithLogger(logger.Discard()))
	hub := NewHub(store, bus, eng, time.Second)
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	require.NoError(t, store.Create(ctx, &domain.User{ID: "u1", Username: "alice", WalletsLocked: true}))
	conn := startServer(t, hub, "u1")
	assert.Equal(t, EventDocument, readEvent(t, conn).Type)

	_, err := eng.Start(ctx, "u1", domain.LaneMining, 200)
	require.NoError(t, err)

	var doc domain.User
	for doc.Mining == nil {
		ev := readEvent(t, conn)
		if ev.Type == EventDocument {
			require.NoError(t, json.Unmarshal(ev.Data, &doc))
		}
	}
	assert.Equal(t, int64(200), doc.Mining.Tier)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": MsgPing}))
	for {
		ev := readEvent(t, conn)
		if ev.Type == EventPong {
			break
		}
	}
}

func TestSession_ClosesOnDisconnect(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUserStore()
	bus := NewLocalBus()
	eng := engine.New(store, engine.WithLogger(logger.Discard()))
	hub := NewHub(store, bus, eng, 10*time.Millisecond)

	end := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, store.Create(ctx, &domain.User{
		ID:       "u1",
		Username: "alice",
		Mining:   &domain.Mining{Amount: 200, Tier: 200, Fee: 20, MiningEndTime: end, EffectiveDurationMs: 3_600_000},
	}))

	conn := startServer(t, hub, "u1")
	assert.Equal(t, EventDocument, readEvent(t, conn).Type)
	assert.Eventually(t, func() bool { return hub.Sessions() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return hub.Sessions() == 0 && bus.subscribers("u1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_UnknownAccount(t *testing.T) {
	store := repository.NewMemoryUserStore()
	bus := NewLocalBus()
	eng := engine.New(store, engine.WithLogger(logger.Discard()))
	hub := NewHub(store, bus, eng, time.Second)

	conn := startServer(t, hub, "ghost")
	ev := readEvent(t, conn)
	require.Equal(t, EventError, ev.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, domain.CodeAccountNotFound, payload.Code)
	assert.Eventually(t, func() bool { return hub.Sessions() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// flakyStore fails the first Update and behaves normally afterwards.
type flakyStore struct {
	*repository.MemoryUserStore
	failed atomic.Bool
}

func (s *flakyStore) Update(ctx context.Context, ids []string, fn domain.UpdateFunc) ([]string, error) {
	if s.failed.CompareAndSwap(false, true) {
		return nil, errors.New("connection reset")
	}
	return s.MemoryUserStore.Update(ctx, ids, fn)
}

func TestSession_RetriesCompletionAfterStorageError(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryUserStore: repository.NewMemoryUserStore()}
	bus := NewLocalBus()
	eng := engine.New(store, engine.WithPublisher(bus), engine.WithLogger(logger.Discard()))
	hub := NewHub(store, bus, eng, 20*time.Millisecond)
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	end := time.Now().Add(100 * time.Millisecond).UnixMilli()
	require.NoError(t, store.Create(ctx, &domain.User{
		ID:            "u1",
		Username:      "alice",
		WalletsLocked: true,
		SelectedOffer: &domain.SelectedOffer{ID: 1, Range: "20$", Tokens: 200, DurationHours: 24, EffectiveDurationMs: 100},
		OfferEndTime:  &end,
	}))

	conn := startServer(t, hub, "u1")
	require.Equal(t, EventDocument, readEvent(t, conn).Type)

	for {
		ev := readEvent(t, conn)
		if ev.Type == EventCompleted {
			t.Fatal("completed before the failed write was retried")
		}
		if ev.Type == EventError {
			var payload ErrorPayload
			require.NoError(t, json.Unmarshal(ev.Data, &payload))
			assert.Equal(t, domain.CodeStorageUnavailable, payload.Code)
			break
		}
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"type": MsgRefresh}))

	var completed CompletedPayload
	for completed.Lane == "" {
		ev := readEvent(t, conn)
		if ev.Type == EventCompleted {
			require.NoError(t, json.Unmarshal(ev.Data, &completed))
		}
	}
	assert.Equal(t, domain.LaneInvest, completed.Lane)

	u, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.InvestCompleted)
}
