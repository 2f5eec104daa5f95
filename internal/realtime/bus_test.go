package realtime

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBus(t *testing.T) {
	ctx := context.Background()
	bus := NewLocalBus()

	var mu sync.Mutex
	var got []string
	cancel, err := bus.Subscribe(ctx, "u1", func(c Change) {
		mu.Lock()
		got = append(got, c.UserID)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "u1"))
	require.NoError(t, bus.Publish(ctx, "u2"))

	mu.Lock()
	assert.Equal(t, []string{"u1"}, got)
	mu.Unlock()

	cancel()
	cancel()
	require.NoError(t, bus.Publish(ctx, "u1"))
	assert.Equal(t, 0, bus.subscribers("u1"))

	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()
}

func TestLocalBus_ContextCancelUnsubscribes(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := bus.Subscribe(ctx, "u1", func(Change) {})
	require.NoError(t, err)
	assert.Equal(t, 1, bus.subscribers("u1"))

	cancel()
	assert.Eventually(t, func() bool { return bus.subscribers("u1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestRedisBus(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	bus := NewRedisBus(client)

	got := make(chan Change, 1)
	cancel, err := bus.Subscribe(ctx, "redis-bus-test", func(c Change) {
		select {
		case got <- c:
		default:
		}
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, bus.Publish(ctx, "redis-bus-test"))
	select {
	case c := <-got:
		assert.Equal(t, "redis-bus-test", c.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change received")
	}
}
