// Package realtime pushes user document changes and commitment countdowns
// to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Change announces that a user document was written.
type Change struct {
	UserID string `json:"userId"`
	At     int64  `json:"at"`
}

// Bus delivers document change announcements to subscribers.
type Bus interface {
	Publish(ctx context.Context, userID string) error
	// Subscribe calls fn for every change of userID until cancel is called
	// or ctx is done. fn must not block.
	Subscribe(ctx context.Context, userID string, fn func(Change)) (cancel func(), err error)
}

// LocalBus fans changes out inside this process.
type LocalBus struct {
	mu   sync.RWMutex
	seq  int
	subs map[string]map[int]func(Change)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]func(Change))}
}

func (b *LocalBus) Publish(_ context.Context, userID string) error {
	change := Change{UserID: userID, At: time.Now().UnixMilli()}

	b.mu.RLock()
	fns := make([]func(Change), 0, len(b.subs[userID]))
	for _, fn := range b.subs[userID] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, userID string, fn func(Change)) (func(), error) {
	b.mu.Lock()
	b.seq++
	id := b.seq
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]func(Change))
	}
	b.subs[userID][id] = fn
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[userID], id)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return cancel, nil
}

// subscribers returns the number of live subscriptions for userID.
func (b *LocalBus) subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// RedisBus fans changes out across instances over Redis pub/sub.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func channel(userID string) string {
	return "user-doc:" + userID
}

func (b *RedisBus) Publish(ctx context.Context, userID string) error {
	payload, err := json.Marshal(Change{UserID: userID, At: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, channel(userID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, userID string, fn func(Change)) (func(), error) {
	pubsub := b.client.Subscribe(ctx, channel(userID))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = pubsub.Close() })
	}
	go func() {
		defer cancel()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					change = Change{UserID: userID}
				}
				fn(change)
			}
		}
	}()
	return cancel, nil
}
