// Package notify delivers operator notifications about user activity.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Message is one operator notification.
type Message struct {
	Event  string    `json:"event"`
	UserID string    `json:"userId,omitempty"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Color  int       `json:"color"`
	At     time.Time `json:"at"`
}

// Notifier is a notification sink.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
