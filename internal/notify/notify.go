// Package notify carries outbound signals from the attendance session to the
// presentation layer.
package notify

import (
	"context"
	"errors"
	"sync"
)

// ErrFull is returned when the buffer cannot take another notification.
var ErrFull = errors.New("notification buffer full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("notification bus closed")

type Kind string

const (
	// NeedsLogin asks the presentation layer to show its login surface.
	NeedsLogin Kind = "needs_login"
	// Attended reports a newly recorded attendance.
	Attended Kind = "attended"
	// StateChanged means a fresh Snapshot is available.
	StateChanged Kind = "state_changed"
)

// Notification is one signal. EventID is set for Attended.
type Notification struct {
	Kind    Kind
	EventID int
}

// Bus is the abstraction the session publishes to.
type Bus interface {
	Publish(ctx context.Context, n Notification) error
	Consume(ctx context.Context) (<-chan Notification, error)
}

// InMemory is a bounded channel-backed bus with a single consumer.
type InMemory struct {
	ch chan Notification

	mu     sync.RWMutex
	closed bool
}

// NewInMemory creates a bus buffering up to size notifications.
func NewInMemory(size int) *InMemory {
	if size <= 0 {
		size = 64
	}
	return &InMemory{ch: make(chan Notification, size)}
}

// Publish enqueues n without blocking.
func (b *InMemory) Publish(ctx context.Context, n Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case b.ch <- n:
		return nil
	default:
		return ErrFull
	}
}

// Consume returns a channel that is closed when ctx ends or the bus closes.
func (b *InMemory) Consume(ctx context.Context) (<-chan Notification, error) {
	out := make(chan Notification)
	go func() {
		defer close(out)
		for {
			select {
			case n, ok := <-b.ch:
				if !ok {
					return
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close stops accepting notifications; buffered ones are still delivered.
func (b *InMemory) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}
