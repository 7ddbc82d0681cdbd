// Package notify is the in-process notification bus of a sync Manager.
// Notifications are not persisted; a subscriber that falls behind loses them.
package notify

import (
	"sync"
)

// Kind is a local sync notification
type Kind uint8

const (
	// Created is published after a local write committed
	Created Kind = iota + 1
	// Ingested is published after a remote batch was applied
	Ingested
)

// DefaultBuffer размер буфера одного подписчика по умолчанию
const DefaultBuffer = 16

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Ingested:
		return "ingested"
	default:
		return "unknown"
	}
}

// Bus fans notifications out to subscribers. Publish never blocks:
// a subscriber with a full buffer misses the notification.
type Bus struct {
	subs   map[uint64]chan Kind // активные подписчики
	next   uint64
	buffer int
	closed bool
	mu     sync.Mutex
}

// NewBus creates a bus with the given per-subscriber buffer
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subs:   make(map[uint64]chan Kind),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber. The returned cancel func unsubscribes and
// closes the channel; it is safe to call more than once.
// Subscribing to a closed bus returns an already closed channel.
func (b *Bus) Subscribe() (<-chan Kind, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Kind, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers k to every subscriber that has room and returns how many
// subscribers missed it. Publishing with no subscribers is a no-op
func (b *Bus) Publish(k Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}

	dropped := 0
	for _, ch := range b.subs {
		select {
		case ch <- k:
		default:
			dropped++
		}
	}
	return dropped
}

// Subscribers returns the number of active subscribers
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are ignored
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
