// Package stream fans pipeline output out to HTTP clients.
package stream

import "sync"

// Hub delivers the latest published value to every subscriber.
//
// Each subscriber has a one-slot buffer. Publish never blocks: a subscriber that has not
// taken the previous value has it replaced by the new one.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	latest T
	has    bool
	closed bool
}

// NewHub creates an empty Hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[chan T]struct{})}
}

// Publish sends v to all subscribers, dropping any value they have not yet received.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.latest, h.has = v, true

	for ch := range h.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Drop the stale value, then deliver.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe returns a channel receiving published values and a cancel function.
// The most recent value, if any, is delivered immediately. The channel is closed by cancel
// or by Close.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.has {
		ch <- h.latest
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Latest returns the most recently published value.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.has
}

// Subscribers returns the number of active subscribers.
func (h *Hub[T]) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
