// Package eventbus fans progress events out to in-process subscribers.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the channel capacity of a subscriber.
const DefaultBuffer = 64

// TypedBus delivers events of type T to every subscriber. Publishing never
// blocks: an event is dropped for a subscriber whose buffer is full, so a
// slow progress reader cannot stall the workers.
type TypedBus[T any] struct {
	mu      sync.RWMutex
	subs    []chan T
	closed  bool
	buffer  int
	dropped atomic.Uint64
}

// NewTyped returns a bus whose subscribers get buffer slots, or
// DefaultBuffer when buffer is not positive.
func NewTyped[T any](buffer ...int) *TypedBus[T] {
	b := &TypedBus[T]{buffer: DefaultBuffer}
	if len(buffer) > 0 && buffer[0] > 0 {
		b.buffer = buffer[0]
	}
	return b
}

// Publish offers e to every subscriber.
func (b *TypedBus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe returns a channel receiving every later event. The channel is
// closed by Unsubscribe or Close; on a closed bus it is returned closed.
func (b *TypedBus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe removes sub and closes it.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Dropped returns the number of deliveries skipped on full subscribers.
func (b *TypedBus[T]) Dropped() uint64 { return b.dropped.Load() }

// Close closes every subscriber. Later publications are ignored.
func (b *TypedBus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
