// Package stream is the small reactive-streams substrate the rest of the
// pipeline is built on: hot multicast broadcast with last-value-wins
// delivery, time- and count-windowed buffering, a Map operator, and
// distinct-value filtering. None of the repos in the retrieval pack carry a
// reactive-streams library (no rxgo precedent was found), so this is
// implemented directly on goroutines and channels, generalizing the
// ticker-driven background-goroutine idiom the teacher uses for its cache
// janitor (pkg/utils/cachedClient.go) into a reusable subscribe/cancel
// contract.
package stream

import (
	"sync"
)

// Broadcaster is a hot, multicast, last-value-wins stream: every
// subscriber receives every published value, but a slow subscriber never
// blocks the publisher — if a subscriber hasn't drained its channel before
// the next publish, the stale value is dropped in favor of the new one.
type Broadcaster[T any] struct {
	mu      sync.Mutex
	subs    map[int]chan T
	nextID  int
	closed  bool
	latest  T
	hasLast bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function that unsubscribes it. If a value has already been
// published, the new subscriber immediately receives it (cold-to-hot
// share semantics for late subscribers).
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, 1)
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	if b.hasLast {
		ch <- b.latest
	}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish broadcasts v to every current subscriber without blocking.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.latest = v
	b.hasLast = true
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Drain the stale value and replace it with the latest one.
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
}

// Close terminates the broadcaster, closing every subscriber channel. No
// further Publish or Subscribe calls are meaningful afterwards.
func (b *Broadcaster[T]) Close() {
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

// DistinctUntilChanged relays values from in to the returned channel, but
// suppresses any value equal (per eq) to the immediately preceding one.
// The returned cancel function stops the relay goroutine.
func DistinctUntilChanged[T any](in <-chan T, eq func(a, b T) bool) (<-chan T, func()) {
	out := make(chan T, 1)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }

	go func() {
		defer close(out)
		var prev T
		hasPrev := false
		for {
			select {
			case <-done:
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				if hasPrev && eq(prev, v) {
					continue
				}
				prev = v
				hasPrev = true
				select {
				case out <- v:
				case <-done:
					return
				}
			}
		}
	}()
	return out, cancel
}

// Map transforms every value from in with f, emitting to the returned
// channel until in closes or cancel is called.
func Map[T, U any](in <-chan T, f func(T) U) (<-chan U, func()) {
	out := make(chan U, 1)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- f(v):
				case <-done:
					return
				}
			}
		}
	}()
	return out, cancel
}
