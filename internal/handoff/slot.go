// Package handoff delivers the latest value from a producer loop to any
// number of consumers without ever blocking the producer.
//
// Consumers always see the most recent value. A consumer that is slower than
// the producer simply misses intermediate values; nothing is queued.
package handoff

import (
	"sync"
	"sync/atomic"
)

type entry[T any] struct {
	value T
	seq   uint64
}

// Slot holds the most recently published value.
type Slot[T any] struct {
	latest atomic.Pointer[entry[T]]
	seq    atomic.Uint64

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// New returns an empty slot.
func New[T any]() *Slot[T] {
	return &Slot[T]{subs: make(map[chan struct{}]struct{})}
}

// Publish stores v as the latest value and wakes subscribers. It never waits
// for a consumer.
func (s *Slot[T]) Publish(v T) {
	seq := s.seq.Add(1)
	s.latest.Store(&entry[T]{value: v, seq: seq})

	s.mu.Lock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
			// A wake-up is already pending; the consumer will read the latest value.
		}
	}
	s.mu.Unlock()
}

// Latest returns the most recent value, its sequence number (starting at 1)
// and whether anything has been published yet.
func (s *Slot[T]) Latest() (T, uint64, bool) {
	e := s.latest.Load()
	if e == nil {
		var zero T
		return zero, 0, false
	}
	return e.value, e.seq, true
}

// Seq returns the sequence number of the latest value, 0 if none.
func (s *Slot[T]) Seq() uint64 {
	if e := s.latest.Load(); e != nil {
		return e.seq
	}
	return 0
}

// Subscribe returns a channel that receives a wake-up after each publish,
// coalesced to at most one pending signal, and a function that cancels the
// subscription.
func (s *Slot[T]) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Slot[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
