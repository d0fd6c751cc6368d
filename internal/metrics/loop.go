package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/lesys-monitor/lesys/internal/logger"
)

// runLoop calls tick immediately and then every interval until ctx is done.
// A panicking tick is logged and the loop carries on.
func runLoop(ctx context.Context, interval time.Duration, log logger.Logger, tick func(now time.Time)) error {
	safeTick := func(now time.Time) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("sampling tick panicked: %v", r)
			}
		}()
		tick(now)
	}

	if ctx.Err() != nil {
		return nil
	}
	safeTick(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			safeTick(now)
		}
	}
}

// Handle controls a running sampling loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Start runs fn in its own goroutine with a context derived from parent.
func Start(parent context.Context, fn func(ctx context.Context) error) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		err := fn(ctx)
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
	}()
	return h
}

// Done is closed once the loop has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Stop asks the loop to exit at its next tick boundary and waits for it, or
// for ctx to expire.
func (h *Handle) Stop(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
