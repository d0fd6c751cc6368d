package metrics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesys-monitor/lesys/internal/handoff"
	"github.com/lesys-monitor/lesys/internal/logger"
)

func newSystemSlot() *handoff.Slot[SystemSnapshot] {
	return handoff.New[SystemSnapshot]()
}

func TestRunLoopTicksImmediately(t *testing.T) {
	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runLoop(ctx, time.Hour, logger.Noop(), func(time.Time) { ticks.Add(1) })
	}()

	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestRunLoopSurvivesPanic(t *testing.T) {
	var ticks atomic.Int32
	buf := logger.NewBufferLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = runLoop(ctx, 5*time.Millisecond, buf, func(time.Time) {
			ticks.Add(1)
			panic("sensor exploded")
		})
	}()

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, buf.HasLevel("error"))
}

func TestRunLoopCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	assert.NoError(t, runLoop(ctx, time.Millisecond, logger.Noop(), func(time.Time) { called = true }))
	assert.False(t, called)
}

func TestHandleStop(t *testing.T) {
	want := errors.New("loop failed")
	h := Start(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return want
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.ErrorIs(t, h.Stop(ctx), want)

	select {
	case <-h.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestHandleStopTimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	h := Start(context.Background(), func(context.Context) error {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Stop(ctx), context.DeadlineExceeded)
}
