// Package rate turns cumulative OS counters into per-second rates.
//
// A counter that goes backwards (interface reset, wraparound, PID reuse)
// yields a rate of zero for that tick instead of a negative value or a spike.
package rate

import (
	"time"

	"github.com/lesys-monitor/lesys/internal/logger"
)

// MinElapsed bounds the divisor when two observations share a timestamp.
const MinElapsed = time.Millisecond

// Observation is one reading of a cumulative counter.
type Observation struct {
	Value uint64
	At    time.Time
}

// PerSecond returns max(0, curr-prev) / max(elapsed, MinElapsed).
func PerSecond(prev, curr Observation) float64 {
	if curr.Value < prev.Value {
		return 0
	}
	elapsed := curr.At.Sub(prev.At)
	if elapsed < MinElapsed {
		elapsed = MinElapsed
	}
	return float64(curr.Value-prev.Value) / elapsed.Seconds()
}

// Tracker keeps the previous observation per key. It is not safe for
// concurrent use; each sampling loop owns its trackers.
type Tracker[K comparable] struct {
	name      string
	prev      map[K]Observation
	anomalies uint64
	log       logger.Logger
}

// NewTracker creates a tracker. The name labels anomaly log lines.
func NewTracker[K comparable](name string, log logger.Logger) *Tracker[K] {
	return &Tracker[K]{
		name: name,
		prev: make(map[K]Observation),
		log:  logger.OrNoop(log),
	}
}

// Observe records value for key at the given time and returns the rate since
// the previous observation of the same key. The first observation returns 0.
func (t *Tracker[K]) Observe(key K, value uint64, at time.Time) float64 {
	curr := Observation{Value: value, At: at}
	prev, ok := t.prev[key]
	t.prev[key] = curr
	if !ok {
		return 0
	}
	if value < prev.Value {
		t.anomalies++
		t.log.Debug("%s: counter for %v went backwards (%d -> %d), clamping to 0", t.name, key, prev.Value, value)
		return 0
	}
	return PerSecond(prev, curr)
}

// Retain drops state for every key not in live and returns how many were removed.
func (t *Tracker[K]) Retain(live map[K]struct{}) int {
	removed := 0
	for key := range t.prev {
		if _, ok := live[key]; !ok {
			delete(t.prev, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (t *Tracker[K]) Len() int {
	return len(t.prev)
}

// Anomalies returns how many negative deltas were clamped so far.
func (t *Tracker[K]) Anomalies() uint64 {
	return t.anomalies
}
