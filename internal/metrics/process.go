package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/lesys-monitor/lesys/internal/handoff"
	"github.com/lesys-monitor/lesys/internal/logger"
	"github.com/lesys-monitor/lesys/internal/rate"
)

// DefaultProcessInterval is the process sampling cadence.
const DefaultProcessInterval = 2 * time.Second

// DefaultIgnoredProcesses are OS idle and kernel bookkeeping processes.
var DefaultIgnoredProcesses = []string{
	"System Idle Process", "System", "Registry", "Memory Compression",
	"Secure System", "Idle", "kthreadd",
}

// ProcessConfig configures a ProcessSampler. Zero values select defaults.
type ProcessConfig struct {
	Interval time.Duration
	// Ignore lists process names to skip, compared case-insensitively.
	Ignore []string
}

// ProcessSampler produces one ProcessTable per tick. It owns the per-PID
// disk counter state and must only be driven from one goroutine.
type ProcessSampler struct {
	source   ProcessSource
	ignore   map[string]struct{}
	disk     *rate.Tracker[int32]
	interval time.Duration
	log      logger.Logger
}

// NewProcessSampler builds a sampler over source, filling defaults in cfg.
func NewProcessSampler(source ProcessSource, cfg ProcessConfig, log logger.Logger) *ProcessSampler {
	log = logger.OrNoop(log)
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultProcessInterval
	}
	if cfg.Ignore == nil {
		cfg.Ignore = DefaultIgnoredProcesses
	}
	ignore := make(map[string]struct{}, len(cfg.Ignore))
	for _, name := range cfg.Ignore {
		ignore[strings.ToLower(name)] = struct{}{}
	}
	return &ProcessSampler{
		source:   source,
		ignore:   ignore,
		disk:     rate.NewTracker[int32]("process io", log),
		interval: cfg.Interval,
		log:      log,
	}
}

// NormalizeCPU scales a core-relative percentage (0..100 per core) to a
// share of the whole machine.
func NormalizeCPU(raw float64, cores int) float64 {
	if cores < 1 {
		cores = 1
	}
	pct := raw / float64(cores)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// EstimateRAM returns the unique set size when known, otherwise half the
// resident set size as an approximation of private memory.
func EstimateRAM(p RawProcess) uint64 {
	if p.HasUSS {
		return p.USS
	}
	return p.RSS / 2
}

// Sample enumerates processes once. If the enumeration itself fails the
// table is empty and counter state is left untouched for the next tick.
func (s *ProcessSampler) Sample(now time.Time) (ProcessTable, error) {
	table := ProcessTable{Timestamp: now, Samples: []ProcessSample{}}

	procs, err := s.source.Processes()
	if err != nil {
		return table, err
	}

	cores := s.source.LogicalCPUs()
	live := make(map[int32]struct{}, len(procs))
	for _, p := range procs {
		if _, skip := s.ignore[strings.ToLower(p.Name)]; skip {
			continue
		}
		live[p.PID] = struct{}{}

		var diskMBps float64
		if p.HasIO {
			diskMBps = s.disk.Observe(p.PID, p.ReadBytes+p.WriteBytes, now) / bytesPerMiB
		}

		table.Samples = append(table.Samples, ProcessSample{
			PID:        p.PID,
			Name:       p.Name,
			CPUPercent: NormalizeCPU(p.CPUPercent, cores),
			RAMBytes:   EstimateRAM(p),
			DiskMBps:   diskMBps,
			ExePath:    p.ExePath,
		})
	}

	if n := s.disk.Retain(live); n > 0 {
		s.log.Debug("pruned io state for %d exited processes", n)
	}
	return table, nil
}

// Run samples immediately and then once per interval, publishing each table
// to slot, until ctx is cancelled.
func (s *ProcessSampler) Run(ctx context.Context, slot *handoff.Slot[ProcessTable]) error {
	return runLoop(ctx, s.interval, s.log, func(now time.Time) {
		table, err := s.Sample(now)
		if err != nil {
			s.log.Warn("process enumeration failed: %v", err)
		}
		slot.Publish(table)
	})
}
