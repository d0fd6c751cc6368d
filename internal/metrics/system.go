package metrics

import (
	"context"
	"time"

	"github.com/lesys-monitor/lesys/internal/handoff"
	"github.com/lesys-monitor/lesys/internal/logger"
	"github.com/lesys-monitor/lesys/internal/rate"
)

// DefaultSystemInterval is the system sampling cadence.
const DefaultSystemInterval = time.Second

// SystemConfig configures a SystemSampler. Zero values select defaults.
type SystemConfig struct {
	Interval          time.Duration
	Blacklist         []string
	FallbackInterface string
	// GPUProbes are tried once, in order, when the sampler is created.
	GPUProbes []GPUProbe
}

// SystemSampler produces one SystemSnapshot per tick. It owns its counter
// state and must only be driven from one goroutine.
type SystemSampler struct {
	sensors  Sensors
	gpu      GPUDevice
	net      netState
	disk     diskState
	interval time.Duration
	primed   bool
	log      logger.Logger
}

// NewSystemSampler selects the GPU tier and primes the CPU counter.
func NewSystemSampler(ctx context.Context, sensors Sensors, cfg SystemConfig, log logger.Logger) *SystemSampler {
	log = logger.OrNoop(log)
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSystemInterval
	}
	if cfg.Blacklist == nil {
		cfg.Blacklist = DefaultInterfaceBlacklist
	}
	if cfg.FallbackInterface == "" {
		cfg.FallbackInterface = DefaultFallbackInterface
	}

	s := &SystemSampler{
		sensors: sensors,
		gpu:     SelectGPU(ctx, cfg.GPUProbes, log),
		net: netState{
			filter:   NewInterfaceFilter(cfg.Blacklist),
			fallback: cfg.FallbackInterface,
			sent:     rate.NewTracker[string]("net sent", log),
			recv:     rate.NewTracker[string]("net recv", log),
		},
		disk: diskState{
			read:  rate.NewTracker[string]("disk read", log),
			write: rate.NewTracker[string]("disk write", log),
			log:   log,
		},
		interval: cfg.Interval,
		log:      log,
	}

	// The first non-blocking CPU query has no baseline; throw it away.
	if _, err := sensors.CPUPercent(); err == nil {
		s.primed = true
	} else {
		log.Debug("cpu warm-up read failed: %v", err)
	}
	return s
}

// GPUSource returns the tier chosen at startup.
func (s *SystemSampler) GPUSource() GPUSource {
	return s.gpu.Source()
}

// Sample reads every sensor once. A failing sensor leaves its fields zero or
// empty; it never affects the others.
func (s *SystemSampler) Sample(ctx context.Context, now time.Time) SystemSnapshot {
	snap := SystemSnapshot{
		Timestamp:       now,
		GPUSource:       s.gpu.Source(),
		ActiveInterface: s.net.fallback,
		DiskIO:          map[string]DiskRate{},
		DiskUsage:       map[string]float64{},
	}

	if pct, err := s.sensors.CPUPercent(); err == nil {
		snap.CPUPercent = pct
		snap.CPULowConfidence = !s.primed
		s.primed = true
	} else {
		s.log.Debug("cpu percent: %v", err)
	}

	if mhz, err := s.sensors.CPUFrequencyMHz(); err == nil {
		ghz := mhz / 1000
		snap.CPUFrequencyGHz = &ghz
	}

	if vm, err := s.sensors.VirtualMemory(); err == nil {
		snap.RAMPercent = vm.UsedPercent
		snap.RAMUsedBytes = vm.Used
		snap.RAMTotalBytes = vm.Total
	} else {
		s.log.Debug("virtual memory: %v", err)
	}

	if g, err := s.gpu.Read(ctx); err == nil {
		snap.GPUPercent = g.Percent
		snap.GPUUsedBytes = g.UsedBytes
		snap.GPUTotalBytes = g.TotalBytes
	} else {
		s.log.Debug("gpu read (%s): %v", s.gpu.Source(), err)
	}

	if counters, err := s.sensors.NetCounters(); err == nil {
		n := s.net.observe(counters, now)
		snap.NetDownMBps = n.downMBps
		snap.NetUpMBps = n.upMBps
		snap.ActiveInterface = n.active
	} else {
		s.log.Debug("net counters: %v", err)
	}

	parts, err := s.sensors.Partitions()
	partsOK := err == nil
	if !partsOK {
		s.log.Debug("partitions: %v", err)
	}
	parts = usablePartitions(parts)
	snap.DiskUsage = diskUsage(s.sensors, parts)

	if counters, err := s.sensors.DiskCounters(); err == nil {
		snap.DiskIO = s.disk.observe(counters, parts, partsOK, now)
	} else {
		s.log.Debug("disk counters: %v", err)
	}

	return snap
}

// Run samples immediately and then once per interval, publishing each
// snapshot to slot, until ctx is cancelled. The GPU device is closed on exit.
func (s *SystemSampler) Run(ctx context.Context, slot *handoff.Slot[SystemSnapshot]) error {
	defer s.Close()
	return runLoop(ctx, s.interval, s.log, func(now time.Time) {
		slot.Publish(s.Sample(ctx, now))
	})
}

// Close releases the GPU device. Run calls it on exit; callers that only use
// Sample call it themselves.
func (s *SystemSampler) Close() error {
	if err := s.gpu.Close(); err != nil {
		s.log.Debug("gpu close: %v", err)
		return err
	}
	return nil
}
