package cli

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lesys-monitor/lesys/internal/config"
	"github.com/lesys-monitor/lesys/internal/handoff"
	"github.com/lesys-monitor/lesys/internal/logger"
	"github.com/lesys-monitor/lesys/internal/metrics"
)

// sources are the sensor backends the samplers read from.
type sources struct {
	sensors metrics.Sensors
	procs   metrics.ProcessSource
	probes  []metrics.GPUProbe
}

func newSources(cfg *config.Config, mock bool) sources {
	if mock {
		seed := time.Now().UnixNano()
		var probes []metrics.GPUProbe
		if cfg.GPU.Enabled {
			probes = []metrics.GPUProbe{metrics.MockGPUProbe(seed)}
		}
		return sources{
			sensors: metrics.NewMockSensors(seed),
			procs:   metrics.NewMockProcesses(seed),
			probes:  probes,
		}
	}
	return sources{
		sensors: metrics.HostSensors{},
		procs:   metrics.NewHostProcesses(),
		probes:  cfg.GPUProbes(),
	}
}

// engine owns both samplers and the slots they publish to.
type engine struct {
	system      *metrics.SystemSampler
	processes   *metrics.ProcessSampler
	systemSlot  *handoff.Slot[metrics.SystemSnapshot]
	processSlot *handoff.Slot[metrics.ProcessTable]
}

func newEngine(ctx context.Context, cfg *config.Config, src sources) *engine {
	return &engine{
		system:      metrics.NewSystemSampler(ctx, src.sensors, cfg.SystemConfig(src.probes), logger.NewEnvLogger("[system]")),
		processes:   metrics.NewProcessSampler(src.procs, cfg.ProcessConfig(), logger.NewEnvLogger("[process]")),
		systemSlot:  handoff.New[metrics.SystemSnapshot](),
		processSlot: handoff.New[metrics.ProcessTable](),
	}
}

// run drives both sampling loops until ctx is cancelled.
func (e *engine) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.system.Run(ctx, e.systemSlot)
	})
	g.Go(func() error {
		return e.processes.Run(ctx, e.processSlot)
	})
	return g.Wait()
}
