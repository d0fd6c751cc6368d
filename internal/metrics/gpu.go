package metrics

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mindprince/gonvml"

	"github.com/lesys-monitor/lesys/internal/logger"
)

// GPUReading is one GPU sample. Byte counts are nil when the tier cannot
// report them.
type GPUReading struct {
	Percent    float64
	UsedBytes  *uint64
	TotalBytes *uint64
}

// GPUDevice is a GPU sensor chosen once at sampler startup.
type GPUDevice interface {
	Source() GPUSource
	Read(ctx context.Context) (GPUReading, error)
	Close() error
}

// GPUProbe tries to open one GPU tier.
type GPUProbe struct {
	Name string
	Open func(ctx context.Context) (GPUDevice, error)
}

// SelectGPU tries probes in order and returns the first device that opens.
// When none does it returns a device that always reports no GPU.
func SelectGPU(ctx context.Context, probes []GPUProbe, log logger.Logger) GPUDevice {
	log = logger.OrNoop(log)
	for _, probe := range probes {
		dev, err := probe.Open(ctx)
		if err != nil {
			log.Debug("gpu probe %s unavailable: %v", probe.Name, err)
			continue
		}
		log.Info("gpu source: %s (%s)", dev.Source(), probe.Name)
		return dev
	}
	log.Info("gpu source: %s", GPUSourceNone)
	return noGPU{}
}

// DefaultGPUProbes returns the vendor library tier followed by the
// management query tier.
func DefaultGPUProbes(smiPath string, timeout time.Duration) []GPUProbe {
	return []GPUProbe{
		{Name: "nvml", Open: openNVML},
		{Name: "nvidia-smi", Open: func(ctx context.Context) (GPUDevice, error) {
			return openSMI(ctx, smiPath, timeout, runCmd)
		}},
	}
}

type noGPU struct{}

func (noGPU) Source() GPUSource                        { return GPUSourceNone }
func (noGPU) Read(context.Context) (GPUReading, error) { return GPUReading{}, nil }
func (noGPU) Close() error                             { return nil }

type nvmlDevice struct {
	dev gonvml.Device
}

func openNVML(context.Context) (GPUDevice, error) {
	if err := gonvml.Initialize(); err != nil {
		return nil, err
	}
	count, err := gonvml.DeviceCount()
	if err != nil || count == 0 {
		gonvml.Shutdown()
		if err == nil {
			err = errors.New("no devices")
		}
		return nil, err
	}
	dev, err := gonvml.DeviceHandleByIndex(0)
	if err != nil {
		gonvml.Shutdown()
		return nil, err
	}
	if _, _, err := dev.UtilizationRates(); err != nil {
		gonvml.Shutdown()
		return nil, err
	}
	return &nvmlDevice{dev: dev}, nil
}

func (n *nvmlDevice) Source() GPUSource { return GPUSourceVendorAPI }

func (n *nvmlDevice) Read(context.Context) (GPUReading, error) {
	util, _, err := n.dev.UtilizationRates()
	if err != nil {
		return GPUReading{}, err
	}
	r := GPUReading{Percent: float64(util)}
	if total, used, err := n.dev.MemoryInfo(); err == nil {
		r.UsedBytes = &used
		r.TotalBytes = &total
	}
	return r, nil
}

func (n *nvmlDevice) Close() error {
	return gonvml.Shutdown()
}

// smiDevice shells out to nvidia-smi on every read. Used VRAM is not
// requested at this tier; only utilization and total memory are reported.
type smiDevice struct {
	path    string
	timeout time.Duration
	run     cmdRunner
}

type cmdRunner func(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)

var smiArgs = []string{"--query-gpu=utilization.gpu,memory.total", "--format=csv,noheader,nounits"}

func openSMI(ctx context.Context, path string, timeout time.Duration, run cmdRunner) (GPUDevice, error) {
	if path == "" {
		path = "nvidia-smi"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, err
	}
	d := &smiDevice{path: resolved, timeout: timeout, run: run}
	if _, err := d.Read(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *smiDevice) Source() GPUSource { return GPUSourceManagementQuery }

func (s *smiDevice) Read(ctx context.Context) (GPUReading, error) {
	out, err := s.run(ctx, s.timeout, s.path, smiArgs...)
	if err != nil {
		return GPUReading{}, err
	}
	return parseSMI(out)
}

func (s *smiDevice) Close() error { return nil }

// parseSMI parses "utilization, memory.total" in percent and MiB. Only the
// first GPU is reported. "[N/A]" fields are treated as not exposed.
func parseSMI(output string) (GPUReading, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return GPUReading{}, errors.New("nvidia-smi: empty output")
	}
	line := strings.SplitN(output, "\n", 2)[0]
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return GPUReading{}, fmt.Errorf("nvidia-smi output has insufficient fields: expected 2, got %d", len(fields))
	}

	var r GPUReading
	utilStr := strings.TrimSpace(fields[0])
	if utilStr != "" && utilStr != "[N/A]" {
		util, err := strconv.ParseFloat(utilStr, 64)
		if err != nil {
			return GPUReading{}, fmt.Errorf("failed to parse GPU utilization '%s': %w", utilStr, err)
		}
		r.Percent = util
	}

	totalStr := strings.TrimSpace(fields[1])
	if totalStr != "" && totalStr != "[N/A]" {
		mib, err := strconv.ParseUint(totalStr, 10, 64)
		if err != nil {
			return GPUReading{}, fmt.Errorf("failed to parse GPU memory total '%s': %w", totalStr, err)
		}
		total := mib * 1024 * 1024
		r.TotalBytes = &total
	}
	return r, nil
}

func runCmd(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", ctx.Err()
	}
	return string(out), err
}
