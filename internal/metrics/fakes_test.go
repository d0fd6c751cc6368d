package metrics

import (
	"context"
	"errors"
)

var errSensor = errors.New("sensor unavailable")

type fakeSensors struct {
	cpu      float64
	cpuErr   error
	cpuCalls int
	mhz      float64
	mhzErr   error
	vm       VirtualMemory
	vmErr    error
	net      []NetCounter
	netErr   error
	disk     []DiskCounter
	diskErr  error
	parts    []Partition
	partsErr error
	usage    map[string]float64
}

func (f *fakeSensors) CPUPercent() (float64, error) {
	f.cpuCalls++
	return f.cpu, f.cpuErr
}

func (f *fakeSensors) CPUFrequencyMHz() (float64, error)     { return f.mhz, f.mhzErr }
func (f *fakeSensors) VirtualMemory() (VirtualMemory, error) { return f.vm, f.vmErr }
func (f *fakeSensors) NetCounters() ([]NetCounter, error)    { return f.net, f.netErr }
func (f *fakeSensors) DiskCounters() ([]DiskCounter, error)  { return f.disk, f.diskErr }
func (f *fakeSensors) Partitions() ([]Partition, error)      { return f.parts, f.partsErr }

func (f *fakeSensors) PartitionUsage(mountpoint string) (float64, error) {
	pct, ok := f.usage[mountpoint]
	if !ok {
		return 0, errSensor
	}
	return pct, nil
}

type fakeProcesses struct {
	procs []RawProcess
	err   error
	cpus  int
}

func (f *fakeProcesses) Processes() ([]RawProcess, error) { return f.procs, f.err }
func (f *fakeProcesses) LogicalCPUs() int                 { return f.cpus }

type fakeGPU struct {
	source  GPUSource
	reading GPUReading
	err     error
	closed  bool
}

func (g *fakeGPU) Source() GPUSource                        { return g.source }
func (g *fakeGPU) Read(context.Context) (GPUReading, error) { return g.reading, g.err }
func (g *fakeGPU) Close() error                             { g.closed = true; return nil }

func probeOf(name string, dev GPUDevice, err error) GPUProbe {
	return GPUProbe{Name: name, Open: func(context.Context) (GPUDevice, error) {
		if err != nil {
			return nil, err
		}
		return dev, nil
	}}
}

func u64(v uint64) *uint64 { return &v }
