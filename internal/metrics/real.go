package metrics

import (
	"errors"
	"runtime"
	"sort"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// HostSensors reads host metrics through gopsutil.
type HostSensors struct{}

func (HostSensors) CPUPercent() (float64, error) {
	pct, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, errors.New("cpu percent: no data")
	}
	return pct[0], nil
}

func (HostSensors) CPUFrequencyMHz() (float64, error) {
	info, err := cpu.Info()
	if err != nil {
		return 0, err
	}
	if len(info) == 0 || info[0].Mhz <= 0 {
		return 0, errors.New("cpu frequency: not reported")
	}
	return info[0].Mhz, nil
}

func (HostSensors) VirtualMemory() (VirtualMemory, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return VirtualMemory{}, err
	}
	return VirtualMemory{Total: vm.Total, Used: vm.Used, UsedPercent: vm.UsedPercent}, nil
}

func (HostSensors) NetCounters() ([]NetCounter, error) {
	stats, err := net.IOCounters(true)
	if err != nil {
		return nil, err
	}
	out := make([]NetCounter, 0, len(stats))
	for _, s := range stats {
		out = append(out, NetCounter{Name: s.Name, BytesSent: s.BytesSent, BytesRecv: s.BytesRecv})
	}
	return out, nil
}

func (HostSensors) DiskCounters() ([]DiskCounter, error) {
	stats, err := disk.IOCounters()
	if err != nil {
		return nil, err
	}
	out := make([]DiskCounter, 0, len(stats))
	for name, s := range stats {
		out = append(out, DiskCounter{Name: name, Label: s.Label, ReadBytes: s.ReadBytes, WriteBytes: s.WriteBytes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (HostSensors) Partitions() ([]Partition, error) {
	parts, err := disk.Partitions(false)
	if err != nil {
		return nil, err
	}
	out := make([]Partition, 0, len(parts))
	for _, p := range parts {
		out = append(out, Partition{Device: p.Device, Mountpoint: p.Mountpoint, Fstype: p.Fstype, Opts: p.Opts})
	}
	return out, nil
}

func (HostSensors) PartitionUsage(mountpoint string) (float64, error) {
	u, err := disk.Usage(mountpoint)
	if err != nil {
		return 0, err
	}
	return u.UsedPercent, nil
}

// HostProcesses enumerates processes through gopsutil.
//
// Process handles are cached across calls because CPU percent is measured
// against the previous call on the same handle.
type HostProcesses struct {
	procCache map[int32]*process.Process
	cpus      int
}

func NewHostProcesses() *HostProcesses {
	cpus, err := cpu.Counts(true)
	if err != nil || cpus < 1 {
		cpus = runtime.NumCPU()
	}
	return &HostProcesses{
		procCache: make(map[int32]*process.Process),
		cpus:      cpus,
	}
}

func (h *HostProcesses) LogicalCPUs() int {
	return h.cpus
}

func (h *HostProcesses) Processes() ([]RawProcess, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, err
	}

	// New cache for next iteration to clean up exited processes
	newCache := make(map[int32]*process.Process, len(pids))
	out := make([]RawProcess, 0, len(pids))

	for _, pid := range pids {
		p, ok := h.procCache[pid]
		if !ok {
			p, err = process.NewProcess(pid)
			if err != nil {
				continue
			}
		}

		raw, err := readProcess(p)
		if err != nil {
			continue
		}
		newCache[pid] = p
		out = append(out, raw)
	}

	h.procCache = newCache
	return out, nil
}

// readProcess reads one process. Name, CPU and resident memory are required;
// USS, IO counters and executable path are best effort.
func readProcess(p *process.Process) (RawProcess, error) {
	name, err := p.Name()
	if err != nil {
		return RawProcess{}, err
	}
	cpuPct, err := p.Percent(0)
	if err != nil {
		return RawProcess{}, err
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return RawProcess{}, err
	}
	if memInfo == nil {
		return RawProcess{}, errors.New("no memory info")
	}

	raw := RawProcess{
		PID:        p.Pid,
		Name:       name,
		CPUPercent: cpuPct,
		RSS:        memInfo.RSS,
	}

	if maps, err := p.MemoryMaps(true); err == nil && maps != nil && len(*maps) > 0 {
		var private uint64
		for _, m := range *maps {
			private += m.PrivateClean + m.PrivateDirty
		}
		// smaps values are in kB
		raw.USS = private * 1024
		raw.HasUSS = true
	}

	if io, err := p.IOCounters(); err == nil && io != nil {
		raw.ReadBytes = io.ReadBytes
		raw.WriteBytes = io.WriteBytes
		raw.HasIO = true
	}

	if exe, err := p.Exe(); err == nil {
		raw.ExePath = exe
	}

	return raw, nil
}
