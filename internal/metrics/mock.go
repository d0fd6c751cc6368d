package metrics

import (
	"context"
	"math/rand"
	"sync"
)

// MockSensors simulates a host with two physical NICs, one virtual switch
// and two volumes. Counters only ever increase.
type MockSensors struct {
	mu   sync.Mutex
	rng  *rand.Rand
	net  []NetCounter
	disk []DiskCounter
}

func NewMockSensors(seed int64) *MockSensors {
	return &MockSensors{
		rng: rand.New(rand.NewSource(seed)),
		net: []NetCounter{
			{Name: "eth0"},
			{Name: "wlan0"},
			{Name: "vEthernet (WSL)"},
		},
		disk: []DiskCounter{
			{Name: "sda1"},
			{Name: "sdb1"},
		},
	}
}

func (m *MockSensors) CPUPercent() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return 20 + m.rng.Float64()*10, nil
}

func (m *MockSensors) CPUFrequencyMHz() (float64, error) {
	return 3600, nil
}

func (m *MockSensors) VirtualMemory() (VirtualMemory, error) {
	total := uint64(32) << 30
	used := uint64(12) << 30
	return VirtualMemory{Total: total, Used: used, UsedPercent: float64(used) / float64(total) * 100}, nil
}

func (m *MockSensors) NetCounters() ([]NetCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.net {
		m.net[i].BytesRecv += uint64(m.rng.Intn(4 << 20))
		m.net[i].BytesSent += uint64(m.rng.Intn(1 << 20))
	}
	out := make([]NetCounter, len(m.net))
	copy(out, m.net)
	return out, nil
}

func (m *MockSensors) DiskCounters() ([]DiskCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.disk {
		m.disk[i].ReadBytes += uint64(m.rng.Intn(8 << 20))
		m.disk[i].WriteBytes += uint64(m.rng.Intn(2 << 20))
	}
	out := make([]DiskCounter, len(m.disk))
	copy(out, m.disk)
	return out, nil
}

func (m *MockSensors) Partitions() ([]Partition, error) {
	return []Partition{
		{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		{Device: "/dev/sdb1", Mountpoint: "/data", Fstype: "xfs"},
		{Device: "/dev/sr0", Mountpoint: "/media/cdrom", Fstype: "iso9660", Opts: []string{"ro"}},
	}, nil
}

func (m *MockSensors) PartitionUsage(mountpoint string) (float64, error) {
	if mountpoint == "/" {
		return 61.5, nil
	}
	return 23.0, nil
}

type mockProc struct {
	name string
	exe  string
	rss  uint64
}

// MockProcesses simulates a stable process table with several multi-process
// applications.
type MockProcesses struct {
	mu    sync.Mutex
	rng   *rand.Rand
	procs []mockProc
	io    map[int32]uint64
}

func NewMockProcesses(seed int64) *MockProcesses {
	cmds := []mockProc{
		{name: "chrome", exe: "/opt/google/chrome/chrome", rss: 300 << 20},
		{name: "code", exe: "/usr/share/code/code", rss: 200 << 20},
		{name: "go", exe: "/usr/local/go/bin/go", rss: 80 << 20},
		{name: "kworker", rss: 0},
		{name: "bash", exe: "/usr/bin/bash", rss: 5 << 20},
		{name: "System Idle Process"},
	}
	m := &MockProcesses{rng: rand.New(rand.NewSource(seed)), io: make(map[int32]uint64)}
	for i := 0; i < 50; i++ {
		m.procs = append(m.procs, cmds[i%len(cmds)])
	}
	return m
}

func (m *MockProcesses) LogicalCPUs() int {
	return 8
}

func (m *MockProcesses) Processes() ([]RawProcess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RawProcess, 0, len(m.procs))
	for i, p := range m.procs {
		pid := int32(1000 + i)
		m.io[pid] += uint64(m.rng.Intn(512 << 10))
		rss := p.rss + uint64(m.rng.Intn(16<<20))
		out = append(out, RawProcess{
			PID:        pid,
			Name:       p.name,
			CPUPercent: m.rng.Float64() * 40,
			RSS:        rss,
			USS:        rss * 3 / 5,
			HasUSS:     i%3 != 0,
			ReadBytes:  m.io[pid],
			HasIO:      true,
			ExePath:    p.exe,
		})
	}
	return out, nil
}

type mockGPU struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// MockGPUProbe returns a probe that always opens a simulated vendor-API GPU.
func MockGPUProbe(seed int64) GPUProbe {
	return GPUProbe{
		Name: "mock",
		Open: func(context.Context) (GPUDevice, error) {
			return &mockGPU{rng: rand.New(rand.NewSource(seed))}, nil
		},
	}
}

func (g *mockGPU) Source() GPUSource { return GPUSourceVendorAPI }

func (g *mockGPU) Read(context.Context) (GPUReading, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := uint64(24576) << 20
	used := uint64(8) << 30
	return GPUReading{
		Percent:    float64(50 + g.rng.Intn(30)),
		UsedBytes:  &used,
		TotalBytes: &total,
	}, nil
}

func (g *mockGPU) Close() error { return nil }
