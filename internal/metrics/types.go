package metrics

import (
	"time"
)

// GPUSource records which acquisition tier produced the GPU reading.
type GPUSource string

const (
	GPUSourceNone            GPUSource = "NONE"
	GPUSourceVendorAPI       GPUSource = "VENDOR_API"
	GPUSourceManagementQuery GPUSource = "MANAGEMENT_QUERY"
)

// DiskRate is the read/write throughput of one volume in MiB/s.
type DiskRate struct {
	ReadMBps  float64 `json:"read_mbps"`
	WriteMBps float64 `json:"write_mbps"`
}

// SystemSnapshot holds the host-wide metrics for one system tick.
type SystemSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	CPUPercent      float64  `json:"cpu_percent"`
	CPUFrequencyGHz *float64 `json:"cpu_frequency_ghz,omitempty"`
	// CPULowConfidence is set when the CPU reading had no prior baseline.
	CPULowConfidence bool `json:"cpu_low_confidence"`

	RAMPercent    float64 `json:"ram_percent"`
	RAMUsedBytes  uint64  `json:"ram_used_bytes"`
	RAMTotalBytes uint64  `json:"ram_total_bytes"`

	GPUPercent    float64   `json:"gpu_percent"`
	GPUUsedBytes  *uint64   `json:"gpu_used_bytes,omitempty"`
	GPUTotalBytes *uint64   `json:"gpu_total_bytes,omitempty"`
	GPUSource     GPUSource `json:"gpu_source"`

	NetDownMBps     float64 `json:"net_down_mbps"`
	NetUpMBps       float64 `json:"net_up_mbps"`
	ActiveInterface string  `json:"active_interface"`

	DiskIO    map[string]DiskRate `json:"disk_io"`
	DiskUsage map[string]float64  `json:"disk_usage"`
}

// ProcessSample is one process observed during a process tick.
type ProcessSample struct {
	PID  int32  `json:"pid"`
	Name string `json:"name"`
	// CPUPercent is normalized to total machine capacity (0..100).
	CPUPercent float64 `json:"cpu_percent"`
	RAMBytes   uint64  `json:"ram_bytes"`
	DiskMBps   float64 `json:"disk_mbps"`
	ExePath    string  `json:"exe_path,omitempty"`
}

// ProcessTable is the full set of samples from one process tick.
type ProcessTable struct {
	Timestamp time.Time       `json:"timestamp"`
	Samples   []ProcessSample `json:"samples"`
}

// NetCounter holds cumulative byte counters for one interface.
type NetCounter struct {
	Name      string
	BytesSent uint64
	BytesRecv uint64
}

// DiskCounter holds cumulative byte counters for one block device.
type DiskCounter struct {
	Name string
	// Label is the device-mapper name (e.g. "root" for dm-0), when known.
	Label      string
	ReadBytes  uint64
	WriteBytes uint64
}

// Partition describes a mounted volume.
type Partition struct {
	Device     string
	Mountpoint string
	Fstype     string
	Opts       []string
}

// VirtualMemory is the host memory summary.
type VirtualMemory struct {
	Total       uint64
	Used        uint64
	UsedPercent float64
}

// RawProcess is what a ProcessSource reports for a single process before
// rates and normalization are applied.
type RawProcess struct {
	PID  int32
	Name string
	// CPUPercent is core-relative: 0..100 per logical core.
	CPUPercent float64
	RSS        uint64
	USS        uint64
	HasUSS     bool
	ReadBytes  uint64
	WriteBytes uint64
	HasIO      bool
	ExePath    string
}
