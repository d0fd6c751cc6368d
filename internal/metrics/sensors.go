package metrics

// Sensors is the set of host-wide OS queries the system sampler depends on.
// Every method may fail independently.
type Sensors interface {
	// CPUPercent returns host-wide busy percent since the previous call.
	CPUPercent() (float64, error)
	CPUFrequencyMHz() (float64, error)
	VirtualMemory() (VirtualMemory, error)
	// NetCounters returns per-interface cumulative counters in enumeration order.
	NetCounters() ([]NetCounter, error)
	DiskCounters() ([]DiskCounter, error)
	// Partitions returns mounted partitions, optical drives included.
	Partitions() ([]Partition, error)
	// PartitionUsage returns the percent used of the volume at mountpoint.
	PartitionUsage(mountpoint string) (float64, error)
}

// ProcessSource enumerates live processes.
type ProcessSource interface {
	// Processes returns every process whose core fields could be read.
	// Processes that exit or deny access mid-enumeration are left out; an
	// error means the enumeration itself failed.
	Processes() ([]RawProcess, error)
	// LogicalCPUs returns the number of logical cores, at least 1.
	LogicalCPUs() int
}
