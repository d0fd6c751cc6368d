package metrics

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/lesys-monitor/lesys/internal/logger"
	"github.com/lesys-monitor/lesys/internal/rate"
)

// TotalDrive keys the machine-wide disk rate when per-volume counters are
// not available.
const TotalDrive = "Total"

const bytesPerMiB = 1024 * 1024

// DriveID derives the map key for a partition: the device with any trailing
// path separator removed, so "C:\" becomes "C:".
func DriveID(p Partition) string {
	id := strings.TrimRight(p.Device, `\`)
	if id == "" {
		id = p.Mountpoint
	}
	return id
}

// IsOptical reports whether a partition is a CD/DVD drive or has no
// filesystem (for example an empty removable drive).
func IsOptical(p Partition) bool {
	if p.Fstype == "" {
		return true
	}
	switch strings.ToLower(p.Fstype) {
	case "iso9660", "udf", "cdfs":
		return true
	}
	for _, o := range p.Opts {
		if strings.Contains(strings.ToLower(o), "cdrom") {
			return true
		}
	}
	return false
}

// usablePartitions drops optical drives and repeated mounts of one device.
func usablePartitions(parts []Partition) []Partition {
	seen := make(map[string]bool, len(parts))
	out := make([]Partition, 0, len(parts))
	for _, p := range parts {
		if IsOptical(p) {
			continue
		}
		id := DriveID(p)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, p)
	}
	return out
}

// diskUsage maps drive id to percent full. Partitions whose usage cannot be
// read are left out rather than reported as zero.
func diskUsage(s Sensors, parts []Partition) map[string]float64 {
	usage := make(map[string]float64, len(parts))
	for _, p := range parts {
		pct, err := s.PartitionUsage(p.Mountpoint)
		if err != nil {
			continue
		}
		usage[DriveID(p)] = pct
	}
	return usage
}

// mapperPrefix is where Linux exposes device-mapper volumes (LVM, dm-crypt).
// Their IO counters are keyed by kernel name (dm-N) and carry the mapper
// name as a label.
const mapperPrefix = "/dev/mapper/"

type diskTier int

const (
	diskTierUnknown diskTier = iota
	diskTierVolume
	diskTierTotal
)

// diskState tracks disk byte counters keyed by drive id, or by TotalDrive
// in the aggregate tier.
//
// The tier is chosen on the first tick where both partitions and counters
// are readable. Per-volume is kept only while every usable partition maps to
// a counter; the first volume that does not demotes the state to the
// aggregate tier for good, so keys never flip back and forth.
type diskState struct {
	read  *rate.Tracker[string]
	write *rate.Tracker[string]
	log   logger.Logger

	tier diskTier
	// volumes maps drive id to counter name in the per-volume tier.
	volumes map[string]string
}

// observe returns the disk rates for one tick. partsOK is false when the
// partition list could not be read; the last known volumes are used then.
func (d *diskState) observe(counters []DiskCounter, parts []Partition, partsOK bool, now time.Time) map[string]DiskRate {
	if len(counters) == 0 {
		return map[string]DiskRate{}
	}

	if d.tier == diskTierUnknown {
		if !partsOK {
			return d.total(counters, now)
		}
		d.tier = diskTierVolume
	}

	if d.tier == diskTierVolume {
		if rates, ok := d.perVolume(counters, parts, partsOK, now); ok {
			return rates
		}
		d.tier = diskTierTotal
		d.volumes = nil
		d.read.Retain(map[string]struct{}{})
		d.write.Retain(map[string]struct{}{})
		d.log.Info("disk io: not every volume has a counter, reporting %s", TotalDrive)
	}
	return d.total(counters, now)
}

// perVolume returns one rate per usable partition, or false when any of
// them has no counter.
func (d *diskState) perVolume(counters []DiskCounter, parts []Partition, partsOK bool, now time.Time) (map[string]DiskRate, bool) {
	byName := make(map[string]DiskCounter, len(counters))
	for _, c := range counters {
		byName[c.Name] = c
	}

	if partsOK {
		current := make(map[string]string, len(parts))
		for _, p := range parts {
			id := DriveID(p)
			name, ok := d.volumes[id]
			if !ok {
				if name, ok = counterName(p, counters); !ok {
					d.log.Debug("disk io: no counter for %s", id)
					return nil, false
				}
			}
			current[id] = name
		}
		d.volumes = current
	}
	if len(d.volumes) == 0 {
		return nil, false
	}

	live := make(map[string]struct{}, len(d.volumes))
	rates := make(map[string]DiskRate, len(d.volumes))
	for id, name := range d.volumes {
		c, ok := byName[name]
		if !ok {
			d.log.Debug("disk io: counter %s for %s disappeared", name, id)
			return nil, false
		}
		live[id] = struct{}{}
		rates[id] = DiskRate{
			ReadMBps:  d.read.Observe(id, c.ReadBytes, now) / bytesPerMiB,
			WriteMBps: d.write.Observe(id, c.WriteBytes, now) / bytesPerMiB,
		}
	}
	d.read.Retain(live)
	d.write.Retain(live)
	return rates, true
}

func (d *diskState) total(counters []DiskCounter, now time.Time) map[string]DiskRate {
	var read, write uint64
	for _, c := range counters {
		read += c.ReadBytes
		write += c.WriteBytes
	}
	return map[string]DiskRate{
		TotalDrive: {
			ReadMBps:  d.read.Observe(TotalDrive, read, now) / bytesPerMiB,
			WriteMBps: d.write.Observe(TotalDrive, write, now) / bytesPerMiB,
		},
	}
}

// counterName finds the counter for a partition: by drive id, by its base
// name (/dev/sda1 -> sda1), or for /dev/mapper volumes by mapper label
// (/dev/mapper/root -> dm-0).
func counterName(p Partition, counters []DiskCounter) (string, bool) {
	id := DriveID(p)
	base := filepath.Base(id)
	for _, c := range counters {
		if c.Name == id || c.Name == base {
			return c.Name, true
		}
	}
	if strings.HasPrefix(p.Device, mapperPrefix) {
		mapper := strings.TrimPrefix(p.Device, mapperPrefix)
		for _, c := range counters {
			if c.Label != "" && c.Label == mapper {
				return c.Name, true
			}
		}
	}
	return "", false
}
